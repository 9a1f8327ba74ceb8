package extraction

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// LookupFunc adapts a function to the CacheLookup interface.
type LookupFunc func(ctx context.Context, contentHash, fileName, mimeType string) (*CachedExtraction, error)

func (f LookupFunc) Lookup(ctx context.Context, contentHash, fileName, mimeType string) (*CachedExtraction, error) {
	return f(ctx, contentHash, fileName, mimeType)
}

type memoCache struct {
	next  CacheLookup
	items *cache.Cache
}

// NewMemoCache remembers hits from next for ttl. Misses and errors are not
// remembered, so a later extraction of the same content becomes visible.
func NewMemoCache(next CacheLookup, ttl time.Duration) CacheLookup {
	return &memoCache{
		next:  next,
		items: cache.New(ttl, 2*ttl),
	}
}

func (m *memoCache) Lookup(ctx context.Context, contentHash, fileName, mimeType string) (*CachedExtraction, error) {
	key := contentHash + "|" + mimeType
	if v, ok := m.items.Get(key); ok {
		return v.(*CachedExtraction), nil
	}

	hit, err := m.next.Lookup(ctx, contentHash, fileName, mimeType)
	if err != nil || hit == nil {
		return hit, err
	}

	m.items.SetDefault(key, hit)
	return hit, nil
}
