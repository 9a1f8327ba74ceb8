package assets

import (
	"context"
	"errors"

	"github.com/clearcase/worker/internal/extraction"
)

// NewCacheLookup adapts FindByContentHash to the extraction cache contract.
// A missing extraction is a miss, not an error.
func NewCacheLookup(sys System) extraction.CacheLookup {
	return extraction.LookupFunc(func(ctx context.Context, contentHash, _, mimeType string) (*extraction.CachedExtraction, error) {
		e, err := sys.FindByContentHash(ctx, contentHash, mimeType)
		if errors.Is(err, ErrExtractionNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		return &extraction.CachedExtraction{
			SourceExtractionID: e.ID.String(),
			Engine:             e.Engine,
			EngineVersion:      e.EngineVersion,
			RawText:            e.RawText,
			StructuredFacts:    e.StructuredFacts,
			PageUnitEstimate:   e.PageUnitEstimate,
		}, nil
	})
}
