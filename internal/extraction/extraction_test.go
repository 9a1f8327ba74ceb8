package extraction_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/extraction"
	"github.com/clearcase/worker/pkg/lifecycle"
	"github.com/clearcase/worker/pkg/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	objects map[string]*storage.Object
	err     error
}

func (s *fakeStore) Start(*lifecycle.Coordinator) error { return nil }

func (s *fakeStore) Upload(context.Context, string, io.Reader, string) error { return nil }

func (s *fakeStore) Download(_ context.Context, key string) (*storage.Object, error) {
	if s.err != nil {
		return nil, s.err
	}
	obj, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return obj, nil
}

func storeWith(t *testing.T, key, fixture string) *fakeStore {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", fixture))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return &fakeStore{objects: map[string]*storage.Object{
		key: {
			Key:          key,
			Data:         data,
			Size:         int64(len(data)),
			ETag:         "etag-1",
			ContentType:  "application/pdf",
			LastModified: time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC),
		},
	}}
}

type fakeBackend struct {
	calls int
	ann   *extraction.Annotation
	err   error
}

func (b *fakeBackend) Engine() (string, string) { return "fake-ocr", "test-v1" }

func (b *fakeBackend) Annotate(context.Context, []byte, string) (*extraction.Annotation, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return b.ann, nil
}

func input(key, fileName, mimeType string) extraction.Input {
	return extraction.Input{
		CaseID:     uuid.New(),
		AssetID:    uuid.New(),
		StorageKey: key,
		FileName:   fileName,
		MimeType:   mimeType,
	}
}

func TestNewProviderSelection(t *testing.T) {
	if _, err := extraction.New("stub", nil, nil, discardLogger()); err != nil {
		t.Errorf("stub: %v", err)
	}
	if _, err := extraction.New("document", &fakeStore{}, &fakeBackend{}, discardLogger()); err != nil {
		t.Errorf("document: %v", err)
	}
	if _, err := extraction.New("document", nil, nil, discardLogger()); !errors.Is(err, extraction.ErrUnsupportedProvider) {
		t.Errorf("document without deps: err = %v", err)
	}
	if _, err := extraction.New("google_vision", nil, nil, discardLogger()); !errors.Is(err, extraction.ErrUnsupportedProvider) {
		t.Errorf("unknown: err = %v", err)
	}
}

func TestStubNeverIncludesStorageKey(t *testing.T) {
	in := input("cases/c1/assets/2026-02-12/secret-file.jpg", "eviction-notice-deadline-2026-02-26.jpg", "image/jpeg")

	res, err := extraction.NewStub().Extract(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Contains(res.RawText, in.StorageKey) || strings.Contains(res.RawText, "S3:") {
		t.Errorf("raw text leaks storage key: %q", res.RawText)
	}
	for k, v := range res.StructuredFacts {
		if s, ok := v.(string); ok && strings.Contains(s, "secret-file") {
			t.Errorf("fact %s leaks storage key", k)
		}
	}
	if res.Engine != extraction.StubEngine || res.EngineVersion != "v1" {
		t.Errorf("engine = %s/%s", res.Engine, res.EngineVersion)
	}
	if !strings.Contains(res.RawText, "FILE: eviction-notice-deadline-2026-02-26.jpg") {
		t.Errorf("raw text = %q", res.RawText)
	}
	if res.Metadata.ProcessingPath != extraction.PathStub {
		t.Errorf("path = %s", res.Metadata.ProcessingPath)
	}
}

func TestStubIncludesUserDescription(t *testing.T) {
	in := input("k", "letter.jpg", "image/jpeg")
	in.UserDescription = "  Landlord handed this to me today  "

	res, err := extraction.NewStub().Extract(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(res.RawText, "CONTEXT: Landlord handed this to me today") {
		t.Errorf("raw text = %q", res.RawText)
	}
	if res.StructuredFacts["userDescription"] != "Landlord handed this to me today" {
		t.Errorf("facts = %v", res.StructuredFacts)
	}
}

func TestDocumentUsesEmbeddedPDFText(t *testing.T) {
	key := "cases/c1/assets/digital-text.pdf"
	backend := &fakeBackend{ann: &extraction.Annotation{Text: "OCR SHOULD NOT RUN"}}
	p := extraction.NewDocument(storeWith(t, key, "digital-text.pdf"), backend, discardLogger())

	res, err := p.Extract(context.Background(), input(key, "digital-text.pdf", "application/pdf"))
	if err != nil {
		t.Fatal(err)
	}

	if backend.calls != 0 {
		t.Errorf("backend calls = %d, want 0", backend.calls)
	}
	if res.Engine != extraction.PDFTextEngine {
		t.Errorf("engine = %s", res.Engine)
	}
	if res.Metadata.ProcessingPath != extraction.PathPDFTextDirect {
		t.Errorf("path = %s", res.Metadata.ProcessingPath)
	}
	if res.Metadata.PageCount != 2 || res.Metadata.PageUnitEstimate != 2 {
		t.Errorf("pages = %d, estimate = %d, want 2/2", res.Metadata.PageCount, res.Metadata.PageUnitEstimate)
	}
	if !strings.Contains(res.RawText, "NOTICE OF HEARING") {
		t.Errorf("raw text = %q", res.RawText)
	}
	if res.Metadata.PDFTextProbe == nil || !res.Metadata.PDFTextProbe.MeaningfulTextDetected {
		t.Error("probe should report meaningful text")
	}
	if res.Source == nil || res.Source.ETag != "etag-1" || res.Source.LastModified == nil {
		t.Errorf("source metadata = %+v", res.Source)
	}
}

func TestDocumentFallsBackToOCRForScannedPDF(t *testing.T) {
	key := "cases/c1/assets/scanned-page.pdf"
	backend := &fakeBackend{ann: &extraction.Annotation{
		Text:  "SCANNED LEGAL NOTICE",
		Pages: []extraction.AnnotatedPage{{Width: 1000, Height: 1400, Confidence: 0.92}},
	}}
	p := extraction.NewDocument(storeWith(t, key, "scanned-page.pdf"), backend, discardLogger())

	res, err := p.Extract(context.Background(), input(key, "scanned-page.pdf", "application/pdf"))
	if err != nil {
		t.Fatal(err)
	}

	if backend.calls != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls)
	}
	if res.Engine != "fake-ocr" || res.EngineVersion != "test-v1" {
		t.Errorf("engine = %s/%s", res.Engine, res.EngineVersion)
	}
	if res.Metadata.ProcessingPath != extraction.PathOCR {
		t.Errorf("path = %s", res.Metadata.ProcessingPath)
	}
	if res.Metadata.PDFTextProbe == nil || res.Metadata.PDFTextProbe.MeaningfulTextDetected {
		t.Errorf("probe = %+v, want not meaningful", res.Metadata.PDFTextProbe)
	}
	if res.Metadata.PageUnitEstimate != 1 {
		t.Errorf("estimate = %d, want 1", res.Metadata.PageUnitEstimate)
	}
	if res.Metadata.OCR == nil || len(res.Metadata.OCR.Pages) != 1 {
		t.Errorf("ocr summary = %+v", res.Metadata.OCR)
	}
}

func TestDocumentSurvivesCorruptPDF(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "digital-text.pdf"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	rng := rand.New(rand.NewPCG(7, 42))
	key := "cases/c1/assets/corrupt.pdf"

	for i := range 200 {
		corrupt := append([]byte(nil), data...)
		for range 8 {
			corrupt[rng.IntN(len(corrupt))] = byte(rng.IntN(256))
		}

		store := &fakeStore{objects: map[string]*storage.Object{
			key: {Key: key, Data: corrupt, Size: int64(len(corrupt))},
		}}
		backend := &fakeBackend{ann: &extraction.Annotation{
			Text:  "OCR TEXT",
			Pages: []extraction.AnnotatedPage{{Confidence: 0.9}},
		}}
		p := extraction.NewDocument(store, backend, discardLogger())

		res, err := p.Extract(context.Background(), input(key, "corrupt.pdf", "application/pdf"))
		if err != nil {
			t.Fatalf("copy %d: %v", i, err)
		}
		if res.Metadata.PDFTextProbe == nil {
			t.Fatalf("copy %d: missing pdf probe", i)
		}
		if !res.Metadata.PDFTextProbe.MeaningfulTextDetected && backend.calls != 1 {
			t.Fatalf("copy %d: backend calls = %d, want ocr fallback", i, backend.calls)
		}
	}
}

func TestDocumentReusesCachedExtraction(t *testing.T) {
	key := "cases/c1/assets/digital-text.pdf"
	store := storeWith(t, key, "digital-text.pdf")
	backend := &fakeBackend{ann: &extraction.Annotation{Text: "OCR SHOULD NOT RUN"}}
	p := extraction.NewDocument(store, backend, discardLogger())

	sum := sha256.Sum256(store.objects[key].Data)
	wantHash := hex.EncodeToString(sum[:])

	var gotHash string
	in := input(key, "digital-text.pdf", "application/pdf")
	in.Cache = extraction.LookupFunc(func(_ context.Context, hash, _, _ string) (*extraction.CachedExtraction, error) {
		gotHash = hash
		return &extraction.CachedExtraction{
			SourceExtractionID: "ext-cache-123",
			Engine:             "fake-ocr",
			EngineVersion:      "test-v1",
			RawText:            "CACHED OCR TEXT",
			StructuredFacts:    map[string]any{"source": "cached_extraction"},
			PageUnitEstimate:   2,
		}, nil
	})

	res, err := p.Extract(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	if backend.calls != 0 {
		t.Errorf("backend calls = %d, want 0", backend.calls)
	}
	if gotHash != wantHash || res.ContentHash != wantHash {
		t.Errorf("hash = %s / %s, want %s", gotHash, res.ContentHash, wantHash)
	}
	if res.RawText != "CACHED OCR TEXT" {
		t.Errorf("raw text = %q", res.RawText)
	}
	if res.Metadata.ProcessingPath != extraction.PathCacheReuse {
		t.Errorf("path = %s", res.Metadata.ProcessingPath)
	}
	if c := res.Metadata.Cache; c == nil || !c.Hit || c.SourceExtractionID != "ext-cache-123" {
		t.Errorf("cache info = %+v", c)
	}
	if res.Metadata.PageUnitEstimate != 2 {
		t.Errorf("estimate = %d", res.Metadata.PageUnitEstimate)
	}
}

func TestDocumentCacheErrorFallsThrough(t *testing.T) {
	key := "cases/c1/assets/photo.png"
	store := &fakeStore{objects: map[string]*storage.Object{key: {Key: key, Data: []byte("png-bytes"), Size: 9}}}
	backend := &fakeBackend{ann: &extraction.Annotation{
		Text:  "PAGE ONE\n\nPAGE TWO",
		Pages: []extraction.AnnotatedPage{{Confidence: 0.9}, {Confidence: 0.7}},
	}}
	p := extraction.NewDocument(store, backend, discardLogger())

	in := input(key, "photo.png", "image/png")
	in.Cache = extraction.LookupFunc(func(context.Context, string, string, string) (*extraction.CachedExtraction, error) {
		return nil, errors.New("database unavailable")
	})

	res, err := p.Extract(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if backend.calls != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls)
	}
	if res.Metadata.PDFTextProbe != nil {
		t.Error("images should not carry a pdf probe")
	}
	if res.Metadata.PageUnitEstimate != 2 {
		t.Errorf("estimate = %d, want 2 from ocr pages", res.Metadata.PageUnitEstimate)
	}
	if avg := res.Metadata.OCR.AverageConfidence; avg < 0.79 || avg > 0.81 {
		t.Errorf("average confidence = %v, want 0.8", avg)
	}
}

func TestDocumentErrorsPropagate(t *testing.T) {
	key := "cases/c1/assets/photo.png"

	t.Run("missing object", func(t *testing.T) {
		p := extraction.NewDocument(&fakeStore{}, &fakeBackend{}, discardLogger())
		_, err := p.Extract(context.Background(), input(key, "photo.png", "image/png"))
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want storage.ErrNotFound", err)
		}
	})

	t.Run("backend failure", func(t *testing.T) {
		store := &fakeStore{objects: map[string]*storage.Object{key: {Key: key, Data: []byte("x")}}}
		cause := fmt.Errorf("%w: quota exceeded", extraction.ErrBackend)
		p := extraction.NewDocument(store, &fakeBackend{err: cause}, discardLogger())

		_, err := p.Extract(context.Background(), input(key, "photo.png", "image/png"))
		if !errors.Is(err, extraction.ErrBackend) {
			t.Errorf("err = %v, want ErrBackend", err)
		}
		if !strings.Contains(err.Error(), "quota exceeded") {
			t.Errorf("err = %v, want cause text preserved", err)
		}
	})
}

func TestMemoCacheRemembersHitsOnly(t *testing.T) {
	calls := 0
	hit := true
	next := extraction.LookupFunc(func(context.Context, string, string, string) (*extraction.CachedExtraction, error) {
		calls++
		if !hit {
			return nil, nil
		}
		return &extraction.CachedExtraction{SourceExtractionID: "e1"}, nil
	})

	memo := extraction.NewMemoCache(next, time.Minute)
	ctx := context.Background()

	for range 3 {
		got, err := memo.Lookup(ctx, "hash-a", "a.pdf", "application/pdf")
		if err != nil || got == nil || got.SourceExtractionID != "e1" {
			t.Fatalf("lookup = %+v, %v", got, err)
		}
	}
	if calls != 1 {
		t.Errorf("next calls = %d, want 1", calls)
	}

	hit = false
	for range 2 {
		got, err := memo.Lookup(ctx, "hash-b", "b.pdf", "application/pdf")
		if err != nil || got != nil {
			t.Fatalf("miss lookup = %+v, %v", got, err)
		}
	}
	if calls != 3 {
		t.Errorf("next calls = %d, want 3 after two misses", calls)
	}
}
