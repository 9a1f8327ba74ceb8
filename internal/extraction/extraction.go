// Package extraction turns stored documents into raw text and structured facts.
//
// Two providers are available. The stub provider derives text from the request
// alone and never touches storage. The document provider fetches the object,
// reuses a cached extraction of identical bytes when one exists, reads embedded
// PDF text when it is meaningful, and otherwise runs the OCR backend.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clearcase/worker/pkg/storage"
)

const (
	ProviderStub     = "stub"
	ProviderDocument = "document"
)

// ProcessingPath records which strategy produced an extraction.
type ProcessingPath string

const (
	PathStub          ProcessingPath = "stub"
	PathPDFTextDirect ProcessingPath = "pdf_text_direct"
	PathOCR           ProcessingPath = "ocr"
	PathCacheReuse    ProcessingPath = "cache_reuse"
)

// Provider extracts text from a stored asset.
type Provider interface {
	Extract(ctx context.Context, in Input) (*Result, error)
}

// Input identifies the asset to extract.
type Input struct {
	CaseID          uuid.UUID
	AssetID         uuid.UUID
	StorageKey      string
	FileName        string
	MimeType        string
	UserDescription string
	// Cache is consulted with the content hash before any backend call. Optional.
	Cache CacheLookup
}

// CacheLookup finds a previous extraction of identical content.
// It returns nil, nil on a miss.
type CacheLookup interface {
	Lookup(ctx context.Context, contentHash, fileName, mimeType string) (*CachedExtraction, error)
}

// CachedExtraction is a prior extraction eligible for reuse.
type CachedExtraction struct {
	SourceExtractionID string
	Engine             string
	EngineVersion      string
	RawText            string
	StructuredFacts    map[string]any
	PageUnitEstimate   int
}

// Result is the output of a provider.
type Result struct {
	Engine          string
	EngineVersion   string
	RawText         string
	StructuredFacts map[string]any
	Metadata        Metadata
	Source          *SourceMetadata
	// ContentHash is the sha256 hex digest of the source bytes. Empty for the stub.
	ContentHash string
}

// Metadata describes how a result was produced.
type Metadata struct {
	ProcessingPath   ProcessingPath `json:"processingPath"`
	PageCount        int            `json:"pageCount,omitempty"`
	PageUnitEstimate int            `json:"pageUnitEstimate"`
	PDFTextProbe     *PDFTextProbe  `json:"pdfTextProbe,omitempty"`
	Cache            *CacheInfo     `json:"cache,omitempty"`
	OCR              *OCRSummary    `json:"ocr,omitempty"`
	Diagnostics      map[string]any `json:"diagnostics,omitempty"`
}

// PDFTextProbe reports the outcome of the embedded text check.
type PDFTextProbe struct {
	MeaningfulTextDetected bool `json:"meaningfulTextDetected"`
	ExtractedChars         int  `json:"extractedChars"`
	PageCount              int  `json:"pageCount"`
}

// CacheInfo is set when a cached extraction was reused.
type CacheInfo struct {
	Hit                bool   `json:"hit"`
	SourceExtractionID string `json:"sourceExtractionId"`
	ContentHash        string `json:"contentHash"`
}

// OCRSummary captures the per-page structure reported by the OCR backend.
type OCRSummary struct {
	Pages             []PageSummary `json:"pages"`
	AverageConfidence float64       `json:"averageConfidence"`
}

// PageSummary describes a single OCR page.
type PageSummary struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
	Blocks     int     `json:"blocks"`
	Words      int     `json:"words"`
}

// SourceMetadata describes the fetched object.
type SourceMetadata struct {
	Size         int64      `json:"size"`
	ETag         string     `json:"etag,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	ContentType  string     `json:"contentType,omitempty"`
}

// New returns the provider registered under name. The document provider
// requires both store and backend.
func New(name string, store storage.System, backend Backend, logger *slog.Logger) (Provider, error) {
	switch name {
	case ProviderStub:
		return NewStub(), nil
	case ProviderDocument:
		if store == nil || backend == nil {
			return nil, fmt.Errorf("%w: document provider requires storage and an ocr backend", ErrUnsupportedProvider)
		}
		return NewDocument(store, backend, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
}
