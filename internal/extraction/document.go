package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clearcase/worker/pkg/storage"
)

const (
	PDFTextEngine        = "pdf-text-direct"
	PDFTextEngineVersion = "v1"
)

type documentProvider struct {
	store   storage.System
	backend Backend
	logger  *slog.Logger
}

// NewDocument returns a provider that reads objects from store and falls back
// to backend when neither the cache nor embedded PDF text can serve the request.
func NewDocument(store storage.System, backend Backend, logger *slog.Logger) Provider {
	return &documentProvider{
		store:   store,
		backend: backend,
		logger:  logger.With("provider", ProviderDocument),
	}
}

func (p *documentProvider) Extract(ctx context.Context, in Input) (*Result, error) {
	obj, err := p.store.Download(ctx, in.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("fetch source object: %w", err)
	}

	sum := sha256.Sum256(obj.Data)
	hash := hex.EncodeToString(sum[:])
	source := sourceMetadata(obj)

	if in.Cache != nil {
		hit, err := in.Cache.Lookup(ctx, hash, in.FileName, in.MimeType)
		if err != nil {
			p.logger.Warn("extraction cache lookup failed", "asset_id", in.AssetID, "error", err)
		} else if hit != nil {
			return cacheResult(hit, hash, source), nil
		}
	}

	var probe *PDFTextProbe
	pdfPages := 0

	if isPDF(in.MimeType, in.FileName) {
		text, err := readPDFText(obj.Data)
		if err != nil {
			p.logger.Warn("pdf text probe failed", "asset_id", in.AssetID, "error", err)
			text = &pdfText{}
		}
		pdfPages = pageCount(obj.Data, text.pages)

		chars := meaningfulLength(text.text)
		probe = &PDFTextProbe{
			MeaningfulTextDetected: chars >= MinMeaningfulChars,
			ExtractedChars:         chars,
			PageCount:              pdfPages,
		}

		if probe.MeaningfulTextDetected {
			return &Result{
				Engine:          PDFTextEngine,
				EngineVersion:   PDFTextEngineVersion,
				RawText:         text.text,
				StructuredFacts: facts("pdf_embedded_text", in),
				Metadata: Metadata{
					ProcessingPath:   PathPDFTextDirect,
					PageCount:        pdfPages,
					PageUnitEstimate: max(pdfPages, 1),
					PDFTextProbe:     probe,
				},
				Source:      source,
				ContentHash: hash,
			}, nil
		}
	}

	ann, err := p.backend.Annotate(ctx, obj.Data, in.MimeType)
	if err != nil {
		return nil, fmt.Errorf("annotate %s: %w", in.AssetID, err)
	}

	engine, version := p.backend.Engine()
	estimate := 1
	switch {
	case pdfPages > 0:
		estimate = pdfPages
	case len(ann.Pages) > 0:
		estimate = len(ann.Pages)
	}

	return &Result{
		Engine:          engine,
		EngineVersion:   version,
		RawText:         ann.Text,
		StructuredFacts: facts("ocr", in),
		Metadata: Metadata{
			ProcessingPath:   PathOCR,
			PageCount:        max(pdfPages, len(ann.Pages)),
			PageUnitEstimate: estimate,
			PDFTextProbe:     probe,
			OCR:              summarize(ann),
		},
		Source:      source,
		ContentHash: hash,
	}, nil
}

func cacheResult(hit *CachedExtraction, hash string, source *SourceMetadata) *Result {
	return &Result{
		Engine:          hit.Engine,
		EngineVersion:   hit.EngineVersion,
		RawText:         hit.RawText,
		StructuredFacts: hit.StructuredFacts,
		Metadata: Metadata{
			ProcessingPath:   PathCacheReuse,
			PageUnitEstimate: max(hit.PageUnitEstimate, 1),
			Cache: &CacheInfo{
				Hit:                true,
				SourceExtractionID: hit.SourceExtractionID,
				ContentHash:        hash,
			},
		},
		Source:      source,
		ContentHash: hash,
	}
}

func facts(source string, in Input) map[string]any {
	f := map[string]any{
		"source":   source,
		"fileName": in.FileName,
		"mimeType": in.MimeType,
	}
	if desc := strings.TrimSpace(in.UserDescription); desc != "" {
		f["userDescription"] = desc
	}
	return f
}

func sourceMetadata(obj *storage.Object) *SourceMetadata {
	m := &SourceMetadata{
		Size:        obj.Size,
		ETag:        obj.ETag,
		ContentType: obj.ContentType,
	}
	if !obj.LastModified.IsZero() {
		lm := obj.LastModified
		m.LastModified = &lm
	}
	return m
}
