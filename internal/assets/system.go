package assets

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for asset, extraction, and verdict persistence.
type System interface {
	Find(ctx context.Context, id uuid.UUID) (*Asset, error)

	// LatestExtraction returns the current extraction for the asset,
	// or ErrExtractionNotFound.
	LatestExtraction(ctx context.Context, assetID uuid.UUID) (*Extraction, error)

	// FindVerdict returns the verdict for the extraction, or ErrVerdictNotFound.
	FindVerdict(ctx context.Context, extractionID uuid.UUID) (*Verdict, error)

	// FindByContentHash returns the most recent extraction of identical bytes
	// with the same MIME type, or ErrExtractionNotFound.
	FindByContentHash(ctx context.Context, contentHash, mimeType string) (*Extraction, error)

	CreateExtraction(ctx context.Context, cmd CreateExtractionCommand) (*Extraction, error)

	// CreateVerdict inserts the verdict unless one already exists for the
	// extraction, in which case the existing verdict is returned unchanged.
	CreateVerdict(ctx context.Context, cmd CreateVerdictCommand) (*Verdict, error)

	Counts(ctx context.Context, caseID uuid.UUID) (Counts, error)
}
