package cases

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for case state operations.
type System interface {
	Find(ctx context.Context, id uuid.UUID) (*Case, error)

	// ApplyTruth merges a truth result into the locked case row and writes
	// the TRUTH_LAYER_RUN audit entry in the same transaction.
	ApplyTruth(ctx context.Context, cmd ApplyTruthCommand) (*Case, error)

	// RecordReadiness computes the readiness snapshot and audits it with
	// the given source subtype.
	RecordReadiness(ctx context.Context, caseID uuid.UUID, source string) (*Readiness, error)
}
