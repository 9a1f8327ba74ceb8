package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/clearcase/worker/pkg/pagination"
)

// System defines the public contract for audit log operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		caseID uuid.UUID,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Entry], error)

	Write(ctx context.Context, cmd WriteCommand) (uuid.UUID, error)

	// Latest returns the most recent entry for the case with the given
	// event type and subtype, or ErrNotFound.
	Latest(ctx context.Context, caseID uuid.UUID, eventType EventType, subtype string) (*Entry, error)

	ExistsForExtraction(ctx context.Context, extractionID uuid.UUID, eventType EventType) (bool, error)
}
