package reminders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clearcase/worker/pkg/pagination"
)

// Store persists reminders and reads the user's push settings.
type Store interface {
	// Upsert inserts the reminder for cmd.DedupeKey or resets an existing
	// unsent one to scheduled. A sent reminder is returned unchanged.
	// The boolean reports whether a new row was inserted.
	Upsert(ctx context.Context, cmd UpsertCommand) (*Reminder, bool, error)

	// SuppressScheduled suppresses the case's scheduled reminders whose key
	// is not in keep and returns them. An empty keep suppresses all of them.
	SuppressScheduled(ctx context.Context, caseID uuid.UUID, keep []string, reason Reason, now time.Time) ([]Reminder, error)

	ListDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error)

	// Claim moves a due scheduled reminder's next attempt to leaseUntil.
	// It reports false when another worker claimed it first.
	Claim(ctx context.Context, id uuid.UUID, now, leaseUntil time.Time) (bool, error)

	MarkSent(ctx context.Context, id uuid.UUID, attempts int, now time.Time) error
	MarkSuppressed(ctx context.Context, id uuid.UUID, reason Reason, now time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, now time.Time) error
	Reschedule(ctx context.Context, id uuid.UUID, attempts int, next, now time.Time) error

	// CountSentSince counts reminders sent to the user at or after since.
	CountSentSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)

	// Preference returns the stored preference or DefaultPreference.
	Preference(ctx context.Context, userID uuid.UUID) (Preference, error)
	ActiveDevices(ctx context.Context, userID uuid.UUID) ([]Device, error)
	// DeactivateDevice stops delivery to a device whose token the gateway
	// no longer accepts.
	DeactivateDevice(ctx context.Context, id uuid.UUID, now time.Time) error

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Reminder], error)
}
