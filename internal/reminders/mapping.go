package reminders

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/clearcase/worker/pkg/query"
	"github.com/clearcase/worker/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "deadline_push_reminders", "r").
	Project("id", "ID").
	Project("user_id", "UserID").
	Project("case_id", "CaseID").
	Project("deadline_date", "DeadlineDate").
	Project("offset_days", "OffsetDays").
	Project("reminder_at", "ReminderAt").
	Project("dedupe_key", "DedupeKey").
	Project("status", "Status").
	Project("reason", "Reason").
	Project("language", "Language").
	Project("attempt_count", "AttemptCount").
	Project("next_attempt_at", "NextAttemptAt").
	Project("last_attempt_at", "LastAttemptAt").
	Project("sent_at", "SentAt").
	Project("failed_at", "FailedAt").
	Project("suppressed_at", "SuppressedAt").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "ReminderAt"}

// Filters narrows reminder listings. Nil fields are ignored.
type Filters struct {
	CaseID *uuid.UUID `json:"case_id,omitempty"`
	UserID *uuid.UUID `json:"user_id,omitempty"`
	Status *Status    `json:"status,omitempty"`
	Reason *Reason    `json:"reason,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("CaseID", f.CaseID).
		WhereEquals("UserID", f.UserID).
		WhereEquals("Status", f.Status).
		WhereEquals("Reason", f.Reason)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) (Filters, error) {
	var f Filters

	for key, dst := range map[string]**uuid.UUID{"case_id": &f.CaseID, "user_id": &f.UserID} {
		if v := values.Get(key); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return f, fmt.Errorf("%w: %s", ErrInvalidFilter, key)
			}
			*dst = &id
		}
	}

	if v := values.Get("status"); v != "" {
		s := Status(v)
		switch s {
		case StatusScheduled, StatusSent, StatusFailed, StatusSuppressed:
			f.Status = &s
		default:
			return f, fmt.Errorf("%w: status %q", ErrInvalidFilter, v)
		}
	}

	if v := values.Get("reason"); v != "" {
		r := Reason(v)
		f.Reason = &r
	}

	return f, nil
}

func scanReminder(s repository.Scanner) (Reminder, error) {
	var r Reminder
	err := s.Scan(
		&r.ID,
		&r.UserID,
		&r.CaseID,
		&r.DeadlineDate,
		&r.OffsetDays,
		&r.ReminderAt,
		&r.DedupeKey,
		&r.Status,
		&r.Reason,
		&r.Language,
		&r.AttemptCount,
		&r.NextAttemptAt,
		&r.LastAttemptAt,
		&r.SentAt,
		&r.FailedAt,
		&r.SuppressedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}
