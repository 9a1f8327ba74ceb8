package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/audit"
	"github.com/clearcase/worker/internal/cases"
	"github.com/clearcase/worker/internal/metrics"
)

// CaseFinder loads the case whose deadline drives the reminders.
type CaseFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*cases.Case, error)
}

// AuditLog reads watch mode and records reminder outcomes.
type AuditLog interface {
	Latest(ctx context.Context, caseID uuid.UUID, eventType audit.EventType, subtype string) (*audit.Entry, error)
	Write(ctx context.Context, cmd audit.WriteCommand) (uuid.UUID, error)
}

// Options is the scheduling and delivery policy.
type Options struct {
	Enabled        bool
	DeliveryHour   int
	DailyLimit     int
	MaxAttempts    int
	BatchSize      int
	FanOut         int
	BaseRetryDelay time.Duration
	ClaimLease     time.Duration
}

// Option customizes a Scheduler or Processor.
type Option func(*base)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithMetrics records outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *base) { b.metrics = m }
}

type base struct {
	store   Store
	cases   CaseFinder
	audit   AuditLog
	opts    Options
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func newBase(store Store, cases CaseFinder, audit AuditLog, opts Options, logger *slog.Logger, options []Option) base {
	b := base{
		store:  store,
		cases:  cases,
		audit:  audit,
		opts:   opts,
		now:    time.Now,
		logger: logger,
	}
	for _, o := range options {
		o(&b)
	}
	return b
}

// watchEnabled reads the most recent watch mode decision for the case.
// A case without one is not watched.
func (b *base) watchEnabled(ctx context.Context, caseID uuid.UUID) (bool, error) {
	entry, err := b.audit.Latest(ctx, caseID, audit.EventCaseUpdated, audit.SubtypeWatchModeSet)
	if errors.Is(err, audit.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read watch mode: %w", err)
	}
	return entry.PayloadBool("enabled"), nil
}

func (b *base) record(ctx context.Context, r *Reminder, outcome Status, reason Reason) error {
	var reasonValue any
	if reason != "" {
		reasonValue = reason
	}

	_, err := b.audit.Write(ctx, audit.WriteCommand{
		CaseID:    r.CaseID,
		EventType: audit.EventCaseUpdated,
		Subtype:   audit.SubtypeReminderDelivery,
		Payload: map[string]any{
			"userId":       r.UserID.String(),
			"reminderId":   r.ID.String(),
			"dedupeKey":    r.DedupeKey,
			"outcome":      outcome,
			"reason":       reasonValue,
			"reminderDate": r.ReminderAt.UTC().Format(time.RFC3339),
			"deadlineDate": r.DeadlineISO(),
			"offsetDays":   r.OffsetDays,
			"attemptCount": r.AttemptCount,
		},
	})
	if err != nil {
		return fmt.Errorf("audit reminder %s: %w", r.DedupeKey, err)
	}

	if b.metrics != nil {
		b.metrics.ReminderOutcomes.WithLabelValues(string(outcome), string(reason)).Inc()
	}
	return nil
}

// Scheduler keeps a case's reminders in step with its deadline.
type Scheduler struct {
	base
}

// NewScheduler creates a Scheduler.
func NewScheduler(store Store, cases CaseFinder, audit AuditLog, opts Options, logger *slog.Logger, options ...Option) *Scheduler {
	return &Scheduler{
		base: newBase(store, cases, audit, opts, logger.With("system", "reminder-scheduler"), options),
	}
}

// Sync schedules the case's future reminders and suppresses scheduled ones
// that no longer apply. A missing case yields an empty result.
func (s *Scheduler) Sync(ctx context.Context, caseID uuid.UUID) (SyncResult, error) {
	now := s.now()

	c, err := s.cases.Find(ctx, caseID)
	if errors.Is(err, cases.ErrNotFound) {
		return SyncResult{}, nil
	}
	if err != nil {
		return SyncResult{}, fmt.Errorf("load case: %w", err)
	}

	if !s.opts.Enabled {
		return s.suppressAll(ctx, caseID, false, ReasonFeatureDisabled, now)
	}

	watch, err := s.watchEnabled(ctx, caseID)
	if err != nil {
		return SyncResult{}, err
	}
	if !watch {
		return s.suppressAll(ctx, caseID, false, ReasonWatchDisabled, now)
	}

	deadline := c.EarliestDeadlineISO()
	if deadline == "" {
		return s.suppressAll(ctx, caseID, true, ReasonNoDeadline, now)
	}

	pref, err := s.store.Preference(ctx, c.UserID)
	if err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{WatchEnabled: true, DeadlineDate: deadline}
	keys := make([]string, 0, len(Offsets))

	for _, offset := range Offsets {
		at := ReminderAt(*c.EarliestDeadline, offset, s.opts.DeliveryHour)
		if !at.After(now) {
			continue
		}

		key := DedupeKey(caseID, deadline, offset)
		keys = append(keys, key)

		r, inserted, err := s.store.Upsert(ctx, UpsertCommand{
			UserID:      c.UserID,
			CaseID:      caseID,
			DeadlineISO: deadline,
			OffsetDays:  offset,
			ReminderAt:  at,
			DedupeKey:   key,
			Language:    pref.Language,
		})
		if err != nil {
			return result, err
		}
		if r.Status != StatusScheduled {
			continue
		}

		result.Scheduled++
		if inserted {
			if err := s.record(ctx, r, StatusScheduled, ""); err != nil {
				return result, err
			}
		}
	}

	stale, err := s.store.SuppressScheduled(ctx, caseID, keys, ReasonStaleDeadline, now)
	if err != nil {
		return result, err
	}
	for i := range stale {
		if err := s.record(ctx, &stale[i], StatusSuppressed, ReasonStaleDeadline); err != nil {
			return result, err
		}
	}
	result.Suppressed = len(stale)

	s.logger.Info(
		"reminders synced",
		"case_id", caseID,
		"deadline", deadline,
		"scheduled", result.Scheduled,
		"suppressed", result.Suppressed,
	)
	return result, nil
}

func (s *Scheduler) suppressAll(ctx context.Context, caseID uuid.UUID, watch bool, reason Reason, now time.Time) (SyncResult, error) {
	rows, err := s.store.SuppressScheduled(ctx, caseID, nil, reason, now)
	if err != nil {
		return SyncResult{}, err
	}
	for i := range rows {
		if err := s.record(ctx, &rows[i], StatusSuppressed, reason); err != nil {
			return SyncResult{}, err
		}
	}

	s.logger.Info("reminders suppressed", "case_id", caseID, "reason", reason, "count", len(rows))
	return SyncResult{WatchEnabled: watch, Suppressed: len(rows), Reason: reason}, nil
}
