package reminders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clearcase/worker/pkg/pagination"
	"github.com/clearcase/worker/pkg/query"
	"github.com/clearcase/worker/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// NewStore creates a Postgres-backed reminder store.
func NewStore(db *sql.DB, logger *slog.Logger, pagination pagination.Config) Store {
	return &repo{
		db:         db,
		logger:     logger.With("system", "reminders"),
		pagination: pagination,
	}
}

var upsertSQL = fmt.Sprintf(`
	INSERT INTO public.deadline_push_reminders AS r (
		id, user_id, case_id, dedupe_key, deadline_date, reminder_at, offset_days,
		status, reason, language, attempt_count, next_attempt_at
	)
	VALUES ($1, $2, $3, $4, $5::date, $6, $7, 'scheduled', NULL, $8, 0, $6)
	ON CONFLICT (dedupe_key) DO UPDATE SET
		reminder_at = EXCLUDED.reminder_at,
		status = CASE WHEN r.status = 'sent' THEN r.status ELSE 'scheduled' END,
		reason = CASE WHEN r.status = 'sent' THEN r.reason ELSE NULL END,
		language = CASE WHEN r.status = 'sent' THEN r.language ELSE EXCLUDED.language END,
		attempt_count = CASE WHEN r.status = 'sent' THEN r.attempt_count ELSE 0 END,
		next_attempt_at = CASE WHEN r.status = 'sent' THEN r.next_attempt_at ELSE EXCLUDED.reminder_at END,
		sent_at = CASE WHEN r.status = 'sent' THEN r.sent_at ELSE NULL END,
		failed_at = CASE WHEN r.status = 'sent' THEN r.failed_at ELSE NULL END,
		suppressed_at = CASE WHEN r.status = 'sent' THEN r.suppressed_at ELSE NULL END,
		updated_at = NOW()
	RETURNING %s, (xmax = 0) AS inserted`, projection.Columns())

func (s *repo) Upsert(ctx context.Context, cmd UpsertCommand) (*Reminder, bool, error) {
	var inserted bool
	scan := func(sc repository.Scanner) (Reminder, error) {
		var r Reminder
		dest := []any{
			&r.ID, &r.UserID, &r.CaseID, &r.DeadlineDate, &r.OffsetDays, &r.ReminderAt,
			&r.DedupeKey, &r.Status, &r.Reason, &r.Language, &r.AttemptCount,
			&r.NextAttemptAt, &r.LastAttemptAt, &r.SentAt, &r.FailedAt, &r.SuppressedAt,
			&r.CreatedAt, &r.UpdatedAt, &inserted,
		}
		return r, sc.Scan(dest...)
	}

	r, err := repository.QueryOne(ctx, s.db, upsertSQL, []any{
		uuid.New(),
		cmd.UserID,
		cmd.CaseID,
		cmd.DedupeKey,
		cmd.DeadlineISO,
		cmd.ReminderAt,
		cmd.OffsetDays,
		cmd.Language,
	}, scan)
	if err != nil {
		return nil, false, fmt.Errorf("upsert reminder %s: %w", cmd.DedupeKey, err)
	}
	return &r, inserted, nil
}

func (s *repo) SuppressScheduled(ctx context.Context, caseID uuid.UUID, keep []string, reason Reason, now time.Time) ([]Reminder, error) {
	q := fmt.Sprintf(`
		UPDATE public.deadline_push_reminders AS r SET
			status = 'suppressed', reason = $2, suppressed_at = $3, updated_at = $3
		WHERE r.case_id = $1 AND r.status = 'scheduled'
			AND NOT (r.dedupe_key = ANY($4))
		RETURNING %s`, projection.Columns())

	if keep == nil {
		keep = []string{}
	}

	rows, err := repository.QueryMany(ctx, s.db, q, []any{caseID, reason, now, keep}, scanReminder)
	if err != nil {
		return nil, fmt.Errorf("suppress scheduled reminders: %w", err)
	}
	return rows, nil
}

func (s *repo) ListDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	q, args := query.
		NewBuilder(projection, query.SortField{Field: "NextAttemptAt"}).
		WhereEquals("Status", string(StatusScheduled)).
		WhereBefore("NextAttemptAt", now).
		BuildLimit(limit)

	rows, err := repository.QueryMany(ctx, s.db, q, args, scanReminder)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	return rows, nil
}

func (s *repo) Claim(ctx context.Context, id uuid.UUID, now, leaseUntil time.Time) (bool, error) {
	n, err := repository.ExecAffected(ctx, s.db, `
		UPDATE deadline_push_reminders SET next_attempt_at = $3, updated_at = $2
		WHERE id = $1 AND status = 'scheduled' AND next_attempt_at <= $2`,
		id, now, leaseUntil,
	)
	if err != nil {
		return false, fmt.Errorf("claim reminder %s: %w", id, err)
	}
	return n == 1, nil
}

func (s *repo) MarkSent(ctx context.Context, id uuid.UUID, attempts int, now time.Time) error {
	return s.transition(ctx, id, `
		UPDATE deadline_push_reminders SET
			status = 'sent', reason = NULL, attempt_count = $2,
			last_attempt_at = $3, sent_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'scheduled'`,
		id, attempts, now,
	)
}

func (s *repo) MarkSuppressed(ctx context.Context, id uuid.UUID, reason Reason, now time.Time) error {
	return s.transition(ctx, id, `
		UPDATE deadline_push_reminders SET
			status = 'suppressed', reason = $2, suppressed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'scheduled'`,
		id, reason, now,
	)
}

func (s *repo) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, now time.Time) error {
	return s.transition(ctx, id, `
		UPDATE deadline_push_reminders SET
			status = 'failed', reason = $2, attempt_count = $3,
			last_attempt_at = $4, failed_at = $4, updated_at = $4
		WHERE id = $1 AND status = 'scheduled'`,
		id, ReasonDeliveryFailed, attempts, now,
	)
}

func (s *repo) Reschedule(ctx context.Context, id uuid.UUID, attempts int, next, now time.Time) error {
	return s.transition(ctx, id, `
		UPDATE deadline_push_reminders SET
			attempt_count = $2, next_attempt_at = $3, last_attempt_at = $4, updated_at = $4
		WHERE id = $1 AND status = 'scheduled'`,
		id, attempts, next, now,
	)
}

func (s *repo) transition(ctx context.Context, id uuid.UUID, q string, args ...any) error {
	err := repository.ExecExpectOne(ctx, s.db, q, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s is no longer scheduled", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("update reminder %s: %w", id, err)
	}
	return nil
}

func (s *repo) CountSentSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM deadline_push_reminders WHERE user_id = $1 AND status = 'sent' AND sent_at >= $2",
		userID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sent reminders: %w", err)
	}
	return n, nil
}

func (s *repo) Preference(ctx context.Context, userID uuid.UUID) (Preference, error) {
	var (
		enabled    bool
		language   string
		quietStart *string
		quietEnd   *string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled, language, quiet_hours_start, quiet_hours_end
		FROM user_push_preferences WHERE user_id = $1`,
		userID,
	).Scan(&enabled, &language, &quietStart, &quietEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultPreference(userID), nil
	}
	if err != nil {
		return Preference{}, fmt.Errorf("load push preference: %w", err)
	}

	pref := Preference{
		UserID:   userID,
		Enabled:  enabled,
		Language: ParseLanguage(language),
	}

	window, err := ParseQuietWindow(quietStart, quietEnd)
	if err != nil {
		s.logger.Warn("ignoring invalid quiet hours", "user_id", userID, "error", err)
	}
	pref.QuietHours = window

	return pref, nil
}

func (s *repo) ActiveDevices(ctx context.Context, userID uuid.UUID) ([]Device, error) {
	devices, err := repository.QueryMany(ctx, s.db,
		`SELECT id, user_id, device_id, platform, token
		FROM user_push_devices WHERE user_id = $1 AND active
		ORDER BY updated_at DESC`,
		[]any{userID},
		func(sc repository.Scanner) (Device, error) {
			var d Device
			err := sc.Scan(&d.ID, &d.UserID, &d.DeviceID, &d.Platform, &d.Token)
			return d, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("list active devices: %w", err)
	}
	return devices, nil
}

func (s *repo) DeactivateDevice(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE user_push_devices SET active = FALSE, updated_at = $2 WHERE id = $1",
		id, now,
	)
	if err != nil {
		return fmt.Errorf("deactivate device %s: %w", id, err)
	}
	return nil
}

func (s *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Reminder], error) {
	page.Normalize(s.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "DedupeKey")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count reminders: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanReminder)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}
