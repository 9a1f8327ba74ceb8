// Package reminders schedules and delivers deadline push reminders.
//
// Sync keeps one reminder row per (case, deadline, offset) in step with the
// case's earliest deadline and watch mode. ProcessDue claims due rows and
// runs the delivery checks, writing an audit entry for every terminal or
// suppressed outcome.
package reminders

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a reminder.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
	StatusSuppressed Status = "suppressed"
)

// Reason explains why a reminder was suppressed or failed.
type Reason string

const (
	ReasonWatchDisabled   Reason = "watch_disabled"
	ReasonNoDeadline      Reason = "no_deadline"
	ReasonFeatureDisabled Reason = "feature_disabled"
	ReasonStaleDeadline   Reason = "stale_deadline"
	ReasonOptOut          Reason = "opt_out"
	ReasonQuietHours      Reason = "quiet_hours"
	ReasonDailyLimit      Reason = "daily_limit"
	ReasonNoActiveDevice  Reason = "no_active_device"
	ReasonDeliveryFailed  Reason = "delivery_failed"
)

// Language is the snapshot of the user's notification language.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"
)

// ParseLanguage returns the language for s, falling back to English.
func ParseLanguage(s string) Language {
	if Language(s) == LanguageSpanish {
		return LanguageSpanish
	}
	return LanguageEnglish
}

// Offsets are the days before a deadline at which reminders fire.
var Offsets = []int{14, 7, 3, 1}

// Reminder is a single scheduled notification for a case deadline.
type Reminder struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	CaseID        uuid.UUID  `json:"case_id"`
	DeadlineDate  time.Time  `json:"deadline_date"`
	OffsetDays    int        `json:"offset_days"`
	ReminderAt    time.Time  `json:"reminder_at"`
	DedupeKey     string     `json:"dedupe_key"`
	Status        Status     `json:"status"`
	Reason        *Reason    `json:"reason"`
	Language      Language   `json:"language"`
	AttemptCount  int        `json:"attempt_count"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	SentAt        *time.Time `json:"sent_at"`
	FailedAt      *time.Time `json:"failed_at"`
	SuppressedAt  *time.Time `json:"suppressed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DeadlineISO returns the deadline date as YYYY-MM-DD.
func (r *Reminder) DeadlineISO() string {
	return r.DeadlineDate.UTC().Format(time.DateOnly)
}

// DedupeKey identifies the reminder for a case deadline and offset.
func DedupeKey(caseID uuid.UUID, deadlineISO string, offsetDays int) string {
	return fmt.Sprintf("%s:%s:T-%d", caseID, deadlineISO, offsetDays)
}

// ReminderAt returns the delivery time offsetDays before the deadline at
// hour:00 UTC.
func ReminderAt(deadline time.Time, offsetDays, hour int) time.Time {
	d := deadline.UTC()
	return time.Date(d.Year(), d.Month(), d.Day()-offsetDays, hour, 0, 0, 0, time.UTC)
}

// Preference is a user's notification preference. Users without a stored
// preference get DefaultPreference.
type Preference struct {
	UserID     uuid.UUID    `json:"user_id"`
	Enabled    bool         `json:"enabled"`
	Language   Language     `json:"language"`
	QuietHours *QuietWindow `json:"quiet_hours,omitempty"`
}

// DefaultPreference is disabled with English text.
func DefaultPreference(userID uuid.UUID) Preference {
	return Preference{UserID: userID, Language: LanguageEnglish}
}

// Device is an active push token registered by a user.
type Device struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	DeviceID string    `json:"device_id"`
	Platform string    `json:"platform"`
	Token    string    `json:"-"`
}

// UpsertCommand schedules (or re-schedules) the reminder for one offset.
type UpsertCommand struct {
	UserID      uuid.UUID
	CaseID      uuid.UUID
	DeadlineISO string
	OffsetDays  int
	ReminderAt  time.Time
	DedupeKey   string
	Language    Language
}

// SyncResult summarizes a sync for one case.
type SyncResult struct {
	WatchEnabled bool   `json:"watchEnabled"`
	Scheduled    int    `json:"scheduled"`
	Suppressed   int    `json:"suppressed"`
	DeadlineDate string `json:"deadlineDate,omitempty"`
	Reason       Reason `json:"reason,omitempty"`
}

// ProcessSummary counts the outcomes of one ProcessDue batch.
type ProcessSummary struct {
	Due        int            `json:"due"`
	Claimed    int            `json:"claimed"`
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
	Retried    int            `json:"retried"`
	Suppressed int            `json:"suppressed"`
	Errors     int            `json:"errors"`
	Reasons    map[Reason]int `json:"reasons,omitempty"`
}

func (s *ProcessSummary) suppress(reason Reason) {
	s.Suppressed++
	if s.Reasons == nil {
		s.Reasons = make(map[Reason]int)
	}
	s.Reasons[reason]++
}
