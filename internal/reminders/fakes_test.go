package reminders_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/audit"
	"github.com/clearcase/worker/internal/cases"
	"github.com/clearcase/worker/internal/push"
	"github.com/clearcase/worker/internal/reminders"
	"github.com/clearcase/worker/pkg/pagination"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStore struct {
	mu      sync.Mutex
	rows    map[string]*reminders.Reminder
	prefs   map[uuid.UUID]reminders.Preference
	devices map[uuid.UUID][]reminders.Device
	// deactivated records DeactivateDevice calls in order.
	deactivated []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		rows:    make(map[string]*reminders.Reminder),
		prefs:   make(map[uuid.UUID]reminders.Preference),
		devices: make(map[uuid.UUID][]reminders.Device),
	}
}

func (s *memStore) seed(r reminders.Reminder) *reminders.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	s.rows[r.DedupeKey] = &r
	return &r
}

func (s *memStore) get(key string) reminders.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.rows[key]
}

func (s *memStore) byStatus(caseID uuid.UUID, status reminders.Status) []reminders.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reminders.Reminder
	for _, r := range s.rows {
		if r.CaseID == caseID && r.Status == status {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DedupeKey < out[j].DedupeKey })
	return out
}

func (s *memStore) find(id uuid.UUID) *reminders.Reminder {
	for _, r := range s.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *memStore) Upsert(_ context.Context, cmd reminders.UpsertCommand) (*reminders.Reminder, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.rows[cmd.DedupeKey]; ok {
		if r.Status != reminders.StatusSent {
			r.Status = reminders.StatusScheduled
			r.Reason = nil
			r.Language = cmd.Language
			r.AttemptCount = 0
			r.NextAttemptAt = cmd.ReminderAt
			r.SentAt, r.FailedAt, r.SuppressedAt = nil, nil, nil
		}
		r.ReminderAt = cmd.ReminderAt
		cp := *r
		return &cp, false, nil
	}

	deadline, _ := time.Parse(time.DateOnly, cmd.DeadlineISO)
	r := &reminders.Reminder{
		ID:            uuid.New(),
		UserID:        cmd.UserID,
		CaseID:        cmd.CaseID,
		DeadlineDate:  deadline,
		OffsetDays:    cmd.OffsetDays,
		ReminderAt:    cmd.ReminderAt,
		DedupeKey:     cmd.DedupeKey,
		Status:        reminders.StatusScheduled,
		Language:      cmd.Language,
		NextAttemptAt: cmd.ReminderAt,
	}
	s.rows[cmd.DedupeKey] = r
	cp := *r
	return &cp, true, nil
}

func (s *memStore) SuppressScheduled(_ context.Context, caseID uuid.UUID, keep []string, reason reminders.Reason, now time.Time) ([]reminders.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []reminders.Reminder
	for key, r := range s.rows {
		if r.CaseID != caseID || r.Status != reminders.StatusScheduled || slices.Contains(keep, key) {
			continue
		}
		r.Status = reminders.StatusSuppressed
		r.Reason = &reason
		r.SuppressedAt = &now
		out = append(out, *r)
	}
	return out, nil
}

func (s *memStore) ListDue(_ context.Context, now time.Time, limit int) ([]reminders.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []reminders.Reminder
	for _, r := range s.rows {
		if r.Status == reminders.StatusScheduled && !r.NextAttemptAt.After(now) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) Claim(_ context.Context, id uuid.UUID, now, leaseUntil time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.find(id)
	if r == nil || r.Status != reminders.StatusScheduled || r.NextAttemptAt.After(now) {
		return false, nil
	}
	r.NextAttemptAt = leaseUntil
	return true, nil
}

func (s *memStore) update(id uuid.UUID, fn func(r *reminders.Reminder)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.find(id)
	if r == nil || r.Status != reminders.StatusScheduled {
		return reminders.ErrNotFound
	}
	fn(r)
	return nil
}

func (s *memStore) MarkSent(_ context.Context, id uuid.UUID, attempts int, now time.Time) error {
	return s.update(id, func(r *reminders.Reminder) {
		r.Status = reminders.StatusSent
		r.AttemptCount = attempts
		r.SentAt = &now
	})
}

func (s *memStore) MarkSuppressed(_ context.Context, id uuid.UUID, reason reminders.Reason, now time.Time) error {
	return s.update(id, func(r *reminders.Reminder) {
		r.Status = reminders.StatusSuppressed
		r.Reason = &reason
		r.SuppressedAt = &now
	})
}

func (s *memStore) MarkFailed(_ context.Context, id uuid.UUID, attempts int, now time.Time) error {
	return s.update(id, func(r *reminders.Reminder) {
		reason := reminders.ReasonDeliveryFailed
		r.Status = reminders.StatusFailed
		r.Reason = &reason
		r.AttemptCount = attempts
		r.FailedAt = &now
	})
}

func (s *memStore) Reschedule(_ context.Context, id uuid.UUID, attempts int, next, now time.Time) error {
	return s.update(id, func(r *reminders.Reminder) {
		r.AttemptCount = attempts
		r.NextAttemptAt = next
		r.LastAttemptAt = &now
	})
}

func (s *memStore) CountSentSince(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.rows {
		if r.UserID == userID && r.Status == reminders.StatusSent && r.SentAt != nil && !r.SentAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) Preference(_ context.Context, userID uuid.UUID) (reminders.Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.prefs[userID]; ok {
		return p, nil
	}
	return reminders.DefaultPreference(userID), nil
}

func (s *memStore) ActiveDevices(_ context.Context, userID uuid.UUID) ([]reminders.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.DeleteFunc(slices.Clone(s.devices[userID]), func(d reminders.Device) bool {
		return slices.Contains(s.deactivated, d.ID)
	}), nil
}

func (s *memStore) DeactivateDevice(_ context.Context, id uuid.UUID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deactivated = append(s.deactivated, id)
	return nil
}

func (s *memStore) List(_ context.Context, page pagination.PageRequest, _ reminders.Filters) (*pagination.PageResult[reminders.Reminder], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []reminders.Reminder
	for _, r := range s.rows {
		out = append(out, *r)
	}
	result := pagination.NewPageResult(out, len(out), page.Page, page.PageSize)
	return &result, nil
}

type fakeCases struct {
	cases map[uuid.UUID]*cases.Case
}

func (f *fakeCases) Find(_ context.Context, id uuid.UUID) (*cases.Case, error) {
	c, ok := f.cases[id]
	if !ok {
		return nil, cases.ErrNotFound
	}
	return c, nil
}

func (f *fakeCases) setDeadline(id uuid.UUID, iso string) {
	if iso == "" {
		f.cases[id].EarliestDeadline = nil
		return
	}
	d, _ := time.Parse(time.DateOnly, iso)
	f.cases[id].EarliestDeadline = &d
}

type fakeAudit struct {
	mu      sync.Mutex
	watch   map[uuid.UUID]bool
	written []audit.WriteCommand
}

func (f *fakeAudit) Latest(_ context.Context, caseID uuid.UUID, _ audit.EventType, _ string) (*audit.Entry, error) {
	enabled, ok := f.watch[caseID]
	if !ok {
		return nil, audit.ErrNotFound
	}
	payload, _ := json.Marshal(map[string]any{"enabled": enabled})
	return &audit.Entry{CaseID: &caseID, Payload: payload}, nil
}

func (f *fakeAudit) Write(_ context.Context, cmd audit.WriteCommand) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, cmd)
	return uuid.New(), nil
}

// outcomes lists the outcome/reason pairs of the reminder audits written so far.
func (f *fakeAudit) outcomes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, cmd := range f.written {
		if cmd.Subtype != audit.SubtypeReminderDelivery {
			continue
		}
		entry := string(cmd.Payload["outcome"].(reminders.Status))
		if reason, ok := cmd.Payload["reason"].(reminders.Reason); ok {
			entry += ":" + string(reason)
		}
		out = append(out, entry)
	}
	return out
}

type fakeSender struct {
	mu           sync.Mutex
	failing      map[string]bool
	unregistered map[string]bool
	sent         []push.Message
}

func (f *fakeSender) Send(_ context.Context, msg push.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unregistered[msg.To] {
		return fmt.Errorf("%w: %s", push.ErrDeviceNotRegistered, msg.To)
	}
	if f.failing[msg.To] {
		return errors.New("gateway unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
