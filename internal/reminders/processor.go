package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clearcase/worker/internal/cases"
	"github.com/clearcase/worker/internal/push"
)

// Processor delivers due reminders.
type Processor struct {
	base
	sender push.Sender
}

// NewProcessor creates a Processor that sends through sender.
func NewProcessor(store Store, cases CaseFinder, audit AuditLog, sender push.Sender, opts Options, logger *slog.Logger, options ...Option) *Processor {
	return &Processor{
		base:   newBase(store, cases, audit, opts, logger.With("system", "reminder-processor"), options),
		sender: sender,
	}
}

// ProcessDue claims and delivers one batch of due reminders. Reminders are
// handled one at a time; a failure on one is logged and counted without
// stopping the batch.
func (p *Processor) ProcessDue(ctx context.Context, now time.Time) (ProcessSummary, error) {
	var summary ProcessSummary
	start := time.Now()

	due, err := p.store.ListDue(ctx, now, p.opts.BatchSize)
	if err != nil {
		return summary, err
	}
	summary.Due = len(due)

	for i := range due {
		r := &due[i]

		claimed, err := p.store.Claim(ctx, r.ID, now, now.Add(p.opts.ClaimLease))
		if err != nil {
			summary.Errors++
			p.logger.Error("reminder claim failed", "reminder_id", r.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		summary.Claimed++

		if err := p.process(ctx, r, now, &summary); err != nil {
			summary.Errors++
			p.logger.Error("reminder processing failed", "reminder_id", r.ID, "dedupe_key", r.DedupeKey, "error", err)
		}
	}

	if p.metrics != nil && summary.Due > 0 {
		p.metrics.ReminderBatches.Observe(time.Since(start).Seconds())
	}
	if summary.Claimed > 0 {
		p.logger.Info(
			"reminder batch processed",
			"due", summary.Due,
			"claimed", summary.Claimed,
			"sent", summary.Sent,
			"failed", summary.Failed,
			"retried", summary.Retried,
			"suppressed", summary.Suppressed,
			"errors", summary.Errors,
		)
	}

	return summary, nil
}

func (p *Processor) process(ctx context.Context, r *Reminder, now time.Time, summary *ProcessSummary) error {
	reason, devices, err := p.check(ctx, r, now)
	if err != nil {
		return err
	}
	if reason != "" {
		if err := p.store.MarkSuppressed(ctx, r.ID, reason, now); err != nil {
			return err
		}
		summary.suppress(reason)
		return p.record(ctx, r, StatusSuppressed, reason)
	}

	attempts := r.AttemptCount + 1
	delivered := p.deliver(ctx, r, devices, now)

	if delivered {
		if err := p.store.MarkSent(ctx, r.ID, attempts, now); err != nil {
			return err
		}
		r.AttemptCount = attempts
		summary.Sent++
		return p.record(ctx, r, StatusSent, "")
	}

	if attempts >= p.opts.MaxAttempts {
		if err := p.store.MarkFailed(ctx, r.ID, attempts, now); err != nil {
			return err
		}
		r.AttemptCount = attempts
		summary.Failed++
		return p.record(ctx, r, StatusFailed, ReasonDeliveryFailed)
	}

	next := now.Add(p.opts.BaseRetryDelay * time.Duration(attempts))
	if err := p.store.Reschedule(ctx, r.ID, attempts, next, now); err != nil {
		return err
	}
	summary.Retried++
	p.logger.Warn("reminder delivery failed, rescheduled", "reminder_id", r.ID, "attempts", attempts, "next_attempt_at", next)
	return nil
}

// check runs the delivery preconditions in order and returns the first
// suppression reason, or the devices to deliver to.
func (p *Processor) check(ctx context.Context, r *Reminder, now time.Time) (Reason, []Device, error) {
	c, err := p.cases.Find(ctx, r.CaseID)
	if errors.Is(err, cases.ErrNotFound) {
		return ReasonStaleDeadline, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("load case: %w", err)
	}
	if c.EarliestDeadlineISO() != r.DeadlineISO() {
		return ReasonStaleDeadline, nil, nil
	}

	if !p.opts.Enabled {
		return ReasonFeatureDisabled, nil, nil
	}

	watch, err := p.watchEnabled(ctx, r.CaseID)
	if err != nil {
		return "", nil, err
	}
	if !watch {
		return ReasonWatchDisabled, nil, nil
	}

	pref, err := p.store.Preference(ctx, r.UserID)
	if err != nil {
		return "", nil, err
	}
	if !pref.Enabled {
		return ReasonOptOut, nil, nil
	}
	if pref.QuietHours != nil && pref.QuietHours.Contains(now) {
		return ReasonQuietHours, nil, nil
	}

	day := now.UTC().Truncate(24 * time.Hour)
	sent, err := p.store.CountSentSince(ctx, r.UserID, day)
	if err != nil {
		return "", nil, err
	}
	if sent >= p.opts.DailyLimit {
		return ReasonDailyLimit, nil, nil
	}

	devices, err := p.store.ActiveDevices(ctx, r.UserID)
	if err != nil {
		return "", nil, err
	}
	if len(devices) == 0 {
		return ReasonNoActiveDevice, nil, nil
	}

	return "", devices, nil
}

// deliver sends to every device concurrently and reports whether any send
// succeeded. Devices the gateway reports as unregistered are deactivated.
func (p *Processor) deliver(ctx context.Context, r *Reminder, devices []Device, now time.Time) bool {
	var ok atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.opts.FanOut, 1))

	for _, d := range devices {
		g.Go(func() error {
			err := p.sender.Send(gctx, Notification(r, d.Token))
			if errors.Is(err, push.ErrDeviceNotRegistered) {
				p.logger.Info("deactivating unregistered device", "reminder_id", r.ID, "device_id", d.DeviceID, "platform", d.Platform)
				p.countDelivery("unregistered")
				if err := p.store.DeactivateDevice(ctx, d.ID, now); err != nil {
					p.logger.Error("device deactivation failed", "device_id", d.DeviceID, "error", err)
				}
				return nil
			}
			if err != nil {
				p.logger.Warn("push send failed", "reminder_id", r.ID, "device_id", d.DeviceID, "platform", d.Platform, "error", err)
				p.countDelivery("error")
				return nil
			}
			ok.Add(1)
			p.countDelivery("ok")
			return nil
		})
	}
	_ = g.Wait()

	return ok.Load() > 0
}

func (p *Processor) countDelivery(result string) {
	if p.metrics != nil {
		p.metrics.PushDeliveries.WithLabelValues(result).Inc()
	}
}
