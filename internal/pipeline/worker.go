package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/audit"
	"github.com/clearcase/worker/internal/metrics"
	"github.com/clearcase/worker/internal/reminders"
	"github.com/clearcase/worker/pkg/queue"
)

// Queue is the receive/delete side of the work queue.
type Queue interface {
	Receive(ctx context.Context, wait, visibility time.Duration) (*queue.Message, error)
	Delete(ctx context.Context, receipt string) error
}

// DueProcessor delivers due reminders once per poll cycle.
type DueProcessor interface {
	ProcessDue(ctx context.Context, now time.Time) (reminders.ProcessSummary, error)
}

// FailureRecorder persists failure audits.
type FailureRecorder interface {
	Write(ctx context.Context, cmd audit.WriteCommand) (uuid.UUID, error)
}

// WorkerOptions bounds polling and per-message work.
type WorkerOptions struct {
	WaitTime          time.Duration
	VisibilityTimeout time.Duration
	MaxReceives       int
	MessageTimeout    time.Duration
	// ErrorBackoff is the pause after a failed receive.
	ErrorBackoff time.Duration
}

// Worker is the single consumer loop of one worker process.
type Worker struct {
	queue     Queue
	processor *Processor
	due       DueProcessor
	failures  FailureRecorder
	opts      WorkerOptions
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewWorker creates a Worker. due and m may be nil.
func NewWorker(
	q Queue,
	processor *Processor,
	due DueProcessor,
	failures FailureRecorder,
	opts WorkerOptions,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Worker {
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = time.Second
	}
	return &Worker{
		queue:     q,
		processor: processor,
		due:       due,
		failures:  failures,
		opts:      opts,
		metrics:   m,
		logger:    logger.With("system", "worker"),
	}
}

// Run polls until ctx is cancelled. A message already received when ctx is
// cancelled is processed to completion before Run returns.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info(
		"worker started",
		"wait_time", w.opts.WaitTime,
		"visibility_timeout", w.opts.VisibilityTimeout,
		"max_receives", w.opts.MaxReceives,
	)

	for ctx.Err() == nil {
		if err := w.Cycle(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("poll cycle failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(w.opts.ErrorBackoff):
			}
		}
	}

	w.logger.Info("worker stopped")
}

// Cycle processes due reminders once, then receives and handles at most one
// message. It returns an error only when the queue receive fails.
func (w *Worker) Cycle(ctx context.Context) error {
	if w.due != nil {
		if _, err := w.due.ProcessDue(ctx, time.Now().UTC()); err != nil && ctx.Err() == nil {
			w.logger.Error("reminder processing failed", "error", err)
		}
	}

	msg, err := w.queue.Receive(ctx, w.opts.WaitTime, w.opts.VisibilityTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if msg == nil {
		return nil
	}

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.opts.MessageTimeout)
	defer cancel()

	w.Handle(hctx, msg)
	return nil
}

// Handle processes one received message and applies the delete policy.
func (w *Worker) Handle(ctx context.Context, msg *queue.Message) {
	start := time.Now()
	if w.metrics != nil {
		w.metrics.MessagesReceived.Inc()
		defer func() { w.metrics.MessageDuration.Observe(time.Since(start).Seconds()) }()
	}

	logger := w.logger.With("message_id", msg.ID, "receive_count", msg.ReceiveCount)

	parsed, outcome, err := w.process(ctx, logger, msg)
	if err == nil {
		w.processed(ctx, logger, msg, outcome)
		return
	}

	w.failed(ctx, logger, msg, parsed, Classify(StageValidate, err))
}

// process parses and handles msg. A panic is returned as a non-retryable
// StageError so the message is audited and dropped.
func (w *Worker) process(ctx context.Context, logger *slog.Logger, msg *queue.Message) (parsed *Message, out *Outcome, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Error("message handler panicked", "panic", r, "stack", string(debug.Stack()))

		se := Classify(StageHandle, fmt.Errorf("%w: %v", ErrHandlerPanic, r))
		if parsed != nil {
			se.CaseID, se.AssetID = parsed.CaseID, parsed.AssetID
		}
		out, err = nil, se
	}()

	parsed, err = ParseMessage(msg.Body)
	if err != nil {
		return parsed, nil, err
	}
	out, err = w.processor.Handle(ctx, parsed)
	return parsed, out, err
}

func (w *Worker) processed(ctx context.Context, logger *slog.Logger, msg *queue.Message, out *Outcome) {
	attrs := []any{
		"case_id", out.CaseID,
		"asset_id", out.AssetID,
		"extraction_id", out.ExtractionID,
		"verdict_id", out.VerdictID,
		"mode", out.Mode,
		"reminders_scheduled", out.Reminders.Scheduled,
		"reminders_suppressed", out.Reminders.Suppressed,
	}
	if out.ProcessingPath != "" {
		attrs = append(attrs, "processing_path", out.ProcessingPath)
	}
	if out.Truth != nil {
		attrs = append(attrs,
			"document_type", out.Truth.DocumentType,
			"confidence", out.Truth.ClassificationConfidence,
			"time_sensitive", out.Truth.TimeSensitive,
			"earliest_deadline", out.Truth.EarliestDeadlineISO,
		)
	}
	if out.Readiness != nil {
		attrs = append(attrs, "readiness_score", out.Readiness.Score)
	}

	if out.Mode == ModeReplay {
		logger.Info("message replay skipped", attrs...)
	} else {
		logger.Info("message processed", attrs...)
	}

	if w.metrics != nil {
		w.metrics.MessagesProcessed.WithLabelValues(string(out.Mode)).Inc()
	}

	w.delete(ctx, logger, msg)
}

func (w *Worker) failed(ctx context.Context, logger *slog.Logger, msg *queue.Message, parsed *Message, se *StageError) {
	drop := ""
	switch {
	case msg.ReceiveCount >= w.opts.MaxReceives:
		drop = "max_receives"
	case !se.Retryable:
		drop = "non_retryable"
	}

	logger = logger.With(
		"stage", se.Stage,
		"code", se.Code,
		"retryable", se.Retryable,
		"case_id", se.CaseID,
		"asset_id", se.AssetID,
	)
	logger.Error("message failed", "error", se.Message, "dropped", drop != "")

	if w.metrics != nil {
		w.metrics.MessagesFailed.WithLabelValues(string(se.Stage), string(se.Code)).Inc()
	}

	w.recordFailure(ctx, logger, msg, parsed, se, drop)

	if drop == "" {
		return
	}

	if w.metrics != nil {
		w.metrics.MessagesDropped.WithLabelValues(drop).Inc()
	}
	w.delete(ctx, logger, msg)
}

func (w *Worker) recordFailure(ctx context.Context, logger *slog.Logger, msg *queue.Message, parsed *Message, se *StageError, drop string) {
	if w.failures == nil {
		return
	}

	payload := map[string]any{
		"messageId":    msg.ID,
		"receiveCount": msg.ReceiveCount,
		"stage":        se.Stage,
		"code":         se.Code,
		"retryable":    se.Retryable,
		"message":      se.Message,
		"dropped":      drop != "",
	}
	if drop != "" {
		payload["dropReason"] = drop
	}
	if se.Constraint != "" {
		payload["constraint"] = se.Constraint
	}
	if parsed != nil {
		payload["messageType"] = parsed.Type
	}

	_, err := w.failures.Write(ctx, audit.WriteCommand{
		CaseID:    se.CaseID,
		AssetID:   se.AssetID,
		EventType: audit.EventPipelineFailed,
		Subtype:   audit.SubtypeMessageFailed,
		Payload:   payload,
	})
	if err != nil {
		logger.Error("failure audit write failed", "error", err)
	}
}

func (w *Worker) delete(ctx context.Context, logger *slog.Logger, msg *queue.Message) {
	if err := w.queue.Delete(ctx, msg.Receipt); err != nil {
		logger.Error("message delete failed", "stage", StageDeleteMessage, "error", err)
		return
	}
	logger.Debug("message deleted")
}
