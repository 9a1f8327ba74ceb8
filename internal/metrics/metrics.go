// Package metrics defines the Prometheus collectors for the worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clearcase"

// Metrics holds the collectors recorded by the pipeline and the reminder processor.
type Metrics struct {
	// Pipeline
	MessagesReceived  prometheus.Counter
	MessagesProcessed *prometheus.CounterVec
	MessagesFailed    *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	MessageDuration   prometheus.Histogram
	ExtractionPaths   *prometheus.CounterVec

	// Reminders
	ReminderOutcomes *prometheus.CounterVec
	ReminderBatches  prometheus.Histogram
	PushDeliveries   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		MessagesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Queue messages received by the worker",
		}),

		MessagesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Messages processed successfully by handling mode",
		}, []string{"mode"}),

		MessagesFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_failed_total",
			Help:      "Message failures by stage and error code",
		}, []string{"stage", "code"}),

		// reason: max_receives or non_retryable
		MessagesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Failed messages deleted without success",
		}, []string{"reason"}),

		MessageDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_duration_seconds",
			Help:      "Time spent handling a single message",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 240},
		}),

		ExtractionPaths: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Extractions created by processing path",
		}, []string{"path"}),

		ReminderOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_outcomes_total",
			Help:      "Reminder outcomes by status and reason",
		}, []string{"outcome", "reason"}),

		ReminderBatches: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_batch_duration_seconds",
			Help:      "Time spent processing one batch of due reminders",
			Buckets:   prometheus.DefBuckets,
		}),

		PushDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_deliveries_total",
			Help:      "Push sends per device token by result",
		}, []string{"result"}),
	}
}
