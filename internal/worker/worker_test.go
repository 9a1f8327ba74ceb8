package worker_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/clearcase/worker/internal/config"
	"github.com/clearcase/worker/internal/extraction"
	"github.com/clearcase/worker/internal/worker"
)

func TestReminderOptions(t *testing.T) {
	for _, env := range []string{
		config.EnvRemindersEnabled,
		config.EnvRemindersDailyLimit,
		config.EnvRemindersMaxAttempts,
		config.EnvRemindersBaseRetryDelay,
		config.EnvRemindersClaimLease,
		config.EnvRemindersBatchSize,
		config.EnvRemindersDeliveryHour,
		config.EnvRemindersFanOut,
	} {
		t.Setenv(env, "")
	}

	hour := 9
	cfg := config.RemindersConfig{DeliveryHour: &hour, DailyLimit: 2}
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}

	opts := worker.ReminderOptions(&cfg)
	if !opts.Enabled || opts.DeliveryHour != 9 || opts.DailyLimit != 2 {
		t.Errorf("opts = %+v", opts)
	}
	if opts.MaxAttempts != 3 || opts.BatchSize != 25 || opts.FanOut != 4 {
		t.Errorf("defaults = %+v", opts)
	}
	if opts.BaseRetryDelay != 10*time.Minute || opts.ClaimLease != 2*time.Minute {
		t.Errorf("durations = %v, %v", opts.BaseRetryDelay, opts.ClaimLease)
	}
}

func TestNewExtractor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("stub", func(t *testing.T) {
		p, err := worker.NewExtractor(&config.ExtractionConfig{Provider: extraction.ProviderStub}, nil, logger)
		if err != nil || p == nil {
			t.Fatalf("provider = %v, err = %v", p, err)
		}
	})

	t.Run("document without storage", func(t *testing.T) {
		_, err := worker.NewExtractor(&config.ExtractionConfig{Provider: extraction.ProviderDocument}, nil, logger)
		if !errors.Is(err, extraction.ErrUnsupportedProvider) {
			t.Errorf("err = %v, want ErrUnsupportedProvider", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := worker.NewExtractor(&config.ExtractionConfig{Provider: "vision"}, nil, logger)
		if !errors.Is(err, extraction.ErrUnsupportedProvider) {
			t.Errorf("err = %v, want ErrUnsupportedProvider", err)
		}
	})
}
