// Package worker assembles the pipeline and reminder systems over shared
// infrastructure. The worker process and the ops CLI build the same module.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clearcase/worker/internal/assets"
	"github.com/clearcase/worker/internal/audit"
	"github.com/clearcase/worker/internal/cases"
	"github.com/clearcase/worker/internal/config"
	"github.com/clearcase/worker/internal/extraction"
	"github.com/clearcase/worker/internal/formatter"
	"github.com/clearcase/worker/internal/infrastructure"
	"github.com/clearcase/worker/internal/pipeline"
	"github.com/clearcase/worker/internal/push"
	"github.com/clearcase/worker/internal/reminders"
	"github.com/clearcase/worker/pkg/lifecycle"
	"github.com/clearcase/worker/pkg/storage"
)

// Module holds the domain systems and the poll loop built on them.
type Module struct {
	Assets    assets.System
	Cases     cases.System
	Audit     audit.System
	Reminders reminders.Store
	Scheduler *reminders.Scheduler
	Due       *reminders.Processor
	Processor *pipeline.Processor
	Worker    *pipeline.Worker

	logger *slog.Logger
}

// NewModule wires every system from cfg. Nothing connects until the
// infrastructure is started.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*Module, error) {
	logger := infra.Logger.With("module", "worker")
	db := infra.Database.Connection()

	assetSys := assets.New(db, logger)
	caseSys := cases.New(db, logger)
	auditSys := audit.New(db, logger, cfg.API.Pagination)
	store := reminders.NewStore(db, logger, cfg.API.Pagination)

	extractor, err := NewExtractor(&cfg.Extraction, infra.Storage, logger)
	if err != nil {
		return nil, err
	}

	format, err := formatter.New(cfg.Formatter.Provider)
	if err != nil {
		return nil, fmt.Errorf("formatter: %w", err)
	}

	sender, err := push.New(cfg.Push.Provider, push.Options{
		Endpoint:    cfg.Push.Endpoint,
		AccessToken: cfg.Push.AccessToken,
		Rate:        cfg.Push.Rate,
		Burst:       cfg.Push.Burst,
		Timeout:     cfg.Push.TimeoutDuration(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}

	opts := ReminderOptions(&cfg.Reminders)
	scheduler := reminders.NewScheduler(store, caseSys, auditSys, opts, logger, reminders.WithMetrics(infra.Metrics))
	due := reminders.NewProcessor(store, caseSys, auditSys, sender, opts, logger, reminders.WithMetrics(infra.Metrics))

	var cache extraction.CacheLookup = assets.NewCacheLookup(assetSys)
	if ttl := cfg.Extraction.CacheTTLDuration(); ttl > 0 {
		cache = extraction.NewMemoCache(cache, ttl)
	}

	processor := pipeline.NewProcessor(pipeline.Deps{
		Assets:    assetSys,
		Cases:     caseSys,
		Audit:     auditSys,
		Reminders: scheduler,
		Extractor: extractor,
		Formatter: format,
		Cache:     cache,
		Metrics:   infra.Metrics,
		Logger:    logger,
	})

	w := pipeline.NewWorker(infra.Queue, processor, due, auditSys, pipeline.WorkerOptions{
		WaitTime:          cfg.Worker.WaitTimeDuration(),
		VisibilityTimeout: cfg.Worker.VisibilityTimeoutDuration(),
		MaxReceives:       cfg.Worker.MaxReceives,
		MessageTimeout:    cfg.Worker.MessageTimeoutDuration(),
	}, infra.Metrics, logger)

	return &Module{
		Assets:    assetSys,
		Cases:     caseSys,
		Audit:     auditSys,
		Reminders: store,
		Scheduler: scheduler,
		Due:       due,
		Processor: processor,
		Worker:    w,
		logger:    logger,
	}, nil
}

// Start runs the poll loop once every startup hook has completed.
func (m *Module) Start(lc *lifecycle.Coordinator) error {
	m.logger.Info("starting worker loop")

	lc.Go(func(ctx context.Context) {
		lc.WaitForStartup()
		if ctx.Err() != nil {
			return
		}
		m.Worker.Run(ctx)
	})
	return nil
}

// NewExtractor builds the configured extraction provider. The document
// provider runs Tesseract through the local CLI and rasterizes PDFs first.
func NewExtractor(cfg *config.ExtractionConfig, store storage.System, logger *slog.Logger) (extraction.Provider, error) {
	var backend extraction.Backend
	if cfg.Provider == extraction.ProviderDocument {
		backend = extraction.NewTesseract(extraction.TesseractOptions{
			Path:     cfg.TesseractPath,
			Language: cfg.TesseractLanguage,
			DPI:      cfg.RasterDPI,
			Timeout:  cfg.OCRTimeoutDuration(),
		}, extraction.ExecRunner{}, extraction.NewRasterizer(cfg.RasterDPI), logger)
	}

	p, err := extraction.New(cfg.Provider, store, backend, logger)
	if err != nil {
		return nil, fmt.Errorf("extraction: %w", err)
	}
	return p, nil
}

// ReminderOptions maps the reminder configuration onto scheduler options.
func ReminderOptions(cfg *config.RemindersConfig) reminders.Options {
	return reminders.Options{
		Enabled:        cfg.IsEnabled(),
		DeliveryHour:   cfg.Hour(),
		DailyLimit:     cfg.DailyLimit,
		MaxAttempts:    cfg.MaxAttempts,
		BatchSize:      cfg.BatchSize,
		FanOut:         cfg.FanOut,
		BaseRetryDelay: cfg.BaseRetryDelayDuration(),
		ClaimLease:     cfg.ClaimLeaseDuration(),
	}
}
