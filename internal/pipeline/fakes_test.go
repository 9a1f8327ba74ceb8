package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/assets"
	"github.com/clearcase/worker/internal/audit"
	"github.com/clearcase/worker/internal/cases"
	"github.com/clearcase/worker/internal/extraction"
	"github.com/clearcase/worker/internal/reminders"
	"github.com/clearcase/worker/internal/truth"
	"github.com/clearcase/worker/pkg/queue"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// world is the shared in-memory state behind the fake systems.
type world struct {
	mu          sync.Mutex
	cases       map[uuid.UUID]*cases.Case
	assets      map[uuid.UUID]*assets.Asset
	extractions []*assets.Extraction
	verdicts    map[uuid.UUID]*assets.Verdict
	audits      []audit.WriteCommand
	applies     int
	clock       time.Time
}

func newWorld() *world {
	return &world{
		cases:    map[uuid.UUID]*cases.Case{},
		assets:   map[uuid.UUID]*assets.Asset{},
		verdicts: map[uuid.UUID]*assets.Verdict{},
		clock:    time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	}
}

func (w *world) seed() (*cases.Case, *assets.Asset) {
	c := &cases.Case{ID: uuid.New(), UserID: uuid.New()}
	a := &assets.Asset{
		ID:         uuid.New(),
		CaseID:     c.ID,
		StorageKey: "cases/" + c.ID.String() + "/notice.jpg",
		FileName:   "notice.jpg",
		MimeType:   "image/jpeg",
	}
	w.cases[c.ID] = c
	w.assets[a.ID] = a
	return c, a
}

func (w *world) countAudits(event audit.EventType, subtype string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, a := range w.audits {
		if a.EventType == event && a.Subtype == subtype {
			n++
		}
	}
	return n
}

func (w *world) lastAudit(event audit.EventType, subtype string) *audit.WriteCommand {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := len(w.audits) - 1; i >= 0; i-- {
		if w.audits[i].EventType == event && w.audits[i].Subtype == subtype {
			return &w.audits[i]
		}
	}
	return nil
}

func (w *world) appendAudit(cmd audit.WriteCommand) uuid.UUID {
	w.audits = append(w.audits, cmd)
	return uuid.New()
}

type fakeAssets struct{ w *world }

func (f fakeAssets) Find(_ context.Context, id uuid.UUID) (*assets.Asset, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	a, ok := f.w.assets[id]
	if !ok {
		return nil, assets.ErrNotFound
	}
	return a, nil
}

func (f fakeAssets) LatestExtraction(_ context.Context, assetID uuid.UUID) (*assets.Extraction, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for i := len(f.w.extractions) - 1; i >= 0; i-- {
		if f.w.extractions[i].AssetID == assetID {
			return f.w.extractions[i], nil
		}
	}
	return nil, assets.ErrExtractionNotFound
}

func (f fakeAssets) FindVerdict(_ context.Context, extractionID uuid.UUID) (*assets.Verdict, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	v, ok := f.w.verdicts[extractionID]
	if !ok {
		return nil, assets.ErrVerdictNotFound
	}
	return v, nil
}

func (f fakeAssets) FindByContentHash(_ context.Context, contentHash, _ string) (*assets.Extraction, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for i := len(f.w.extractions) - 1; i >= 0; i-- {
		if h := f.w.extractions[i].ContentHash; h != nil && *h == contentHash {
			return f.w.extractions[i], nil
		}
	}
	return nil, assets.ErrExtractionNotFound
}

func (f fakeAssets) CreateExtraction(_ context.Context, cmd assets.CreateExtractionCommand) (*assets.Extraction, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()

	meta, err := json.Marshal(cmd.ProviderMetadata)
	if err != nil {
		return nil, err
	}
	ext := &assets.Extraction{
		ID:               uuid.New(),
		CaseID:           cmd.CaseID,
		AssetID:          cmd.AssetID,
		Engine:           cmd.Engine,
		EngineVersion:    cmd.EngineVersion,
		RawText:          cmd.RawText,
		StructuredFacts:  cmd.StructuredFacts,
		ProviderMetadata: meta,
		PageUnitEstimate: cmd.PageUnitEstimate,
		CreatedAt:        f.w.clock,
	}
	if cmd.ContentHash != "" {
		h := cmd.ContentHash
		ext.ContentHash = &h
	}
	f.w.extractions = append(f.w.extractions, ext)
	f.w.appendAudit(audit.WriteCommand{
		CaseID:       cmd.CaseID,
		AssetID:      cmd.AssetID,
		ExtractionID: ext.ID,
		EventType:    audit.EventOCRRun,
		Payload:      map[string]any{"processingPath": cmd.ProcessingPath},
	})
	return ext, nil
}

func (f fakeAssets) CreateVerdict(_ context.Context, cmd assets.CreateVerdictCommand) (*assets.Verdict, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()

	if v, ok := f.w.verdicts[cmd.ExtractionID]; ok {
		return v, nil
	}
	v := &assets.Verdict{
		ID:           uuid.New(),
		CaseID:       cmd.CaseID,
		ExtractionID: cmd.ExtractionID,
		LLMModel:     cmd.LLMModel,
		InputHash:    cmd.InputHash,
		OutputJSON:   cmd.OutputJSON,
		CreatedAt:    f.w.clock,
	}
	f.w.verdicts[cmd.ExtractionID] = v

	if c, ok := f.w.cases[cmd.CaseID]; ok {
		explanation := cmd.PlainEnglishExplanation
		disclaimer := cmd.NonLegalAdviceDisclaimer
		c.PlainEnglishExplanation = &explanation
		c.NonLegalAdviceDisclaimer = &disclaimer
	}
	f.w.appendAudit(audit.WriteCommand{
		CaseID:       cmd.CaseID,
		ExtractionID: cmd.ExtractionID,
		VerdictID:    v.ID,
		EventType:    audit.EventFormatRun,
	})
	return v, nil
}

func (f fakeAssets) Counts(_ context.Context, caseID uuid.UUID) (assets.Counts, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var c assets.Counts
	for _, a := range f.w.assets {
		if a.CaseID == caseID {
			c.Assets++
		}
	}
	for _, e := range f.w.extractions {
		if e.CaseID == caseID {
			c.Extractions++
		}
	}
	for _, v := range f.w.verdicts {
		if v.CaseID == caseID {
			c.Verdicts++
		}
	}
	return c, nil
}

type fakeCases struct{ w *world }

func (f fakeCases) Find(_ context.Context, id uuid.UUID) (*cases.Case, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	c, ok := f.w.cases[id]
	if !ok {
		return nil, cases.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f fakeCases) ApplyTruth(_ context.Context, cmd cases.ApplyTruthCommand) (*cases.Case, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()

	c, ok := f.w.cases[cmd.CaseID]
	if !ok {
		return nil, cases.ErrNotFound
	}
	next := cases.Merge(c.State(), cmd.Result)
	c.DocumentType = next.DocumentType
	c.ClassificationConfidence = next.ClassificationConfidence
	c.TimeSensitive = next.TimeSensitive
	if next.EarliestDeadlineISO != "" {
		d, err := time.Parse(time.DateOnly, next.EarliestDeadlineISO)
		if err != nil {
			return nil, err
		}
		c.EarliestDeadline = &d
	}
	f.w.applies++
	f.w.appendAudit(audit.WriteCommand{
		CaseID:       cmd.CaseID,
		AssetID:      cmd.AssetID,
		ExtractionID: cmd.ExtractionID,
		EventType:    audit.EventTruthLayerRun,
		Payload:      map[string]any{"truthLayerVersion": truth.Version},
	})
	cp := *c
	return &cp, nil
}

func (f fakeCases) RecordReadiness(ctx context.Context, caseID uuid.UUID, source string) (*cases.Readiness, error) {
	c, err := f.Find(ctx, caseID)
	if err != nil {
		return nil, err
	}
	counts, _ := fakeAssets(f).Counts(ctx, caseID)
	hasContext := false
	f.w.mu.Lock()
	for _, a := range f.w.audits {
		if a.CaseID == caseID && a.Subtype == audit.SubtypeContextSet {
			hasContext = true
		}
	}
	f.w.mu.Unlock()

	r := cases.ComputeReadiness(cases.ReadinessInput{
		Case:            c,
		AssetCount:      counts.Assets,
		ExtractionCount: counts.Extractions,
		VerdictCount:    counts.Verdicts,
		HasContext:      hasContext,
	})

	f.w.mu.Lock()
	f.w.appendAudit(audit.WriteCommand{
		CaseID:    caseID,
		EventType: audit.EventCaseUpdated,
		Subtype:   audit.SubtypeReadinessSnapshot,
		Payload:   map[string]any{"source": source, "score": r.Score},
	})
	f.w.mu.Unlock()
	return &r, nil
}

// fakeAudit implements the write and lookup side of audit.System.
// Handler and List are never called by the pipeline.
type fakeAudit struct {
	audit.System
	w        *world
	writeErr error
}

func (f *fakeAudit) Write(_ context.Context, cmd audit.WriteCommand) (uuid.UUID, error) {
	if f.writeErr != nil {
		return uuid.Nil, f.writeErr
	}
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	return f.w.appendAudit(cmd), nil
}

func (f *fakeAudit) Latest(_ context.Context, caseID uuid.UUID, eventType audit.EventType, subtype string) (*audit.Entry, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for i := len(f.w.audits) - 1; i >= 0; i-- {
		a := f.w.audits[i]
		if a.CaseID == caseID && a.EventType == eventType && a.Subtype == subtype {
			payload, _ := json.Marshal(a.Payload)
			return &audit.Entry{EventType: a.EventType, Payload: payload}, nil
		}
	}
	return nil, audit.ErrNotFound
}

func (f *fakeAudit) ExistsForExtraction(_ context.Context, extractionID uuid.UUID, eventType audit.EventType) (bool, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, a := range f.w.audits {
		if a.ExtractionID == extractionID && a.EventType == eventType {
			return true, nil
		}
	}
	return false, nil
}

// countingExtractor wraps the stub provider and counts calls.
type countingExtractor struct {
	calls  int
	err    error
	panics any
	last   extraction.Input
	next   extraction.Provider
}

func (e *countingExtractor) Extract(ctx context.Context, in extraction.Input) (*extraction.Result, error) {
	e.calls++
	e.last = in
	if e.panics != nil {
		panic(e.panics)
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.next.Extract(ctx, in)
}

type fakeSyncer struct {
	calls int
	err   error
}

func (s *fakeSyncer) Sync(context.Context, uuid.UUID) (reminders.SyncResult, error) {
	s.calls++
	if s.err != nil {
		return reminders.SyncResult{}, s.err
	}
	return reminders.SyncResult{WatchEnabled: true, Scheduled: 1}, nil
}

// fakeQueue records deletes and serves queued messages in order.
type fakeQueue struct {
	mu         sync.Mutex
	pending    []*queue.Message
	deleted    []string
	receiveErr error
}

func (q *fakeQueue) Receive(context.Context, time.Duration, time.Duration) (*queue.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.receiveErr != nil {
		return nil, q.receiveErr
	}
	if len(q.pending) == 0 {
		return nil, nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	return msg, nil
}

func (q *fakeQueue) Delete(_ context.Context, receipt string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, receipt)
	return nil
}

type fakeDue struct {
	calls int
}

func (d *fakeDue) ProcessDue(context.Context, time.Time) (reminders.ProcessSummary, error) {
	d.calls++
	return reminders.ProcessSummary{}, errors.New("due reminders unavailable")
}
