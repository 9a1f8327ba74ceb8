// Package pipeline runs queued asset_uploaded messages through extraction,
// the truth layer, and the formatter.
//
// Each message is idempotent. A fully processed asset is replayed without
// repeating work, an asset whose extraction has no verdict resumes at the
// formatter, and anything else runs the full sequence.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/assets"
	"github.com/clearcase/worker/internal/audit"
	"github.com/clearcase/worker/internal/cases"
	"github.com/clearcase/worker/internal/extraction"
	"github.com/clearcase/worker/internal/formatter"
	"github.com/clearcase/worker/internal/metrics"
	"github.com/clearcase/worker/internal/reminders"
	"github.com/clearcase/worker/internal/truth"
)

// Mode is how a message was handled.
type Mode string

const (
	ModeReplay Mode = "replay"
	ModeResume Mode = "resume"
	ModeFull   Mode = "full"
)

// ReadinessSourceReplay is recorded on readiness snapshots taken during replay.
const ReadinessSourceReplay = "worker_replay"

// ReminderSyncer re-syncs a case's reminders after processing.
type ReminderSyncer interface {
	Sync(ctx context.Context, caseID uuid.UUID) (reminders.SyncResult, error)
}

// Outcome summarizes a successfully handled message.
type Outcome struct {
	Mode           Mode
	CaseID         uuid.UUID
	AssetID        uuid.UUID
	ExtractionID   uuid.UUID
	VerdictID      uuid.UUID
	ProcessingPath extraction.ProcessingPath
	Truth          *truth.Result
	Readiness      *cases.Readiness
	Reminders      reminders.SyncResult
}

// Deps are the collaborators of a Processor. Cache and Metrics are optional.
type Deps struct {
	Assets    assets.System
	Cases     cases.System
	Audit     audit.System
	Reminders ReminderSyncer
	Extractor extraction.Provider
	Formatter formatter.Formatter
	Cache     extraction.CacheLookup
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Processor handles one parsed message at a time.
type Processor struct {
	deps   Deps
	logger *slog.Logger
}

func NewProcessor(deps Deps) *Processor {
	return &Processor{
		deps:   deps,
		logger: deps.Logger.With("system", "pipeline"),
	}
}

// Handle runs msg through the pipeline. Failures are returned as *StageError.
func (p *Processor) Handle(ctx context.Context, msg *Message) (*Outcome, error) {
	asset, err := p.deps.Assets.Find(ctx, msg.AssetID)
	if err != nil {
		return nil, fail(StageLoadAsset, msg, err)
	}
	if asset.CaseID != msg.CaseID {
		return nil, fail(StageLoadAsset, msg, ErrAssetMismatch)
	}
	if _, err := p.deps.Cases.Find(ctx, msg.CaseID); err != nil {
		return nil, fail(StageLoadAsset, msg, err)
	}

	description := strings.TrimSpace(msg.UserDescription)

	if description == "" {
		ext, verdict, err := p.existing(ctx, asset.ID)
		if err != nil {
			return nil, fail(StageIdempotencyCheck, msg, err)
		}

		switch {
		case verdict != nil:
			return p.replay(ctx, msg, ext, verdict)
		case ext != nil:
			return p.resume(ctx, msg, ext)
		}
	}

	return p.full(ctx, msg, asset, description)
}

// existing returns the asset's current extraction and its verdict, either
// of which may be nil.
func (p *Processor) existing(ctx context.Context, assetID uuid.UUID) (*assets.Extraction, *assets.Verdict, error) {
	ext, err := p.deps.Assets.LatestExtraction(ctx, assetID)
	if errors.Is(err, assets.ErrExtractionNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	verdict, err := p.deps.Assets.FindVerdict(ctx, ext.ID)
	if errors.Is(err, assets.ErrVerdictNotFound) {
		return ext, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return ext, verdict, nil
}

func (p *Processor) replay(ctx context.Context, msg *Message, ext *assets.Extraction, verdict *assets.Verdict) (*Outcome, error) {
	_, err := p.deps.Audit.Write(ctx, audit.WriteCommand{
		CaseID:       msg.CaseID,
		AssetID:      msg.AssetID,
		ExtractionID: ext.ID,
		VerdictID:    verdict.ID,
		EventType:    audit.EventCaseUpdated,
		Subtype:      audit.SubtypeReplaySkipped,
		Payload: map[string]any{
			"reason":       "existing_verdict",
			"messageType":  msg.Type,
			"extractionId": ext.ID.String(),
			"verdictId":    verdict.ID.String(),
		},
	})
	if err != nil {
		return nil, fail(StageIdempotencyCheck, msg, err)
	}

	readiness, err := p.deps.Cases.RecordReadiness(ctx, msg.CaseID, ReadinessSourceReplay)
	if err != nil {
		return nil, fail(StageIdempotencyCheck, msg, err)
	}

	out := &Outcome{
		Mode:         ModeReplay,
		CaseID:       msg.CaseID,
		AssetID:      msg.AssetID,
		ExtractionID: ext.ID,
		VerdictID:    verdict.ID,
		Readiness:    readiness,
	}
	return p.syncReminders(ctx, msg, out)
}

func (p *Processor) resume(ctx context.Context, msg *Message, ext *assets.Extraction) (*Outcome, error) {
	result, err := p.truthStage(ctx, msg, ext)
	if err != nil {
		return nil, err
	}

	verdict, err := p.formatterStage(ctx, msg, ext, result)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Mode:         ModeResume,
		CaseID:       msg.CaseID,
		AssetID:      msg.AssetID,
		ExtractionID: ext.ID,
		VerdictID:    verdict.ID,
		Truth:        &result,
	}
	return p.syncReminders(ctx, msg, out)
}

func (p *Processor) full(ctx context.Context, msg *Message, asset *assets.Asset, description string) (*Outcome, error) {
	if description != "" {
		if err := p.recordContext(ctx, msg, description); err != nil {
			return nil, fail(StageIdempotencyCheck, msg, err)
		}
	}

	ext, path, err := p.ocrStage(ctx, msg, asset, description)
	if err != nil {
		return nil, err
	}

	result, err := p.truthStage(ctx, msg, ext)
	if err != nil {
		return nil, err
	}

	verdict, err := p.formatterStage(ctx, msg, ext, result)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Mode:           ModeFull,
		CaseID:         msg.CaseID,
		AssetID:        msg.AssetID,
		ExtractionID:   ext.ID,
		VerdictID:      verdict.ID,
		ProcessingPath: path,
		Truth:          &result,
	}
	return p.syncReminders(ctx, msg, out)
}

func (p *Processor) recordContext(ctx context.Context, msg *Message, description string) error {
	payload := map[string]any{
		"description": description,
		"source":      MessageTypeAssetUploaded,
		"assetId":     msg.AssetID.String(),
	}
	if msg.ContextReuse != nil && msg.ContextReuse.SourceCaseID != nil {
		payload["sourceCaseId"] = msg.ContextReuse.SourceCaseID.String()
	}

	_, err := p.deps.Audit.Write(ctx, audit.WriteCommand{
		CaseID:    msg.CaseID,
		AssetID:   msg.AssetID,
		EventType: audit.EventCaseUpdated,
		Subtype:   audit.SubtypeContextSet,
		Payload:   payload,
	})
	return err
}

func (p *Processor) ocrStage(ctx context.Context, msg *Message, asset *assets.Asset, description string) (*assets.Extraction, extraction.ProcessingPath, error) {
	in := extraction.Input{
		CaseID:          msg.CaseID,
		AssetID:         asset.ID,
		StorageKey:      asset.StorageKey,
		FileName:        asset.FileName,
		MimeType:        asset.MimeType,
		UserDescription: description,
	}
	// A cached extraction carries the facts of an earlier run, so a fresh
	// description must not reuse it.
	if description == "" {
		in.Cache = p.deps.Cache
	}

	result, err := p.deps.Extractor.Extract(ctx, in)
	if err != nil {
		return nil, "", fail(StageOCR, msg, err)
	}

	metadata := map[string]any{"extraction": result.Metadata}
	if result.Source != nil {
		metadata["source"] = result.Source
	}

	ext, err := p.deps.Assets.CreateExtraction(ctx, assets.CreateExtractionCommand{
		CaseID:           msg.CaseID,
		AssetID:          asset.ID,
		Engine:           result.Engine,
		EngineVersion:    result.EngineVersion,
		RawText:          result.RawText,
		StructuredFacts:  result.StructuredFacts,
		ProviderMetadata: metadata,
		PageUnitEstimate: result.Metadata.PageUnitEstimate,
		ContentHash:      result.ContentHash,
		ProcessingPath:   string(result.Metadata.ProcessingPath),
	})
	if err != nil {
		return nil, "", fail(StageOCR, msg, err)
	}

	if p.deps.Metrics != nil {
		p.deps.Metrics.ExtractionPaths.WithLabelValues(string(result.Metadata.ProcessingPath)).Inc()
	}
	return ext, result.Metadata.ProcessingPath, nil
}

// truthStage derives the truth result from the stored extraction and merges
// it into the case unless this extraction was already merged.
func (p *Processor) truthStage(ctx context.Context, msg *Message, ext *assets.Extraction) (truth.Result, error) {
	result := truth.Build(truth.Input{
		CaseID:              msg.CaseID,
		AssetID:             ext.AssetID,
		ExtractionID:        ext.ID,
		ExtractionEngine:    ext.Engine,
		ExtractionCreatedAt: ext.CreatedAt,
		RawText:             ext.RawText,
		StructuredFacts:     ext.StructuredFacts,
	})

	applied, err := p.deps.Audit.ExistsForExtraction(ctx, ext.ID, audit.EventTruthLayerRun)
	if err != nil {
		return result, fail(StageTruth, msg, err)
	}

	if applied {
		p.logger.Info("truth result already merged", "case_id", msg.CaseID, "extraction_id", ext.ID)
		return result, nil
	}

	_, err = p.deps.Cases.ApplyTruth(ctx, cases.ApplyTruthCommand{
		CaseID:       msg.CaseID,
		AssetID:      ext.AssetID,
		ExtractionID: ext.ID,
		Result:       result,
	})
	if err != nil {
		return result, fail(StageTruth, msg, err)
	}
	return result, nil
}

func (p *Processor) formatterStage(ctx context.Context, msg *Message, ext *assets.Extraction, result truth.Result) (*assets.Verdict, error) {
	out, err := p.deps.Formatter.Format(formatter.Input{
		CaseID:       msg.CaseID,
		ExtractionID: ext.ID,
		Truth:        result,
	})
	if err != nil {
		return nil, fail(StageFormatter, msg, err)
	}

	verdict, err := p.deps.Assets.CreateVerdict(ctx, assets.CreateVerdictCommand{
		CaseID:                   msg.CaseID,
		ExtractionID:             ext.ID,
		LLMModel:                 out.LLMModel,
		InputHash:                out.InputHash,
		OutputJSON:               out.OutputJSON,
		PlainEnglishExplanation:  out.PlainEnglishExplanation,
		NonLegalAdviceDisclaimer: out.NonLegalAdviceDisclaimer,
	})
	if err != nil {
		return nil, fail(StageFormatter, msg, err)
	}
	return verdict, nil
}

func (p *Processor) syncReminders(ctx context.Context, msg *Message, out *Outcome) (*Outcome, error) {
	if p.deps.Reminders == nil {
		return out, nil
	}

	result, err := p.deps.Reminders.Sync(ctx, msg.CaseID)
	if err != nil {
		return nil, fail(StageSyncReminders, msg, err)
	}
	out.Reminders = result
	return out, nil
}
