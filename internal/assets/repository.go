package assets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/audit"
	"github.com/clearcase/worker/pkg/query"
	"github.com/clearcase/worker/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates an asset repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "assets"),
	}
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Asset, error) {
	q, args := query.NewBuilder(assetProjection).BuildSingle("ID", id)

	a, err := repository.QueryOne(ctx, r.db, q, args, scanAsset)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &a, nil
}

func (r *repo) LatestExtraction(ctx context.Context, assetID uuid.UUID) (*Extraction, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE e.asset_id = $1 ORDER BY e.created_at DESC, e.id DESC LIMIT 1",
		extractionProjection.Columns(), extractionProjection.From(),
	)

	e, err := repository.QueryOne(ctx, r.db, q, []any{assetID}, scanExtraction)
	if err != nil {
		return nil, repository.MapError(err, ErrExtractionNotFound, ErrDuplicate)
	}
	return &e, nil
}

func (r *repo) FindVerdict(ctx context.Context, extractionID uuid.UUID) (*Verdict, error) {
	q, args := query.NewBuilder(verdictProjection).BuildSingle("ExtractionID", extractionID)

	v, err := repository.QueryOne(ctx, r.db, q, args, scanVerdict)
	if err != nil {
		return nil, repository.MapError(err, ErrVerdictNotFound, ErrDuplicate)
	}
	return &v, nil
}

func (r *repo) FindByContentHash(ctx context.Context, contentHash, mimeType string) (*Extraction, error) {
	q := fmt.Sprintf(
		`SELECT %s FROM %s
		JOIN public.assets a ON a.id = e.asset_id
		WHERE e.content_hash = $1 AND a.mime_type = $2
		ORDER BY e.created_at DESC LIMIT 1`,
		extractionProjection.Columns(), extractionProjection.From(),
	)

	e, err := repository.QueryOne(ctx, r.db, q, []any{contentHash, mimeType}, scanExtraction)
	if err != nil {
		return nil, repository.MapError(err, ErrExtractionNotFound, ErrDuplicate)
	}
	return &e, nil
}

func (r *repo) CreateExtraction(ctx context.Context, cmd CreateExtractionCommand) (*Extraction, error) {
	facts, err := json.Marshal(cmd.StructuredFacts)
	if err != nil {
		return nil, fmt.Errorf("encode structured facts: %w", err)
	}
	metadata, err := json.Marshal(cmd.ProviderMetadata)
	if err != nil {
		return nil, fmt.Errorf("encode provider metadata: %w", err)
	}

	var hash *string
	if cmd.ContentHash != "" {
		hash = &cmd.ContentHash
	}

	q := fmt.Sprintf(`
		INSERT INTO extractions AS e(id, case_id, asset_id, engine, engine_version, raw_text, structured_facts, provider_metadata, page_unit_estimate, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s`, extractionProjection.Columns())

	args := []any{
		uuid.New(),
		cmd.CaseID,
		cmd.AssetID,
		cmd.Engine,
		cmd.EngineVersion,
		cmd.RawText,
		facts,
		metadata,
		cmd.PageUnitEstimate,
		hash,
	}

	e, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Extraction, error) {
		e, err := repository.QueryOne(ctx, tx, q, args, scanExtraction)
		if err != nil {
			return e, err
		}

		if hash != nil {
			if _, err := tx.ExecContext(
				ctx,
				"UPDATE assets SET content_hash = $1 WHERE id = $2 AND content_hash IS NULL",
				*hash, cmd.AssetID,
			); err != nil {
				return e, fmt.Errorf("backfill content hash: %w", err)
			}
		}

		_, err = audit.Insert(ctx, tx, audit.WriteCommand{
			CaseID:       cmd.CaseID,
			AssetID:      cmd.AssetID,
			ExtractionID: e.ID,
			EventType:    audit.EventOCRRun,
			Payload: map[string]any{
				"engine":           cmd.Engine,
				"engineVersion":    cmd.EngineVersion,
				"processingPath":   cmd.ProcessingPath,
				"pageUnitEstimate": cmd.PageUnitEstimate,
				"contentHash":      hash,
			},
		})
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("create extraction: %w", err)
	}

	r.logger.Info("extraction created", "id", e.ID, "asset_id", e.AssetID, "engine", e.Engine)
	return &e, nil
}

func (r *repo) CreateVerdict(ctx context.Context, cmd CreateVerdictCommand) (*Verdict, error) {
	q := fmt.Sprintf(`
		INSERT INTO verdicts AS v(id, case_id, extraction_id, llm_model, input_hash, output_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (extraction_id) DO NOTHING
		RETURNING %s`, verdictProjection.Columns())

	args := []any{
		uuid.New(),
		cmd.CaseID,
		cmd.ExtractionID,
		cmd.LLMModel,
		cmd.InputHash,
		cmd.OutputJSON,
	}

	v, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Verdict, error) {
		v, err := repository.QueryOne(ctx, tx, q, args, scanVerdict)
		if errors.Is(err, sql.ErrNoRows) {
			existing, existingArgs := query.NewBuilder(verdictProjection).BuildSingle("ExtractionID", cmd.ExtractionID)
			return repository.QueryOne(ctx, tx, existing, existingArgs, scanVerdict)
		}
		if err != nil {
			return v, err
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			`UPDATE cases SET plain_english_explanation = $1, non_legal_advice_disclaimer = $2, updated_at = NOW()
			WHERE id = $3`,
			cmd.PlainEnglishExplanation, cmd.NonLegalAdviceDisclaimer, cmd.CaseID,
		); err != nil {
			return v, fmt.Errorf("update case explanation: %w", err)
		}

		_, err = audit.Insert(ctx, tx, audit.WriteCommand{
			CaseID:       cmd.CaseID,
			ExtractionID: cmd.ExtractionID,
			VerdictID:    v.ID,
			EventType:    audit.EventFormatRun,
			Payload: map[string]any{
				"llmModel":  cmd.LLMModel,
				"inputHash": cmd.InputHash,
			},
		})
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("create verdict: %w", err)
	}

	r.logger.Info("verdict stored", "id", v.ID, "extraction_id", v.ExtractionID)
	return &v, nil
}

func (r *repo) Counts(ctx context.Context, caseID uuid.UUID) (Counts, error) {
	var c Counts
	err := r.db.QueryRowContext(
		ctx,
		`SELECT
			(SELECT COUNT(*) FROM assets WHERE case_id = $1),
			(SELECT COUNT(*) FROM extractions WHERE case_id = $1),
			(SELECT COUNT(*) FROM verdicts WHERE case_id = $1)`,
		caseID,
	).Scan(&c.Assets, &c.Extractions, &c.Verdicts)
	if err != nil {
		return c, fmt.Errorf("count case records: %w", err)
	}
	return c, nil
}
