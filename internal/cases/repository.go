package cases

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/audit"
	"github.com/clearcase/worker/internal/truth"
	"github.com/clearcase/worker/pkg/query"
	"github.com/clearcase/worker/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a case repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "cases"),
	}
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Case, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanCase)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &c, nil
}

func (r *repo) ApplyTruth(ctx context.Context, cmd ApplyTruthCommand) (*Case, error) {
	lock, lockArgs := query.NewBuilder(projection).ForUpdate().BuildSingle("ID", cmd.CaseID)

	update := fmt.Sprintf(`
		UPDATE cases AS c SET
			document_type = $1,
			classification_confidence = $2,
			time_sensitive = $3,
			earliest_deadline = $4::date,
			updated_at = NOW()
		WHERE c.id = $5
		RETURNING %s`, projection.Columns())

	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Case, error) {
		current, err := repository.QueryOne(ctx, tx, lock, lockArgs, scanCase)
		if err != nil {
			return current, repository.MapError(err, ErrNotFound, ErrNotFound)
		}

		next := Merge(current.State(), cmd.Result)

		var deadline *string
		if next.EarliestDeadlineISO != "" {
			deadline = &next.EarliestDeadlineISO
		}

		updated, err := repository.QueryOne(ctx, tx, update, []any{
			next.DocumentType,
			next.ClassificationConfidence,
			next.TimeSensitive,
			deadline,
			cmd.CaseID,
		}, scanCase)
		if err != nil {
			return updated, fmt.Errorf("update case state: %w", err)
		}

		_, err = audit.Insert(ctx, tx, audit.WriteCommand{
			CaseID:       cmd.CaseID,
			AssetID:      cmd.AssetID,
			ExtractionID: cmd.ExtractionID,
			EventType:    audit.EventTruthLayerRun,
			Payload: map[string]any{
				"documentType":             cmd.Result.DocumentType,
				"classificationConfidence": cmd.Result.ClassificationConfidence,
				"timeSensitive":            cmd.Result.TimeSensitive,
				"earliestDeadlineIso":      nilIfEmpty(cmd.Result.EarliestDeadlineISO),
				"matchedKeywords":          cmd.Result.MatchedKeywords,
				"deadlineSignalCount":      len(cmd.Result.DeadlineSignals),
				"truthLayerVersion":        truth.Version,
			},
		})
		return updated, err
	})
	if err != nil {
		return nil, fmt.Errorf("apply truth result: %w", err)
	}

	r.logger.Info(
		"case state merged",
		"case_id", c.ID,
		"document_type", deref(c.DocumentType),
		"earliest_deadline", c.EarliestDeadlineISO(),
	)
	return &c, nil
}

func (r *repo) RecordReadiness(ctx context.Context, caseID uuid.UUID, source string) (*Readiness, error) {
	c, err := r.Find(ctx, caseID)
	if err != nil {
		return nil, err
	}

	in := ReadinessInput{Case: c}
	err = r.db.QueryRowContext(
		ctx,
		`SELECT
			(SELECT COUNT(*) FROM assets WHERE case_id = $1),
			(SELECT COUNT(*) FROM extractions WHERE case_id = $1),
			(SELECT COUNT(*) FROM verdicts WHERE case_id = $1),
			EXISTS(
				SELECT 1 FROM audit_logs
				WHERE case_id = $1 AND subtype = $2
					AND COALESCE(TRIM(payload->>'description'), '') <> ''
			)`,
		caseID, audit.SubtypeContextSet,
	).Scan(&in.AssetCount, &in.ExtractionCount, &in.VerdictCount, &in.HasContext)
	if err != nil {
		return nil, fmt.Errorf("load readiness inputs: %w", err)
	}

	readiness := ComputeReadiness(in)

	if _, err := audit.Insert(ctx, r.db, audit.WriteCommand{
		CaseID:    caseID,
		EventType: audit.EventCaseUpdated,
		Subtype:   audit.SubtypeReadinessSnapshot,
		Payload: map[string]any{
			"source":     source,
			"score":      readiness.Score,
			"components": readiness.Components,
		},
	}); err != nil {
		return nil, err
	}

	return &readiness, nil
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
