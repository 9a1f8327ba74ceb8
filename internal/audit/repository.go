package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"

	"github.com/clearcase/worker/pkg/pagination"
	"github.com/clearcase/worker/pkg/query"
	"github.com/clearcase/worker/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an audit repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "audit"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	caseID uuid.UUID,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Entry], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("CaseID", caseID).
		WhereSearch(page.Search, "Subtype", "EventType")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	entries, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}

	result := pagination.NewPageResult(entries, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Write(ctx context.Context, cmd WriteCommand) (uuid.UUID, error) {
	return Insert(ctx, r.db, cmd)
}

func (r *repo) Latest(ctx context.Context, caseID uuid.UUID, eventType EventType, subtype string) (*Entry, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE a.case_id = $1 AND a.event_type = $2 AND a.subtype = $3 ORDER BY a.created_at DESC LIMIT 1",
		projection.Columns(), projection.From(),
	)

	e, err := repository.QueryOne(ctx, r.db, q, []any{caseID, eventType, subtype}, scanEntry)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &e, nil
}

func (r *repo) ExistsForExtraction(ctx context.Context, extractionID uuid.UUID, eventType EventType) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(
		ctx,
		"SELECT EXISTS(SELECT 1 FROM audit_logs WHERE extraction_id = $1 AND event_type = $2)",
		extractionID, eventType,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check audit for extraction: %w", err)
	}
	return exists, nil
}

// Insert appends an entry using e, which may be a transaction. Domain systems
// call it to write their audit records atomically with their own mutations.
func Insert(ctx context.Context, e repository.Executor, cmd WriteCommand) (uuid.UUID, error) {
	payload := make(map[string]any, len(cmd.Payload)+1)
	maps.Copy(payload, cmd.Payload)

	var subtype *string
	if cmd.Subtype != "" {
		subtype = &cmd.Subtype
		payload["subtype"] = cmd.Subtype
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode audit payload: %w", err)
	}

	id := uuid.New()
	_, err = e.ExecContext(
		ctx,
		`INSERT INTO audit_logs(id, case_id, asset_id, extraction_id, verdict_id, event_type, actor_type, subtype, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id,
		nullable(cmd.CaseID),
		nullable(cmd.AssetID),
		nullable(cmd.ExtractionID),
		nullable(cmd.VerdictID),
		cmd.EventType,
		ActorWorker,
		subtype,
		data,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert audit entry: %w", err)
	}
	return id, nil
}

func nullable(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
