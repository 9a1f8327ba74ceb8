package assets

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clearcase/worker/pkg/repository"
)

// RegisterCommand describes an object already in storage to record as an asset.
type RegisterCommand struct {
	CaseID     uuid.UUID
	StorageKey string
	FileName   string
	MimeType   string
	ByteSize   int64
}

// Register inserts the asset row for an uploaded object. Assets are normally
// created by the upload API; this is used by tooling that seeds fixtures.
func Register(ctx context.Context, q repository.Querier, cmd RegisterCommand) (*Asset, error) {
	stmt := fmt.Sprintf(`
		INSERT INTO assets AS a(id, case_id, storage_key, file_name, mime_type, byte_size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, assetProjection.Columns())

	a, err := repository.QueryOne(ctx, q, stmt,
		[]any{uuid.New(), cmd.CaseID, cmd.StorageKey, cmd.FileName, cmd.MimeType, cmd.ByteSize},
		scanAsset,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &a, nil
}
