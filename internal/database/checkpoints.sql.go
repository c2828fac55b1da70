package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const upsertCheckpoint = `-- name: UpsertCheckpoint :exec
INSERT INTO checkpoints (
session_id, messages, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (session_id)
DO UPDATE SET
    messages = EXCLUDED.messages,
    updated_at = EXCLUDED.updated_at
`

type UpsertCheckpointParams struct {
	SessionID uuid.UUID
	Messages  string
	UpdatedAt time.Time
}

func (q *Queries) UpsertCheckpoint(ctx context.Context, arg UpsertCheckpointParams) error {
	_, err := q.db.ExecContext(ctx, upsertCheckpoint, arg.SessionID, arg.Messages, arg.UpdatedAt)
	return err
}

const getCheckpoint = `-- name: GetCheckpoint :one
SELECT session_id, messages, updated_at FROM checkpoints WHERE session_id=$1
`

func (q *Queries) GetCheckpoint(ctx context.Context, sessionID uuid.UUID) (Checkpoint, error) {
	row := q.db.QueryRowContext(ctx, getCheckpoint, sessionID)
	var i Checkpoint
	err := row.Scan(&i.SessionID, &i.Messages, &i.UpdatedAt)
	return i, err
}

const deleteCheckpoint = `-- name: DeleteCheckpoint :exec
DELETE FROM checkpoints WHERE session_id=$1
`

func (q *Queries) DeleteCheckpoint(ctx context.Context, sessionID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteCheckpoint, sessionID)
	return err
}
