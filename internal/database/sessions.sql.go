package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const createSession = `-- name: CreateSession :exec
INSERT INTO sessions (id, user_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
`

type CreateSessionParams struct {
	ID        uuid.UUID
	UserID    string
	Status    string
	CreatedAt time.Time
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) error {
	_, err := q.db.ExecContext(ctx, createSession,
		arg.ID,
		arg.UserID,
		arg.Status,
		arg.CreatedAt,
	)
	return err
}

const getSession = `-- name: GetSession :one
SELECT id, user_id, status, created_at, updated_at FROM sessions WHERE id=$1
`

func (q *Queries) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSession, id)
	var i Session
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateSessionStatus = `-- name: UpdateSessionStatus :execrows
UPDATE sessions
SET status=$1, updated_at=$2
WHERE id=$3
`

type UpdateSessionStatusParams struct {
	Status    string
	UpdatedAt time.Time
	ID        uuid.UUID
}

func (q *Queries) UpdateSessionStatus(ctx context.Context, arg UpdateSessionStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateSessionStatus, arg.Status, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteSession = `-- name: DeleteSession :exec
DELETE FROM sessions WHERE id=$1
`

func (q *Queries) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteSession, id)
	return err
}
