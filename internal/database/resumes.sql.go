package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const createResume = `-- name: CreateResume :exec
INSERT INTO resumes (id, session_id, original_filename, mime, object_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

type CreateResumeParams struct {
	ID               uuid.UUID
	SessionID        uuid.UUID
	OriginalFilename string
	Mime             string
	ObjectKey        string
	CreatedAt        time.Time
}

func (q *Queries) CreateResume(ctx context.Context, arg CreateResumeParams) error {
	_, err := q.db.ExecContext(ctx, createResume,
		arg.ID,
		arg.SessionID,
		arg.OriginalFilename,
		arg.Mime,
		arg.ObjectKey,
		arg.CreatedAt,
	)
	return err
}

const getResumesBySession = `-- name: GetResumesBySession :many
SELECT id, session_id, original_filename, mime, object_key, created_at FROM resumes WHERE session_id=$1 ORDER BY created_at
`

func (q *Queries) GetResumesBySession(ctx context.Context, sessionID uuid.UUID) ([]Resume, error) {
	rows, err := q.db.QueryContext(ctx, getResumesBySession, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Resume
	for rows.Next() {
		var i Resume
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.OriginalFilename,
			&i.Mime,
			&i.ObjectKey,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteResumesBySession = `-- name: DeleteResumesBySession :exec
DELETE FROM resumes WHERE session_id=$1
`

func (q *Queries) DeleteResumesBySession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteResumesBySession, sessionID)
	return err
}
