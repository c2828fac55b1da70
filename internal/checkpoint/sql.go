package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/muhammadolammi/jobmatchassistant/internal/database"
	"github.com/muhammadolammi/jobmatchassistant/internal/memory"
	"github.com/muhammadolammi/jobmatchassistant/internal/retry"
)

const writeAttempts = 3

// SQL stores sessions through the generated queries in internal/database.
type SQL struct {
	db *sql.DB
	q  *database.Queries
}

func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db, q: database.New(db)}
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return parsed, nil
}

func (s *SQL) Create(ctx context.Context, id, userID string) error {
	sid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", id, err)
	}
	return s.q.CreateSession(ctx, database.CreateSessionParams{
		ID:        sid,
		UserID:    userID,
		Status:    StatusActive,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *SQL) Load(ctx context.Context, id string) (Session, error) {
	sid, err := parseID(id)
	if err != nil {
		return Session{}, err
	}
	row, err := s.q.GetSession(ctx, sid)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("load %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session %s: %w", id, err)
	}
	out := Session{
		ID:        row.ID.String(),
		UserID:    row.UserID,
		Status:    row.Status,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}

	cp, err := s.q.GetCheckpoint(ctx, sid)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return out, nil
	case err != nil:
		return Session{}, fmt.Errorf("load checkpoint %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(cp.Messages), &out.Messages); err != nil {
		return Session{}, fmt.Errorf("decode checkpoint %s: %w", id, err)
	}
	return out, nil
}

// Save upserts the checkpoint, retrying transient failures.
func (s *SQL) Save(ctx context.Context, id string, msgs []memory.Message) error {
	sid, err := parseID(id)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []memory.Message{}
	}
	encoded, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}
	_, err = retry.Do(ctx, writeAttempts, func() (any, error) {
		return nil, s.q.UpsertCheckpoint(ctx, database.UpsertCheckpointParams{
			SessionID: sid,
			Messages:  string(encoded),
			UpdatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *SQL) SetStatus(ctx context.Context, id, status string) error {
	sid, err := parseID(id)
	if err != nil {
		return err
	}
	rows, err := retry.Do(ctx, writeAttempts, func() (int64, error) {
		return s.q.UpdateSessionStatus(ctx, database.UpdateSessionStatusParams{
			Status:    status,
			UpdatedAt: time.Now().UTC(),
			ID:        sid,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set status %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes the session with its checkpoint and resumes in one
// transaction.
func (s *SQL) Delete(ctx context.Context, id string) error {
	sid, err := parseID(id)
	if err != nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	q := s.q.WithTx(tx)
	if err := q.DeleteResumesBySession(ctx, sid); err != nil {
		return fmt.Errorf("delete resumes: %w", err)
	}
	if err := q.DeleteCheckpoint(ctx, sid); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	if err := q.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return tx.Commit()
}

func (s *SQL) AttachResume(ctx context.Context, sessionID string, r Resume) error {
	sid, err := parseID(sessionID)
	if err != nil {
		return err
	}
	if _, err := s.q.GetSession(ctx, sid); errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("attach resume to %s: %w", sessionID, ErrNotFound)
	} else if err != nil {
		return err
	}
	rid := uuid.New()
	if r.ID != "" {
		if rid, err = uuid.Parse(r.ID); err != nil {
			return fmt.Errorf("invalid resume id %q: %w", r.ID, err)
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return s.q.CreateResume(ctx, database.CreateResumeParams{
		ID:               rid,
		SessionID:        sid,
		OriginalFilename: r.Filename,
		Mime:             r.Mime,
		ObjectKey:        r.ObjectKey,
		CreatedAt:        r.CreatedAt,
	})
}

func (s *SQL) Resumes(ctx context.Context, sessionID string) ([]Resume, error) {
	sid, err := parseID(sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.q.GetResumesBySession(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("error getting resumes for session: %v, err: %w", sessionID, err)
	}
	out := make([]Resume, 0, len(rows))
	for _, row := range rows {
		out = append(out, Resume{
			ID:        row.ID.String(),
			Filename:  row.OriginalFilename,
			Mime:      row.Mime,
			ObjectKey: row.ObjectKey,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}
