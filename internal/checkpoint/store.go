// Package checkpoint persists the windowed conversation of each session so a
// session survives process restarts.
package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/muhammadolammi/jobmatchassistant/internal/memory"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

const (
	StatusActive     = "active"
	StatusProcessing = "processing"
	StatusFailed     = "failed"
)

type Session struct {
	ID        string
	UserID    string
	Status    string
	Messages  []memory.Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Resume is an uploaded resume attached to a session.
type Resume struct {
	ID        string
	Filename  string
	Mime      string
	ObjectKey string
	CreatedAt time.Time
}

type Store interface {
	Create(ctx context.Context, id, userID string) error
	// Load returns ErrNotFound when id is unknown.
	Load(ctx context.Context, id string) (Session, error)
	// Save replaces the stored messages of an existing session.
	Save(ctx context.Context, id string, msgs []memory.Message) error
	SetStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
	AttachResume(ctx context.Context, sessionID string, r Resume) error
	Resumes(ctx context.Context, sessionID string) ([]Resume, error)
}
