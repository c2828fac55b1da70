package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/muhammadolammi/jobmatchassistant/internal/memory"
)

// Memory keeps sessions in process memory.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	resumes  map[string][]Resume
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*Session),
		resumes:  make(map[string][]Resume),
	}
}

func (m *Memory) Create(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		return fmt.Errorf("session %s already exists", id)
	}
	now := time.Now().UTC()
	m.sessions[id] = &Session{ID: id, UserID: userID, Status: StatusActive, CreatedAt: now, UpdatedAt: now}
	return nil
}

func (m *Memory) Load(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("load %s: %w", id, ErrNotFound)
	}
	out := *s
	out.Messages = memory.Clone(s.Messages)
	return out, nil
}

func (m *Memory) Save(_ context.Context, id string, msgs []memory.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("save %s: %w", id, ErrNotFound)
	}
	s.Messages = memory.Clone(msgs)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) SetStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("set status %s: %w", id, ErrNotFound)
	}
	s.Status = status
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.resumes, id)
	return nil
}

func (m *Memory) AttachResume(_ context.Context, sessionID string, r Resume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return fmt.Errorf("attach resume to %s: %w", sessionID, ErrNotFound)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.resumes[sessionID] = append(m.resumes[sessionID], r)
	return nil
}

func (m *Memory) Resumes(_ context.Context, sessionID string) ([]Resume, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("resumes of %s: %w", sessionID, ErrNotFound)
	}
	return append([]Resume(nil), m.resumes[sessionID]...), nil
}
