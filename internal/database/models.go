package database

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID        uuid.UUID
	UserID    string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Checkpoint struct {
	SessionID uuid.UUID
	Messages  string
	UpdatedAt time.Time
}

type Resume struct {
	ID               uuid.UUID
	SessionID        uuid.UUID
	OriginalFilename string
	Mime             string
	ObjectKey        string
	CreatedAt        time.Time
}
