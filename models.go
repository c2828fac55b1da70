package main

import "time"

const (
	requestQueue    = "chat_requests"
	updatesExchange = "session_updates"
)

type WorkerConfig struct {
	Assistant   chatter
	Publisher   publisher
	RABBITMQUrl string
}

// ChatRequest is a message consumed from the chat_requests queue. An empty
// SessionID starts a new session.
type ChatRequest struct {
	SessionID string        `json:"session_id"`
	UserID    string        `json:"user_id"`
	Message   string        `json:"message"`
	Resume    *ResumeUpload `json:"resume,omitempty"`
}

// ResumeUpload points at a resume already stored in R2.
type ResumeUpload struct {
	Filename  string `json:"filename"`
	Mime      string `json:"mime"`
	ObjectKey string `json:"object_key"`
}

// SessionUpdate is published to session_updates with routing key
// session.<id>.
type SessionUpdate struct {
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Reply     string    `json:"reply,omitempty"`
	ToolsUsed []string  `json:"tools_used,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
