package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message represents a chat message in a session
type Message struct {
	ID        uuid.UUID   `json:"id"`
	SessionID uuid.UUID   `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Action    Action      `json:"action,omitempty"`
	ErrorKind ErrorKind   `json:"error_kind,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Failed reports whether the message carries a degraded turn
func (m Message) Failed() bool {
	return m.ErrorKind != ""
}
