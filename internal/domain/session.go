package domain

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// DefaultSessionTitle is the title of a session before its first reply
	DefaultSessionTitle = "New Chat"

	titleMaxRunes = 40
)

// ErrSessionNotFound is returned by session repositories for unknown IDs
var ErrSessionNotFound = errors.New("session not found")

// ChatSession represents a conversation thread owned by a visitor
type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	VisitorID uuid.UUID `json:"visitor_id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewChatSession creates an empty session for a visitor
func NewChatSession(visitorID uuid.UUID, now time.Time) *ChatSession {
	return &ChatSession{
		ID:        uuid.New(),
		VisitorID: visitorID,
		Title:     DefaultSessionTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsFirstTurn reports whether no user message has been recorded yet
func (s *ChatSession) IsFirstTurn() bool {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return false
		}
	}
	return true
}

// SessionTitle derives a session title from the first user message.
// Messages longer than 40 characters are cut and suffixed with "...".
func SessionTitle(firstMessage string) string {
	if utf8.RuneCountInString(firstMessage) <= titleMaxRunes {
		return firstMessage
	}
	runes := []rune(firstMessage)
	return string(runes[:titleMaxRunes]) + "..."
}

// SessionRepository defines the interface for session storage.
// AppendTurn stores a user message and its reply atomically and must keep
// the user/assistant alternation of the stored history.
type SessionRepository interface {
	Create(ctx context.Context, session *ChatSession) error
	Get(ctx context.Context, id uuid.UUID) (*ChatSession, error)
	ListByVisitor(ctx context.Context, visitorID uuid.UUID, limit int) ([]ChatSession, error)
	AppendTurn(ctx context.Context, sessionID uuid.UUID, user, assistant *Message, title string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
}
