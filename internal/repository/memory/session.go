package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Rrens/invest-agent/internal/domain"
)

// SessionRepository keeps sessions for the lifetime of the process
type SessionRepository struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*domain.ChatSession
	byVisitor map[uuid.UUID][]uuid.UUID
}

// NewSessionRepository creates an empty in-memory store
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions:  make(map[uuid.UUID]*domain.ChatSession),
		byVisitor: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (r *SessionRepository) Create(_ context.Context, session *domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *session
	stored.Messages = append([]domain.Message(nil), session.Messages...)
	r.sessions[session.ID] = &stored
	r.byVisitor[session.VisitorID] = append(r.byVisitor[session.VisitorID], session.ID)
	return nil
}

// Get returns a copy so callers never share the stored message slice
func (r *SessionRepository) Get(_ context.Context, id uuid.UUID) (*domain.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	out := *s
	out.Messages = append([]domain.Message(nil), s.Messages...)
	return &out, nil
}

// ListByVisitor returns sessions newest first, without messages
func (r *SessionRepository) ListByVisitor(_ context.Context, visitorID uuid.UUID, limit int) ([]domain.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byVisitor[visitorID]
	out := make([]domain.ChatSession, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok {
			summary := *s
			summary.Messages = nil
			out = append(out, summary)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SessionRepository) AppendTurn(_ context.Context, sessionID uuid.UUID, user, assistant *domain.Message, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}

	if title != "" && len(s.Messages) == 0 {
		s.Title = title
	}
	s.Messages = append(s.Messages, *user, *assistant)
	s.UpdatedAt = assistant.CreatedAt
	return nil
}

func (r *SessionRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)

	ids := r.byVisitor[s.VisitorID]
	for i, sid := range ids {
		if sid == id {
			r.byVisitor[s.VisitorID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (r *SessionRepository) Ping(context.Context) error {
	return nil
}
