package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/invest-agent/internal/domain"
	"github.com/Rrens/invest-agent/internal/metrics"
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message is too long")
)

// TurnComposer produces the assistant reply for a user message
type TurnComposer interface {
	Compose(ctx context.Context, query string, firstTurn bool) domain.TurnResult
}

// InputGuard screens user input before any collaborator is called
type InputGuard interface {
	Check(input string) error
}

// ChatService handles session lifecycle and turn processing
type ChatService struct {
	repo      domain.SessionRepository
	composer  TurnComposer
	guard     InputGuard
	metrics   *metrics.Metrics
	listLimit int
	maxLength int
	locks     *sessionLocks
	now       func() time.Time
}

// ChatOptions carries the tunables of the chat service
type ChatOptions struct {
	ListLimit        int
	MaxMessageLength int
}

// NewChatService creates a new chat service
func NewChatService(
	repo domain.SessionRepository,
	composer TurnComposer,
	guard InputGuard,
	m *metrics.Metrics,
	opts ChatOptions,
) *ChatService {
	if opts.ListLimit <= 0 {
		opts.ListLimit = 50
	}
	return &ChatService{
		repo:      repo,
		composer:  composer,
		guard:     guard,
		metrics:   m,
		listLimit: opts.ListLimit,
		maxLength: opts.MaxMessageLength,
		locks:     newSessionLocks(),
		now:       time.Now,
	}
}

// TurnOutcome is the pair of messages recorded for one turn
type TurnOutcome struct {
	SessionID uuid.UUID        `json:"session_id"`
	Title     string           `json:"title"`
	User      domain.Message   `json:"user_message"`
	Assistant domain.Message   `json:"assistant_message"`
	Action    domain.Action    `json:"action,omitempty"`
	ErrorKind domain.ErrorKind `json:"error_kind,omitempty"`
}

// CreateSession starts an empty session for a visitor
func (s *ChatService) CreateSession(ctx context.Context, visitorID uuid.UUID) (*domain.ChatSession, error) {
	session := domain.NewChatSession(visitorID, s.now().UTC())
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("visitor_id", visitorID.String()).
		Msg("Session created")

	return session, nil
}

// ListSessions returns the visitor's sessions, newest first
func (s *ChatService) ListSessions(ctx context.Context, visitorID uuid.UUID) ([]domain.ChatSession, error) {
	sessions, err := s.repo.ListByVisitor(ctx, visitorID, s.listLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns a session with its history. Sessions owned by another
// visitor are reported as not found.
func (s *ChatService) GetSession(ctx context.Context, visitorID, sessionID uuid.UUID) (*domain.ChatSession, error) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.VisitorID != visitorID {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// DeleteSession removes a session owned by the visitor
func (s *ChatService) DeleteSession(ctx context.Context, visitorID, sessionID uuid.UUID) error {
	if _, err := s.GetSession(ctx, visitorID, sessionID); err != nil {
		return err
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return err
	}

	log.Info().Str("session_id", sessionID.String()).Msg("Session deleted")
	return nil
}

// SendMessage processes one user turn. Rejected input never reaches a
// collaborator and leaves the history untouched. Degraded turns are still
// recorded, with the error text as the assistant message.
func (s *ChatService) SendMessage(ctx context.Context, visitorID, sessionID uuid.UUID, text string) (*TurnOutcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if s.maxLength > 0 && utf8.RuneCountInString(text) > s.maxLength {
		return nil, ErrMessageTooLong
	}

	if err := s.guard.Check(text); err != nil {
		s.metrics.ObserveRejection()
		log.Warn().
			Err(err).
			Str("session_id", sessionID.String()).
			Msg("Message rejected by policy guard")
		return nil, err
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.GetSession(ctx, visitorID, sessionID)
	if err != nil {
		return nil, err
	}

	firstTurn := session.IsFirstTurn()

	userMsg := domain.Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   text,
		CreatedAt: s.now().UTC(),
	}

	result := s.composer.Compose(ctx, text, firstTurn)

	assistantMsg := domain.Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   result.Text(),
		Action:    result.Action,
		CreatedAt: s.now().UTC(),
	}
	if result.Err != nil {
		assistantMsg.ErrorKind = result.Err.Kind
	}

	// only the first user message names the session
	var title string
	if firstTurn {
		title = domain.SessionTitle(text)
	}

	if err := s.repo.AppendTurn(ctx, sessionID, &userMsg, &assistantMsg, title); err != nil {
		return nil, fmt.Errorf("failed to record turn: %w", err)
	}

	if title == "" {
		title = session.Title
	}

	return &TurnOutcome{
		SessionID: sessionID,
		Title:     title,
		User:      userMsg,
		Assistant: assistantMsg,
		Action:    result.Action,
		ErrorKind: assistantMsg.ErrorKind,
	}, nil
}

// Ready checks the session store
func (s *ChatService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// sessionLocks serializes turns per session so stored history keeps
// alternating user and assistant messages.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[uuid.UUID]*refMutex)}
}

func (l *sessionLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &refMutex{}
		l.locks[id] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()

		l.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
