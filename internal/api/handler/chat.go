package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/invest-agent/internal/api/middleware"
	"github.com/Rrens/invest-agent/internal/api/response"
	"github.com/Rrens/invest-agent/internal/domain"
	"github.com/Rrens/invest-agent/internal/render"
	"github.com/Rrens/invest-agent/internal/service"
)

// SendMessageRequest is the body of a chat turn
type SendMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// newValidator checks SendMessageRequest against the configured message limit in runes
func newValidator(maxLength int) *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(SendMessageRequest)
		if maxLength > 0 && utf8.RuneCountInString(req.Message) > maxLength {
			sl.ReportError(req.Message, "Message", "Message", "max", strconv.Itoa(maxLength))
		}
	}, SendMessageRequest{})
	return v
}

// MessageView is a stored message plus its rendered HTML for assistant replies
type MessageView struct {
	domain.Message
	HTML string `json:"html,omitempty"`
}

// SessionView is a session with rendered messages
type SessionView struct {
	ID        uuid.UUID     `json:"id"`
	Title     string        `json:"title"`
	Messages  []MessageView `json:"messages"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

// TurnView is the JSON answer to a chat turn
type TurnView struct {
	SessionID uuid.UUID        `json:"session_id"`
	Title     string           `json:"title"`
	User      MessageView      `json:"user_message"`
	Assistant MessageView      `json:"assistant_message"`
	Action    domain.Action    `json:"action,omitempty"`
	ErrorKind domain.ErrorKind `json:"error_kind,omitempty"`
}

func newMessageView(m domain.Message) MessageView {
	v := MessageView{Message: m}
	if m.Role == domain.RoleAssistant {
		v.HTML = render.RenderMessage(m.Content)
	}
	return v
}

func newSessionView(s *domain.ChatSession) SessionView {
	msgs := make([]MessageView, len(s.Messages))
	for i, m := range s.Messages {
		msgs[i] = newMessageView(m)
	}
	return SessionView{
		ID:        s.ID,
		Title:     s.Title,
		Messages:  msgs,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}

// ChatHandler serves the JSON chat API
type ChatHandler struct {
	chat     *service.ChatService
	validate *validator.Validate
}

func NewChatHandler(chat *service.ChatService, maxLength int) *ChatHandler {
	return &ChatHandler{chat: chat, validate: newValidator(maxLength)}
}

// ListSessions returns the visitor's sessions without messages
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	visitorID, ok := middleware.GetVisitorID(r.Context())
	if !ok {
		response.BadRequest(w, "missing visitor")
		return
	}

	sessions, err := h.chat.ListSessions(r.Context(), visitorID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list sessions")
		response.InternalError(w, "failed to list sessions")
		return
	}

	response.OK(w, sessions)
}

// CreateSession starts a new empty session
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	visitorID, ok := middleware.GetVisitorID(r.Context())
	if !ok {
		response.BadRequest(w, "missing visitor")
		return
	}

	session, err := h.chat.CreateSession(r.Context(), visitorID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		response.InternalError(w, "failed to create session")
		return
	}

	response.Created(w, newSessionView(session))
}

// GetSession returns a session with its rendered history
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	visitorID, sessionID, ok := ids(w, r)
	if !ok {
		return
	}

	session, err := h.chat.GetSession(r.Context(), visitorID, sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, newSessionView(session))
}

// DeleteSession removes a session
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	visitorID, sessionID, ok := ids(w, r)
	if !ok {
		return
	}

	if err := h.chat.DeleteSession(r.Context(), visitorID, sessionID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.NoContent(w)
}

// SendMessage runs one chat turn
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	visitorID, sessionID, ok := ids(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			response.BadRequest(w, formatValidationErrors(validationErrors))
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	out, err := h.chat.SendMessage(r.Context(), visitorID, sessionID, req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, TurnView{
		SessionID: out.SessionID,
		Title:     out.Title,
		User:      newMessageView(out.User),
		Assistant: newMessageView(out.Assistant),
		Action:    out.Action,
		ErrorKind: out.ErrorKind,
	})
}

func ids(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	visitorID, ok := middleware.GetVisitorID(r.Context())
	if !ok {
		response.BadRequest(w, "missing visitor")
		return uuid.Nil, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return uuid.Nil, uuid.Nil, false
	}

	return visitorID, sessionID, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPolicyViolation):
		response.UnprocessableEntity(w, domain.PolicyViolationMessage)
	case errors.Is(err, domain.ErrSessionNotFound):
		response.NotFound(w, "session not found")
	case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrMessageTooLong):
		response.BadRequest(w, err.Error())
	default:
		log.Error().Err(err).Msg("Chat request failed")
		response.InternalError(w, "internal error")
	}
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "required":
			out[e.Field()] = "is required"
		case "max":
			out[e.Field()] = "must be at most " + e.Param() + " characters"
		default:
			out[e.Field()] = "is invalid"
		}
	}
	return out
}
