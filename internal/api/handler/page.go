package handler

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/invest-agent/internal/api/middleware"
	"github.com/Rrens/invest-agent/internal/domain"
	"github.com/Rrens/invest-agent/internal/render"
	"github.com/Rrens/invest-agent/internal/service"
)

// ExamplePrompt is suggested on the welcome panel of an empty session
const ExamplePrompt = "Recommend investable last-mile logistics companies in Saudi Arabia"

const (
	noticePolicy  = "policy"
	noticeInvalid = "invalid"
	noticeFailed  = "failed"
)

//go:embed templates/chat.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/chat.html"))

type sidebarItem struct {
	ID        uuid.UUID
	Title     string
	CreatedAt string
	Active    bool
}

type pageMessage struct {
	Assistant bool
	Content   string
	HTML      template.HTML
}

type pageData struct {
	Sessions      []sidebarItem
	ActiveID      string
	Messages      []pageMessage
	Welcome       bool
	Notice        string
	ExamplePrompt string
	MaxLength     int
}

// PageHandler serves the browser chat page and its form posts
type PageHandler struct {
	chat      *service.ChatService
	maxLength int
	validate  *validator.Validate
}

func NewPageHandler(chat *service.ChatService, maxLength int) *PageHandler {
	return &PageHandler{chat: chat, maxLength: maxLength, validate: newValidator(maxLength)}
}

// Index renders the sidebar and the active session. A visitor without any
// session gets one created.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	visitorID, ok := middleware.GetVisitorID(r.Context())
	if !ok {
		http.Error(w, "missing visitor", http.StatusBadRequest)
		return
	}

	sessions, err := h.chat.ListSessions(r.Context(), visitorID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list sessions")
		http.Error(w, "failed to load sessions", http.StatusInternalServerError)
		return
	}

	if len(sessions) == 0 {
		created, err := h.chat.CreateSession(r.Context(), visitorID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create session")
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}
		sessions = []domain.ChatSession{*created}
	}

	activeID := sessions[0].ID
	if raw := r.URL.Query().Get("session"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			activeID = id
		}
	}

	active, err := h.chat.GetSession(r.Context(), visitorID, activeID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to load session")
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	data := pageData{
		ActiveID:      active.ID.String(),
		Welcome:       len(active.Messages) == 0,
		Notice:        h.noticeText(r.URL.Query().Get("notice")),
		ExamplePrompt: ExamplePrompt,
		MaxLength:     h.maxLength,
	}

	for _, s := range sessions {
		data.Sessions = append(data.Sessions, sidebarItem{
			ID:        s.ID,
			Title:     s.Title,
			CreatedAt: s.CreatedAt.Format(time.DateTime),
			Active:    s.ID == active.ID,
		})
	}

	for _, m := range active.Messages {
		pm := pageMessage{Content: m.Content}
		if m.Role == domain.RoleAssistant {
			pm.Assistant = true
			pm.HTML = template.HTML(render.RenderMessage(m.Content))
		}
		data.Messages = append(data.Messages, pm)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("Failed to render chat page")
	}
}

// NewChat creates a session and redirects to it
func (h *PageHandler) NewChat(w http.ResponseWriter, r *http.Request) {
	visitorID, ok := middleware.GetVisitorID(r.Context())
	if !ok {
		http.Error(w, "missing visitor", http.StatusBadRequest)
		return
	}

	session, err := h.chat.CreateSession(r.Context(), visitorID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, sessionURL(session.ID, ""), http.StatusSeeOther)
}

// PostMessage runs one turn from the page form and redirects back
func (h *PageHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	visitorID, ok := middleware.GetVisitorID(r.Context())
	if !ok {
		http.Error(w, "missing visitor", http.StatusBadRequest)
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	req := SendMessageRequest{Message: r.FormValue("message")}
	if err := h.validate.Struct(req); err != nil {
		http.Redirect(w, r, sessionURL(sessionID, noticeInvalid), http.StatusSeeOther)
		return
	}

	_, err = h.chat.SendMessage(r.Context(), visitorID, sessionID, req.Message)
	switch {
	case err == nil:
		http.Redirect(w, r, sessionURL(sessionID, ""), http.StatusSeeOther)
	case errors.Is(err, domain.ErrPolicyViolation):
		http.Redirect(w, r, sessionURL(sessionID, noticePolicy), http.StatusSeeOther)
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrMessageTooLong):
		http.Redirect(w, r, sessionURL(sessionID, noticeInvalid), http.StatusSeeOther)
	default:
		log.Error().Err(err).Msg("Chat turn failed")
		http.Redirect(w, r, sessionURL(sessionID, noticeFailed), http.StatusSeeOther)
	}
}

func sessionURL(id uuid.UUID, notice string) string {
	q := url.Values{}
	q.Set("session", id.String())
	if notice != "" {
		q.Set("notice", notice)
	}
	return "/?" + q.Encode()
}

func (h *PageHandler) noticeText(code string) string {
	switch code {
	case noticePolicy:
		return domain.PolicyViolationMessage
	case noticeInvalid:
		return fmt.Sprintf("Please enter a message of at most %d characters.", h.maxLength)
	case noticeFailed:
		return "Something went wrong while processing your message. Please try again."
	default:
		return ""
	}
}
