package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/invest-agent/internal/api/response"
	"github.com/Rrens/invest-agent/internal/security"
)

type contextKey string

const VisitorIDKey contextKey = "visitorID"

// VisitorMiddleware binds each browser to a visitor ID carried in a signed cookie
type VisitorMiddleware struct {
	manager    *security.VisitorManager
	cookieName string
	secure     bool
}

// NewVisitorMiddleware creates a new visitor middleware
func NewVisitorMiddleware(manager *security.VisitorManager, cookieName string, secure bool) *VisitorMiddleware {
	return &VisitorMiddleware{
		manager:    manager,
		cookieName: cookieName,
		secure:     secure,
	}
}

// Identify resolves the visitor from the cookie, issuing a fresh one when
// the cookie is missing, expired or forged.
func (m *VisitorMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(m.cookieName); err == nil {
			if visitorID, err := m.manager.Verify(c.Value); err == nil {
				next.ServeHTTP(w, r.WithContext(WithVisitorID(r.Context(), visitorID)))
				return
			}
			log.Debug().Msg("Discarding invalid visitor cookie")
		}

		visitorID := uuid.New()
		token, err := m.manager.Issue(visitorID)
		if err != nil {
			response.InternalError(w, "failed to issue visitor token")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(m.manager.TTL().Seconds()),
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})

		next.ServeHTTP(w, r.WithContext(WithVisitorID(r.Context(), visitorID)))
	})
}

// WithVisitorID stores the visitor ID in ctx
func WithVisitorID(ctx context.Context, visitorID uuid.UUID) context.Context {
	return context.WithValue(ctx, VisitorIDKey, visitorID)
}

// GetVisitorID gets the visitor ID from context
func GetVisitorID(ctx context.Context) (uuid.UUID, bool) {
	visitorID, ok := ctx.Value(VisitorIDKey).(uuid.UUID)
	return visitorID, ok
}
