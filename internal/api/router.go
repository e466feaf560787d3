package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Rrens/invest-agent/internal/api/handler"
	customMiddleware "github.com/Rrens/invest-agent/internal/api/middleware"
	"github.com/Rrens/invest-agent/internal/config"
	"github.com/Rrens/invest-agent/internal/llm"
	"github.com/Rrens/invest-agent/internal/metrics"
	"github.com/Rrens/invest-agent/internal/security"
	"github.com/Rrens/invest-agent/internal/service"
)

// Dependencies are the components the HTTP layer is built on
type Dependencies struct {
	Config    *config.Config
	Chat      *service.ChatService
	Providers *llm.Router
	Visitors  *security.VisitorManager
	Metrics   *metrics.Metrics

	// RateLimiter is optional; nil disables rate limiting
	RateLimiter customMiddleware.Limiter

	// Readiness lists the dependencies checked by /ready
	Readiness map[string]handler.Pinger
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	if deps.Metrics != nil {
		r.Use(customMiddleware.Metrics(deps.Metrics))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if deps.Metrics != nil && cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, deps.Metrics.Handler())
	}

	visitorMiddleware := customMiddleware.NewVisitorMiddleware(
		deps.Visitors,
		cfg.Auth.CookieName,
		cfg.Auth.SecureCookie,
	)

	// Turns are the only requests that reach external APIs
	limitTurns := func(next http.Handler) http.Handler { return next }
	if deps.RateLimiter != nil {
		limitTurns = customMiddleware.NewRateLimitMiddleware(deps.RateLimiter).Limit
	}

	chatHandler := handler.NewChatHandler(deps.Chat, cfg.Security.MaxMessageLength)
	pageHandler := handler.NewPageHandler(deps.Chat, cfg.Security.MaxMessageLength)

	// Browser page
	r.Group(func(r chi.Router) {
		r.Use(visitorMiddleware.Identify)

		r.Get("/", pageHandler.Index)
		r.Post("/chat/new", pageHandler.NewChat)
		r.With(limitTurns).Post("/chat/{sessionID}/messages", pageHandler.PostMessage)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Readiness))
		r.Get("/llm-providers", handler.ListLLMProviders(deps.Providers))

		r.Group(func(r chi.Router) {
			r.Use(visitorMiddleware.Identify)

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", chatHandler.ListSessions)
				r.Post("/", chatHandler.CreateSession)

				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", chatHandler.GetSession)
					r.Delete("/", chatHandler.DeleteSession)
					r.With(limitTurns).Post("/messages", chatHandler.SendMessage)
				})
			})
		})
	})

	return r
}
