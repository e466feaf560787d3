package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/invest-agent/internal/api"
	"github.com/Rrens/invest-agent/internal/api/handler"
	"github.com/Rrens/invest-agent/internal/config"
	"github.com/Rrens/invest-agent/internal/dataset"
	"github.com/Rrens/invest-agent/internal/domain"
	"github.com/Rrens/invest-agent/internal/intent"
	"github.com/Rrens/invest-agent/internal/llm"
	"github.com/Rrens/invest-agent/internal/llm/anthropic"
	"github.com/Rrens/invest-agent/internal/llm/deepseek"
	"github.com/Rrens/invest-agent/internal/llm/gemini"
	"github.com/Rrens/invest-agent/internal/llm/langchain"
	"github.com/Rrens/invest-agent/internal/llm/ollama"
	"github.com/Rrens/invest-agent/internal/llm/openai"
	"github.com/Rrens/invest-agent/internal/logging"
	"github.com/Rrens/invest-agent/internal/metrics"
	"github.com/Rrens/invest-agent/internal/repository/memory"
	"github.com/Rrens/invest-agent/internal/repository/postgres"
	"github.com/Rrens/invest-agent/internal/repository/redis"
	"github.com/Rrens/invest-agent/internal/search"
	"github.com/Rrens/invest-agent/internal/security"
	"github.com/Rrens/invest-agent/internal/service"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	envLoaded := false
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		fmt.Println("Warning: .env file not found in any standard location")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logCloser, err := logging.Setup(cfg.Logging, os.Getenv("ENV"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logCloser.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("llm_provider", cfg.LLM.DefaultProvider).
		Str("dataset_driver", cfg.Dataset.Driver).
		Str("session_store", cfg.Session.Store).
		Msg("Starting investment research agent")

	ctx := context.Background()

	// Dataset
	sampler, err := dataset.Open(ctx, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open dataset")
	}
	defer sampler.Close()

	// Session store
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	var redisClient *redis.Client
	if cfg.Session.Store == "redis" || cfg.Security.RateLimit.Enabled {
		redisClient, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		closers = append(closers, redisClient)
	}

	var sessions domain.SessionRepository
	switch cfg.Session.Store {
	case "postgres":
		if err := postgres.RunMigrations(cfg.Database.DSN(), cfg.Session.MigrationDir); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		sessions = postgres.NewSessionRepository(db.Pool)
	case "redis":
		sessions = redis.NewSessionRepository(redisClient, cfg.Session.TTL)
	default:
		sessions = memory.NewSessionRepository()
	}

	// Completion providers
	llmRouter := newLLMRouter(cfg)
	provider, err := llmRouter.GetProvider("")
	if err != nil {
		log.Fatal().Err(err).Msg("Default LLM provider unavailable")
	}

	classifier, err := intent.New(cfg.Routing.Mode, provider, "")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create intent classifier")
	}

	m := metrics.New()

	composer := service.NewComposer(
		provider,
		classifier,
		search.NewFetcher(search.NewClient(cfg.Search)),
		sampler,
		service.ComposerConfig{
			FirstTurnSample: cfg.Dataset.FirstTurnSample,
			FollowUpSample:  cfg.Dataset.FollowUpSample,
		},
		m,
	)

	chat := service.NewChatService(sessions, composer, security.NewGuard(), m, service.ChatOptions{
		ListLimit:        cfg.Session.ListLimit,
		MaxMessageLength: cfg.Security.MaxMessageLength,
	})

	deps := api.Dependencies{
		Config:    cfg,
		Chat:      chat,
		Providers: llmRouter,
		Visitors:  security.NewVisitorManager(visitorSecret(cfg), cfg.Auth.VisitorTokenTTL),
		Metrics:   m,
		Readiness: map[string]handler.Pinger{
			"dataset":       sampler,
			"session_store": sessions,
		},
	}
	if cfg.Security.RateLimit.Enabled {
		deps.RateLimiter = redis.NewRateLimiter(
			redisClient,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func newLLMRouter(cfg *config.Config) *llm.Router {
	router := llm.NewRouter(cfg.LLM.DefaultProvider)

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.Ollama.Host != "" {
		log.Info().Str("host", cfg.LLM.Ollama.Host).Msg("Registering Ollama provider")
		router.RegisterProvider(ollama.NewProvider(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.DefaultModel))
	}
	if cfg.LLM.OpenAI.APIKey != "" {
		router.RegisterProvider(openai.NewProvider(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model, cfg.LLM.OpenAI.BaseURL))
	}
	if cfg.LLM.Anthropic.APIKey != "" {
		router.RegisterProvider(anthropic.NewProvider(cfg.LLM.Anthropic.APIKey, cfg.LLM.Anthropic.Model))
	}
	if cfg.LLM.DeepSeek.APIKey != "" {
		router.RegisterProvider(deepseek.NewProvider(cfg.LLM.DeepSeek.APIKey, cfg.LLM.DeepSeek.Model))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		router.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini))
	}
	if cfg.LLM.LangChain.APIKey != "" {
		router.RegisterProvider(langchain.NewProvider(cfg.LLM.LangChain))
	}

	return router
}

// visitorSecret falls back to a per-process random secret, which invalidates
// visitor cookies on restart.
func visitorSecret(cfg *config.Config) string {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret
	}
	log.Warn().Msg("JWT_SECRET not set, visitor cookies will not survive a restart")
	return security.RandomSecret()
}
