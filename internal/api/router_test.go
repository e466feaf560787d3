package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/invest-agent/internal/api/handler"
	"github.com/Rrens/invest-agent/internal/config"
	"github.com/Rrens/invest-agent/internal/domain"
	"github.com/Rrens/invest-agent/internal/llm"
	"github.com/Rrens/invest-agent/internal/metrics"
	"github.com/Rrens/invest-agent/internal/repository/memory"
	"github.com/Rrens/invest-agent/internal/security"
	"github.com/Rrens/invest-agent/internal/service"
)

const cookieName = "test_visitor"

type stubComposer struct{}

func (stubComposer) Compose(_ context.Context, query string, firstTurn bool) domain.TurnResult {
	if firstTurn {
		return domain.TurnResult{Action: domain.ActionComprehensive, Content: "## Overview\n• " + query}
	}
	return domain.TurnResult{Action: domain.ActionGeneralResponse, Content: "follow-up"}
}

type stubLimiter struct{ allowed bool }

func (l stubLimiter) Allow(context.Context, string) (bool, int, time.Time, error) {
	return l.allowed, 0, time.Now().Add(time.Minute), nil
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

type testServer struct {
	handler http.Handler
	repo    *memory.SessionRepository
}

func newTestServer(t *testing.T, mutate func(d *Dependencies)) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{MiddlewareTimeout: 5 * time.Second},
		Auth:     config.AuthConfig{CookieName: cookieName},
		Security: config.SecurityConfig{MaxMessageLength: 4000},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}

	repo := memory.NewSessionRepository()
	m := metrics.New()
	chat := service.NewChatService(repo, stubComposer{}, security.NewGuard(), m, service.ChatOptions{MaxMessageLength: 4000})

	providers := llm.NewRouter("mock")

	deps := Dependencies{
		Config:    cfg,
		Chat:      chat,
		Providers: providers,
		Visitors:  security.NewVisitorManager("test-secret", time.Hour),
		Metrics:   m,
		Readiness: map[string]handler.Pinger{"session_store": repo},
	}
	if mutate != nil {
		mutate(&deps)
	}

	return &testServer{handler: NewRouter(deps), repo: repo}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func visitorCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatal("visitor cookie not set")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func createSession(t *testing.T, s *testServer) (handler.SessionView, *http.Cookie) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/sessions", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookie := visitorCookie(t, rec)

	var view handler.SessionView
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &view))
	return view, cookie
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
}

func TestReady(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		s := newTestServer(t, nil)
		rec := s.do(t, http.MethodGet, "/api/v1/ready", nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("dataset down", func(t *testing.T) {
		s := newTestServer(t, func(d *Dependencies) {
			d.Readiness["dataset"] = pingerFunc(func(context.Context) error { return errors.New("gone") })
		})
		rec := s.do(t, http.MethodGet, "/api/v1/ready", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	session, cookie := createSession(t, s)
	assert.Equal(t, domain.DefaultSessionTitle, session.Title)

	path := "/api/v1/sessions/" + session.ID.String()

	rec := s.do(t, http.MethodPost, path+"/messages", map[string]string{"message": "Top logistics firms in UAE"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var turn handler.TurnView
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &turn))
	assert.Equal(t, "Top logistics firms in UAE", turn.Title)
	assert.Equal(t, domain.ActionComprehensive, turn.Action)
	assert.Equal(t, "<h2>Overview</h2>\n<ul>\n<li>Top logistics firms in UAE</li>\n</ul>", turn.Assistant.HTML)
	assert.Empty(t, turn.User.HTML)

	rec = s.do(t, http.MethodGet, "/api/v1/sessions", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.ChatSession
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Top logistics firms in UAE", list[0].Title)

	rec = s.do(t, http.MethodGet, path, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var view handler.SessionView
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &view))
	assert.Len(t, view.Messages, 2)

	rec = s.do(t, http.MethodDelete, path, nil, cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, path, nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionOwnership(t *testing.T) {
	s := newTestServer(t, nil)
	session, _ := createSession(t, s)

	// a request without the owner's cookie gets a fresh visitor
	rec := s.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	forged := &http.Cookie{Name: cookieName, Value: "not-a-token"}
	rec = s.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID.String(), nil, forged)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessage_Rejections(t *testing.T) {
	s := newTestServer(t, nil)
	session, cookie := createSession(t, s)
	path := "/api/v1/sessions/" + session.ID.String() + "/messages"

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"policy violation", map[string]string{"message": "card 4111 1111 1111 1111"}, http.StatusUnprocessableEntity},
		{"harmful keyword", map[string]string{"message": "best Casino stocks"}, http.StatusUnprocessableEntity},
		{"missing message", map[string]string{}, http.StatusBadRequest},
		{"too long", map[string]string{"message": strings.Repeat("a", 4001)}, http.StatusBadRequest},
		{"blank", map[string]string{"message": "   "}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, path, tt.body, cookie)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnprocessableEntity {
				assert.JSONEq(t, `"`+domain.PolicyViolationMessage+`"`, string(decode(t, rec).Error))
			}
		})
	}

	stored, err := s.repo.Get(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Messages)
	assert.Equal(t, domain.DefaultSessionTitle, stored.Title)
}

func TestSendMessage_InvalidSessionID(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodPost, "/api/v1/sessions/nope/messages", map[string]string{"message": "hi"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(d *Dependencies) { d.RateLimiter = stubLimiter{allowed: false} })
	session, cookie := createSession(t, s)

	rec := s.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID.String()+"/messages", map[string]string{"message": "hi"}, cookie)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestLLMProviders(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/llm-providers", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"default_provider":"mock"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/api/v1/health", nil, nil)

	rec := s.do(t, http.MethodGet, "/metrics", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestPage(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := visitorCookie(t, rec)
	assert.Contains(t, rec.Body.String(), handler.ExamplePrompt)
	assert.Contains(t, rec.Body.String(), domain.DefaultSessionTitle)

	sessions, err := s.repo.ListByVisitor(context.Background(), mustVisitor(t, cookie), 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	sessionID := sessions[0].ID.String()

	form := url.Values{"message": {"Logistics in Egypt"}}
	req := httptest.NewRequest(http.MethodPost, "/chat/"+sessionID+"/messages", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?session="+sessionID, rec.Header().Get("Location"))

	rec = s.do(t, http.MethodGet, "/?session="+sessionID, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h2>Overview</h2>")
	assert.Contains(t, body, "Logistics in Egypt")
	assert.NotContains(t, body, handler.ExamplePrompt+"</em>")
}

func TestPage_PolicyNotice(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodPost, "/chat/new", nil, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookie := visitorCookie(t, rec)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	sessionID := loc.Query().Get("session")

	form := url.Values{"message": {"email me at someone@example.com"}}
	req := httptest.NewRequest(http.MethodPost, "/chat/"+sessionID+"/messages", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "notice=policy")

	rec = s.do(t, http.MethodGet, rec.Header().Get("Location"), nil, cookie)
	assert.Contains(t, rec.Body.String(), domain.PolicyViolationMessage)
}

func TestMessageLimitFollowsConfig(t *testing.T) {
	s := newTestServer(t, func(d *Dependencies) {
		d.Config.Security.MaxMessageLength = 20
	})
	session, cookie := createSession(t, s)

	rec := s.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID.String()+"/messages",
		map[string]string{"message": strings.Repeat("ش", 21)}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"Message":"must be at most 20 characters"}`, string(decode(t, rec).Error))

	form := url.Values{"message": {strings.Repeat("a", 21)}}
	req := httptest.NewRequest(http.MethodPost, "/chat/"+session.ID.String()+"/messages", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "notice=invalid")

	rec = s.do(t, http.MethodGet, rec.Header().Get("Location"), nil, cookie)
	assert.Contains(t, rec.Body.String(), "Please enter a message of at most 20 characters.")

	stored, err := s.repo.Get(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Messages)
}

func mustVisitor(t *testing.T, c *http.Cookie) uuid.UUID {
	t.Helper()
	visitorID, err := security.NewVisitorManager("test-secret", time.Hour).Verify(c.Value)
	require.NoError(t, err)
	return visitorID
}
