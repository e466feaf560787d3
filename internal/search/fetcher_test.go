package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/invest-agent/internal/config"
)

func newTestClient(url string) *Client {
	return NewClient(config.SearchConfig{
		APIKey:     "pplx-test",
		BaseURL:    url,
		Model:      "sonar-pro",
		SearchMode: "web",
		Timeout:    5 * time.Second,
	})
}

func TestFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer pplx-test", r.Header.Get("Authorization"))

		var body searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sonar-pro", body.Model)
		assert.Equal(t, "web", body.SearchMode)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "Search for 5 recent relevant articles about: cold chain UAE. "+
			"For each article, provide the actual article title and working URL in this exact format: "+
			"[Article Title](https://actual-working-url.com). Return only clickable links, one per line. "+
			"Make sure to include 5 different articles with meaningful titles.", body.Messages[0].Content)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"[A](https://a.com)\n[B](https://b.com)\n[C](https://c.com)"}}]}`))
	}))
	defer server.Close()

	result := NewFetcher(newTestClient(server.URL)).Fetch(context.Background(), "cold chain UAE")
	require.NoError(t, result.Err)
	assert.Len(t, result.Entries, 3)
	assert.Equal(t, "• [A](https://a.com)\n• [B](https://b.com)\n• [C](https://c.com)", result.Text())
}

func TestFetcher_FailuresBecomeDiagnostics(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, AuthFailedMessage},
		{"server error", http.StatusBadGateway, `{}`, "• Error fetching articles (Status 502)"},
		{"malformed json", http.StatusOK, `{`, "• Error fetching articles: failed to decode response: unexpected EOF"},
		{"empty answer", http.StatusOK, `{"choices":[{"message":{"content":"nothing here"}}]}`, NoArticlesMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			result := NewFetcher(newTestClient(server.URL)).Fetch(context.Background(), "q")
			assert.Equal(t, tt.want, result.Text())
		})
	}
}

type failingAsker struct{ err error }

func (f failingAsker) Ask(ctx context.Context, prompt string) (string, error) {
	return "", f.err
}

func TestFetcher_TransportError(t *testing.T) {
	result := NewFetcher(failingAsker{err: errors.New("dial tcp: connection refused")}).Fetch(context.Background(), "q")
	assert.Equal(t, "• Error fetching articles: dial tcp: connection refused", result.Text())
	assert.Equal(t, "q", result.Query)
}
