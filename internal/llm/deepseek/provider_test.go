package deepseek

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/invest-agent/internal/llm"
)

func TestProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ds-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "deepseek-chat", body["model"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}))
	defer server.Close()

	p := NewProvider("ds-key", "")
	p.chat.BaseURL = server.URL

	resp, err := p.Complete(context.Background(), llm.BuildGeneralPrompt("hi"), "")
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.True(t, p.IsConfigured())
}
