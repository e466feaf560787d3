package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name       string
	configured bool
}

func (s stubProvider) Name() string              { return s.name }
func (s stubProvider) AvailableModels() []string { return []string{s.name + "-model"} }
func (s stubProvider) DefaultModel() string      { return s.name + "-model" }
func (s stubProvider) IsConfigured() bool        { return s.configured }
func (s stubProvider) Complete(ctx context.Context, req Request, model string) (*Response, error) {
	return &Response{Content: "ok", Model: model}, nil
}

func TestRouter(t *testing.T) {
	r := NewRouter("openai")
	r.RegisterProvider(stubProvider{name: "openai", configured: true})
	r.RegisterProvider(stubProvider{name: "anthropic", configured: false})
	r.RegisterProvider(stubProvider{name: "gemini", configured: true})

	t.Run("default provider", func(t *testing.T) {
		p, err := r.GetProvider("")
		require.NoError(t, err)
		assert.Equal(t, "openai", p.Name())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := r.GetProvider("watson")
		var notFound ErrProviderNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "watson", notFound.Provider)
	})

	t.Run("unconfigured provider", func(t *testing.T) {
		_, err := r.GetProvider("anthropic")
		assert.EqualError(t, err, "provider not configured: anthropic")
	})

	t.Run("list configured", func(t *testing.T) {
		assert.Equal(t, []string{"gemini", "openai"}, r.ListProviders())
	})

	t.Run("info sorted", func(t *testing.T) {
		infos := r.GetProvidersInfo()
		require.Len(t, infos, 3)
		assert.Equal(t, "anthropic", infos[0].Name)
		assert.False(t, infos[0].Configured)
		assert.True(t, infos[2].Default)
		assert.Equal(t, []string{"openai-model"}, infos[2].Models)
	})
}
