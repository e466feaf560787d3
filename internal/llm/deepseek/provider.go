package deepseek

import (
	"context"
	"net/http"
	"time"

	"github.com/Rrens/invest-agent/internal/llm"
)

type Provider struct {
	apiKey       string
	defaultModel string
	chat         *llm.ChatClient
}

func NewProvider(apiKey, defaultModel string) *Provider {
	if defaultModel == "" {
		defaultModel = "deepseek-chat"
	}
	return &Provider{
		apiKey:       apiKey,
		defaultModel: defaultModel,
		chat: &llm.ChatClient{
			Provider: "deepseek",
			BaseURL:  "https://api.deepseek.com/v1",
			APIKey:   apiKey,
			HTTP:     &http.Client{Timeout: 120 * time.Second},
		},
	}
}

func (p *Provider) Name() string {
	return "deepseek"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"deepseek-chat",
		"deepseek-reasoner",
	}
}

func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *Provider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if model == "" {
		model = p.defaultModel
	}
	return p.chat.Complete(ctx, req, model)
}
