package langchain

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/Rrens/invest-agent/internal/config"
	"github.com/Rrens/invest-agent/internal/llm"
)

// Provider drives any OpenAI-compatible endpoint through langchaingo
type Provider struct {
	apiKey  string
	model   string
	baseURL string
}

func NewProvider(cfg config.LangChainConfig) *Provider {
	return &Provider{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
	}
}

func (p *Provider) Name() string {
	return "langchain"
}

func (p *Provider) AvailableModels() []string {
	return []string{p.DefaultModel()}
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gpt-4"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *Provider) client(model string) (*openai.LLM, error) {
	opts := []openai.Option{
		openai.WithToken(p.apiKey),
		openai.WithModel(model),
	}
	if p.baseURL != "" {
		opts = append(opts, openai.WithBaseURL(p.baseURL))
	}
	return openai.New(opts...)
}

func (p *Provider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if model == "" {
		model = p.DefaultModel()
	}

	client, err := p.client(model)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain client: %w", err)
	}

	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		content = append(content, llms.TextParts(messageType(m.Role), m.Content))
	}

	start := time.Now()
	resp, err := client.GenerateContent(ctx, content, llms.WithTemperature(req.Temperature))
	if err != nil {
		return nil, fmt.Errorf("langchain generation error: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return nil, fmt.Errorf("langchain: %w", llm.ErrEmptyResponse)
	}

	tokens := 0
	if total, ok := resp.Choices[0].GenerationInfo["TotalTokens"].(int); ok {
		tokens = total
	}

	return &llm.Response{
		Content:    resp.Choices[0].Content,
		Model:      model,
		TokensUsed: tokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func messageType(role string) llms.ChatMessageType {
	switch role {
	case llm.RoleSystem:
		return llms.ChatMessageTypeSystem
	case llm.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
