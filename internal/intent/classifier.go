package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/invest-agent/internal/domain"
	"github.com/Rrens/invest-agent/internal/llm"
)

// Classifier maps a follow-up message to a routing action
type Classifier interface {
	Classify(ctx context.Context, query string) (domain.Action, error)
}

// LLMClassifier asks the completion provider to pick the action
type LLMClassifier struct {
	provider llm.Provider
	model    string
}

func NewLLMClassifier(provider llm.Provider, model string) *LLMClassifier {
	return &LLMClassifier{provider: provider, model: model}
}

// Classify returns GENERAL_RESPONSE for any answer that is not exactly one
// of the four routable tokens.
func (c *LLMClassifier) Classify(ctx context.Context, query string) (domain.Action, error) {
	resp, err := c.provider.Complete(ctx, llm.BuildRoutingPrompt(query), c.model)
	if err != nil {
		return "", fmt.Errorf("routing request failed: %w", err)
	}

	answer := strings.TrimSpace(resp.Content)
	action := domain.ParseAction(answer)
	if string(action) != answer {
		log.Debug().Str("answer", answer).Msg("Unrecognised routing answer, using general response")
	}
	return action, nil
}

var (
	benchmarkKeywords = []string{
		"compare", "global", "industry average", "benchmark", "market average", "versus", " vs",
		"external comparison", "ebitda margin", "profit margin", "industry standard", "typical range",
	}
	searchKeywords = []string{
		"article", "news", "search", "latest", "recent", "headline", "web",
	}
	datasetKeywords = []string{
		"dataset", "company", "companies", "previous", "above", "revenue", "ebitda", "which of",
	}
)

// KeywordClassifier routes on fixed keyword lists without calling a model
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify checks benchmark hints first, then search, then dataset
func (KeywordClassifier) Classify(_ context.Context, query string) (domain.Action, error) {
	q := " " + strings.ToLower(query)

	switch {
	case containsAny(q, benchmarkKeywords):
		return domain.ActionSearchAndAnalyze, nil
	case containsAny(q, searchKeywords):
		return domain.ActionSearchWeb, nil
	case containsAny(q, datasetKeywords):
		return domain.ActionAnalyzeData, nil
	default:
		return domain.ActionGeneralResponse, nil
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// New selects a classifier by routing mode
func New(mode string, provider llm.Provider, model string) (Classifier, error) {
	switch mode {
	case "", "llm":
		return NewLLMClassifier(provider, model), nil
	case "keyword":
		return NewKeywordClassifier(), nil
	default:
		return nil, fmt.Errorf("unsupported routing mode: %s", mode)
	}
}
