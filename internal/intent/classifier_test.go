package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/invest-agent/internal/domain"
	"github.com/Rrens/invest-agent/internal/llm"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string              { return "mock" }
func (m *MockProvider) AvailableModels() []string { return []string{"mock-model"} }
func (m *MockProvider) DefaultModel() string      { return "mock-model" }
func (m *MockProvider) IsConfigured() bool        { return true }

func (m *MockProvider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	args := m.Called(ctx, req, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}

func TestLLMClassifier_Classify(t *testing.T) {
	tests := []struct {
		answer string
		want   domain.Action
	}{
		{"SEARCH_WEB", domain.ActionSearchWeb},
		{"  ANALYZE_DATA\n", domain.ActionAnalyzeData},
		{"SEARCH_AND_ANALYZE", domain.ActionSearchAndAnalyze},
		{"GENERAL_RESPONSE", domain.ActionGeneralResponse},
		{"search_web", domain.ActionGeneralResponse},
		{"I think SEARCH_WEB", domain.ActionGeneralResponse},
		{"", domain.ActionGeneralResponse},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			provider := new(MockProvider)
			provider.On("Complete", mock.Anything, llm.BuildRoutingPrompt("q"), "gpt-4").
				Return(&llm.Response{Content: tt.answer}, nil)

			got, err := NewLLMClassifier(provider, "gpt-4").Classify(context.Background(), "q")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			provider.AssertExpectations(t)
		})
	}
}

func TestLLMClassifier_RequestFailure(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Complete", mock.Anything, mock.Anything, "").
		Return(nil, &llm.StatusError{Provider: "openai", StatusCode: 500})

	_, err := NewLLMClassifier(provider, "").Classify(context.Background(), "q")
	require.Error(t, err)
	var statusErr *llm.StatusError
	assert.True(t, errors.As(err, &statusErr))
}

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		query string
		want  domain.Action
	}{
		{"How do these margins compare with the global industry average?", domain.ActionSearchAndAnalyze},
		{"EBITDA margin vs peers", domain.ActionSearchAndAnalyze},
		{"Show me more articles", domain.ActionSearchWeb},
		{"Any latest news on NEOM?", domain.ActionSearchWeb},
		{"Which companies have the highest revenue?", domain.ActionAnalyzeData},
		{"What is a good investment thesis?", domain.ActionGeneralResponse},
	}

	c := NewKeywordClassifier()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	c, err := New("keyword", nil, "")
	require.NoError(t, err)
	assert.IsType(t, &KeywordClassifier{}, c)

	c, err = New("llm", new(MockProvider), "")
	require.NoError(t, err)
	assert.IsType(t, &LLMClassifier{}, c)

	_, err = New("dice", nil, "")
	assert.Error(t, err)
}
