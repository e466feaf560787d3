package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Rrens/invest-agent/internal/domain"
	"github.com/Rrens/invest-agent/internal/llm"
	"github.com/Rrens/invest-agent/internal/search"
)

// MockSessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockSessionRepository) ListByVisitor(ctx context.Context, visitorID uuid.UUID, limit int) ([]domain.ChatSession, error) {
	args := m.Called(ctx, visitorID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatSession), args.Error(1)
}

func (m *MockSessionRepository) AppendTurn(ctx context.Context, sessionID uuid.UUID, user, assistant *domain.Message, title string) error {
	args := m.Called(ctx, sessionID, user, assistant, title)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockProvider
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

// MockClassifier
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, query string) (domain.Action, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(domain.Action), args.Error(1)
}

// MockFetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, query string) search.ArticleResult {
	args := m.Called(ctx, query)
	return args.Get(0).(search.ArticleResult)
}

// MockSampler
type MockSampler struct {
	mock.Mock
}

func (m *MockSampler) Sample(ctx context.Context, n int) ([]domain.DatasetRow, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DatasetRow), args.Error(1)
}

// MockComposer
type MockComposer struct {
	mock.Mock
}

func (m *MockComposer) Compose(ctx context.Context, query string, firstTurn bool) domain.TurnResult {
	args := m.Called(ctx, query, firstTurn)
	return args.Get(0).(domain.TurnResult)
}
