package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/invest-agent/internal/domain"
)

func turn(sessionID uuid.UUID, at time.Time, q, a string) (*domain.Message, *domain.Message) {
	user := &domain.Message{ID: uuid.New(), SessionID: sessionID, Role: domain.RoleUser, Content: q, CreatedAt: at}
	assistant := &domain.Message{ID: uuid.New(), SessionID: sessionID, Role: domain.RoleAssistant, Content: a, CreatedAt: at}
	return user, assistant
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	visitor := uuid.New()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	s := domain.NewChatSession(visitor, now)
	require.NoError(t, repo.Create(ctx, s))

	u, a := turn(s.ID, now.Add(time.Minute), "first question", "first answer")
	require.NoError(t, repo.AppendTurn(ctx, s.ID, u, a, "first question"))

	u, a = turn(s.ID, now.Add(2*time.Minute), "second", "reply")
	require.NoError(t, repo.AppendTurn(ctx, s.ID, u, a, "second"))

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "first question", got.Title)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, domain.RoleUser, got.Messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, got.Messages[3].Role)
	assert.Equal(t, now.Add(2*time.Minute), got.UpdatedAt)

	got.Messages[0].Content = "mutated"
	again, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "first question", again.Messages[0].Content)

	require.NoError(t, repo.Delete(ctx, s.ID))
	_, err = repo.Get(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, s.ID), domain.ErrSessionNotFound)
}

func TestSessionRepository_ListByVisitor(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	visitor := uuid.New()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		s := domain.NewChatSession(visitor, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.Create(ctx, s))
		ids = append(ids, s.ID)
	}
	require.NoError(t, repo.Create(ctx, domain.NewChatSession(uuid.New(), base)))

	list, err := repo.ListByVisitor(ctx, visitor, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[0], list[2].ID)

	list, err = repo.ListByVisitor(ctx, visitor, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSessionRepository_AppendUnknown(t *testing.T) {
	u, a := turn(uuid.New(), time.Now(), "q", "a")
	err := NewSessionRepository().AppendTurn(context.Background(), u.SessionID, u, a, "")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepository_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	s := domain.NewChatSession(uuid.New(), time.Now())
	require.NoError(t, repo.Create(ctx, s))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, a := turn(s.ID, time.Now(), "q", "a")
			assert.NoError(t, repo.AppendTurn(ctx, s.ID, u, a, ""))
		}()
	}
	wg.Wait()

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 40)
	for i, m := range got.Messages {
		if i%2 == 0 {
			assert.Equal(t, domain.RoleUser, m.Role)
		} else {
			assert.Equal(t, domain.RoleAssistant, m.Role)
		}
	}
}

func TestSessionRepository_TitleSetOnlyWithFirstTurn(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := NewSessionRepository()

	s := domain.NewChatSession(uuid.New(), now)
	require.NoError(t, repo.Create(ctx, s))

	u, a := turn(s.ID, now, domain.DefaultSessionTitle, "answer")
	require.NoError(t, repo.AppendTurn(ctx, s.ID, u, a, domain.DefaultSessionTitle))

	u, a = turn(s.ID, now, "second question here", "answer")
	require.NoError(t, repo.AppendTurn(ctx, s.ID, u, a, "second question here"))

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSessionTitle, got.Title)
}
