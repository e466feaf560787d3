package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Rrens/invest-agent/internal/domain"
)

const (
	sessionKeyPrefix = "session:"
	visitorKeyPrefix = "visitor:"
	maxTxRetries     = 5
)

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}

// visitorKey names the sorted set of a visitor's session ids scored by creation time
func visitorKey(visitorID uuid.UUID) string {
	return visitorKeyPrefix + visitorID.String() + ":sessions"
}

// SessionRepository stores each session as one JSON document. With a
// non-zero ttl both the document and the visitor index expire after that
// long without a write.
type SessionRepository struct {
	client *Client
	ttl    time.Duration
}

func NewSessionRepository(client *Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{client: client, ttl: ttl}
}

// write queues the session document and refreshes the visitor index expiry
func (r *SessionRepository) write(ctx context.Context, pipe redis.Pipeliner, s *domain.ChatSession, data []byte) {
	pipe.Set(ctx, sessionKey(s.ID), data, r.ttl)
	if r.ttl > 0 {
		pipe.Expire(ctx, visitorKey(s.VisitorID), r.ttl)
	}
}

func encodeSession(s *domain.ChatSession) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

func decodeSession(data []byte) (*domain.ChatSession, error) {
	var s domain.ChatSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	_, err = r.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, visitorKey(session.VisitorID), redis.Z{
			Score:  float64(session.CreatedAt.UnixNano()),
			Member: session.ID.String(),
		})
		r.write(ctx, pipe, session, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *SessionRepository) get(ctx context.Context, g getter, id uuid.UUID) (*domain.ChatSession, error) {
	data, err := g.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return decodeSession(data)
}

func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ChatSession, error) {
	return r.get(ctx, r.client.rdb, id)
}

func (r *SessionRepository) ListByVisitor(ctx context.Context, visitorID uuid.UUID, limit int) ([]domain.ChatSession, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := r.client.rdb.ZRevRange(ctx, visitorKey(visitorID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		return []domain.ChatSession{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKeyPrefix + id
	}

	values, err := r.client.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	sessions := make([]domain.ChatSession, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// deleted between ZRevRange and MGet
			continue
		}
		s, err := decodeSession([]byte(raw))
		if err != nil {
			return nil, err
		}
		s.Messages = nil
		sessions = append(sessions, *s)
	}
	return sessions, nil
}

// AppendTurn rewrites the session document under WATCH so concurrent writers
// never interleave their messages.
func (r *SessionRepository) AppendTurn(ctx context.Context, sessionID uuid.UUID, user, assistant *domain.Message, title string) error {
	key := sessionKey(sessionID)

	txf := func(tx *redis.Tx) error {
		s, err := r.get(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		if title != "" && len(s.Messages) == 0 {
			s.Title = title
		}
		s.Messages = append(s.Messages, *user, *assistant)
		s.UpdatedAt = assistant.CreatedAt

		data, err := encodeSession(s)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			r.write(ctx, pipe, s, data)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to append turn: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to append turn: too much contention on session %s", sessionID)
}

func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.ZRem(ctx, visitorKey(s.VisitorID), id.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
