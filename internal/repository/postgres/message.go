package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Rrens/invest-agent/internal/domain"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func insertMessage(ctx context.Context, tx pgx.Tx, m *domain.Message) error {
	query := `
		INSERT INTO chat_messages (id, session_id, role, content, action, error_kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.Exec(ctx, query,
		m.ID,
		m.SessionID,
		string(m.Role),
		m.Content,
		string(m.Action),
		string(m.ErrorKind),
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func listMessages(ctx context.Context, q querier, sessionID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT id, session_id, role, content, action, error_kind, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY seq ASC
	`
	rows, err := q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var role, action, errorKind string
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &action, &errorKind, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = domain.MessageRole(role)
		m.Action = domain.Action(action)
		m.ErrorKind = domain.ErrorKind(errorKind)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return messages, nil
}
