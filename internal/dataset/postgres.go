package dataset

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rrens/invest-agent/internal/domain"
)

// PostgresSampler samples rows from a PostgreSQL table
type PostgresSampler struct {
	pool  *pgxpool.Pool
	table string
}

func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresSampler, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return &PostgresSampler{pool: pool, table: table}, nil
}

func (s *PostgresSampler) Name() string {
	return "postgres"
}

func (s *PostgresSampler) Sample(ctx context.Context, n int) ([]domain.DatasetRow, error) {
	query := fmt.Sprintf(`SELECT * FROM %s ORDER BY random() LIMIT $1`, pgx.Identifier{s.table}.Sanitize())

	rows, err := s.pool.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("sample query failed: %w", err)
	}

	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to collect rows: %w", err)
	}

	sample := make([]domain.DatasetRow, len(maps))
	for i, m := range maps {
		sample[i] = m
	}
	return sample, nil
}

func (s *PostgresSampler) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresSampler) Close() error {
	s.pool.Close()
	return nil
}
