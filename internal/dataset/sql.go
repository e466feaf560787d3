package dataset

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/Rrens/invest-agent/internal/domain"
)

// Dialect carries the per-database spelling of the sampling query
type Dialect struct {
	Driver      string
	QuoteOpen   string
	QuoteClose  string
	RandomOrder string
}

var (
	SQLiteDialect = Dialect{Driver: "sqlite", QuoteOpen: `"`, QuoteClose: `"`, RandomOrder: "RANDOM()"}
	MySQLDialect  = Dialect{Driver: "mysql", QuoteOpen: "`", QuoteClose: "`", RandomOrder: "RAND()"}
)

// SQLSampler samples rows through database/sql
type SQLSampler struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// NewSQLSampler wraps an open database handle
func NewSQLSampler(db *sql.DB, dialect Dialect, table string) *SQLSampler {
	return &SQLSampler{db: db, dialect: dialect, table: table}
}

// OpenSQLite opens a SQLite dataset file
func OpenSQLite(ctx context.Context, path, table string) (*SQLSampler, error) {
	if path == "" {
		return nil, fmt.Errorf("database file path is required")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewSQLSampler(db, SQLiteDialect, table), nil
}

// OpenMySQL connects to a MySQL dataset using a go-sql-driver DSN
func OpenMySQL(ctx context.Context, dsn, table string) (*SQLSampler, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return NewSQLSampler(db, MySQLDialect, table), nil
}

func (s *SQLSampler) Name() string {
	return s.dialect.Driver
}

func (s *SQLSampler) query() string {
	return fmt.Sprintf("SELECT * FROM %s%s%s ORDER BY %s LIMIT ?",
		s.dialect.QuoteOpen, s.table, s.dialect.QuoteClose, s.dialect.RandomOrder)
}

func (s *SQLSampler) Sample(ctx context.Context, n int) ([]domain.DatasetRow, error) {
	rows, err := s.db.QueryContext(ctx, s.query(), n)
	if err != nil {
		return nil, fmt.Errorf("sample query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var sample []domain.DatasetRow
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(domain.DatasetRow, len(columns))
		for i, col := range columns {
			// drivers hand text columns back as bytes
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		sample = append(sample, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sample, nil
}

func (s *SQLSampler) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLSampler) Close() error {
	return s.db.Close()
}
