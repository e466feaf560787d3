package dataset

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Rrens/invest-agent/internal/config"
	"github.com/Rrens/invest-agent/internal/domain"
)

// Sampler draws random rows from the company dataset
type Sampler interface {
	// Name returns the driver identifier
	Name() string

	// Sample returns up to n rows in random order
	Sample(ctx context.Context, n int) ([]domain.DatasetRow, error)

	// Ping verifies the backing store is reachable
	Ping(ctx context.Context) error

	// Close releases the underlying connection
	Close() error
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier rejects table or collection names that would need quoting
func ValidateIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("invalid dataset table name: %q", name)
	}
	return nil
}

// Open connects the sampler selected by cfg.Driver
func Open(ctx context.Context, cfg config.DatasetConfig) (Sampler, error) {
	if cfg.Driver != "csv" {
		if err := ValidateIdentifier(cfg.Table); err != nil {
			return nil, err
		}
	}

	switch cfg.Driver {
	case "csv":
		return LoadCSV(cfg.Path)
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path, cfg.Table)
	case "mysql":
		return OpenMySQL(ctx, cfg.DSN, cfg.Table)
	case "postgres":
		return OpenPostgres(ctx, cfg.DSN, cfg.Table)
	case "mongo":
		return OpenMongo(ctx, cfg.DSN, cfg.Database, cfg.Table)
	default:
		return nil, fmt.Errorf("unsupported dataset driver: %s", cfg.Driver)
	}
}
