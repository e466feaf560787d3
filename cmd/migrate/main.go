package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/invest-agent/internal/config"
	"github.com/Rrens/invest-agent/internal/repository/postgres"
)

const usage = "usage: migrate [up | down [steps] | version]"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dsn := cfg.Database.DSN()
	source := cfg.Session.MigrationDir

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("command", cmd).
		Msg("Running migrations")

	switch cmd {
	case "up":
		err = postgres.RunMigrations(dsn, source)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			steps, err = strconv.Atoi(os.Args[2])
			if err != nil || steps <= 0 {
				log.Fatal().Str("steps", os.Args[2]).Msg("steps must be a positive integer")
			}
		}
		err = postgres.RollbackMigrations(dsn, source, steps)
	case "version":
		var version uint
		var dirty bool
		version, dirty, err = postgres.MigrationVersion(dsn, source)
		if err == nil {
			fmt.Printf("version=%d dirty=%t\n", version, dirty)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
