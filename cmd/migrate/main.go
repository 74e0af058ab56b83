package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/haven/backend/migrations"
	"github.com/zhouzirui/haven/backend/pkg/logging"
)

const usage = "usage: migrate [up | down | force <version>]"

func main() {
	envErr := godotenv.Load()

	logger := logging.New(os.Getenv("LOG_LEVEL"))
	if envErr != nil {
		logger.Warn("no .env file loaded, using process environment only", "error", envErr)
	}

	cmd, err := parseCommand(os.Args[1:])
	if err != nil {
		logger.Error(usage, "error", err)
		os.Exit(2)
	}

	if err := run(strings.TrimSpace(os.Getenv("DATABASE_URL")), cmd, logger); err != nil {
		logger.Error("migration failed", "command", cmd.name, "error", err)
		os.Exit(1)
	}
}

type command struct {
	name    string
	version int
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{name: "up"}, nil
	}
	switch args[0] {
	case "up", "down":
		return command{name: args[0]}, nil
	case "force":
		if len(args) < 2 {
			return command{}, errors.New("force needs a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return command{name: "force", version: version}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q", args[0])
	}
}

// run returns instead of exiting so the migrator and connection are always closed.
func run(databaseURL string, cmd command, logger *logging.Logger) error {
	if databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	target, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", target)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	switch cmd.name {
	case "down":
		err = m.Down()
	case "force":
		// Clears the dirty flag left by a failed run.
		err = m.Force(cmd.version)
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("read version: %w", verr)
	}
	logger.Info("migrations applied", "command", cmd.name, "version", version, "dirty", dirty, "no_change", errors.Is(err, migrate.ErrNoChange))
	return nil
}
