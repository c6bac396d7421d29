package db

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// gooseDialect translates our driver names into goose's dialect names.
func gooseDialect(driver string) string {
	switch driver {
	case "sqlite":
		return "sqlite3"
	case "pgx":
		return "postgres"
	default:
		return driver
	}
}

// RunMigrations applies all pending migrations from the embedded migrations
// directory. Called at startup, before any repository touches the schema.
func RunMigrations(conn *sql.DB, driver string) error {
	err := goose.SetDialect(gooseDialect(driver))
	if err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	dir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations directory: %w", err)
	}
	goose.SetBaseFS(dir)

	err = goose.Up(conn, ".")
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("migrations up to date")
	return nil
}
