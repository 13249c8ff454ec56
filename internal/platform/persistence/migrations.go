package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations brings the exchange schema up to date. migrationsPath is the
// directory holding the SQL files, such as ./migrations/postgres.
func RunMigrations(logger *slog.Logger, databaseURL string, migrationsPath string) error {
	if migrationsPath == "" {
		return errors.New("migrations path cannot be empty")
	}
	if databaseURL == "" {
		return errors.New("database URL cannot be empty")
	}

	m, err := migrate.New(sourceURL(migrationsPath), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			logger.Warn("Failed to close migration handles", "source_error", sourceErr, "database_error", dbErr)
		}
	}()

	// A dirty schema means an earlier run died half way; applying more on top
	// would only bury the broken step.
	if version, dirty, err := m.Version(); err == nil && dirty {
		return fmt.Errorf("schema is dirty at version %d, repair it before starting", version)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("Schema up to date", "version", version, "source", migrationsPath)
	return nil
}

// sourceURL turns a directory into a file source URL, leaving URLs untouched.
func sourceURL(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return "file://" + path
}
