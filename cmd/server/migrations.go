package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/bookworm/library-api/internal/config"
	"github.com/bookworm/library-api/internal/platform/postgres"
)

const migrationTableName = "schema_migrations"

// runMigrationCommand connects to the database, runs the requested goose
// command (up, down or status) and exits. Used by the -migrate flag.
func runMigrationCommand(cfg *config.Config, command string) error {
	appLogger := slog.Default()

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", slog.String("error", err.Error()))
		}
	}()

	if err := configureGoose(); err != nil {
		return err
	}

	switch command {
	case "up":
		err = goose.Up(db, postgres.MigrationsDir)
	case "down":
		err = goose.Down(db, postgres.MigrationsDir)
	case "status":
		err = goose.Status(db, postgres.MigrationsDir)
	default:
		return fmt.Errorf("unknown migration command %q (want up, down or status)", command)
	}
	if err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}

	appLogger.Info("migration command completed", slog.String("command", command))
	return nil
}

// migrateUp applies any pending migrations at startup.
func migrateUp(db *sql.DB, appLogger *slog.Logger) error {
	if err := configureGoose(); err != nil {
		return err
	}

	if err := goose.Up(db, postgres.MigrationsDir); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	appLogger.Info("database schema up to date", slog.Int64("version", version))
	return nil
}

func configureGoose() error {
	goose.SetBaseFS(postgres.MigrationsFS)
	goose.SetTableName(migrationTableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}
