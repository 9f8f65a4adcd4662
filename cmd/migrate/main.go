package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"loyalty-promo-backend/internal/common/config"
	"loyalty-promo-backend/internal/common/logger"
	"loyalty-promo-backend/internal/platform/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("migrate", true)
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init("migrate", cfg.Debug)

	client, err := postgres.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer client.Close()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	dir := "migrations"
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	ctx := context.Background()
	db := client.DB()

	if err := ensureMigrationsTable(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare migrations table")
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read applied migrations")
	}

	switch command {
	case "up":
		if err := migrateUp(ctx, db, dir, applied); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("all migrations completed")
	case "status":
		for _, name := range applied {
			logger.Info().Str("migration", name).Msg("applied")
		}
	default:
		logger.Fatal().Str("command", command).Msg("unknown command, expected up or status")
	}
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS migrations (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		executed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	return err
}

func appliedMigrations(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM migrations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func migrateUp(ctx context.Context, db *sql.DB, dir string, applied []string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}

	var pending []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			pending = append(pending, entry.Name())
		}
	}
	sort.Strings(pending)

	for _, name := range pending {
		if done[name] {
			logger.Info().Str("migration", name).Msg("skipped, already applied")
			continue
		}

		script, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if err := apply(ctx, db, name, string(script)); err != nil {
			return err
		}
		logger.Info().Str("migration", name).Msg("applied")
	}
	return nil
}

// apply runs a migration and records it in the same transaction, so a
// failed script leaves no trace in the migrations table.
func apply(ctx context.Context, db *sql.DB, name, script string) error {
	return postgres.WithinTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, script); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO migrations (name) VALUES ($1)`, name)
		return err
	})
}
