package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS analysis_runs (
					id TEXT PRIMARY KEY,
					project_id TEXT NOT NULL,
					mode TEXT NOT NULL,
					finish_quality TEXT NOT NULL DEFAULT 'standard',
					pricing_version TEXT NOT NULL DEFAULT '',
					grand_total REAL NOT NULL DEFAULT 0,
					plans_analyzed INTEGER NOT NULL DEFAULT 0,
					pages_skipped INTEGER NOT NULL DEFAULT 0,
					payload TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_analysis_runs_project ON analysis_runs(project_id, created_at)`,

				`CREATE TABLE IF NOT EXISTS budget_categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					project_id TEXT NOT NULL,
					position INTEGER NOT NULL,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					materials_subtotal REAL NOT NULL DEFAULT 0,
					labor_hours REAL NOT NULL DEFAULT 0,
					labor_rate REAL NOT NULL DEFAULT 0,
					labor_subtotal REAL NOT NULL DEFAULT 0,
					category_total REAL NOT NULL DEFAULT 0,
					UNIQUE(project_id, name)
				)`,

				`CREATE TABLE IF NOT EXISTS budget_items (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					category_id INTEGER NOT NULL,
					position INTEGER NOT NULL,
					description TEXT NOT NULL,
					quantity REAL NOT NULL DEFAULT 0,
					unit TEXT NOT NULL DEFAULT '',
					unit_price REAL NOT NULL DEFAULT 0,
					total REAL NOT NULL DEFAULT 0,
					source TEXT NOT NULL DEFAULT '',
					confidence TEXT NOT NULL DEFAULT 'medium',
					is_alternative INTEGER NOT NULL DEFAULT 0,
					FOREIGN KEY (category_id) REFERENCES budget_categories(id)
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Index budget items and track budget updates",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE INDEX idx_budget_items_category ON budget_items(category_id, position)`,
				`ALTER TABLE budget_categories ADD COLUMN updated_at DATETIME`,
				`UPDATE budget_categories SET updated_at = CURRENT_TIMESTAMP`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// SchemaVersion reports the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
