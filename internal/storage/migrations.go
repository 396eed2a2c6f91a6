package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the schema version this build reads and writes.
// Opening a database that cannot reach it is fatal.
const ExpectedSchemaVersion = 4

// Migration is one schema step. Its statements run in a single transaction
// together with the user_version bump.
type Migration struct {
	Description string
	Statements  []string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Create notice_templates",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS notice_templates (
				id TEXT PRIMARY KEY,
				template_type TEXT NOT NULL,
				version TEXT NOT NULL,
				content TEXT NOT NULL,
				summary TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX idx_notice_templates_type_created ON notice_templates(template_type, created_at)`,
		},
	},
	{
		Version:     2,
		Description: "Create threshold_cache",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS threshold_cache (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				amount REAL NOT NULL,
				source TEXT NOT NULL,
				fetched_at TEXT NOT NULL
			)`,
		},
	},
	{
		Version:     3,
		Description: "Create drafting_sessions",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS drafting_sessions (
				id TEXT PRIMARY KEY,
				state TEXT NOT NULL,
				retry_count INTEGER NOT NULL DEFAULT 0,
				needs_review INTEGER NOT NULL DEFAULT 0,
				data TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				completed_at TEXT
			)`,
			`CREATE INDEX idx_drafting_sessions_state ON drafting_sessions(state)`,
		},
	},
	{
		Version:     4,
		Description: "Create checkpoint_metadata",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS checkpoint_metadata (
				id TEXT PRIMARY KEY,
				description TEXT,
				file_size INTEGER NOT NULL,
				schema_version INTEGER NOT NULL,
				is_auto INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
		},
	},
}

// PendingMigrations lists the migrations Migrate would apply.
func (s *SQLiteStorage) PendingMigrations(ctx context.Context) ([]Migration, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	var pending []Migration
	for _, m := range migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Migrate applies every pending migration in order.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	pending, err := s.PendingMigrations(ctx)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		slog.Info("Applied migration", "version", m.Version, "description", m.Description)
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if version != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, version)
	}
	return nil
}

func (s *SQLiteStorage) apply(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}
	}
	// #nosec G201 - version is a compile-time constant
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}
	return nil
}

// SchemaVersion reports the applied schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}
