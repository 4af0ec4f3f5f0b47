// ABOUTME: Ordered, named, run-once schema migrations for SQLite stores
// ABOUTME: Each store records applied migration names in its own schema_migrations table

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Migration is a single named schema step. Apply runs inside its own
// transaction; a returned error rolls the step back and aborts the
// whole sequence.
type Migration struct {
	Name  string
	Apply func(ctx context.Context, tx *sql.Tx) error
}

// MigrationError is fatal: the store is unusable and the error must be
// surfaced to top-level initialization.
type MigrationError struct {
	Store string
	Step  string
	Err   error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migrating %s store at step %q: %v", e.Store, e.Step, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// Migrate applies every migration whose name is not yet recorded, in list
// order. Applying a fully recorded list is a no-op. The identity and content
// stores carry independent lists and histories; migrations for one never
// touch the other's tables.
func Migrate(ctx context.Context, db *sql.DB, storeName string, migrations []Migration) error {
	logger := slog.Default().With("component", "migrate", "store", storeName)

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return &MigrationError{Store: storeName, Step: "schema_migrations", Err: err}
	}

	applied := make(map[string]bool)
	rows, err := db.QueryContext(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return &MigrationError{Store: storeName, Step: "schema_migrations", Err: err}
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return &MigrationError{Store: storeName, Step: "schema_migrations", Err: err}
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return &MigrationError{Store: storeName, Step: "schema_migrations", Err: err}
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.Name] {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return &MigrationError{Store: storeName, Step: m.Name, Err: err}
		}
		logger.Info("applied migration", "name", m.Name)
	}

	return nil
}

// applyMigration runs one step and records its name, atomically.
func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := m.Apply(ctx, tx); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`,
		m.Name, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	return tx.Commit()
}

// AppliedMigrations returns the recorded migration names, in application order.
func AppliedMigrations(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM schema_migrations ORDER BY applied_at, name`)
	if err != nil {
		return nil, fmt.Errorf("querying schema_migrations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning migration name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// execAll runs each statement in order, stopping at the first error.
func execAll(ctx context.Context, tx *sql.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
