// ABOUTME: Shared SQLite open helper using modernc.org/sqlite
// ABOUTME: Applies WAL, foreign-key and busy-timeout pragmas via the DSN

package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openSQLite opens (creating parent directories if needed) a SQLite database
// with WAL mode, foreign keys, and a busy timeout. Pragmas are set through the
// DSN so every pooled connection gets them, not just the first.
func openSQLite(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// ContentDBPath returns the conventional content store path for an identity.
func ContentDBPath(dir, identityID string) string {
	return filepath.Join(dir, "content-"+identityID+".db")
}
