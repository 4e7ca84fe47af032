// Package sqlitedb opens the embedded SQLite stores with the pragmas both
// stores rely on, and provides the bounded retry used on write contention.
package sqlitedb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"anticlaw/internal/model"
)

// Open opens (creating lazily if absent) a SQLite database with WAL mode,
// foreign keys and a busy timeout. A malformed file surfaces as ErrStorage.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, model.StorageError("creating store directory", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, model.StorageError("opening database", err)
	}

	// WAL allows concurrent readers alongside the single writer.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, model.StorageError(fmt.Sprintf("executing %q", pragma), err)
		}
	}

	return conn, nil
}

const (
	retryAttempts = 5
	retryBackoff  = 50 * time.Millisecond
)

// Retry runs fn, retrying a bounded number of times when SQLite reports
// write contention. Surfaces ErrConflict once the budget is spent.
func Retry(fn func() error) error {
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if err = fn(); err == nil || !IsBusy(err) {
			return err
		}
		time.Sleep(retryBackoff * time.Duration(attempt+1))
	}
	return fmt.Errorf("%w: %v", model.ErrConflict, err)
}

// IsBusy reports whether err is a SQLite lock-contention error.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
