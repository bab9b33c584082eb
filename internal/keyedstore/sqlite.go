package keyedstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a Store persisted in a single SQLite database. One row per
// path; change notification stays in-process, since the daemon is the only
// writer of its session database.
type SQLite struct {
	db    *sql.DB
	watch *watchTable
}

// OpenSQLite opens (or creates) the store database with WAL mode and
// recommended pragmas.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &SQLite{db: db, watch: newWatchTable()}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// ReadOnce returns the value at path, or ErrAbsent.
func (s *SQLite) ReadOnce(ctx context.Context, path string) (json.RawMessage, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE path = ?`, path).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("read %q: %w", path, ErrAbsent)
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return value, nil
}

// Write overwrites the value at path and notifies subscribers.
func (s *SQLite) Write(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}

	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (path, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		path, []byte(raw), now)
	if err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}

	s.watch.notify(path, raw)
	return nil
}

// Subscribe delivers the current value (nil when absent), then every write.
func (s *SQLite) Subscribe(path string) (<-chan json.RawMessage, func()) {
	current, err := s.ReadOnce(context.Background(), path)
	if err != nil {
		current = nil
	}
	return s.watch.add(path, current)
}
