// Package db provides SQLite database access for Loom.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection pool.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the database at path.
func Open(path string, busyTimeoutMs int) (*DB, error) {
	if busyTimeoutMs <= 0 {
		busyTimeoutMs = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path, busyTimeoutMs)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// OpenInMemory opens a private in-memory database, used by tests.
func OpenInMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// A single connection keeps every statement on the same memory database.
	conn.SetMaxOpenConns(1)
	return &DB{conn: conn}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.conn.Close()
}

// ExecContext executes a statement.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// QueryContext runs a query returning rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a query returning at most one row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// Transaction runs fn inside a transaction, rolling back on error.
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}

// migrations are applied in order; each entry must be idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		identity_key           TEXT PRIMARY KEY,
		id                     TEXT NOT NULL DEFAULT '',
		role                   TEXT NOT NULL,
		content                TEXT NOT NULL,
		ts_millis              INTEGER,
		raw_timestamp          TEXT NOT NULL DEFAULT '',
		thread_id              TEXT NOT NULL DEFAULT '',
		conversation_thread_id TEXT NOT NULL DEFAULT '',
		conversation_id        TEXT NOT NULL DEFAULT '',
		parent_conversation_id TEXT NOT NULL DEFAULT '',
		session_id             TEXT NOT NULL DEFAULT '',
		resources_json         TEXT,
		is_current             INTEGER NOT NULL DEFAULT 0,
		is_stored              INTEGER NOT NULL DEFAULT 1,
		updated_at             TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts_millis)`,
	`CREATE TABLE IF NOT EXISTS merge_batches (
		id            TEXT PRIMARY KEY,
		merged_count  INTEGER NOT NULL,
		dropped_count INTEGER NOT NULL,
		created_at    TEXT NOT NULL
	)`,
}

// MigrateUp applies all schema migrations.
func (db *DB) MigrateUp(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
