// Package store persists decoded telemetry into an embedded DuckDB
// file and answers the deterministic query operations over it.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

//go:embed migrations/001_initial_schema.sql
var migrationSQL string

// Config configures the DuckDB-backed store.
type Config struct {
	// Path is the DuckDB file path. ":memory:" opens an in-memory database,
	// used by tests.
	Path string
	// MaxOpenConns bounds the connection pool; spec.md §5 calls for a
	// small pool (e.g. 4) that serializes writers per signal while
	// allowing concurrent readers.
	MaxOpenConns int
}

// DefaultConfig returns the store defaults.
func DefaultConfig(path string) Config {
	return Config{Path: path, MaxOpenConns: 4}
}

// Store is a DuckDB-backed telemetry store.
type Store struct {
	db   *sql.DB
	path string

	// retentionMu is held for the duration of one retention sweep, so
	// sweeps never overlap — a process-local lock, not a DB-level one.
	// The insert paths do not take it.
	retentionMu sync.Mutex
}

// New opens (creating if absent) the DuckDB file at cfg.Path and runs
// the forward-only schema migration.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)

	if _, err := db.Exec(migrationSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, path: cfg.Path}, nil
}

// Close releases the underlying DuckDB connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Clear removes all rows from every table; used by tests to reset
// fixtures between cases without reopening the file.
func (s *Store) Clear(ctx context.Context) error {
	tables := []string{"logs", "spans", "span_events", "span_links", "metric_points"}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return tx.Commit()
}
