// Package sqlite provides the durable key/value store backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// Config configures the SQLite store.
type Config struct {
	// Path is the database file. ":memory:" keeps everything in process.
	Path string

	// MaxOpenConns bounds the connection pool. SQLite serialises writers,
	// so small values are fine.
	MaxOpenConns int
}

// Store implements ports.KeyValueStore on a single kv table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at cfg.Path and applies migrations.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite: path is required")
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 || cfg.Path == ":memory:" {
		// Every connection to ":memory:" is a separate database.
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	queries := []string{
		`PRAGMA journal_mode=WAL`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Get returns the value stored under key or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("key", key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading key %q: %w", key, err)
	}

	return value, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("writing key %q: %w", key, err)
	}

	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "sqlite"
}

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
