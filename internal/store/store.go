// Package store persists browser preferences and job-run history in a
// SQLite database (modernc.org/sqlite, pure Go).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const (
	defaultBusyTimeout = 5000
	// DefaultFile is the database file name inside the data directory.
	DefaultFile = "howis.db"
)

// Config holds the storage configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/howis.db.
	Path string `yaml:"path"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`
}

// Defaults fills zero values, resolving Path against dataDir.
func (c *Config) Defaults(dataDir string) {
	if c.Path == "" {
		c.Path = filepath.Join(dataDir, DefaultFile)
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
}

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database described by cfg and
// migrates it to the latest schema. WAL mode, a single connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.BusyTimeout < 0 {
		return nil, fmt.Errorf("store: busy_timeout must be non-negative, got %d", cfg.BusyTimeout)
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set busy_timeout: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
