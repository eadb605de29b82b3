package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Database is the sqlite journal behind the trading core: orders, fills,
// generated signals and the per-day risk ledger.
type Database struct {
	DB *sql.DB
}

// New opens the journal at path, creating the file and its directory when
// missing. ":memory:" yields an ephemeral database for tests.
func New(path string) (*Database, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single connection: sqlite allows one writer, and the journal sees
	// concurrent writes from the executor and signal generator.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	return &Database{DB: db}, nil
}

// Close releases the underlying handle. Safe on a nil receiver.
func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
