// Package store provides the SQLite storage layer for Chorus.
//
// One database file holds everything a client's runs produce: the scored
// quote snapshots, derived findings, the append-only raw theme log, the
// canonical theme layer, and the mapping/curation records with their full
// decision history.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location
const DefaultDBPath = "~/.chorus/chorus.db"

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when an optimistic update loses the
	// race: the record changed since it was read
	ErrVersionConflict = errors.New("version conflict")
)

// SQLiteStore is the concrete store over a single SQLite database file
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and runs the
// idempotent schema bootstrap. "~" expands to the user home directory.
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultDBPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", expanded+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStore{db: db, path: expanded}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the resolved database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
