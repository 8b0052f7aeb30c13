// Package localstore implements the on-device key/value store used for liked trails,
// read announcements and catalog snapshots.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/trailaccess/trailguide/internal/repositories"
)

const createKV = `CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

const upsertKV = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("localstore: store is closed")
	// ErrKeyRequired is returned when a blank key is supplied.
	ErrKeyRequired = errors.New("localstore: key is required")
	// ErrCorruptValue is returned when a stored blob cannot be decoded into the target.
	ErrCorruptValue = errors.New("localstore: stored value is not valid JSON for target")
)

// SQLiteStore persists JSON blobs in a single-table SQLite database.
type SQLiteStore struct {
	mu  sync.RWMutex
	db  *sql.DB
	now func() time.Time
}

var _ repositories.KeyValueStore = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path. ":memory:" keeps the
// database in process memory.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("localstore: path is required")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("localstore: create dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("localstore: open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createKV); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore: create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Get decodes the blob stored under key into dst.
func (s *SQLiteStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, ErrKeyRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return false, ErrClosed
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("localstore: get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorruptValue, key, err)
	}
	return true, nil
}

// Set replaces the blob stored under key with the JSON encoding of value.
func (s *SQLiteStore) Set(ctx context.Context, key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrKeyRequired
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("localstore: encode %s: %w", key, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, upsertKV, key, string(payload), s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("localstore: set %s: %w", key, err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	return s.db.PingContext(ctx)
}

// Close releases the database. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
