package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/trailaccess/trailguide/internal/repositories"
)

// MemoryStore is a process-local KeyValueStore. Values are held JSON-encoded so that
// callers observe the same copy semantics as the SQLite store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ repositories.KeyValueStore = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string, dst any) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, ErrKeyRequired
	}
	m.mu.RLock()
	raw, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorruptValue, key, err)
	}
	return true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrKeyRequired
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("localstore: encode %s: %w", key, err)
	}
	m.mu.Lock()
	m.values[key] = payload
	m.mu.Unlock()
	return nil
}

// SetRaw stores an undecoded blob, letting tests simulate corrupt entries.
func (m *MemoryStore) SetRaw(key string, raw []byte) {
	m.mu.Lock()
	m.values[strings.TrimSpace(key)] = append([]byte(nil), raw...)
	m.mu.Unlock()
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
