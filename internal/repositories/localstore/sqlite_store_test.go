package localstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "trailguide.db")
	store, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file: %v", err)
	}
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	var liked []string
	found, err := store.Get(ctx, "liked_trails", &liked)
	if err != nil || found {
		t.Fatalf("expected missing key, found=%v err=%v", found, err)
	}

	if err := store.Set(ctx, "liked_trails", []string{"t-1", "t-2"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, "liked_trails", []string{"t-3"}); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	found, err = store.Get(ctx, "liked_trails", &liked)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if len(liked) != 1 || liked[0] != "t-3" {
		t.Fatalf("expected overwrite to win, got %v", liked)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trailguide.db")

	store, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := store.Set(ctx, "announcements_read", []string{"a-1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	var read []string
	if found, err := reopened.Get(ctx, "announcements_read", &read); err != nil || !found {
		t.Fatalf("expected persisted key, found=%v err=%v", found, err)
	}
	if len(read) != 1 || read[0] != "a-1" {
		t.Fatalf("unexpected value %v", read)
	}
}

func TestSQLiteStoreClosed(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
	if err := store.Set(ctx, "k", 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	var v int
	if _, err := store.Get(ctx, "k", &v); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestStoresRejectBlankKeys(t *testing.T) {
	ctx := context.Background()
	stores := map[string]interface {
		Set(context.Context, string, any) error
	}{
		"sqlite": openTestStore(t),
		"memory": NewMemoryStore(),
	}
	for name, store := range stores {
		if err := store.Set(ctx, "  ", 1); !errors.Is(err, ErrKeyRequired) {
			t.Fatalf("%s: expected ErrKeyRequired, got %v", name, err)
		}
	}
}

func TestMemoryStoreCorruptValue(t *testing.T) {
	store := NewMemoryStore()
	store.SetRaw("liked_trails", []byte("{not json"))

	var liked []string
	found, err := store.Get(context.Background(), "liked_trails", &liked)
	if !found {
		t.Fatal("expected key to exist")
	}
	if !errors.Is(err, ErrCorruptValue) {
		t.Fatalf("expected ErrCorruptValue, got %v", err)
	}
}
