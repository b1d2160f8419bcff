package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
)

func newSQLiteT(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "saves.db"), 1<<20)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreContract(t *testing.T) {
	testAdapterContract(t, newSQLiteT(t))
}

// TestSQLiteStoreReopen: записанное переживает переоткрытие базы.
func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "saves.db")

	store, err := NewSQLiteStore(path, 0)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := store.Put(ctx, StoreSaves, "g1", json.RawMessage(`{"turn":9}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(path, 0)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, StoreSaves, "g1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"turn":9}` {
		t.Errorf("Get after reopen = %s", got)
	}
}
