// Package repositorytest provides a migrated throwaway SQLite store for tests.
package repositorytest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/windfall/fluentmind/internal/config"
	"github.com/windfall/fluentmind/internal/repository"
)

// NewSQLiteStore migrates a fresh database file under t.TempDir and opens a
// store over it. The store is closed when the test ends.
func NewSQLiteStore(t testing.TB) *repository.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fluentmind.db")
	if err := repository.Migrate(config.DriverSQLite, path); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	store, err := repository.OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// CountUsers returns the number of rows in users carrying uid.
func CountUsers(t testing.TB, store *repository.Store, uid string) int {
	t.Helper()

	var n int
	if err := store.DB().Get(&n, `SELECT COUNT(*) FROM users WHERE uid = ?`, uid); err != nil {
		t.Fatalf("count users: %v", err)
	}
	return n
}

// CountAllUsers returns the number of rows in users.
func CountAllUsers(t testing.TB, store *repository.Store) int {
	t.Helper()

	var n int
	if err := store.DB().Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		t.Fatalf("count users: %v", err)
	}
	return n
}
