// Package testutil provides shared fixtures for package tests: a migrated
// SQLite database and a scripted reasoning service.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/tender/internal/storage"
)

// SetupTestDB opens a migrated database in a temporary directory and closes
// it when the test ends.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "tender.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})
	return store
}
