// Package testing provides database helpers shared by package tests.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/sharesathi/internal/database"
)

// NewTestDB opens a file-backed database in a per-test temporary directory
// and applies the embedded migrations registered for name (for example
// database.NameConfig or database.NameClientData). The database is closed
// when the test finishes.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	profile := database.ProfileStandard
	if name == database.NameClientData {
		profile = database.ProfileCache
	}

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}
	return db
}
