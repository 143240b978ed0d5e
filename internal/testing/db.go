// Package testing provides testing utilities for the finboard project.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/clarelia/finboard/internal/database"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a temp-file sqlite reports database with the schema
// applied. Returns the database and an idempotent cleanup function.
// Temporary files (rather than :memory:) keep each test isolated while
// still exercising the real WAL configuration.
func NewTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test_reports_*.db")
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileReports,
		Name:    "reports",
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database: %v", err)
		}
		if err := os.Remove(tmpPath); err != nil {
			t.Logf("Warning: Failed to remove temporary database file %s: %v", tmpPath, err)
		}
		// WAL and SHM files may remain after close.
		for _, suffix := range []string{"-wal", "-shm"} {
			_ = os.Remove(fmt.Sprintf("%s%s", tmpPath, suffix))
		}
	}
}
