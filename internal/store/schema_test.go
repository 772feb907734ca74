package store

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
)

func TestOpenIsIdempotentAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")

	first, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen should not re-run migrations destructively: %v", err)
	}
	defer second.Close()

	var version int
	err = second.Query(`SELECT coalesce(max(version), 0) FROM schema_migrations`, nil, func(stmt *sqlite.Stmt) error {
		version = stmt.ColumnInt(0)
		return nil
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if version != schemaVersion {
		t.Fatalf("expected schema at version %d, got %d", schemaVersion, version)
	}
}
