// Package store is the Snapshot Store: an immutable, append-only SQLite
// archive of analysis results. Each run produces exactly one committed
// snapshot row, or none at all if the run aborts.
package store

import (
	"os"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/tscg-project/tscg/internal/errtax"
)

// Store owns one SQLite connection to a project's snapshot database.
type Store struct {
	conn   *sqlite.Conn
	logger *zap.Logger
}

// Open creates the database file if absent, tunes it with PRAGMAs for
// bulk inserts, and applies pending migrations (the schema creates its
// indexes up front).
func Open(path string, logger *zap.Logger) (*Store, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return nil, &errtax.StorageError{Op: "open", Err: err}
	}

	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA mmap_size = 268435456",
		"PRAGMA cache_size = -64000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = OFF", // snapshots are immutable once committed; no update cascades needed
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			_ = conn.Close()
			return nil, &errtax.StorageError{Op: "pragma", Err: err}
		}
	}

	if err := migrate(conn, func() string { return time.Now().UTC().Format(time.RFC3339) }); err != nil {
		_ = conn.Close()
		return nil, &errtax.MigrationError{Version: schemaVersion, Err: err}
	}

	return &Store{conn: conn, logger: logger}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.conn.Close() }

// Query runs an ad-hoc read-only SQL statement, feeding each result row to
// fn. The sole catch-all escape hatch for callers (the CLI's `inspect`
// surface) that need something the named query methods don't cover.
func (s *Store) Query(sql string, args []any, fn func(stmt *sqlite.Stmt) error) error {
	err := sqlitex.ExecuteTransient(s.conn, sql, &sqlitex.ExecOptions{Args: args, ResultFunc: fn})
	if err != nil {
		return &errtax.StorageError{Op: "query", Err: err}
	}
	return nil
}

func bindTextOrNull(stmt *sqlite.Stmt, param int, val string) {
	if val == "" {
		stmt.BindNull(param)
		return
	}
	stmt.BindText(param, val)
}

func bindIntOrNull(stmt *sqlite.Stmt, param, val int) {
	if val == 0 {
		stmt.BindNull(param)
		return
	}
	stmt.BindInt64(param, int64(val))
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// ensureRemoved deletes a database file and its -wal/-shm side files,
// ignoring any that do not exist.
func ensureRemoved(path string) {
	_ = os.Remove(path)
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")
}
