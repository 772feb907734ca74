package store

import (
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// schemaVersion is the highest migration this build knows how to apply.
const schemaVersion = 1

// migrations is applied in order, lowest version first. Each entry's DDL
// runs inside its own transaction; a failure anywhere leaves the database
// at its previous version.
var migrations = []struct {
	version int
	ddl     string
}{
	{1, initialSchema},
}

const initialSchema = `
CREATE TABLE schema_migrations (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

CREATE TABLE snapshots (
    id                 TEXT PRIMARY KEY,
    created_at         TEXT NOT NULL,
    label              TEXT,
    source_root        TEXT NOT NULL,
    config_hash        TEXT NOT NULL,
    git_commit         TEXT,
    git_branch         TEXT,
    git_tag            TEXT,
    function_count     INTEGER NOT NULL DEFAULT 0,
    edge_count         INTEGER NOT NULL DEFAULT 0,
    type_count         INTEGER NOT NULL DEFAULT 0,
    unresolved_count   INTEGER NOT NULL DEFAULT 0,
    skipped_file_count INTEGER NOT NULL DEFAULT 0,
    status             TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE functions (
    id                     TEXT PRIMARY KEY,
    snapshot_id            TEXT NOT NULL,
    semantic_id            TEXT NOT NULL,
    content_id             TEXT NOT NULL,
    file                   TEXT NOT NULL,
    start_line             INTEGER NOT NULL,
    start_col              INTEGER NOT NULL,
    end_line               INTEGER NOT NULL,
    end_col                INTEGER NOT NULL,
    name                   TEXT NOT NULL,
    return_type            TEXT,
    is_async               INTEGER NOT NULL DEFAULT 0,
    is_generator           INTEGER NOT NULL DEFAULT 0,
    context_path           TEXT,
    kind                   TEXT NOT NULL,
    access                 TEXT NOT NULL,
    is_static              INTEGER NOT NULL DEFAULT 0,
    is_exported            INTEGER NOT NULL DEFAULT 0,
    cyclomatic_complexity  INTEGER,
    cognitive_complexity   INTEGER,
    lines_of_code          INTEGER,
    maintainability_index  REAL
);

CREATE TABLE function_parameters (
    function_id TEXT NOT NULL,
    position    INTEGER NOT NULL,
    name        TEXT NOT NULL,
    type_text   TEXT,
    optional    INTEGER NOT NULL DEFAULT 0,
    rest        INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (function_id, position)
);

CREATE TABLE call_edges (
    id                TEXT PRIMARY KEY,
    snapshot_id       TEXT NOT NULL,
    caller_id         TEXT NOT NULL,
    callee_id         TEXT,
    callee_name       TEXT NOT NULL,
    candidates        TEXT,
    file              TEXT NOT NULL,
    line              INTEGER NOT NULL,
    col               INTEGER NOT NULL,
    call_type         TEXT NOT NULL,
    context           TEXT NOT NULL,
    resolution        TEXT NOT NULL,
    confidence        REAL NOT NULL,
    is_async          INTEGER NOT NULL DEFAULT 0,
    is_chained        INTEGER NOT NULL DEFAULT 0,
    runtime_confirmed INTEGER NOT NULL DEFAULT 0,
    namespace         TEXT,
    property          TEXT
);

-- Materialized subset of call_edges where caller and callee share a file,
-- kept separate so intra-file queries (the common case for an editor
-- "find callers in this file" lookup) don't scan the whole edge set.
CREATE TABLE internal_call_edges (
    edge_id     TEXT PRIMARY KEY,
    snapshot_id TEXT NOT NULL,
    caller_id   TEXT NOT NULL,
    callee_id   TEXT NOT NULL,
    file        TEXT NOT NULL
);

CREATE TABLE type_definitions (
    id          TEXT PRIMARY KEY,
    snapshot_id TEXT NOT NULL,
    name        TEXT NOT NULL,
    kind        TEXT NOT NULL,
    file        TEXT NOT NULL,
    is_exported INTEGER NOT NULL DEFAULT 0,
    is_generic  INTEGER NOT NULL DEFAULT 0,
    start_line  INTEGER NOT NULL,
    start_col   INTEGER NOT NULL,
    end_line    INTEGER NOT NULL,
    end_col     INTEGER NOT NULL
);

CREATE TABLE type_members (
    id          TEXT PRIMARY KEY,
    snapshot_id TEXT NOT NULL,
    parent_type TEXT NOT NULL,
    name        TEXT NOT NULL,
    kind        TEXT NOT NULL,
    optional    INTEGER NOT NULL DEFAULT 0,
    readonly    INTEGER NOT NULL DEFAULT 0,
    static      INTEGER NOT NULL DEFAULT 0,
    abstract    INTEGER NOT NULL DEFAULT 0,
    function_id TEXT,
    signature   TEXT
);

CREATE TABLE type_relationships (
    id           TEXT PRIMARY KEY,
    snapshot_id  TEXT NOT NULL,
    from_type_id TEXT NOT NULL,
    to_type_id   TEXT NOT NULL,
    kind         TEXT NOT NULL
);

-- A subtype's member that shares a name with one inherited from a
-- supertype, written through Snapshot.SaveMethodOverrides. No pipeline
-- stage calls it, so a scan leaves this table empty.
CREATE TABLE method_overrides (
    id                  TEXT PRIMARY KEY,
    snapshot_id         TEXT NOT NULL,
    type_id             TEXT NOT NULL,
    member_id           TEXT NOT NULL,
    overrides_member_id TEXT NOT NULL
);

CREATE INDEX idx_functions_snapshot ON functions(snapshot_id);
CREATE INDEX idx_functions_file ON functions(file);
CREATE INDEX idx_functions_semantic ON functions(semantic_id);
CREATE INDEX idx_call_edges_snapshot ON call_edges(snapshot_id);
CREATE INDEX idx_call_edges_caller ON call_edges(caller_id);
CREATE INDEX idx_call_edges_callee ON call_edges(callee_id);
CREATE INDEX idx_internal_edges_caller ON internal_call_edges(caller_id);
CREATE INDEX idx_type_definitions_snapshot ON type_definitions(snapshot_id);
CREATE INDEX idx_type_definitions_name ON type_definitions(name);
CREATE INDEX idx_type_members_parent ON type_members(parent_type);
CREATE INDEX idx_type_relationships_from ON type_relationships(from_type_id);
CREATE INDEX idx_type_relationships_to ON type_relationships(to_type_id);
`

// migrate applies every migration above the database's current version, in
// a single immediate transaction per version so a mid-migration failure
// never leaves schema_migrations pointing past a half-applied version.
func migrate(conn *sqlite.Conn, nowFn func() string) error {
	var current int
	hasTable := 0
	_ = sqlitex.ExecuteTransient(conn,
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='schema_migrations'`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			hasTable = stmt.ColumnInt(0)
			return nil
		}})
	if hasTable == 1 {
		_ = sqlitex.ExecuteTransient(conn, `SELECT coalesce(max(version), 0) FROM schema_migrations`,
			&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
				current = stmt.ColumnInt(0)
				return nil
			}})
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		endFn, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return err
		}
		runErr := sqlitex.ExecuteScript(conn, m.ddl, nil)
		if runErr == nil {
			runErr = sqlitex.ExecuteTransient(conn,
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				&sqlitex.ExecOptions{Args: []any{m.version, nowFn()}})
		}
		endFn(&runErr)
		if runErr != nil {
			return runErr
		}
	}
	return nil
}
