package store

import (
	"fmt"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/tscg-project/tscg/internal/errtax"
)

// FunctionRow is a flattened read-path projection of the functions table.
// The read path returns no full model.Function; parameters are not read
// back.
type FunctionRow struct {
	ID, Name, File, Kind string
	StartLine, EndLine   int
	IsExported           bool
}

// FunctionsBySnapshot lists every function recorded under a snapshot, in
// file/position order.
func (s *Store) FunctionsBySnapshot(snapshotID string) ([]FunctionRow, error) {
	var out []FunctionRow
	err := sqlitex.ExecuteTransient(s.conn,
		`SELECT id, name, file, kind, start_line, end_line, is_exported FROM functions
		 WHERE snapshot_id = ? ORDER BY file, start_line`,
		&sqlitex.ExecOptions{Args: []any{snapshotID}, ResultFunc: func(stmt *sqlite.Stmt) error {
			out = append(out, FunctionRow{
				ID: stmt.ColumnText(0), Name: stmt.ColumnText(1), File: stmt.ColumnText(2), Kind: stmt.ColumnText(3),
				StartLine: stmt.ColumnInt(4), EndLine: stmt.ColumnInt(5), IsExported: stmt.ColumnInt(6) == 1,
			})
			return nil
		}})
	if err != nil {
		return nil, &errtax.StorageError{Op: "functions_by_snapshot", Err: err}
	}
	return out, nil
}

// EdgeRow is a flattened read-path projection of the call_edges table.
type EdgeRow struct {
	ID, CallerID, CalleeID, CalleeName string
	Resolution                        string
	Confidence                        float64
}

// EdgesByCaller lists every edge whose caller is callerID.
func (s *Store) EdgesByCaller(snapshotID, callerID string) ([]EdgeRow, error) {
	var out []EdgeRow
	err := sqlitex.ExecuteTransient(s.conn,
		`SELECT id, caller_id, coalesce(callee_id, ''), callee_name, resolution, confidence
		 FROM call_edges WHERE snapshot_id = ? AND caller_id = ? ORDER BY line, col`,
		&sqlitex.ExecOptions{Args: []any{snapshotID, callerID}, ResultFunc: func(stmt *sqlite.Stmt) error {
			out = append(out, EdgeRow{
				ID: stmt.ColumnText(0), CallerID: stmt.ColumnText(1), CalleeID: stmt.ColumnText(2),
				CalleeName: stmt.ColumnText(3), Resolution: stmt.ColumnText(4), Confidence: stmt.ColumnFloat(5),
			})
			return nil
		}})
	if err != nil {
		return nil, &errtax.StorageError{Op: "edges_by_caller", Err: err}
	}
	return out, nil
}

// TypeRow is a flattened read-path projection of the type_definitions table.
type TypeRow struct {
	ID, Name, Kind, File string
	IsExported           bool
}

// TypeByName finds type definitions by exact name within a snapshot
// (ambiguous when the same name is declared in more than one file).
func (s *Store) TypeByName(snapshotID, name string) ([]TypeRow, error) {
	var out []TypeRow
	err := sqlitex.ExecuteTransient(s.conn,
		`SELECT id, name, kind, file, is_exported FROM type_definitions WHERE snapshot_id = ? AND name = ?`,
		&sqlitex.ExecOptions{Args: []any{snapshotID, name}, ResultFunc: func(stmt *sqlite.Stmt) error {
			out = append(out, TypeRow{
				ID: stmt.ColumnText(0), Name: stmt.ColumnText(1), Kind: stmt.ColumnText(2), File: stmt.ColumnText(3),
				IsExported: stmt.ColumnInt(4) == 1,
			})
			return nil
		}})
	if err != nil {
		return nil, &errtax.StorageError{Op: "type_by_name", Err: err}
	}
	return out, nil
}

// MemberRow is a flattened read-path projection of the type_members table.
type MemberRow struct {
	ID, Name, Kind, FunctionID string
}

// MembersOf lists every member declared directly on typeID (no inheritance
// walk; callers combine this with type_relationships for the full set).
func (s *Store) MembersOf(typeID string) ([]MemberRow, error) {
	var out []MemberRow
	err := sqlitex.ExecuteTransient(s.conn,
		`SELECT id, name, kind, coalesce(function_id, '') FROM type_members WHERE parent_type = ?`,
		&sqlitex.ExecOptions{Args: []any{typeID}, ResultFunc: func(stmt *sqlite.Stmt) error {
			out = append(out, MemberRow{
				ID: stmt.ColumnText(0), Name: stmt.ColumnText(1), Kind: stmt.ColumnText(2), FunctionID: stmt.ColumnText(3),
			})
			return nil
		}})
	if err != nil {
		return nil, &errtax.StorageError{Op: "members_of", Err: err}
	}
	return out, nil
}

// ValidateIntegrity checks that every call edge recorded under snapshotID
// whose callee_id is non-null resolves to a function in that same
// snapshot. A dangling callee_id - one pointing at an id absent from the
// snapshot's own functions table - must never be committed or read back;
// callers run this at Commit time and may also re-run it against an
// already-committed snapshot before trusting its edges.
func (s *Store) ValidateIntegrity(snapshotID string) error {
	var dangling []string
	err := sqlitex.ExecuteTransient(s.conn,
		`SELECT e.id, e.callee_id FROM call_edges e
		 WHERE e.snapshot_id = ? AND e.callee_id IS NOT NULL
		 AND NOT EXISTS (
		   SELECT 1 FROM functions f WHERE f.id = e.callee_id AND f.snapshot_id = e.snapshot_id
		 )`,
		&sqlitex.ExecOptions{Args: []any{snapshotID}, ResultFunc: func(stmt *sqlite.Stmt) error {
			dangling = append(dangling, fmt.Sprintf("%s->%s", stmt.ColumnText(0), stmt.ColumnText(1)))
			return nil
		}})
	if err != nil {
		return &errtax.StorageError{Op: "validate_integrity", Err: err}
	}
	if len(dangling) > 0 {
		return &errtax.IntegrityError{Detail: fmt.Sprintf(
			"snapshot %s has %d dangling call edge(s): %s", snapshotID, len(dangling), strings.Join(dangling, ", "),
		)}
	}
	return nil
}

// ImplementersOf lists every type that transitively extends or implements
// typeID, by walking type_relationships' to_type_id edges backward.
func (s *Store) ImplementersOf(snapshotID, typeID string) ([]TypeRow, error) {
	frontier := []string{typeID}
	seen := map[string]bool{typeID: true}
	var out []TypeRow

	for len(frontier) > 0 {
		var next []string
		for _, id := range frontier {
			err := sqlitex.ExecuteTransient(s.conn,
				`SELECT td.id, td.name, td.kind, td.file, td.is_exported
				 FROM type_relationships r JOIN type_definitions td ON td.id = r.from_type_id
				 WHERE r.snapshot_id = ? AND r.to_type_id = ?`,
				&sqlitex.ExecOptions{Args: []any{snapshotID, id}, ResultFunc: func(stmt *sqlite.Stmt) error {
					childID := stmt.ColumnText(0)
					if seen[childID] {
						return nil
					}
					seen[childID] = true
					next = append(next, childID)
					out = append(out, TypeRow{
						ID: childID, Name: stmt.ColumnText(1), Kind: stmt.ColumnText(2), File: stmt.ColumnText(3),
						IsExported: stmt.ColumnInt(4) == 1,
					})
					return nil
				}})
			if err != nil {
				return nil, &errtax.StorageError{Op: "implementers_of", Err: err}
			}
		}
		frontier = next
	}
	return out, nil
}
