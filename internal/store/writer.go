package store

import (
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/tscg-project/tscg/internal/errtax"
	"github.com/tscg-project/tscg/internal/model"
)

// Snapshot is an in-flight write transaction for one analysis run. A save
// method that fails records its error; Commit then rolls the whole
// snapshot back instead of committing it.
type Snapshot struct {
	store   *Store
	id      string
	endFn   func(*error)
	err     error
	counts  snapshotCounts
	logger  *zap.Logger
}

type snapshotCounts struct {
	functions, edges, types, unresolved, skippedFiles int
}

// BeginSnapshot opens the write transaction and inserts the snapshot's own
// row in 'pending' status. The row becomes visible to readers only once
// Commit succeeds; Abort rolls it back entirely.
func (s *Store) BeginSnapshot(meta model.Snapshot) (*Snapshot, error) {
	endFn, err := sqlitex.ImmediateTransaction(s.conn)
	if err != nil {
		return nil, &errtax.StorageError{Op: "begin_snapshot", Err: err}
	}

	insertErr := sqlitex.ExecuteTransient(s.conn,
		`INSERT INTO snapshots (id, created_at, label, source_root, config_hash, git_commit, git_branch, git_tag, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
		&sqlitex.ExecOptions{Args: []any{
			meta.ID, meta.CreatedAt.UTC().Format(time.RFC3339), meta.Label, meta.SourceRoot, meta.ConfigHash,
			meta.Git.Commit, meta.Git.Branch, meta.Git.Tag,
		}})
	if insertErr != nil {
		endFn(&insertErr)
		return nil, &errtax.StorageError{Op: "begin_snapshot", Err: insertErr}
	}

	return &Snapshot{store: s, id: meta.ID, endFn: endFn, logger: s.logger}, nil
}

// SaveFunctions batch-inserts the Function Registry's output and its
// per-function parameter rows.
func (tx *Snapshot) SaveFunctions(functions []*model.Function) error {
	fnStmt, err := tx.store.conn.Prepare(`
		INSERT INTO functions (id, snapshot_id, semantic_id, content_id, file, start_line, start_col,
		  end_line, end_col, name, return_type, is_async, is_generator, context_path, kind, access,
		  is_static, is_exported, cyclomatic_complexity, cognitive_complexity, lines_of_code, maintainability_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return tx.fail("prepare functions", err)
	}
	defer func() { _ = fnStmt.Finalize() }()

	paramStmt, err := tx.store.conn.Prepare(`
		INSERT INTO function_parameters (function_id, position, name, type_text, optional, rest)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return tx.fail("prepare function_parameters", err)
	}
	defer func() { _ = paramStmt.Finalize() }()

	for _, fn := range functions {
		fnStmt.BindText(1, fn.PhysicalID)
		fnStmt.BindText(2, tx.id)
		fnStmt.BindText(3, fn.SemanticID)
		fnStmt.BindText(4, fn.ContentID)
		fnStmt.BindText(5, fn.File)
		fnStmt.BindInt64(6, int64(fn.StartLine))
		fnStmt.BindInt64(7, int64(fn.StartCol))
		fnStmt.BindInt64(8, int64(fn.EndLine))
		fnStmt.BindInt64(9, int64(fn.EndCol))
		fnStmt.BindText(10, fn.Name)
		bindTextOrNull(fnStmt, 11, fn.ReturnType)
		fnStmt.BindInt64(12, boolInt(fn.IsAsync))
		fnStmt.BindInt64(13, boolInt(fn.IsGenerator))
		bindTextOrNull(fnStmt, 14, fn.ContextPath)
		fnStmt.BindText(15, string(fn.Kind))
		fnStmt.BindText(16, string(fn.Access))
		fnStmt.BindInt64(17, boolInt(fn.IsStatic))
		fnStmt.BindInt64(18, boolInt(fn.IsExported))
		bindIntOrNull(fnStmt, 19, fn.Metrics.CyclomaticComplexity)
		bindIntOrNull(fnStmt, 20, fn.Metrics.CognitiveComplexity)
		bindIntOrNull(fnStmt, 21, fn.Metrics.LinesOfCode)
		if fn.Metrics.MaintainabilityIndex == 0 {
			fnStmt.BindNull(22)
		} else {
			fnStmt.BindFloat(22, fn.Metrics.MaintainabilityIndex)
		}
		if _, err := fnStmt.Step(); err != nil {
			return tx.fail("insert function "+fn.PhysicalID, err)
		}
		_ = fnStmt.Reset()

		for _, p := range fn.Parameters {
			paramStmt.BindText(1, fn.PhysicalID)
			paramStmt.BindInt64(2, int64(p.Position))
			paramStmt.BindText(3, p.Name)
			bindTextOrNull(paramStmt, 4, p.TypeText)
			paramStmt.BindInt64(5, boolInt(p.Optional))
			paramStmt.BindInt64(6, boolInt(p.Rest))
			if _, err := paramStmt.Step(); err != nil {
				return tx.fail("insert parameter", err)
			}
			_ = paramStmt.Reset()
		}
	}

	tx.counts.functions += len(functions)
	return nil
}

// SaveEdges batch-inserts call edges and the internal_call_edges subset
// whose caller and callee share a file. calleeFile looks up a resolved
// callee's file by id (the pipeline driver backs this with the Function
// Registry); it's never consulted for calleeless edges.
func (tx *Snapshot) SaveEdges(edges []model.CallEdge, calleeFile func(calleeID string) string) error {
	stmt, err := tx.store.conn.Prepare(`
		INSERT INTO call_edges (id, snapshot_id, caller_id, callee_id, callee_name, candidates, file, line, col,
		  call_type, context, resolution, confidence, is_async, is_chained, runtime_confirmed, namespace, property)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return tx.fail("prepare call_edges", err)
	}
	defer func() { _ = stmt.Finalize() }()

	internalStmt, err := tx.store.conn.Prepare(`
		INSERT INTO internal_call_edges (edge_id, snapshot_id, caller_id, callee_id, file) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return tx.fail("prepare internal_call_edges", err)
	}
	defer func() { _ = internalStmt.Finalize() }()

	for _, e := range edges {
		var candidatesJSON string
		if len(e.Candidates) > 0 {
			b, _ := json.Marshal(e.Candidates)
			candidatesJSON = string(b)
		}

		stmt.BindText(1, e.ID)
		stmt.BindText(2, tx.id)
		stmt.BindText(3, e.CallerID)
		bindTextOrNull(stmt, 4, e.CalleeID)
		stmt.BindText(5, e.CalleeName)
		bindTextOrNull(stmt, 6, candidatesJSON)
		stmt.BindText(7, e.File)
		stmt.BindInt64(8, int64(e.Line))
		stmt.BindInt64(9, int64(e.Col))
		stmt.BindText(10, string(e.CallType))
		stmt.BindText(11, string(e.Context))
		stmt.BindText(12, string(e.Resolution))
		stmt.BindFloat(13, e.Confidence)
		stmt.BindInt64(14, boolInt(e.IsAsync))
		stmt.BindInt64(15, boolInt(e.IsChained))
		stmt.BindInt64(16, boolInt(e.RuntimeConfirmed))
		bindTextOrNull(stmt, 17, e.Namespace)
		bindTextOrNull(stmt, 18, e.Property)
		if _, err := stmt.Step(); err != nil {
			return tx.fail("insert edge "+e.ID, err)
		}
		_ = stmt.Reset()

		if e.CalleeID != "" && calleeFile(e.CalleeID) == e.File {
			internalStmt.BindText(1, e.ID)
			internalStmt.BindText(2, tx.id)
			internalStmt.BindText(3, e.CallerID)
			internalStmt.BindText(4, e.CalleeID)
			internalStmt.BindText(5, e.File)
			if _, err := internalStmt.Step(); err != nil {
				return tx.fail("insert internal edge "+e.ID, err)
			}
			_ = internalStmt.Reset()
		}
	}

	tx.counts.edges += len(edges)
	return nil
}

// SaveTypeSystem batch-inserts the type graph: definitions, members, and
// heritage relationships.
func (tx *Snapshot) SaveTypeSystem(defs []model.TypeDefinition, members []model.TypeMember, rels []model.TypeRelationship) error {
	defStmt, err := tx.store.conn.Prepare(`
		INSERT INTO type_definitions (id, snapshot_id, name, kind, file, is_exported, is_generic,
		  start_line, start_col, end_line, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return tx.fail("prepare type_definitions", err)
	}
	defer func() { _ = defStmt.Finalize() }()

	for _, td := range defs {
		defStmt.BindText(1, td.ID)
		defStmt.BindText(2, tx.id)
		defStmt.BindText(3, td.Name)
		defStmt.BindText(4, string(td.Kind))
		defStmt.BindText(5, td.File)
		defStmt.BindInt64(6, boolInt(td.IsExported))
		defStmt.BindInt64(7, boolInt(td.IsGeneric))
		defStmt.BindInt64(8, int64(td.StartLine))
		defStmt.BindInt64(9, int64(td.StartCol))
		defStmt.BindInt64(10, int64(td.EndLine))
		defStmt.BindInt64(11, int64(td.EndCol))
		if _, err := defStmt.Step(); err != nil {
			return tx.fail("insert type "+td.ID, err)
		}
		_ = defStmt.Reset()
	}

	memberStmt, err := tx.store.conn.Prepare(`
		INSERT INTO type_members (id, snapshot_id, parent_type, name, kind, optional, readonly, static,
		  abstract, function_id, signature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return tx.fail("prepare type_members", err)
	}
	defer func() { _ = memberStmt.Finalize() }()

	for _, m := range members {
		memberStmt.BindText(1, m.ID)
		memberStmt.BindText(2, tx.id)
		memberStmt.BindText(3, m.ParentType)
		memberStmt.BindText(4, m.Name)
		memberStmt.BindText(5, string(m.Kind))
		memberStmt.BindInt64(6, boolInt(m.Optional))
		memberStmt.BindInt64(7, boolInt(m.Readonly))
		memberStmt.BindInt64(8, boolInt(m.Static))
		memberStmt.BindInt64(9, boolInt(m.Abstract))
		bindTextOrNull(memberStmt, 10, m.FunctionID)
		bindTextOrNull(memberStmt, 11, m.Signature)
		if _, err := memberStmt.Step(); err != nil {
			return tx.fail("insert member "+m.ID, err)
		}
		_ = memberStmt.Reset()
	}

	relStmt, err := tx.store.conn.Prepare(`
		INSERT INTO type_relationships (id, snapshot_id, from_type_id, to_type_id, kind) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return tx.fail("prepare type_relationships", err)
	}
	defer func() { _ = relStmt.Finalize() }()

	for _, r := range rels {
		relStmt.BindText(1, r.ID)
		relStmt.BindText(2, tx.id)
		relStmt.BindText(3, r.FromTypeID)
		relStmt.BindText(4, r.ToTypeID)
		relStmt.BindText(5, string(r.Kind))
		if _, err := relStmt.Step(); err != nil {
			return tx.fail("insert relationship "+r.ID, err)
		}
		_ = relStmt.Reset()
	}

	tx.counts.types += len(defs)
	return nil
}

// SaveMethodOverrides records one subtype member that shares a name with a
// member inherited from a supertype. No pipeline stage calls it; the
// DB-Bridge stage does not compute overrides.
func (tx *Snapshot) SaveMethodOverrides(typeID, memberID, overridesMemberID string) error {
	id := model.TypeMemberID(typeID, memberID+"/overrides/"+overridesMemberID)
	err := sqlitex.ExecuteTransient(tx.store.conn,
		`INSERT OR IGNORE INTO method_overrides (id, snapshot_id, type_id, member_id, overrides_member_id) VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{id, tx.id, typeID, memberID, overridesMemberID}})
	if err != nil {
		return tx.fail("insert method_override", err)
	}
	return nil
}

// SetUnresolvedCount and SetSkippedFileCount record the run's residual
// counts, written into the snapshot row at Commit.
func (tx *Snapshot) SetUnresolvedCount(n int)   { tx.counts.unresolved = n }
func (tx *Snapshot) SetSkippedFileCount(n int)  { tx.counts.skippedFiles = n }

// Commit validates the snapshot's call edges, then finalizes the snapshot
// row with its entity counts and marks it committed.
func (tx *Snapshot) Commit() error {
	if tx.err != nil {
		return tx.Abort(tx.err)
	}
	if integrityErr := tx.store.ValidateIntegrity(tx.id); integrityErr != nil {
		tx.endFn(&integrityErr)
		return integrityErr
	}
	updateErr := sqlitex.ExecuteTransient(tx.store.conn,
		`UPDATE snapshots SET function_count=?, edge_count=?, type_count=?, unresolved_count=?, skipped_file_count=?, status='committed' WHERE id=?`,
		&sqlitex.ExecOptions{Args: []any{
			tx.counts.functions, tx.counts.edges, tx.counts.types, tx.counts.unresolved, tx.counts.skippedFiles, tx.id,
		}})
	tx.endFn(&updateErr)
	if updateErr != nil {
		return &errtax.StorageError{Op: "commit_snapshot", Err: updateErr}
	}
	if tx.logger != nil {
		tx.logger.Info("snapshot committed",
			zap.String("snapshot_id", tx.id),
			zap.Int("functions", tx.counts.functions),
			zap.Int("edges", tx.counts.edges),
			zap.Int("types", tx.counts.types))
	}
	return nil
}

// Abort rolls back every write this transaction made, including the
// snapshot's own row: a snapshot never partially exists.
func (tx *Snapshot) Abort(cause error) error {
	if cause == nil {
		// endFn commits on a nil error; Abort must always roll back.
		cause = errors.New("snapshot aborted")
	}
	tx.endFn(&cause)
	return &errtax.StorageError{Op: "abort_snapshot", Err: cause}
}

func (tx *Snapshot) fail(op string, err error) error {
	tx.err = &errtax.StorageError{Op: op, Err: err}
	return tx.err
}
