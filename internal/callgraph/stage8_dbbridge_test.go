package callgraph

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/frontend"
	"github.com/tscg-project/tscg/internal/model"
	"github.com/tscg-project/tscg/internal/registry"
	"github.com/tscg-project/tscg/internal/store"
)

// liveRegistry parses a project whose only declaration is Widget.render, so
// RunStage8's current-run registry filter has exactly the function the
// prior snapshot also persisted under the same physical id (same file,
// position, and kind always hash to the same id).
func liveRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	root := writeFixture(t, map[string]string{
		"lib/widget.ts": "class Widget {\n  render() {\n    return 1;\n  }\n}\n",
	})
	project, parseErrors := frontend.Load(root, frontend.Options{}, zap.NewNop())
	for _, e := range parseErrors {
		t.Fatalf("unexpected parse error: %v", e)
	}
	reg, regErrors := registry.Collect(project)
	for _, e := range regErrors {
		t.Fatalf("unexpected registry error: %v", e)
	}
	return reg
}

func seedPriorSnapshot(t *testing.T, renderID string) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prior.db")
	db, err := store.Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	tx, err := db.BeginSnapshot(model.Snapshot{ID: "prior", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("BeginSnapshot: %v", err)
	}

	fn := &model.Function{PhysicalID: renderID, File: "/lib/widget.ts", Name: "render", Kind: model.KindMethod}
	if err := tx.SaveFunctions([]*model.Function{fn}); err != nil {
		t.Fatalf("SaveFunctions: %v", err)
	}

	defs := []model.TypeDefinition{
		{ID: "typ:widget", Name: "Widget", Kind: model.TypeClass, File: "/lib/widget.ts"},
	}
	members := []model.TypeMember{
		{ID: "mem:render", ParentType: "typ:widget", Name: "render", Kind: model.MemberMethod, FunctionID: renderID},
	}
	if err := tx.SaveTypeSystem(defs, members, nil); err != nil {
		t.Fatalf("SaveTypeSystem: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return db
}

func TestRunStage8ResolvesAcrossPriorSnapshot(t *testing.T) {
	reg := liveRegistry(t)
	render := reg.All()[0]

	db := seedPriorSnapshot(t, render.PhysicalID)
	state := NewState()
	state.UnresolvedAfterCHA = []MethodCandidate{
		{CallerID: "fn:caller", ReceiverType: "Widget", MethodName: "render", File: "/main.ts", Line: 10, Col: 2},
	}

	if err := RunStage8(db, "prior", state, reg, zap.NewNop()); err != nil {
		t.Fatalf("RunStage8: %v", err)
	}

	edges := state.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected one resolved edge, got %d", len(edges))
	}
	if edges[0].Resolution != model.ResolutionDBBridge || edges[0].CalleeID != render.PhysicalID {
		t.Errorf("expected db_bridge resolution to %s, got %+v", render.PhysicalID, edges[0])
	}
	if len(state.UnresolvedAfterCHA) != 0 {
		t.Errorf("expected the candidate to be consumed, got %d left unresolved", len(state.UnresolvedAfterCHA))
	}
}

func TestRunStage8DropsCandidateAbsentFromCurrentRegistry(t *testing.T) {
	db := seedPriorSnapshot(t, "fn:stale-render")
	reg := registry.New() // current run never loaded widget.ts at all
	state := NewState()
	state.UnresolvedAfterCHA = []MethodCandidate{
		{CallerID: "fn:caller", ReceiverType: "Widget", MethodName: "render", File: "/main.ts", Line: 10, Col: 2},
	}

	if err := RunStage8(db, "prior", state, reg, zap.NewNop()); err != nil {
		t.Fatalf("RunStage8: %v", err)
	}
	if len(state.Edges()) != 0 {
		t.Fatalf("expected no edge for a callee id absent from the current registry, got %d", len(state.Edges()))
	}
	if len(state.UnresolvedAfterCHA) != 1 {
		t.Fatalf("expected the candidate to remain unresolved, got %d", len(state.UnresolvedAfterCHA))
	}
}

func TestRunStage8LeavesUnknownReceiverUnresolved(t *testing.T) {
	reg := liveRegistry(t)
	render := reg.All()[0]
	db := seedPriorSnapshot(t, render.PhysicalID)
	state := NewState()
	state.UnresolvedAfterCHA = []MethodCandidate{
		{CallerID: "fn:caller", ReceiverType: "Nonexistent", MethodName: "render", File: "/main.ts", Line: 1, Col: 0},
	}

	if err := RunStage8(db, "prior", state, reg, zap.NewNop()); err != nil {
		t.Fatalf("RunStage8: %v", err)
	}
	if len(state.Edges()) != 0 {
		t.Fatalf("expected no edge for an unknown receiver type, got %d", len(state.Edges()))
	}
	if len(state.UnresolvedAfterCHA) != 1 {
		t.Fatalf("expected the candidate to remain unresolved, got %d", len(state.UnresolvedAfterCHA))
	}
}

func TestRunStage8NoOpWithoutPriorSnapshot(t *testing.T) {
	state := NewState()
	state.UnresolvedAfterCHA = []MethodCandidate{
		{CallerID: "fn:caller", ReceiverType: "Widget", MethodName: "render", File: "/main.ts", Line: 1, Col: 0},
	}
	if err := RunStage8(nil, "", state, registry.New(), zap.NewNop()); err != nil {
		t.Fatalf("RunStage8: %v", err)
	}
	if len(state.UnresolvedAfterCHA) != 1 {
		t.Fatalf("expected the pending candidate to be untouched when no prior snapshot is configured, got %d", len(state.UnresolvedAfterCHA))
	}
}
