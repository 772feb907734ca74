package callgraph

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/config"
	"github.com/tscg-project/tscg/internal/frontend"
	"github.com/tscg-project/tscg/internal/model"
	"github.com/tscg-project/tscg/internal/registry"
	"github.com/tscg-project/tscg/internal/typesystem"
)

// writeFixture lays out a small TypeScript project under a temp directory
// and returns its root.
func writeFixture(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

type harness struct {
	project *frontend.Project
	reg     *registry.Registry
	graph   *typesystem.Graph
	state   *State
	logger  *zap.Logger
}

func loadHarness(t *testing.T, root string) *harness {
	t.Helper()
	logger := zap.NewNop()
	project, parseErrors := frontend.Load(root, frontend.Options{}, logger)
	for _, e := range parseErrors {
		t.Fatalf("unexpected parse error: %v", e)
	}
	reg, regErrors := registry.Collect(project)
	for _, e := range regErrors {
		t.Fatalf("unexpected registry error: %v", e)
	}
	graph := typesystem.Build(project, reg, logger)
	return &harness{project: project, reg: reg, graph: graph, state: NewState(), logger: logger}
}

func (h *harness) run(t *testing.T, stages ...func() error) {
	t.Helper()
	for _, stage := range stages {
		if err := stage(); err != nil {
			t.Fatalf("stage failed: %v", err)
		}
	}
}

func findEdge(edges []model.CallEdge, calleeName string) *model.CallEdge {
	for i := range edges {
		if edges[i].CalleeName == calleeName {
			return &edges[i]
		}
	}
	return nil
}

// Scenario: a local direct call between two free functions in the same file
// resolves at Stage 1 with full confidence.
func TestScenarioLocalDirectCall(t *testing.T) {
	root := writeFixture(t, map[string]string{
		"a.ts": `
function helper(): number { return 1; }
function main(): number { return helper(); }
`,
	})
	h := loadHarness(t, root)
	h.run(t, func() error { return RunStage1(h.project, h.reg, h.state, h.logger) })

	edge := findEdge(h.state.Edges(), "helper")
	if edge == nil {
		t.Fatal("expected a resolved edge to helper")
	}
	if edge.Resolution != model.ResolutionLocalExact || edge.Confidence != 1.0 {
		t.Errorf("expected local_exact/1.0, got %s/%v", edge.Resolution, edge.Confidence)
	}
}

// Scenario: a cross-file import call resolves at Stage 2.
func TestScenarioCrossFileImportCall(t *testing.T) {
	root := writeFixture(t, map[string]string{
		"lib.ts":  `export function greet(): string { return "hi"; }`,
		"main.ts": `import { greet } from "./lib"; export function run(): string { return greet(); }`,
	})
	h := loadHarness(t, root)
	h.run(t,
		func() error { return RunStage1(h.project, h.reg, h.state, h.logger) },
		func() error { return RunStage2(h.project, h.reg, h.state, h.logger) },
	)

	edge := findEdge(h.state.Edges(), "greet")
	if edge == nil {
		t.Fatal("expected a resolved edge to greet")
	}
	if edge.Resolution != model.ResolutionImportExact {
		t.Errorf("expected import_exact, got %s", edge.Resolution)
	}
}

// Scenario: CHA over an interface with two implementers, both instantiated
// along reachable paths, resolves the call with both implementers as
// candidates; RTA keeps both since each class is instantiated.
func TestScenarioCHAWithInstantiatedImplementers(t *testing.T) {
	root := writeFixture(t, map[string]string{
		"shapes.ts": `
export interface Shape { area(): number; }
export class Circle implements Shape { area(): number { return 1; } }
export class Square implements Shape { area(): number { return 2; } }
export function main(): number {
  const s: Shape = new Circle();
  return s.area();
}
export function instantiateSquare(): Square { return new Square(); }
`,
	})
	h := loadHarness(t, root)
	h.run(t,
		func() error { return RunStage1(h.project, h.reg, h.state, h.logger) },
		func() error { return RunStage2(h.project, h.reg, h.state, h.logger) },
		func() error { return RunStage3(h.graph, h.reg, h.state, h.logger) },
		func() error { return RunStage4(h.reg, h.state, h.logger) },
	)

	edge := findEdge(h.state.Edges(), "area")
	if edge == nil {
		t.Fatal("expected an edge for s.area()")
	}
	if len(edge.Candidates) < 2 {
		t.Errorf("expected CHA to surface both Circle.area and Square.area as candidates, got %d", len(edge.Candidates))
	}
}

// Scenario: CHA over an interface where only one implementer is ever
// instantiated: RTA narrows the candidates to that implementer's method and
// drops the other.
func TestScenarioCHANonInstantiatedImplementerPruned(t *testing.T) {
	root := writeFixture(t, map[string]string{
		"shapes.ts": `
export interface Shape { area(): number; }
export class Circle implements Shape { area(): number { return 1; } }
export class Square implements Shape { area(): number { return 2; } }
export function main(): number {
  const s: Shape = new Circle();
  return s.area();
}
`,
	})
	h := loadHarness(t, root)
	h.run(t,
		func() error { return RunStage1(h.project, h.reg, h.state, h.logger) },
		func() error { return RunStage2(h.project, h.reg, h.state, h.logger) },
		func() error { return RunStage3(h.graph, h.reg, h.state, h.logger) },
		func() error { return RunStage4(h.reg, h.state, h.logger) },
	)

	edge := findEdge(h.state.Edges(), "area")
	if edge == nil {
		t.Fatal("expected an edge for s.area()")
	}
	if edge.Resolution != model.ResolutionRTAResolved {
		t.Errorf("expected RTA to narrow the edge to rta_resolved since only Circle is instantiated, got %s", edge.Resolution)
	}
	if len(edge.Candidates) != 1 {
		t.Errorf("expected only Circle.area kept as a candidate since Square is never instantiated, got %d", len(edge.Candidates))
	}
}

// Scenario: a call on a known global namespace is recognized externally by
// Stage 6 with no project-local callee.
func TestScenarioExternalGlobalCall(t *testing.T) {
	root := writeFixture(t, map[string]string{
		"a.ts": `export function log(x: string): void { console.log(x); }`,
	})
	h := loadHarness(t, root)
	h.run(t,
		func() error { return RunStage1(h.project, h.reg, h.state, h.logger) },
		func() error { return RunStage2(h.project, h.reg, h.state, h.logger) },
		func() error { return RunStage3(h.graph, h.reg, h.state, h.logger) },
		func() error { return RunStage4(h.reg, h.state, h.logger) },
		func() error { return RunStage6(h.state, h.logger) },
	)

	edge := findEdge(h.state.Edges(), "log")
	if edge == nil {
		t.Fatal("expected an external edge for console.log")
	}
	if edge.Resolution != model.ResolutionExternalDetected || edge.CalleeID != "" {
		t.Errorf("expected external_detected with no project callee, got %s / %q", edge.Resolution, edge.CalleeID)
	}
	if edge.Namespace != "console" {
		t.Errorf("expected namespace 'console', got %q", edge.Namespace)
	}
}

// Scenario: a Commander-style `.action(handler)` callback registration is
// recognized by Stage 7 and resolved to the handler's declaration.
func TestScenarioCallbackRegistration(t *testing.T) {
	root := writeFixture(t, map[string]string{
		"cli.ts": `
function handler(): void { return; }
export function setup(program: any): void {
  program.command("x").action(handler);
}
`,
	})
	h := loadHarness(t, root)
	cfg := config.Default()
	h.run(t,
		func() error { return RunStage1(h.project, h.reg, h.state, h.logger) },
		func() error { return RunStage2(h.project, h.reg, h.state, h.logger) },
		func() error { return RunStage3(h.graph, h.reg, h.state, h.logger) },
		func() error { return RunStage4(h.reg, h.state, h.logger) },
		func() error { return RunStage6(h.state, h.logger) },
		func() error { return RunStage7(h.project, h.reg, cfg.CallbackPatterns, h.state, h.logger) },
	)

	edge := findEdge(h.state.Edges(), "handler")
	if edge == nil {
		t.Fatal("expected a virtual callback edge to handler")
	}
	if edge.Resolution != model.ResolutionVirtualCallback {
		t.Errorf("expected virtual_callback, got %s", edge.Resolution)
	}
	if edge.CalleeID == "" {
		t.Error("expected the identifier argument to resolve to handler's declaration")
	}
}

// RunStage5 with no trace events is a clean no-op, and with trace events
// upgrades the matching static edge to a runtime-confirmed one.
func TestScenarioRuntimeTraceConfirmsStaticEdge(t *testing.T) {
	root := writeFixture(t, map[string]string{
		"a.ts": `
function helper(): number { return 1; }
function main(): number { return helper(); }
`,
	})
	h := loadHarness(t, root)
	h.run(t, func() error { return RunStage1(h.project, h.reg, h.state, h.logger) })

	before := findEdge(h.state.Edges(), "helper")
	if before == nil {
		t.Fatal("expected a resolved static edge before tracing")
	}
	trace := []TraceEvent{{CallerID: before.CallerID, CalleeID: before.CalleeID, Line: before.Line, Col: before.Col}}

	if err := RunStage5(trace, h.state, h.logger); err != nil {
		t.Fatalf("RunStage5: %v", err)
	}

	after := findEdge(h.state.Edges(), "helper")
	if after == nil || !after.RuntimeConfirmed || after.Confidence != 1.0 {
		t.Fatal("expected the static edge to be upgraded to runtime-confirmed")
	}
}
