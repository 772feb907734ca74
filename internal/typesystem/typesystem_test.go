package typesystem

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/frontend"
	"github.com/tscg-project/tscg/internal/registry"
)

func buildFixture(t *testing.T, files map[string]string) *Graph {
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
	project, errs := frontend.Load(root, frontend.Options{}, zap.NewNop())
	for _, e := range errs {
		t.Fatalf("unexpected parse error: %v", e)
	}
	reg, regErrs := registry.Collect(project)
	for _, e := range regErrs {
		t.Fatalf("unexpected registry error: %v", e)
	}
	return Build(project, reg, zap.NewNop())
}

func TestBuildCollectsClassAndInterfaceMembers(t *testing.T) {
	g := buildFixture(t, map[string]string{
		"a.ts": `
export interface Shape { area(): number; }
export class Circle implements Shape {
  radius: number;
  constructor(radius: number) { this.radius = radius; }
  area(): number { return this.radius; }
}
`,
	})

	shapes := g.TypeByName("Shape")
	if len(shapes) != 1 {
		t.Fatalf("expected one Shape type, got %d", len(shapes))
	}
	circles := g.TypeByName("Circle")
	if len(circles) != 1 {
		t.Fatalf("expected one Circle type, got %d", len(circles))
	}

	members := g.MembersOf(circles[0].ID)
	names := map[string]bool{}
	for _, m := range members {
		names[m.Name] = true
	}
	if !names["radius"] || !names["area"] || !names["constructor"] {
		t.Errorf("expected radius/area/constructor members on Circle, got %+v", members)
	}
}

func TestTransitiveSubtypesWalksExtendsAndImplements(t *testing.T) {
	g := buildFixture(t, map[string]string{
		"a.ts": `
export interface Shape { area(): number; }
export class BaseShape implements Shape { area(): number { return 0; } }
export class Circle extends BaseShape { }
`,
	})
	shape := g.TypeByName("Shape")[0]
	subs := g.TransitiveSubtypes(shape.ID)
	names := map[string]bool{}
	for _, s := range subs {
		names[s.Name] = true
	}
	if !names["BaseShape"] || !names["Circle"] {
		t.Errorf("expected BaseShape and Circle as transitive subtypes of Shape, got %+v", subs)
	}
}

func TestResolveMemberWalksSupertypeChain(t *testing.T) {
	g := buildFixture(t, map[string]string{
		"a.ts": `
export class Base { greet(): string { return "hi"; } }
export class Derived extends Base { }
`,
	})
	derived := g.TypeByName("Derived")[0]
	m := g.ResolveMember(derived.ID, "greet", 5)
	if m == nil {
		t.Fatal("expected greet to resolve via the extends chain")
	}
	if m.Name != "greet" {
		t.Errorf("expected member named greet, got %+v", m)
	}
}

func TestResolveMemberRespectsDepthBound(t *testing.T) {
	g := buildFixture(t, map[string]string{
		"a.ts": `
export class L0 { greet(): string { return "hi"; } }
export class L1 extends L0 { }
export class L2 extends L1 { }
export class L3 extends L2 { }
`,
	})
	l3 := g.TypeByName("L3")[0]
	if m := g.ResolveMember(l3.ID, "greet", 1); m != nil {
		t.Errorf("expected a depth bound of 1 to miss a member 3 hops up, got %+v", m)
	}
	if m := g.ResolveMember(l3.ID, "greet", 10); m == nil {
		t.Error("expected a generous depth bound to find greet")
	}
}

func TestBreakCyclesAndWarnStopsInfiniteRecursion(t *testing.T) {
	// A syntactically-impossible-in-real-TS cycle can still arise from two
	// files each misdeclaring the other as a supertype; the graph must not
	// recurse forever when asked to resolve through it.
	g := buildFixture(t, map[string]string{
		"a.ts": `export class A extends B { }`,
		"b.ts": `export class B extends A { }`,
	})
	a := g.TypeByName("A")[0]
	// Should terminate rather than infinite-loop; a nil-or-found result both
	// indicate the break-cycle logic ran.
	_ = g.ResolveMember(a.ID, "anything", 50)
}

func TestSnapshotIsDeterministicallyOrdered(t *testing.T) {
	g := buildFixture(t, map[string]string{
		"a.ts": `export class Zeta { } export class Alpha { }`,
	})
	defs, _, _ := g.Snapshot()
	for i := 1; i < len(defs); i++ {
		if defs[i-1].ID > defs[i].ID {
			t.Errorf("expected type definitions sorted by id, got %s before %s", defs[i-1].ID, defs[i].ID)
		}
	}
}
