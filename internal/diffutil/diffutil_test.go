package diffutil

import (
	"strings"
	"testing"

	"github.com/tscg-project/tscg/internal/store"
)

func TestSnapshotDiffIdenticalProducesEmptyOutput(t *testing.T) {
	rows := []store.FunctionRow{
		{Name: "foo", File: "a.ts", Kind: "function", StartLine: 1, EndLine: 3},
	}
	before := Snapshot{ID: "s1", Functions: rows}
	after := Snapshot{ID: "s2", Functions: rows}

	out, err := SnapshotDiff(before, after)
	if err != nil {
		t.Fatalf("SnapshotDiff: %v", err)
	}
	if out != "" {
		t.Fatalf("expected empty diff for identical snapshots, got %q", out)
	}
}

func TestSnapshotDiffMarksAddedAndRemovedFunctions(t *testing.T) {
	before := Snapshot{ID: "before", Functions: []store.FunctionRow{
		{Name: "removed", File: "a.ts", Kind: "function", StartLine: 1, EndLine: 2},
		{Name: "kept", File: "a.ts", Kind: "function", StartLine: 4, EndLine: 6},
	}}
	after := Snapshot{ID: "after", Functions: []store.FunctionRow{
		{Name: "kept", File: "a.ts", Kind: "function", StartLine: 4, EndLine: 6},
		{Name: "added", File: "a.ts", Kind: "function", StartLine: 8, EndLine: 9},
	}}

	out, err := SnapshotDiff(before, after)
	if err != nil {
		t.Fatalf("SnapshotDiff: %v", err)
	}
	if !strings.Contains(out, "-function removed") {
		t.Errorf("expected a removed line for 'removed', got:\n%s", out)
	}
	if !strings.Contains(out, "+function added") {
		t.Errorf("expected an added line for 'added', got:\n%s", out)
	}
	if strings.Contains(out, "-function kept") || strings.Contains(out, "+function kept") {
		t.Errorf("expected 'kept' to render as unchanged context, got:\n%s", out)
	}
	if !strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Errorf("expected snapshot IDs in the diff header, got:\n%s", out)
	}
}
