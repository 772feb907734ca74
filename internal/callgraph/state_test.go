package callgraph

import (
	"testing"

	"github.com/tscg-project/tscg/internal/model"
)

func TestAddEdgeDeduplicatesSameTuple(t *testing.T) {
	s := NewState()
	e := model.CallEdge{CallerID: "c1", CalleeID: "f1", Line: 1, Col: 2, Resolution: model.ResolutionLocalExact}
	s.AddEdge(e)
	s.AddEdge(e)
	if len(s.Edges()) != 1 {
		t.Fatalf("expected duplicate edge to be dropped, got %d edges", len(s.Edges()))
	}
}

func TestAddEdgeKeepsDistinctResolutionsSeparate(t *testing.T) {
	s := NewState()
	s.AddEdge(model.CallEdge{CallerID: "c1", CalleeID: "f1", Line: 1, Col: 2, Resolution: model.ResolutionLocalExact})
	s.AddEdge(model.CallEdge{CallerID: "c1", CalleeID: "f1", Line: 1, Col: 2, Resolution: model.ResolutionCHAResolved})
	if len(s.Edges()) != 2 {
		t.Fatalf("expected two edges distinguished by resolution level, got %d", len(s.Edges()))
	}
}

func TestEdgesReturnsDeterministicOrder(t *testing.T) {
	s := NewState()
	s.AddEdge(model.CallEdge{CallerID: "b", CalleeID: "x", Line: 5, Col: 0})
	s.AddEdge(model.CallEdge{CallerID: "a", CalleeID: "y", Line: 2, Col: 0})
	s.AddEdge(model.CallEdge{CallerID: "a", CalleeID: "z", Line: 1, Col: 0})

	edges := s.Edges()
	if len(edges) != 3 {
		t.Fatalf("expected 3 edges, got %d", len(edges))
	}
	if edges[0].CallerID != "a" || edges[0].Line != 1 {
		t.Errorf("expected the first edge to be caller a, line 1, got %+v", edges[0])
	}
	if edges[1].CallerID != "a" || edges[1].Line != 2 {
		t.Errorf("expected the second edge to be caller a, line 2, got %+v", edges[1])
	}
	if edges[2].CallerID != "b" {
		t.Errorf("expected the third edge to be caller b, got %+v", edges[2])
	}
}

func TestReplaceEdgesRebuildsDedupIndex(t *testing.T) {
	s := NewState()
	s.AddEdge(model.CallEdge{CallerID: "a", CalleeID: "x", Line: 1, Resolution: model.ResolutionLocalExact})

	s.replaceEdges([]model.CallEdge{
		{CallerID: "a", CalleeID: "x", Line: 1, Resolution: model.ResolutionCHAResolved},
	})

	// A stale tuple from before replaceEdges must not block a fresh add; the
	// dedup index should now reflect only the replacement set.
	s.AddEdge(model.CallEdge{CallerID: "a", CalleeID: "x", Line: 1, Resolution: model.ResolutionLocalExact})
	edges := s.Edges()
	if len(edges) != 2 {
		t.Fatalf("expected the replacement edge plus the freshly added one, got %d", len(edges))
	}

	// Re-adding the exact replacement tuple again should still dedup.
	s.AddEdge(model.CallEdge{CallerID: "a", CalleeID: "x", Line: 1, Resolution: model.ResolutionCHAResolved})
	if len(s.Edges()) != 2 {
		t.Fatalf("expected the dedup index rebuilt from replaceEdges to catch a repeat, got %d", len(s.Edges()))
	}
}

func TestWarnAccumulatesMessages(t *testing.T) {
	s := NewState()
	s.Warn("first")
	s.Warn("second")
	if len(s.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(s.Warnings))
	}
}
