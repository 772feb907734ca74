// Package callgraph implements the staged, conservative call-graph
// resolution engine: Stage 1 (Local-Exact) through Stage 8 (DB-Bridge),
// sharing one append-only edge buffer and per-stage unresolved-call
// residue queues.
package callgraph

import (
	"sort"
	"strconv"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/tscg-project/tscg/internal/frontend"
	"github.com/tscg-project/tscg/internal/model"
)

// UnresolvedCall is a call site no earlier stage could resolve, carried
// forward with enough context for the next stage to try.
type UnresolvedCall struct {
	CallerID string
	Site     frontend.CallSite
	File     string
	Line     int
	Col      int
	Context  model.CallContext
	IsAsync  bool
}

// MethodCandidate is an unresolved call forwarded to CHA and the stages
// after it: a property access whose receiver's declared type is known (or
// not), or a bare identifier call that no project declaration matched
// (ReceiverText empty).
type MethodCandidate struct {
	CallerID     string
	ReceiverType string // empty when the receiver's type could not be determined
	ReceiverText string // raw receiver expression text, for Stage 6 heuristics
	MethodName   string
	File         string
	Line         int
	Col          int
	Context      model.CallContext
	IsAsync      bool
	Node         *sitter.Node // the call_expression node, for Stage 7's argument inspection
}

// InstantiationEvent records a `new T(...)` expression seen anywhere in the
// project, used by Stage 4 (RTA) to compute the reachable-instantiation set.
type InstantiationEvent struct {
	TypeName     string
	OriginatorID string // the function the `new` expression appears in
}

// State is the shared, append-only analysis state every stage reads and
// writes. It is not safe for concurrent field access outside the documented
// per-stage merge points (each stage's workers write into private buffers
// merged into State at the end of the stage).
type State struct {
	mu sync.Mutex

	edges    []model.CallEdge
	edgeSeen map[string]bool // (caller, callee-or-name, line, col, resolution) dedup

	UnresolvedAfterStage1 []UnresolvedCall
	UnresolvedAfterStage2 []MethodCandidate
	UnresolvedAfterCHA    []MethodCandidate // receiver type unknown, or CHA found nothing

	Instantiations []InstantiationEvent

	Warnings []string
}

// NewState creates an empty shared analysis state.
func NewState() *State {
	return &State{edgeSeen: make(map[string]bool)}
}

// AddEdge appends e if its (caller, callee-or-name, line, col, resolution)
// tuple hasn't been seen, enforcing the no-duplicate-edges invariant.
// Safe for concurrent use; stages may call this from worker goroutines
// during their own stage (not across stage boundaries).
func (s *State) AddEdge(e model.CallEdge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := e.CallerID + "\x1f" + dedupKey(e) + "\x1f" + string(e.Resolution)
	if s.edgeSeen[key] {
		return
	}
	s.edgeSeen[key] = true
	s.edges = append(s.edges, e)
}

func dedupKey(e model.CallEdge) string {
	callee := e.CalleeName
	if e.CalleeID != "" {
		callee = e.CalleeID
	}
	return callee + "\x1f" + strconv.Itoa(e.Line) + "\x1f" + strconv.Itoa(e.Col)
}

// Edges returns every edge recorded so far, in deterministic order (caller
// id, then line, then column).
func (s *State) Edges() []model.CallEdge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CallEdge, len(s.edges))
	copy(out, s.edges)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CallerID != out[j].CallerID {
			return out[i].CallerID < out[j].CallerID
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// replaceEdges swaps the entire edge set, used by stages (RTA) that refine
// existing edges in place rather than only appending new ones. Rebuilds the
// dedup index from the replacement set.
func (s *State) replaceEdges(edges []model.CallEdge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = edges
	s.edgeSeen = make(map[string]bool, len(edges))
	for _, e := range edges {
		key := e.CallerID + "\x1f" + dedupKey(e) + "\x1f" + string(e.Resolution)
		s.edgeSeen[key] = true
	}
}

// Warn records a recoverable, stage-level warning (e.g. an extends cycle)
// without aborting the run.
func (s *State) Warn(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Warnings = append(s.Warnings, msg)
}
