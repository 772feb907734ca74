package callgraph

import (
	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/logging"
	"github.com/tscg-project/tscg/internal/model"
	"github.com/tscg-project/tscg/internal/registry"
)

// RunStage4 prunes Stage 3's CHA candidate sets using the set of types
// actually observed to be instantiated along reachable call paths. Per the
// conservativeness invariant, RTA never reduces a site's edges to zero when
// CHA produced candidates: an empty intersection keeps the CHA edge as-is.
func RunStage4(reg *registry.Registry, state *State, logger *zap.Logger) error {
	timer := logging.NewStageTimer(logger)

	instantiationsByOriginator := make(map[string][]string)
	for _, ev := range state.Instantiations {
		instantiationsByOriginator[ev.OriginatorID] = append(instantiationsByOriginator[ev.OriginatorID], ev.TypeName)
	}

	edges := state.Edges()
	adjacency := make(map[string][]string)
	for _, e := range edges {
		if e.CalleeID != "" {
			adjacency[e.CallerID] = append(adjacency[e.CallerID], e.CalleeID)
		}
	}

	reachable := make(map[string]bool)
	var queue []string
	for _, fn := range reg.All() {
		if fn.IsExported || isEntryPointHeuristic(fn.Name) {
			queue = append(queue, fn.PhysicalID)
		}
	}

	instantiated := make(map[string]bool)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reachable[id] {
			continue
		}
		reachable[id] = true
		for _, t := range instantiationsByOriginator[id] {
			instantiated[t] = true
		}
		queue = append(queue, adjacency[id]...)
	}

	upgraded := 0
	updatedEdges := make([]model.CallEdge, 0, len(edges))
	for _, e := range edges {
		if e.Resolution != model.ResolutionCHAResolved || len(e.Candidates) == 0 {
			updatedEdges = append(updatedEdges, e)
			continue
		}
		pruned := prunedCandidates(e.Candidates, reg, instantiated)
		if len(pruned) == 0 {
			// conservativeness: never reduce to zero; keep the CHA edge.
			updatedEdges = append(updatedEdges, e)
			continue
		}
		e.Candidates = pruned
		e.Resolution = model.ResolutionRTAResolved
		e.Confidence = 0.9
		if !contains(pruned, e.CalleeID) {
			e.CalleeID = pruned[0]
		}
		updatedEdges = append(updatedEdges, e)
		upgraded++
	}

	state.replaceEdges(updatedEdges)
	timer.Done("stage4.rta", zap.Int("upgraded", upgraded), zap.Int("reachable_functions", len(reachable)))
	return nil
}

func prunedCandidates(candidates []string, reg *registry.Registry, instantiated map[string]bool) []string {
	var out []string
	for _, id := range candidates {
		fn := reg.ByID(id)
		if fn == nil {
			continue
		}
		declaringType := fn.ContextPath
		if idx := lastDot(declaringType); idx >= 0 {
			declaringType = declaringType[idx+1:]
		}
		if instantiated[declaringType] {
			out = append(out, id)
		}
	}
	return out
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// isEntryPointHeuristic flags common framework/CLI entry-point names as RTA
// seeds even when not explicitly exported (e.g. a default-exported `main`).
func isEntryPointHeuristic(name string) bool {
	switch name {
	case "main", "index", "run", "bootstrap", "activate":
		return true
	default:
		return false
	}
}
