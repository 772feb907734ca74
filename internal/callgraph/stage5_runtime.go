package callgraph

import (
	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/logging"
	"github.com/tscg-project/tscg/internal/model"
)

// TraceEvent is one observation from an external execution-coverage
// collaborator: a caller actually invoked a callee, optionally at a known
// line/column.
type TraceEvent struct {
	CallerID string
	CalleeID string
	Line     int // 0 when unknown
	Col      int // 0 when unknown
}

// RunStage5 upgrades edges confirmed by a runtime trace to confidence 1.0,
// and creates new edges for caller/callee pairs no static stage found.
// Static edges never observed at runtime are left unchanged: absence of
// execution is not evidence of absence of call.
func RunStage5(traces []TraceEvent, state *State, logger *zap.Logger) error {
	timer := logging.NewStageTimer(logger)
	if len(traces) == 0 {
		timer.Done("stage5.runtime_trace", zap.Int("confirmed", 0), zap.Int("new", 0))
		return nil
	}

	edges := state.Edges()
	byCallerCallee := make(map[string]int) // "caller\x1fcallee" -> index
	for i, e := range edges {
		if e.CalleeID != "" {
			byCallerCallee[e.CallerID+"\x1f"+e.CalleeID] = i
		}
	}

	confirmed, created := 0, 0
	for _, tr := range traces {
		key := tr.CallerID + "\x1f" + tr.CalleeID
		if i, ok := byCallerCallee[key]; ok {
			edges[i].RuntimeConfirmed = true
			edges[i].Confidence = 1.0
			confirmed++
			continue
		}
		edges = append(edges, model.CallEdge{
			ID:               modelEdgeID(tr.CallerID, tr.CalleeID, "", tr.Line, tr.Col),
			CallerID:         tr.CallerID,
			CalleeID:         tr.CalleeID,
			File:             "",
			Line:             tr.Line,
			Col:              tr.Col,
			CallType:         model.CallDirect,
			Context:          model.ContextNormal,
			Resolution:       model.ResolutionRuntimeConfirmed,
			Confidence:       1.0,
			RuntimeConfirmed: true,
		})
		created++
	}

	state.replaceEdges(edges)
	timer.Done("stage5.runtime_trace", zap.Int("confirmed", confirmed), zap.Int("new", created))
	return nil
}
