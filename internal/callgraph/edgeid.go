package callgraph

import "github.com/tscg-project/tscg/internal/model"

// modelEdgeID computes an edge's deterministic id per the data model's
// stable-id invariant: hash of (caller id, callee id or symbolic name,
// file, line, column). Re-running a stage over unchanged sources produces
// the same id and therefore the same dedup key in State.
func modelEdgeID(callerID, calleeIDOrName, file string, line, col int) string {
	return model.CallEdgeID(callerID, calleeIDOrName, file, line, col)
}
