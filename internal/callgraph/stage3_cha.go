package callgraph

import (
	"sort"

	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/logging"
	"github.com/tscg-project/tscg/internal/model"
	"github.com/tscg-project/tscg/internal/registry"
	"github.com/tscg-project/tscg/internal/typesystem"
)

// RunStage3 over-approximates virtual dispatch using the declared type
// hierarchy. For each unresolved method-call candidate with a known
// receiver type, it computes the transitive-closure subtype set, selects
// each subtype's member (inheriting along its own extends chain), and
// emits one edge per call site: its callee is the representative function
// (the receiver type's own member when it has one, else the first
// candidate) and its Candidates list holds every distinct resolved function.
func RunStage3(graph *typesystem.Graph, reg *registry.Registry, state *State, logger *zap.Logger) error {
	timer := logging.NewStageTimer(logger)

	pending := state.UnresolvedAfterStage2
	state.UnresolvedAfterStage2 = nil

	var chaUnresolved []MethodCandidate
	emitted := 0

	for _, mc := range pending {
		if mc.ReceiverType == "" {
			chaUnresolved = append(chaUnresolved, mc)
			continue
		}
		defs := graph.TypeByName(mc.ReceiverType)
		if len(defs) == 0 {
			chaUnresolved = append(chaUnresolved, mc)
			continue
		}

		var candidateIDs []string
		type resolved struct {
			declaringClass string
			functionID     string
		}
		var resolvedSet []resolved

		for _, td := range defs {
			subtypes := graph.TransitiveSubtypes(td.ID)
			for _, sub := range subtypes {
				member := graph.ResolveMember(sub.ID, mc.MethodName, 16)
				if member == nil || member.FunctionID == "" {
					continue
				}
				fn := reg.ByID(member.FunctionID)
				if fn == nil {
					continue
				}
				resolvedSet = append(resolvedSet, resolved{declaringClass: sub.Name, functionID: fn.PhysicalID})
			}
		}

		if len(resolvedSet) == 0 {
			chaUnresolved = append(chaUnresolved, mc)
			continue
		}

		// Deterministic tie-break: (declaring-class name, function id) ascending.
		sort.Slice(resolvedSet, func(i, j int) bool {
			if resolvedSet[i].declaringClass != resolvedSet[j].declaringClass {
				return resolvedSet[i].declaringClass < resolvedSet[j].declaringClass
			}
			return resolvedSet[i].functionID < resolvedSet[j].functionID
		})

		seen := make(map[string]bool)
		for _, r := range resolvedSet {
			if seen[r.functionID] {
				continue
			}
			seen[r.functionID] = true
			candidateIDs = append(candidateIDs, r.functionID)
		}

		representative := candidateIDs[0]
		for _, r := range resolvedSet {
			if r.declaringClass == mc.ReceiverType {
				representative = r.functionID
				break
			}
		}

		state.AddEdge(model.CallEdge{
			ID:         modelEdgeID(mc.CallerID, representative, mc.File, mc.Line, mc.Col),
			CallerID:   mc.CallerID,
			CalleeID:   representative,
			CalleeName: mc.MethodName,
			Candidates: candidateIDs,
			File:       mc.File, Line: mc.Line, Col: mc.Col,
			CallType:   model.CallMethod,
			Context:    mc.Context,
			Resolution: model.ResolutionCHAResolved,
			Confidence: 0.8,
			IsAsync:    mc.IsAsync,
		})
		emitted++
	}

	state.UnresolvedAfterCHA = append(state.UnresolvedAfterCHA, chaUnresolved...)
	timer.Done("stage3.cha", zap.Int("edges", emitted), zap.Int("unresolved", len(chaUnresolved)))
	return nil
}
