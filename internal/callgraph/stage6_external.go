package callgraph

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/frontend"
	"github.com/tscg-project/tscg/internal/logging"
	"github.com/tscg-project/tscg/internal/model"
)

// RunStage6 classifies CHA's remaining residue as calls into code the
// engine cannot see: a known global (console.log), a runtime global
// function, or an unresolved receiver whose lowercase-initial name reads
// like an imported library value rather than a project type. Each
// classification carries its own confidence; anything that fits none of
// them is left for Stage 7.
func RunStage6(state *State, logger *zap.Logger) error {
	timer := logging.NewStageTimer(logger)

	pending := state.UnresolvedAfterCHA
	state.UnresolvedAfterCHA = nil

	var leftover []MethodCandidate
	emitted := 0

	for _, mc := range pending {
		namespace, property, confidence, ok := classifyExternal(mc)
		if !ok {
			leftover = append(leftover, mc)
			continue
		}
		state.AddEdge(model.CallEdge{
			ID:         modelEdgeID(mc.CallerID, mc.MethodName, mc.File, mc.Line, mc.Col),
			CallerID:   mc.CallerID,
			CalleeName: mc.MethodName,
			File:       mc.File, Line: mc.Line, Col: mc.Col,
			CallType:   model.CallExternal,
			Context:    mc.Context,
			Resolution: model.ResolutionExternalDetected,
			Confidence: confidence,
			IsAsync:    mc.IsAsync,
			Namespace:  namespace,
			Property:   property,
		})
		emitted++
	}

	state.UnresolvedAfterCHA = leftover
	timer.Done("stage6.external", zap.Int("edges", emitted), zap.Int("forwarded_to_callback", len(leftover)))
	return nil
}

// classifyExternal applies the three external-call heuristics in
// decreasing order of confidence: a well-known global namespace
// (console, Math, ...), a bare runtime global function, and finally a
// lowercase-initial unresolved receiver - the shape of a library value
// bound from an import this engine never traced to a declaration.
func classifyExternal(mc MethodCandidate) (namespace, property string, confidence float64, ok bool) {
	receiver := mc.ReceiverText
	if frontend.IsKnownGlobalNamespace(receiver) {
		return receiver, mc.MethodName, 0.95, true
	}
	if receiver == "" && frontend.IsKnownRuntimeGlobal(mc.MethodName) {
		return "", mc.MethodName, 0.95, true
	}
	if looksLikeOpaqueReceiver(receiver) {
		return receiver, mc.MethodName, 0.7, true
	}
	return "", "", 0, false
}

// looksLikeOpaqueReceiver reports whether receiver has the shape of a
// value imported from outside the project (lowercase-initial identifier,
// no further static information available) rather than an unresolved
// project-local type.
func looksLikeOpaqueReceiver(receiver string) bool {
	if receiver == "" || receiver == "this" || receiver == "super" {
		return false
	}
	first := []rune(receiver)[0]
	if strings.ContainsAny(receiver, ".[]()") {
		return false
	}
	return unicode.IsLower(first)
}
