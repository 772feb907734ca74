package callgraph

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/config"
	"github.com/tscg-project/tscg/internal/frontend"
	"github.com/tscg-project/tscg/internal/logging"
	"github.com/tscg-project/tscg/internal/model"
	"github.com/tscg-project/tscg/internal/registry"
)

// RunStage7 recognizes calls into framework registration APIs a project
// hands a function value to be invoked later by something outside the
// static call graph (a CLI action, a route handler, an event listener).
// Each matched pattern emits a virtual edge at its configured confidence;
// the edge's callee is resolved when the handler argument is a named
// reference the registry already knows, and left calleeless otherwise -
// still recorded, since the registration itself is the observable fact.
func RunStage7(p *frontend.Project, reg *registry.Registry, patterns []config.CallbackPattern, state *State, logger *zap.Logger) error {
	timer := logging.NewStageTimer(logger)

	pending := state.UnresolvedAfterCHA
	state.UnresolvedAfterCHA = nil

	var leftover []MethodCandidate
	emitted := 0

	for _, mc := range pending {
		pattern, ok := matchPattern(mc, patterns)
		if !ok {
			leftover = append(leftover, mc)
			continue
		}

		calleeID, calleeName := resolveHandlerArg(p, mc, pattern, reg)
		state.AddEdge(model.CallEdge{
			ID:         modelEdgeID(mc.CallerID, calleeIDOrName(calleeID, calleeName, mc.MethodName), mc.File, mc.Line, mc.Col),
			CallerID:   mc.CallerID,
			CalleeID:   calleeID,
			CalleeName: calleeName,
			File:       mc.File, Line: mc.Line, Col: mc.Col,
			CallType:   model.CallVirtual,
			Context:    model.ContextCallback,
			Resolution: model.ResolutionVirtualCallback,
			Confidence: pattern.Confidence,
			IsAsync:    mc.IsAsync,
		})
		emitted++
	}

	state.UnresolvedAfterCHA = leftover
	timer.Done("stage7.callback_registration", zap.Int("edges", emitted), zap.Int("unresolved", len(leftover)))
	return nil
}

func calleeIDOrName(calleeID, calleeName, fallback string) string {
	if calleeID != "" {
		return calleeID
	}
	if calleeName != "" {
		return calleeName
	}
	return fallback
}

// matchPattern reports the first configured pattern whose method name
// matches the candidate and whose receiver suffix (when set) matches the
// end of the receiver expression text.
func matchPattern(mc MethodCandidate, patterns []config.CallbackPattern) (config.CallbackPattern, bool) {
	for _, pat := range patterns {
		if pat.Method != mc.MethodName {
			continue
		}
		if pat.ReceiverSuffix != "" && !strings.HasSuffix(mc.ReceiverText, pat.ReceiverSuffix) {
			continue
		}
		return pat, true
	}
	return config.CallbackPattern{}, false
}

// resolveHandlerArg inspects the call's argument list for the handler at
// pattern.CallbackArg. An identifier argument is resolved against the
// registry by name within the candidate's own file (the common case: a
// locally declared handler passed by reference). A literal arrow/function
// expression is resolved against its own registry entry - the Function
// Registry assigns every inline callback a synthetic identity at collection
// time, so even an unnamed handler has an id to point at.
func resolveHandlerArg(p *frontend.Project, mc MethodCandidate, pattern config.CallbackPattern, reg *registry.Registry) (calleeID, calleeName string) {
	if mc.Node == nil {
		return "", "<callback>"
	}
	args := mc.Node.ChildByFieldName("arguments")
	if args == nil {
		return "", "<callback>"
	}
	arg := namedArgAt(args, pattern.CallbackArg)
	if arg == nil {
		return "", "<callback>"
	}
	sf := p.FileOf(mc.File)
	switch arg.Type() {
	case "identifier":
		if sf == nil {
			return "", "<callback>"
		}
		name := frontend.NodeText(arg, sf.Source)
		for _, fn := range reg.ByFile(mc.File) {
			if fn.Name == name {
				return fn.PhysicalID, name
			}
		}
		return "", name
	case "arrow_function", "function_expression", "generator_function":
		if fn := reg.ByID(reg.IDByDeclNode(arg)); fn != nil {
			return fn.PhysicalID, fn.Name
		}
		return "", "<inline callback>"
	default:
		return "", "<callback>"
	}
}

// namedArgAt returns the nth named argument of an arguments node, or nil.
func namedArgAt(args *sitter.Node, idx int) *sitter.Node {
	if idx < 0 || idx >= int(args.NamedChildCount()) {
		return nil
	}
	return args.NamedChild(idx)
}
