package callgraph

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tscg-project/tscg/internal/frontend"
	"github.com/tscg-project/tscg/internal/logging"
	"github.com/tscg-project/tscg/internal/model"
	"github.com/tscg-project/tscg/internal/registry"
)

// RunStage2 consumes Stage 1's unresolved residue and resolves call sites
// whose target is a symbol imported from another file.
func RunStage2(p *frontend.Project, reg *registry.Registry, state *State, logger *zap.Logger) error {
	timer := logging.NewStageTimer(logger)

	pending := state.UnresolvedAfterStage1
	state.UnresolvedAfterStage1 = nil

	const parallelThreshold = 1000
	var candidates []MethodCandidate

	process := func(uc UnresolvedCall) *MethodCandidate {
		switch uc.Site.Kind {
		case frontend.CallSiteLocalIdentifier:
			if sym, ok := p.ResolveSymbol(uc.File, uc.Site.Name); ok && sym.Node != nil {
				if callee := reg.ByID(reg.IDByDeclNode(sym.Node)); callee != nil {
					state.AddEdge(model.CallEdge{
						ID: modelEdgeID(uc.CallerID, callee.PhysicalID, uc.File, uc.Line, uc.Col),
						CallerID: uc.CallerID, CalleeID: callee.PhysicalID, CalleeName: uc.Site.Name,
						File: uc.File, Line: uc.Line, Col: uc.Col,
						CallType: model.CallDirect, Context: uc.Context, Resolution: model.ResolutionImportExact,
						Confidence: 0.95, IsAsync: uc.IsAsync,
					})
					return nil
				}
			}
			// Not a project symbol: forward with no receiver so Stage 6 can
			// recognize runtime globals (setTimeout, parseInt, ...).
			return &MethodCandidate{
				CallerID: uc.CallerID, MethodName: uc.Site.Name,
				File: uc.File, Line: uc.Line, Col: uc.Col, Context: uc.Context, IsAsync: uc.IsAsync,
				Node: callNodeOf(uc.Site.Node),
			}
		case frontend.CallSitePropertyAccess:
			if sym, ok := p.ResolveSymbol(uc.File, uc.Site.Receiver); ok && sym.Name == "*" {
				// namespace import: re-resolve the member in the target
				// module's own export table.
				if member, ok := p.ResolveSymbol(sym.File, uc.Site.Name); ok && member.Node != nil {
					if callee := reg.ByID(reg.IDByDeclNode(member.Node)); callee != nil {
						state.AddEdge(model.CallEdge{
							ID: modelEdgeID(uc.CallerID, callee.PhysicalID, uc.File, uc.Line, uc.Col),
							CallerID: uc.CallerID, CalleeID: callee.PhysicalID, CalleeName: uc.Site.Name,
							File: uc.File, Line: uc.Line, Col: uc.Col,
							CallType: model.CallMethod, Context: uc.Context, Resolution: model.ResolutionImportExact,
							Confidence: 0.95, IsAsync: uc.IsAsync,
						})
						return nil
					}
				}
				return nil
			}
			// Property access on a concrete value: forward to CHA with
			// whatever receiver-type information the frontend could infer.
			return &MethodCandidate{
				CallerID: uc.CallerID, ReceiverType: inferReceiverType(p, reg, uc), ReceiverText: uc.Site.Receiver,
				MethodName: uc.Site.Name,
				File:       uc.File, Line: uc.Line, Col: uc.Col, Context: uc.Context, IsAsync: uc.IsAsync,
				Node: callNodeOf(uc.Site.Node),
			}
		}
		return nil
	}

	if len(pending) < parallelThreshold {
		for _, uc := range pending {
			if mc := process(uc); mc != nil {
				candidates = append(candidates, *mc)
			}
		}
	} else {
		out := make([]*MethodCandidate, len(pending))
		var g errgroup.Group
		chunks := chunkIndices(len(pending), 8)
		for _, rng := range chunks {
			rng := rng
			g.Go(func() error {
				for i := rng[0]; i < rng[1]; i++ {
					out[i] = process(pending[i])
				}
				return nil
			})
		}
		_ = g.Wait()
		for _, mc := range out {
			if mc != nil {
				candidates = append(candidates, *mc)
			}
		}
	}

	state.UnresolvedAfterStage2 = append(state.UnresolvedAfterStage2, candidates...)
	timer.Done("stage2.import_exact", zap.Int("forwarded_to_cha", len(candidates)))
	return nil
}

func chunkIndices(n, workers int) [][2]int {
	if workers > n {
		workers = n
	}
	if workers == 0 {
		return nil
	}
	size := (n + workers - 1) / workers
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// callNodeOf walks up from a call site's target node to the enclosing
// call_expression, so later stages can inspect the call's arguments.
func callNodeOf(target *sitter.Node) *sitter.Node {
	n := target
	for n != nil {
		if n.Type() == "call_expression" {
			return n
		}
		n = n.Parent()
	}
	return nil
}

// inferReceiverType reports the declared type name of a property access's
// receiver, when it can be traced to a typed parameter or a local variable
// declared with a type annotation or a `new T(...)` initializer in the
// caller's own body. Anything beyond that (inferred through assignment
// chains, narrowed unions, generic substitution) is left empty; the
// candidate carries forward with an unknown receiver type and CHA leaves it
// unresolved.
func inferReceiverType(p *frontend.Project, reg *registry.Registry, uc UnresolvedCall) string {
	caller := reg.ByID(uc.CallerID)
	if caller == nil || uc.Site.Receiver == "" {
		return ""
	}
	for _, param := range caller.Parameters {
		if param.Name == uc.Site.Receiver && param.TypeText != "" {
			return baseTypeName(param.TypeText)
		}
	}

	sf := p.FileOf(uc.File)
	node := reg.NodeOf(caller)
	if sf == nil || node == nil {
		return ""
	}

	var found string
	frontend.Walk(node, func(n *sitter.Node) bool {
		if found != "" {
			return false
		}
		if n.Type() != "variable_declarator" {
			return true
		}
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil || frontend.NodeText(nameNode, sf.Source) != uc.Site.Receiver {
			return true
		}
		if typeNode := n.ChildByFieldName("type"); typeNode != nil {
			found = baseTypeName(strings.TrimPrefix(frontend.NodeText(typeNode, sf.Source), ":"))
			return false
		}
		if val := n.ChildByFieldName("value"); val != nil && val.Type() == "new_expression" {
			for i := 0; i < int(val.ChildCount()); i++ {
				if c := val.Child(i); c.Type() == "identifier" {
					found = frontend.NodeText(c, sf.Source)
					break
				}
			}
			return false
		}
		return true
	})
	return found
}

// baseTypeName strips an array suffix or generic argument list from a type
// annotation, leaving the bare type name CHA looks up by.
func baseTypeName(typeText string) string {
	t := strings.TrimSpace(typeText)
	t = strings.TrimSuffix(t, "[]")
	if i := strings.Index(t, "<"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}
