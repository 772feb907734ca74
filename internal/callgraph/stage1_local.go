package callgraph

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tscg-project/tscg/internal/frontend"
	"github.com/tscg-project/tscg/internal/logging"
	"github.com/tscg-project/tscg/internal/model"
	"github.com/tscg-project/tscg/internal/registry"
)

// RunStage1 resolves call sites whose caller and callee share a file and
// the callee is lexically visible there. File analysis is data-parallel:
// each worker owns one file's functions and adds resolved edges through
// state's locked AddEdge; its unresolved residue and instantiation events
// go into a shared buffer merged into state at the end of the stage.
func RunStage1(p *frontend.Project, reg *registry.Registry, state *State, logger *zap.Logger) error {
	timer := logging.NewStageTimer(logger)
	files := p.Files()

	var g errgroup.Group
	var mu sync.Mutex
	var allUnresolved []UnresolvedCall
	var allInstantiations []InstantiationEvent

	for _, sf := range files {
		sf := sf
		g.Go(func() error {
			local, instantiations := resolveFileLocal(sf, reg, state)
			mu.Lock()
			allUnresolved = append(allUnresolved, local...)
			allInstantiations = append(allInstantiations, instantiations...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	state.mu.Lock()
	state.UnresolvedAfterStage1 = append(state.UnresolvedAfterStage1, allUnresolved...)
	state.Instantiations = append(state.Instantiations, allInstantiations...)
	state.mu.Unlock()

	timer.Done("stage1.local_exact", zap.Int("unresolved", len(allUnresolved)))
	return nil
}

func resolveFileLocal(sf *frontend.SourceFile, reg *registry.Registry, state *State) ([]UnresolvedCall, []InstantiationEvent) {
	var unresolved []UnresolvedCall
	var instantiations []InstantiationEvent

	for _, fn := range reg.ByFile(sf.Path) {
		node := reg.NodeOf(fn)
		if node == nil {
			continue
		}
		body := node.ChildByFieldName("body")
		if body == nil {
			body = node
		}

		frontend.Walk(body, func(n *sitter.Node) bool {
			switch n.Type() {
			case "call_expression":
				handleCall(sf, fn, n, reg, state, &unresolved)
			case "new_expression":
				handleNew(sf, fn, n, reg, state, &instantiations, &unresolved)
			}
			return true
		})
	}
	return unresolved, instantiations
}

func handleCall(sf *frontend.SourceFile, fn *model.Function, n *sitter.Node, reg *registry.Registry, state *State, unresolved *[]UnresolvedCall) {
	target := n.ChildByFieldName("function")
	if target == nil && n.ChildCount() > 0 {
		target = n.Child(0)
	}
	cs := frontend.ClassifyCallTarget(target, sf.Source)
	_, line, col, _, _ := frontend.Position(sf, n)
	ctx := classifyContext(n, fn)
	isAsync := isAwaited(n)

	switch cs.Kind {
	case frontend.CallSiteLocalIdentifier:
		if callee := resolveLocalIdentifier(fn, cs.Name, reg); callee != nil {
			emitLocalEdge(state, fn, callee, cs.Name, sf.Path, line, col, model.CallDirect, ctx, isAsync)
			return
		}
	case frontend.CallSitePropertyAccess:
		if cs.ReceiverIsThis {
			if callee := resolveThisMethod(fn, cs.Name, reg); callee != nil {
				emitLocalEdge(state, fn, callee, cs.Name, sf.Path, line, col, model.CallMethod, ctx, isAsync)
				return
			}
		}
	}

	*unresolved = append(*unresolved, UnresolvedCall{
		CallerID: fn.PhysicalID, Site: cs, File: sf.Path, Line: line, Col: col, Context: ctx, IsAsync: isAsync,
	})
}

func handleNew(sf *frontend.SourceFile, fn *model.Function, n *sitter.Node, reg *registry.Registry, state *State, instantiations *[]InstantiationEvent, unresolved *[]UnresolvedCall) {
	ctorNode := n.ChildByFieldName("constructor")
	if ctorNode == nil {
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if c.Type() == "identifier" || c.Type() == "member_expression" {
				ctorNode = c
				break
			}
		}
	}
	if ctorNode == nil {
		return
	}
	typeName := frontend.NodeText(ctorNode, sf.Source)
	if frontend.IsBuiltinType(typeName) || typeName == "" {
		return
	}
	*instantiations = append(*instantiations, InstantiationEvent{TypeName: typeName, OriginatorID: fn.PhysicalID})

	_, line, col, _, _ := frontend.Position(sf, n)
	ctx := classifyContext(n, fn)

	if ctor := resolveLocalConstructor(fn, typeName, reg); ctor != nil {
		emitLocalEdge(state, fn, ctor, typeName, sf.Path, line, col, model.CallConstructor, ctx, false)
		return
	}

	*unresolved = append(*unresolved, UnresolvedCall{
		CallerID: fn.PhysicalID,
		Site:     frontend.CallSite{Kind: frontend.CallSiteNew, Name: typeName, Node: n},
		File:     sf.Path, Line: line, Col: col, Context: ctx,
	})
}

// resolveLocalIdentifier looks up name among functions declared in the same
// file, preferring the nearest enclosing lexical scope and breaking ties by
// the smallest start-line distance from the calling function's own
// declaration, then by source order (policy chosen for the ambiguous
// "multiple same-name functions" case: nearest-lexical first, then
// source-order-first).
func resolveLocalIdentifier(caller *model.Function, name string, reg *registry.Registry) *model.Function {
	candidates := reg.ByFile(caller.File)
	var best *model.Function
	bestDistance := -1
	for _, f := range candidates {
		if f.Name != name {
			continue
		}
		if f.PhysicalID == caller.PhysicalID {
			continue // self-recursion is represented by the edge only when resolved via a different path; see policy note below
		}
		// Prefer a function whose context path is a prefix of (or equal to)
		// the caller's — i.e. nearer in lexical scope.
		distance := lexicalDistance(caller.ContextPath, f.ContextPath)
		if best == nil || distance < bestDistance ||
			(distance == bestDistance && absInt(f.StartLine-caller.StartLine) < absInt(best.StartLine-caller.StartLine)) {
			best = f
			bestDistance = distance
		}
	}
	// Self-recursion policy: if no other candidate matched and the caller's
	// own name matches, emit the self-edge. Chosen over eliding recursive
	// edges entirely, since spec callers depend on fan-in/fan-out including
	// direct recursion as a first-class signal; the other considered policy
	// (never emit self edges) is rejected as it would hide recursion from
	// every downstream consumer with no alternative detector in this engine.
	if best == nil && caller.Name == name {
		return caller
	}
	return best
}

func lexicalDistance(callerCtx, calleeCtx string) int {
	if callerCtx == calleeCtx {
		return 0
	}
	if strings.HasPrefix(callerCtx, calleeCtx+".") || strings.HasPrefix(calleeCtx, callerCtx+".") {
		return 1
	}
	return 2
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// resolveThisMethod resolves `this.m(...)`/`self.m(...)` against the members
// of the caller's enclosing class declared in the same file. Superclasses
// are not searched: a method the class only inherits stays unresolved here.
func resolveThisMethod(caller *model.Function, method string, reg *registry.Registry) *model.Function {
	if caller.ContextPath == "" {
		return nil
	}
	className := strings.Split(caller.ContextPath, ".")[0]
	return findMemberInClass(className, method, caller.File, reg, map[string]bool{})
}

func resolveLocalConstructor(caller *model.Function, typeName string, reg *registry.Registry) *model.Function {
	return findMemberInClass(typeName, "constructor", caller.File, reg, map[string]bool{})
}

func findMemberInClass(className, method, file string, reg *registry.Registry, seen map[string]bool) *model.Function {
	if seen[className] {
		return nil
	}
	seen[className] = true
	for _, f := range reg.ByFile(file) {
		if f.ContextPath == className && f.Name == method {
			return f
		}
	}
	return nil
}

func classifyContext(n *sitter.Node, fn *model.Function) model.CallContext {
	if fn.Kind == model.KindConstructor {
		return model.ContextConstructor
	}
	if inTry, inCatch := frontend.IsInTryOrCatch(n); inCatch {
		return model.ContextCatch
	} else if inTry {
		return model.ContextTry
	}
	if frontend.IsInLoop(n) {
		return model.ContextLoop
	}
	if frontend.IsConditionalCall(n) {
		return model.ContextConditional
	}
	return model.ContextNormal
}

func isAwaited(n *sitter.Node) bool {
	parent := n.Parent()
	return parent != nil && parent.Type() == "await_expression"
}

func emitLocalEdge(state *State, caller, callee *model.Function, name, file string, line, col int, callType model.CallType, ctx model.CallContext, isAsync bool) {
	id := modelEdgeID(caller.PhysicalID, callee.PhysicalID, file, line, col)
	state.AddEdge(model.CallEdge{
		ID: id, CallerID: caller.PhysicalID, CalleeID: callee.PhysicalID, CalleeName: name,
		File: file, Line: line, Col: col,
		CallType: callType, Context: ctx, Resolution: model.ResolutionLocalExact, Confidence: 1.0,
		IsAsync: isAsync,
	})
}
