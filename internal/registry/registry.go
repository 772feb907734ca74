// Package registry enumerates every function-like declaration in a loaded
// project and assigns each one its three-part identity.
package registry

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/tscg-project/tscg/internal/errtax"
	"github.com/tscg-project/tscg/internal/frontend"
	"github.com/tscg-project/tscg/internal/model"
)

// Registry is the collected, indexed set of functions for one snapshot.
type Registry struct {
	byID        map[string]*model.Function
	byFile      map[string][]*model.Function // source order
	byFileLine  map[string]map[int]*model.Function
	bySemantic  map[string][]*model.Function

	// nodeByPhysicalID lets later stages walk back from a Function to its
	// AST node without a second pass over the source.
	nodeByPhysicalID map[string]*sitter.Node
	fileByPhysicalID map[string]string // physical id -> normalized file path
	idByNode         map[*sitter.Node]string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byID:             make(map[string]*model.Function),
		byFile:           make(map[string][]*model.Function),
		byFileLine:       make(map[string]map[int]*model.Function),
		bySemantic:       make(map[string][]*model.Function),
		nodeByPhysicalID: make(map[string]*sitter.Node),
		fileByPhysicalID: make(map[string]string),
		idByNode:         make(map[*sitter.Node]string),
	}
}

// Collect walks every file in the project and emits a Function for each
// function-like declaration: free function, method, constructor, accessor,
// arrow function, and function expression.
func Collect(p *frontend.Project) (*Registry, []error) {
	reg := New()
	var recovered []error

	for _, sf := range p.Files() {
		c := &collector{sf: sf, reg: reg}
		c.run()
		recovered = append(recovered, c.errors...)
	}
	return reg, recovered
}

type collector struct {
	sf     *frontend.SourceFile
	reg    *Registry
	errors []error
}

// run walks the whole file once. Every function-like node is visited
// regardless of nesting depth - a function body, a method body, and an
// arrow function's own body are all just more tree to descend into - so a
// callback literal passed as a bare call argument (array.map(x => ...),
// setTimeout(() => {...})) gets the same Function entity a named
// declaration would, no matter how deeply it is nested.
func (c *collector) run() {
	frontend.Walk(c.sf.Root(), func(n *sitter.Node) bool {
		switch n.Type() {
		case "function_declaration", "generator_function_declaration":
			c.emit(n, model.KindFreeFunction, childText(n, "name", c.sf.Source))
		case "method_definition":
			c.emitMethod(n)
		case "public_field_definition":
			c.handleFieldDefinition(n)
		case "variable_declarator":
			c.handleVariableDeclarator(n)
		case "arrow_function", "function_expression", "generator_function":
			// Already emitted via a declarator or field initializer above;
			// this is the same node reached again on the way down.
			if c.reg.IDByDeclNode(n) == "" {
				c.emitArrowLike(n, "", false)
			}
		}
		return true
	})
}

func (c *collector) emitMethod(n *sitter.Node) {
	name := childText(n, "name", c.sf.Source)
	kind := model.KindMethod
	switch name {
	case "constructor":
		kind = model.KindConstructor
	}
	// get/set accessors carry a keyword child before the name.
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if ch.Type() == "get" || ch.Type() == "set" {
			kind = model.KindAccessor
			break
		}
	}
	fn := c.buildFunction(n, kind, name)
	if fn == nil {
		return
	}
	fn.Access = accessModifier(n, c.sf.Source)
	fn.IsStatic = hasChildOfType(n, "static")
	c.reg.add(fn, n, c.sf.Path)
}

func (c *collector) handleVariableDeclarator(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	valNode := n.ChildByFieldName("value")
	if nameNode == nil || valNode == nil {
		return
	}
	switch valNode.Type() {
	case "arrow_function", "function_expression", "generator_function":
		c.emitArrowLike(valNode, frontend.NodeText(nameNode, c.sf.Source), false)
	}
}

// handleFieldDefinition covers a class field initialized with an
// arrow/function expression - itself a method-shaped function - inheriting
// the field's name the same way a variable_declarator's value does.
func (c *collector) handleFieldDefinition(n *sitter.Node) {
	val := n.ChildByFieldName("value")
	if val == nil {
		return
	}
	switch val.Type() {
	case "arrow_function", "function_expression", "generator_function":
		c.emitArrowLike(val, childText(n, "name", c.sf.Source), true)
	}
}

// emitArrowLike builds a Function for an arrow function, function
// expression, or generator expression. inheritedName is the name of the
// variable or field it was assigned to; an inline callback passed directly
// as a call argument has none, so it gets a synthetic placeholder instead -
// anonymous, but still a citable callee for Stage 7 to resolve against.
func (c *collector) emitArrowLike(n *sitter.Node, inheritedName string, isField bool) {
	kind := model.KindArrow
	if n.Type() == "function_expression" || n.Type() == "generator_function" {
		kind = model.KindFunctionExpr
	}
	name := inheritedName
	if name == "" {
		name = "<anonymous>"
	}
	fn := c.buildFunction(n, kind, name)
	if fn == nil {
		return
	}
	if isField {
		fn.Access = accessModifier(n.Parent(), c.sf.Source)
	}
	c.reg.add(fn, n, c.sf.Path)
}

func (c *collector) emit(n *sitter.Node, kind model.FunctionKind, name string) {
	fn := c.buildFunction(n, kind, name)
	if fn == nil {
		return
	}
	fn.IsExported = isExported(n)
	c.reg.add(fn, n, c.sf.Path)
}

func (c *collector) buildFunction(n *sitter.Node, kind model.FunctionKind, name string) *model.Function {
	nameNode := n.ChildByFieldName("name")
	if nameNode != nil {
		// FunctionRangeMismatch: the declared range must contain its own
		// name token. Recovered with a tolerant fallback: proceed using the
		// node's own range (smallest enclosing node is n itself here).
		if int(nameNode.StartByte()) < int(n.StartByte()) || int(nameNode.EndByte()) > int(n.EndByte()) {
			c.errors = append(c.errors, &errtax.RangeMismatchError{File: c.sf.Path, Line: int(n.StartPoint().Row) + 1, Col: int(n.StartPoint().Column)})
		}
	}

	_, startLine, startCol, endLine, endCol := frontend.Position(c.sf, n)
	if startLine > endLine {
		c.errors = append(c.errors, &errtax.RangeMismatchError{File: c.sf.Path, Line: startLine, Col: startCol})
		return nil
	}

	ctxPath := enclosingContextPath(n, c.sf.Source)
	params := extractParameters(n, c.sf.Source)
	sigShape := signatureShape(params, returnTypeText(n, c.sf.Source))
	qualifiedName := name
	if ctxPath != "" {
		qualifiedName = ctxPath + "." + name
	}

	physicalID := model.PhysicalFunctionID(c.sf.Path, startLine, startCol, string(kind))
	semanticID := model.SemanticFunctionID(qualifiedName, sigShape)
	contentID := model.ContentFunctionID(normalizeBody(n, c.sf.Source))

	return &model.Function{
		PhysicalID:  physicalID,
		SemanticID:  semanticID,
		ContentID:   contentID,
		File:        c.sf.Path,
		StartLine:   startLine,
		StartCol:    startCol,
		EndLine:     endLine,
		EndCol:      endCol,
		Name:        name,
		Parameters:  params,
		ReturnType:  returnTypeText(n, c.sf.Source),
		IsAsync:     hasChildOfType(n, "async"),
		IsGenerator: strings.Contains(n.Type(), "generator") || hasChildOfType(n, "*"),
		ContextPath: ctxPath,
		Kind:        kind,
		Access:      model.AccessPublic,
	}
}

// enclosingContextPath walks n's ancestors collecting the name of each
// enclosing class or namespace declaration, outermost first, so a member's
// qualified name reflects its full nesting regardless of how deep the
// collector's walk was when it found the member.
func enclosingContextPath(n *sitter.Node, source []byte) string {
	var parts []string
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "class_declaration", "abstract_class_declaration", "module", "internal_module":
			if name := childText(p, "name", source); name != "" {
				parts = append(parts, name)
			}
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// add indexes fn into every lookup the registry provides.
func (r *Registry) add(fn *model.Function, node *sitter.Node, file string) {
	r.byID[fn.PhysicalID] = fn
	r.byFile[file] = append(r.byFile[file], fn)
	r.bySemantic[fn.SemanticID] = append(r.bySemantic[fn.SemanticID], fn)
	r.nodeByPhysicalID[fn.PhysicalID] = node
	r.fileByPhysicalID[fn.PhysicalID] = file
	r.idByNode[node] = fn.PhysicalID

	if r.byFileLine[file] == nil {
		r.byFileLine[file] = make(map[int]*model.Function)
	}
	// Inner functions are visited after their enclosing function in a
	// depth-first walk only for class bodies; for nested function
	// expressions the walk visits outer before inner, so a later
	// (more nested) write naturally overrides the outer mapping for lines
	// it also covers, matching "inner functions' finer-grained mappings
	// override outer ones".
	for line := fn.StartLine; line <= fn.EndLine; line++ {
		r.byFileLine[file][line] = fn
	}
}

// ByID returns the function with the given physical id, or nil.
func (r *Registry) ByID(id string) *model.Function { return r.byID[id] }

// NodeOf returns the AST node a Function was built from, for stages that
// need to re-walk the body (call-site extraction).
func (r *Registry) NodeOf(fn *model.Function) *sitter.Node { return r.nodeByPhysicalID[fn.PhysicalID] }

// IDByDeclNode returns the physical id of the Function built from node, or
// "" if node is not a registered declaration (e.g. it names a class, not a
// method directly). Used by Stage 2 to map a resolved symbol's declaration
// node back to a Function after cross-file symbol resolution.
func (r *Registry) IDByDeclNode(node *sitter.Node) string { return r.idByNode[node] }

// ByFile returns every function declared in file, in source order.
func (r *Registry) ByFile(file string) []*model.Function { return r.byFile[file] }

// ByFileLine returns the innermost function containing line in file.
func (r *Registry) ByFileLine(file string, line int) *model.Function {
	lines := r.byFileLine[file]
	if lines == nil {
		return nil
	}
	return lines[line]
}

// BySemanticID returns every function sharing a semantic id (overloads,
// same-name methods across unrelated classes).
func (r *Registry) BySemanticID(id string) []*model.Function { return r.bySemantic[id] }

// All returns every function in a deterministic order (file, then start
// position), for emission and testing.
func (r *Registry) All() []*model.Function {
	out := make([]*model.Function, 0, len(r.byID))
	for _, fn := range r.byID {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].StartLine != out[j].StartLine {
			return out[i].StartLine < out[j].StartLine
		}
		return out[i].StartCol < out[j].StartCol
	})
	return out
}

// Len reports how many functions were collected.
func (r *Registry) Len() int { return len(r.byID) }
