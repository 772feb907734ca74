// Package typesystem builds the project's type graph — classes, interfaces,
// type aliases, enums, namespaces, their members, and their extends/
// implements relationships — by walking tree-sitter heritage clauses
// syntactically, since TypeScript types have no go/types-style API to query.
package typesystem

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/frontend"
	"github.com/tscg-project/tscg/internal/model"
	"github.com/tscg-project/tscg/internal/registry"
)

// Graph is the project's type graph: every declared type, its members, and
// its extends/implements edges.
type Graph struct {
	types        map[string]*model.TypeDefinition // by id
	byName       map[string][]*model.TypeDefinition
	members      map[string][]*model.TypeMember // by parent type id
	relationships []model.TypeRelationship

	// subtypesOf[T] = direct subtypes of T (classes/interfaces extending or
	// implementing T directly). Used to compute transitive closures.
	subtypesOf map[string][]string
	// supertypesOf[T] = direct supertypes (extends chain only, for member
	// inheritance lookups).
	supertypesOf map[string][]string
}

// Build walks every file in the project, collecting type declarations,
// members, and heritage relationships.
func Build(p *frontend.Project, reg *registry.Registry, logger *zap.Logger) *Graph {
	g := &Graph{
		types:        make(map[string]*model.TypeDefinition),
		byName:       make(map[string][]*model.TypeDefinition),
		members:      make(map[string][]*model.TypeMember),
		subtypesOf:   make(map[string][]string),
		supertypesOf: make(map[string][]string),
	}

	for _, sf := range p.Files() {
		frontend.Walk(sf.Root(), func(n *sitter.Node) bool {
			switch n.Type() {
			case "class_declaration", "abstract_class_declaration":
				g.collectType(sf, n, model.TypeClass, reg)
				return false
			case "interface_declaration":
				g.collectType(sf, n, model.TypeInterface, reg)
				return false
			case "type_alias_declaration":
				g.collectType(sf, n, model.TypeAlias, reg)
				return false
			case "enum_declaration":
				g.collectType(sf, n, model.TypeEnum, reg)
				return false
			case "module", "internal_module":
				g.collectType(sf, n, model.TypeNamespace, reg)
				return true // namespaces can nest declarations worth visiting
			}
			return true
		})
	}

	g.buildRelationships(p, logger)
	return g
}

func (g *Graph) collectType(sf *frontend.SourceFile, n *sitter.Node, kind model.TypeKind, reg *registry.Registry) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := frontend.NodeText(nameNode, sf.Source)
	_, startLine, startCol, endLine, endCol := frontend.Position(sf, n)

	td := &model.TypeDefinition{
		ID:         model.TypeID(name, sf.Path),
		Name:       name,
		Kind:       kind,
		File:       sf.Path,
		IsExported: isExportedNode(n),
		IsGeneric:  n.ChildByFieldName("type_parameters") != nil,
		StartLine:  startLine, StartCol: startCol, EndLine: endLine, EndCol: endCol,
	}
	g.types[td.ID] = td
	g.byName[name] = append(g.byName[name], td)

	if kind == model.TypeClass || kind == model.TypeInterface {
		g.collectMembers(sf, n, td, reg)
	}
}

func isExportedNode(n *sitter.Node) bool {
	parent := n.Parent()
	return parent != nil && parent.Type() == "export_statement"
}

func (g *Graph) collectMembers(sf *frontend.SourceFile, classNode *sitter.Node, td *model.TypeDefinition, reg *registry.Registry) {
	body := classNode.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		member := body.Child(i)
		var tm *model.TypeMember
		switch member.Type() {
		case "method_definition":
			tm = g.buildMethodMember(sf, member, td, reg)
		case "method_signature":
			tm = g.buildSignatureMember(sf, member, td, model.MemberMethod)
		case "public_field_definition":
			tm = g.buildFieldMember(sf, member, td)
		case "property_signature":
			tm = g.buildSignatureMember(sf, member, td, model.MemberProperty)
		case "index_signature":
			tm = &model.TypeMember{ID: model.TypeMemberID(td.ID, "[index]"), ParentType: td.ID, Name: "[index]", Kind: model.MemberIndex}
		case "call_signature":
			tm = &model.TypeMember{ID: model.TypeMemberID(td.ID, "()"), ParentType: td.ID, Name: "()", Kind: model.MemberCallSignature}
		}
		if tm != nil {
			g.members[td.ID] = append(g.members[td.ID], *tm)
		}
	}
}

func (g *Graph) buildMethodMember(sf *frontend.SourceFile, n *sitter.Node, td *model.TypeDefinition, reg *registry.Registry) *model.TypeMember {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := frontend.NodeText(nameNode, sf.Source)
	kind := model.MemberMethod
	if name == "constructor" {
		kind = model.MemberConstructor
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		switch n.Child(i).Type() {
		case "get":
			kind = model.MemberGetter
		case "set":
			kind = model.MemberSetter
		}
	}
	fnID := reg.IDByDeclNode(n)
	return &model.TypeMember{
		ID: model.TypeMemberID(td.ID, name), ParentType: td.ID, Name: name, Kind: kind,
		Static:   hasChild(n, "static"),
		Abstract: hasChild(n, "abstract"),
		FunctionID: fnID,
	}
}

func (g *Graph) buildSignatureMember(sf *frontend.SourceFile, n *sitter.Node, td *model.TypeDefinition, kind model.MemberKind) *model.TypeMember {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := frontend.NodeText(nameNode, sf.Source)
	return &model.TypeMember{ID: model.TypeMemberID(td.ID, name), ParentType: td.ID, Name: name, Kind: kind, Optional: hasChild(n, "?")}
}

func (g *Graph) buildFieldMember(sf *frontend.SourceFile, n *sitter.Node, td *model.TypeDefinition) *model.TypeMember {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := frontend.NodeText(nameNode, sf.Source)
	return &model.TypeMember{
		ID: model.TypeMemberID(td.ID, name), ParentType: td.ID, Name: name, Kind: model.MemberProperty,
		Readonly: hasChild(n, "readonly"), Static: hasChild(n, "static"),
	}
}

func hasChild(n *sitter.Node, kind string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == kind {
			return true
		}
	}
	return false
}

// TypeByName returns every type declared with name (same-name types across
// files are all returned; callers pick by file when disambiguation matters).
func (g *Graph) TypeByName(name string) []*model.TypeDefinition { return g.byName[name] }

// TypeByID returns the type with id, or nil.
func (g *Graph) TypeByID(id string) *model.TypeDefinition { return g.types[id] }

// MembersOf returns every member declared directly on typeID (not walking
// extends).
func (g *Graph) MembersOf(typeID string) []model.TypeMember { return g.members[typeID] }

// Relationships returns every extends/implements edge collected.
func (g *Graph) Relationships() []model.TypeRelationship { return g.relationships }

// DirectSubtypes returns the ids of types directly extending or
// implementing typeID.
func (g *Graph) DirectSubtypes(typeID string) []string { return g.subtypesOf[typeID] }

// DirectSupertypes returns the ids of types typeID directly extends
// (class→class or interface→interface only, not implements).
func (g *Graph) DirectSupertypes(typeID string) []string { return g.supertypesOf[typeID] }

// Snapshot flattens the graph into the three slices the Snapshot Store
// persists, in deterministic order (type id, then member/relationship id)
// so re-running against unchanged sources produces byte-identical rows.
func (g *Graph) Snapshot() ([]model.TypeDefinition, []model.TypeMember, []model.TypeRelationship) {
	defs := make([]model.TypeDefinition, 0, len(g.types))
	for _, td := range g.types {
		defs = append(defs, *td)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })

	var members []model.TypeMember
	for _, td := range defs {
		ms := append([]model.TypeMember(nil), g.members[td.ID]...)
		sort.Slice(ms, func(i, j int) bool { return ms[i].ID < ms[j].ID })
		members = append(members, ms...)
	}

	rels := append([]model.TypeRelationship(nil), g.relationships...)
	sort.Slice(rels, func(i, j int) bool { return rels[i].ID < rels[j].ID })

	return defs, members, rels
}
