package typesystem

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/frontend"
	"github.com/tscg-project/tscg/internal/model"
)

// buildRelationships walks every class/interface declaration's heritage
// clauses (extends_clause, implements_clause, extends_type_clause) and
// records extends/implements edges. `implements` sources must be classes
// and targets interfaces; `extends` is class→class or interface→interface.
func (g *Graph) buildRelationships(p *frontend.Project, logger *zap.Logger) {
	for _, sf := range p.Files() {
		frontend.Walk(sf.Root(), func(n *sitter.Node) bool {
			switch n.Type() {
			case "class_declaration", "abstract_class_declaration":
				g.collectHeritage(sf, n, model.TypeClass)
				return false
			case "interface_declaration":
				g.collectHeritage(sf, n, model.TypeInterface)
				return false
			}
			return true
		})
	}
	g.breakCyclesAndWarn(logger)
}

func (g *Graph) collectHeritage(sf *frontend.SourceFile, n *sitter.Node, sourceKind model.TypeKind) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	sourceName := frontend.NodeText(nameNode, sf.Source)
	sourceID := model.TypeID(sourceName, sf.Path)

	frontend.Walk(n, func(c *sitter.Node) bool {
		switch c.Type() {
		case "class_heritage":
			return true
		case "extends_clause":
			g.emitHeritageTargets(sf, c, sourceID, model.RelationshipExtends)
			return false
		case "implements_clause":
			g.emitHeritageTargets(sf, c, sourceID, model.RelationshipImplements)
			return false
		case "extends_type_clause":
			g.emitHeritageTargets(sf, c, sourceID, model.RelationshipExtends)
			return false
		}
		return n == c // only descend into the declaration node itself initially
	})
}

func (g *Graph) emitHeritageTargets(sf *frontend.SourceFile, clause *sitter.Node, sourceID string, kind model.RelationshipKind) {
	frontend.Walk(clause, func(c *sitter.Node) bool {
		switch c.Type() {
		case "identifier", "type_identifier":
			g.addRelationship(sf, c, sourceID, kind)
		case "member_expression", "nested_type_identifier":
			g.addRelationship(sf, c, sourceID, kind)
			return false
		}
		return true
	})
}

func (g *Graph) addRelationship(sf *frontend.SourceFile, targetNode *sitter.Node, sourceID string, kind model.RelationshipKind) {
	targetName := frontend.NodeText(targetNode, sf.Source)
	if targetName == "" || frontend.IsBuiltinType(targetName) {
		return
	}
	// The target type may live in another file; resolve by name across the
	// whole project's type table (heritage clauses reference the imported
	// name, and two files rarely declare colliding type names in practice —
	// ambiguity here is resolved by preferring a type in the same file).
	targetID := g.resolveTypeIDByName(targetName, sf.Path)
	if targetID == "" {
		return
	}
	rel := model.TypeRelationship{ID: model.TypeRelationshipID(sourceID, targetID, string(kind)), FromTypeID: sourceID, ToTypeID: targetID, Kind: kind}
	g.relationships = append(g.relationships, rel)
	g.subtypesOf[targetID] = append(g.subtypesOf[targetID], sourceID)
	if kind == model.RelationshipExtends {
		g.supertypesOf[sourceID] = append(g.supertypesOf[sourceID], targetID)
	}
}

func (g *Graph) resolveTypeIDByName(name, preferFile string) string {
	candidates := g.byName[name]
	if len(candidates) == 0 {
		return ""
	}
	for _, c := range candidates {
		if c.File == preferFile {
			return c.ID
		}
	}
	return candidates[0].ID
}

// breakCyclesAndWarn detects cycles in the extends relation (class→class or
// interface→interface) and removes the back-edge that closes each cycle,
// recording a warning; analysis continues with the partial chain.
func (g *Graph) breakCyclesAndWarn(logger *zap.Logger) {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(id string, path []string)
	visit = func(id string, path []string) {
		if visited[id] {
			return
		}
		if visiting[id] {
			if logger != nil {
				logger.Warn("typesystem.extends_cycle", zap.Strings("cycle", append(path, id)))
			}
			// break the cycle: drop the edge that led back into the revisited node
			from := path[len(path)-1]
			g.supertypesOf[from] = removeFirst(g.supertypesOf[from], id)
			return
		}
		visiting[id] = true
		for _, sup := range g.supertypesOf[id] {
			visit(sup, append(path, id))
		}
		visiting[id] = false
		visited[id] = true
	}

	for id := range g.types {
		visit(id, nil)
	}
}

func removeFirst(ids []string, target string) []string {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// TransitiveSubtypes returns every type that is a subtype of typeID under
// extends∪implements: classes implementing typeID directly, classes
// extending those classes, interfaces extending typeID and their
// implementers. Deterministically ordered by declaring-type name.
func (g *Graph) TransitiveSubtypes(typeID string) []*model.TypeDefinition {
	seen := map[string]bool{typeID: true}
	var out []*model.TypeDefinition
	queue := append([]string{}, g.subtypesOf[typeID]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		if td := g.types[id]; td != nil {
			out = append(out, td)
		}
		queue = append(queue, g.subtypesOf[id]...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResolveMember walks typeID's extends chain (depth-bounded) looking for a
// member named name, returning the first match found (the most-derived
// declaration wins since the search starts at typeID itself).
func (g *Graph) ResolveMember(typeID, name string, maxDepth int) *model.TypeMember {
	current := typeID
	for depth := 0; depth < maxDepth && current != ""; depth++ {
		for _, m := range g.members[current] {
			if m.Name == name {
				mCopy := m
				return &mCopy
			}
		}
		supers := g.supertypesOf[current]
		if len(supers) == 0 {
			break
		}
		current = supers[0]
	}
	return nil
}
