package frontend

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// SymbolInfo is the result of resolving an identifier to its declaration.
type SymbolInfo struct {
	File string
	Node *sitter.Node
	Name string
}

// importBinding records one local name bound by an import statement:
// `import { f as g } from "./util"` binds local name "g" to exported name
// "f" in the module resolved from "./util".
type importBinding struct {
	LocalName    string
	ExportedName string // empty for a namespace import ("import * as ns")
	ModuleSpec   string
	IsNamespace  bool
}

type importIndex struct {
	// bindings[file][localName] -> importBinding
	bindings map[string]map[string]importBinding
	// exports[file][exportedName] -> declaration node
	exports map[string]map[string]*sitter.Node
	// reexports[file][exportedName] -> (moduleSpec, originalName)
	reexports map[string]map[string]reexport
}

type reexport struct {
	ModuleSpec   string
	OriginalName string
}

func buildImportIndex(p *Project) *importIndex {
	idx := &importIndex{
		bindings:  make(map[string]map[string]importBinding),
		exports:   make(map[string]map[string]*sitter.Node),
		reexports: make(map[string]map[string]reexport),
	}
	for _, sf := range p.Files() {
		idx.bindings[sf.Path] = make(map[string]importBinding)
		idx.exports[sf.Path] = make(map[string]*sitter.Node)
		idx.reexports[sf.Path] = make(map[string]reexport)

		Walk(sf.Root(), func(n *sitter.Node) bool {
			switch n.Type() {
			case "import_statement":
				collectImportBindings(n, sf, idx.bindings[sf.Path])
			case "export_statement":
				collectExports(n, sf, idx.exports[sf.Path], idx.reexports[sf.Path])
			}
			return true
		})
	}
	return idx
}

func collectImportBindings(n *sitter.Node, sf *SourceFile, out map[string]importBinding) {
	source := sf.Source
	var moduleSpec string
	if src := n.ChildByFieldName("source"); src != nil {
		moduleSpec = strings.Trim(NodeText(src, source), `"'`)
	}
	var clause *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "import_clause" {
			clause = c
			break
		}
	}
	if clause == nil {
		return
	}
	Walk(clause, func(c *sitter.Node) bool {
		switch c.Type() {
		case "identifier":
			// default import: `import Foo from "./x"`
			out[NodeText(c, source)] = importBinding{
				LocalName: NodeText(c, source), ExportedName: "default", ModuleSpec: moduleSpec,
			}
		case "namespace_import":
			if id := lastIdentifier(c, source); id != "" {
				out[id] = importBinding{LocalName: id, ModuleSpec: moduleSpec, IsNamespace: true}
			}
			return false
		case "named_imports":
			Walk(c, func(spec *sitter.Node) bool {
				if spec.Type() != "import_specifier" {
					return true
				}
				nameNode := spec.ChildByFieldName("name")
				aliasNode := spec.ChildByFieldName("alias")
				if nameNode == nil {
					return true
				}
				exported := NodeText(nameNode, source)
				local := exported
				if aliasNode != nil {
					local = NodeText(aliasNode, source)
				}
				out[local] = importBinding{LocalName: local, ExportedName: exported, ModuleSpec: moduleSpec}
				return false
			})
			return false
		}
		return true
	})
}

func lastIdentifier(n *sitter.Node, source []byte) string {
	var last string
	Walk(n, func(c *sitter.Node) bool {
		if c.Type() == "identifier" {
			last = NodeText(c, source)
		}
		return true
	})
	return last
}

func collectExports(n *sitter.Node, sf *SourceFile, exports map[string]*sitter.Node, reexports map[string]reexport) {
	source := sf.Source
	// `export * from "./x"` and `export { a, b } from "./x"` are re-exports.
	if src := n.ChildByFieldName("source"); src != nil {
		moduleSpec := strings.Trim(NodeText(src, source), `"'`)
		Walk(n, func(c *sitter.Node) bool {
			if c.Type() == "export_specifier" {
				nameNode := c.ChildByFieldName("name")
				aliasNode := c.ChildByFieldName("alias")
				if nameNode == nil {
					return true
				}
				original := NodeText(nameNode, source)
				exported := original
				if aliasNode != nil {
					exported = NodeText(aliasNode, source)
				}
				reexports[exported] = reexport{ModuleSpec: moduleSpec, OriginalName: original}
				return false
			}
			return true
		})
		return
	}

	// `export function f() {}`, `export class C {}`, `export const x = ...`,
	// `export { a, b }` (local re-export), `export default ...`.
	declNode := n.NamedChild(0)
	if declNode == nil {
		return
	}
	switch declNode.Type() {
	case "function_declaration", "class_declaration", "interface_declaration",
		"abstract_class_declaration", "type_alias_declaration", "enum_declaration",
		"generator_function_declaration":
		if name := declName(declNode, source); name != "" {
			exports[name] = declNode
		}
	case "lexical_declaration", "variable_declaration":
		Walk(declNode, func(c *sitter.Node) bool {
			if c.Type() == "variable_declarator" {
				if nameNode := c.ChildByFieldName("name"); nameNode != nil {
					exports[NodeText(nameNode, source)] = c
				}
				return false
			}
			return true
		})
	case "export_clause":
		Walk(declNode, func(c *sitter.Node) bool {
			if c.Type() == "export_specifier" {
				nameNode := c.ChildByFieldName("name")
				aliasNode := c.ChildByFieldName("alias")
				if nameNode == nil {
					return true
				}
				exported := NodeText(nameNode, source)
				if aliasNode != nil {
					exported = NodeText(aliasNode, source)
				}
				exports[exported] = nil // resolved indirectly via local scope lookup by Stage 2
				return false
			}
			return true
		})
	default:
		// `export default function() {...}` or `export default expr`
		exports["default"] = declNode
	}
}

func declName(n *sitter.Node, source []byte) string {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return NodeText(nameNode, source)
	}
	return ""
}

// ResolveSymbol resolves a local name used in fromFile to its declaration,
// chasing import and re-export chains until a declaration node is reached
// or a cycle is detected (a cycle stops resolution and reports not-found
// rather than looping).
func (p *Project) ResolveSymbol(fromFile, name string) (*SymbolInfo, bool) {
	seen := make(map[string]bool)
	return p.resolveSymbol(fromFile, name, seen)
}

func (p *Project) resolveSymbol(file, name string, seen map[string]bool) (*SymbolInfo, bool) {
	key := file + "#" + name
	if seen[key] {
		return nil, false // cycle: first-seen wins, so a repeat means "not found from here"
	}
	seen[key] = true

	if binding, ok := p.importIndex.bindings[file][name]; ok {
		target := p.resolveModuleSpec(file, binding.ModuleSpec)
		if target == "" {
			return nil, false
		}
		exported := binding.ExportedName
		if binding.IsNamespace {
			// Namespace import: the caller must re-resolve per-property at
			// the call site; ResolveSymbol only hands back the module file.
			return &SymbolInfo{File: target, Name: "*"}, true
		}
		return p.resolveExport(target, exported, seen)
	}

	// Not imported: look for a same-file declaration.
	if sf := p.FileOf(file); sf != nil {
		if decl := findLocalDecl(sf, name); decl != nil {
			return &SymbolInfo{File: file, Node: decl, Name: name}, true
		}
	}
	return nil, false
}

func (p *Project) resolveExport(file, name string, seen map[string]bool) (*SymbolInfo, bool) {
	if re, ok := p.importIndex.reexports[file][name]; ok {
		target := p.resolveModuleSpec(file, re.ModuleSpec)
		if target == "" {
			return nil, false
		}
		return p.resolveExport(target, re.OriginalName, seen)
	}
	if decl, ok := p.importIndex.exports[file][name]; ok {
		if decl != nil {
			return &SymbolInfo{File: file, Node: decl, Name: name}, true
		}
		// export_clause re-export of a local symbol: resolve name in this
		// file's own scope.
		return p.resolveSymbol(file, name, seen)
	}
	return nil, false
}

func findLocalDecl(sf *SourceFile, name string) *sitter.Node {
	var found *sitter.Node
	Walk(sf.Root(), func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		switch n.Type() {
		case "function_declaration", "class_declaration", "interface_declaration",
			"type_alias_declaration", "enum_declaration", "generator_function_declaration":
			if declName(n, sf.Source) == name {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

// resolveModuleSpec turns a relative import specifier into a normalized
// project file path, trying .ts then .tsx then an index file.
func (p *Project) resolveModuleSpec(fromFile, spec string) string {
	if !strings.HasPrefix(spec, ".") {
		return "" // external package import; Stage 6's concern, not the frontend's
	}
	dir := filepath.Dir(fromFile)
	joined := filepath.ToSlash(filepath.Join(dir, spec))
	candidates := []string{
		joined + ".ts", joined + ".tsx",
		joined + "/index.ts", joined + "/index.tsx",
	}
	for _, c := range candidates {
		if _, ok := p.files[c]; ok {
			return c
		}
	}
	return ""
}
