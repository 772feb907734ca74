package frontend

import sitter "github.com/smacker/go-tree-sitter"

// Walk performs a depth-first traversal of an AST, invoking fn on every
// node. Returning false from fn stops descent into that node's subtree
// (the node's siblings are still visited), matching the convention used
// throughout the TypeScript extraction idiom this package follows.
func Walk(node *sitter.Node, fn func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		Walk(node.Child(i), fn)
	}
}

// DescendantsOfKind collects every descendant of node (node itself
// included) whose tree-sitter type equals kind.
func DescendantsOfKind(node *sitter.Node, kind string) []*sitter.Node {
	var out []*sitter.Node
	Walk(node, func(n *sitter.Node) bool {
		if n.Type() == kind {
			out = append(out, n)
		}
		return true
	})
	return out
}

// NodeText returns the source text spanned by node, bounds-checked against
// the backing buffer so a corrupt range never panics.
func NodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	end := int(node.EndByte())
	if end > len(source) || int(node.StartByte()) > end {
		return ""
	}
	return string(source[node.StartByte():end])
}
