package registry

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/tscg-project/tscg/internal/frontend"
	"github.com/tscg-project/tscg/internal/model"
)

func childText(n *sitter.Node, field string, source []byte) string {
	c := n.ChildByFieldName(field)
	return frontend.NodeText(c, source)
}

func hasChildOfType(n *sitter.Node, kind string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == kind {
			return true
		}
	}
	return false
}

func isExported(n *sitter.Node) bool {
	parent := n.Parent()
	return parent != nil && parent.Type() == "export_statement"
}

func accessModifier(n *sitter.Node, source []byte) model.AccessModifier {
	if n == nil {
		return model.AccessPublic
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		switch n.Child(i).Type() {
		case "private":
			return model.AccessPrivate
		case "protected":
			return model.AccessProtected
		case "public":
			return model.AccessPublic
		}
	}
	return model.AccessPublic
}

func extractParameters(n *sitter.Node, source []byte) []model.Parameter {
	paramsNode := n.ChildByFieldName("parameters")
	if paramsNode == nil {
		return nil
	}
	var out []model.Parameter
	pos := 0
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		p := paramsNode.Child(i)
		switch p.Type() {
		case "required_parameter", "optional_parameter":
			param := model.Parameter{Position: pos}
			if nameNode := p.ChildByFieldName("pattern"); nameNode != nil {
				param.Name = frontend.NodeText(nameNode, source)
			}
			if typeNode := p.ChildByFieldName("type"); typeNode != nil {
				param.TypeText = strings.TrimPrefix(frontend.NodeText(typeNode, source), ":")
				param.TypeText = strings.TrimSpace(param.TypeText)
			}
			param.Optional = p.Type() == "optional_parameter"
			out = append(out, param)
			pos++
		case "rest_pattern":
			param := model.Parameter{Position: pos, Rest: true}
			if id := lastNamedChildText(p, source); id != "" {
				param.Name = id
			}
			out = append(out, param)
			pos++
		case "identifier":
			out = append(out, model.Parameter{Name: frontend.NodeText(p, source), Position: pos})
			pos++
		}
	}
	return out
}

func lastNamedChildText(n *sitter.Node, source []byte) string {
	var text string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "identifier" {
			text = frontend.NodeText(c, source)
		}
	}
	return text
}

func returnTypeText(n *sitter.Node, source []byte) string {
	rt := n.ChildByFieldName("return_type")
	if rt == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(frontend.NodeText(rt, source), ":"))
}

// signatureShape summarizes a parameter list and return type into a stable
// string used for the semantic id: the shape survives parameter renames but
// changes if arity, optionality, rest-ness, or the return-type category
// changes.
func signatureShape(params []model.Parameter, returnType string) string {
	var b strings.Builder
	for _, p := range params {
		if p.Optional {
			b.WriteByte('?')
		}
		if p.Rest {
			b.WriteByte('.')
		}
		b.WriteString(p.TypeText)
		b.WriteByte(',')
	}
	b.WriteByte('|')
	b.WriteString(returnType)
	return b.String()
}

var commentPattern = regexp.MustCompile(`//[^\n]*|/\*[\s\S]*?\*/`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// normalizeBody strips comments and collapses whitespace so the content id
// changes iff the function's observable body text changes.
func normalizeBody(n *sitter.Node, source []byte) string {
	body := n.ChildByFieldName("body")
	if body == nil {
		body = n
	}
	text := frontend.NodeText(body, source)
	text = commentPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
