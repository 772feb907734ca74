package frontend

import sitter "github.com/smacker/go-tree-sitter"

// CallSiteKind tags the syntactic shape of a call expression's target.
// Unknown shapes are represented by CallSiteUnknown rather than dropped at
// classification; they reach Stage 1's unresolved residue, but no later
// stage emits an edge for them.
type CallSiteKind int

const (
	CallSiteUnknown CallSiteKind = iota
	CallSiteLocalIdentifier
	CallSitePropertyAccess
	CallSiteElementAccess
	CallSiteNew
	CallSiteAwait
)

// CallSite is a tagged variant describing one call or new expression.
// Exactly the fields relevant to Kind are populated; stages that don't
// handle a given Kind pass the CallSite on unchanged.
type CallSite struct {
	Kind CallSiteKind

	// LocalIdentifier: Name is the called identifier.
	// PropertyAccess/ElementAccess: Receiver is the receiver expression
	// text, Name is the accessed member (ElementAccess leaves Name empty
	// and populates IndexExpr instead).
	// New: Name is the constructed type's name.
	Name      string
	Receiver  string
	IndexExpr string

	// ReceiverIsThis is set when Receiver is a this/super expression —
	// the common "this.m(...)" shape Stage 1 resolves against the
	// enclosing class's own members.
	ReceiverIsThis bool

	// Inner wraps the awaited call site for CallSiteAwait.
	Inner *CallSite

	Node *sitter.Node

	File string
	Line int
	Col  int

	Chained bool // call target is itself a call_expression (a()())
}

// ClassifyCallTarget inspects the "function" child of a call_expression (or
// the constructor child of a new_expression) and produces its tagged
// CallSite. Node types not recognized fall through to CallSiteUnknown so
// later stages still see the call, just without a resolved target shape.
func ClassifyCallTarget(target *sitter.Node, source []byte) CallSite {
	if target == nil {
		return CallSite{Kind: CallSiteUnknown}
	}
	switch target.Type() {
	case "identifier":
		return CallSite{Kind: CallSiteLocalIdentifier, Name: NodeText(target, source), Node: target}
	case "this":
		return CallSite{Kind: CallSitePropertyAccess, ReceiverIsThis: true, Receiver: "this", Node: target}
	case "super":
		return CallSite{Kind: CallSitePropertyAccess, ReceiverIsThis: true, Receiver: "super", Node: target}
	case "member_expression":
		obj := target.ChildByFieldName("object")
		prop := target.ChildByFieldName("property")
		cs := CallSite{Kind: CallSitePropertyAccess, Node: target}
		if obj != nil {
			cs.Receiver = NodeText(obj, source)
			cs.ReceiverIsThis = obj.Type() == "this" || obj.Type() == "super"
		}
		if prop != nil {
			cs.Name = NodeText(prop, source)
		}
		return cs
	case "subscript_expression":
		obj := target.ChildByFieldName("object")
		idx := target.ChildByFieldName("index")
		cs := CallSite{Kind: CallSiteElementAccess, Node: target}
		if obj != nil {
			cs.Receiver = NodeText(obj, source)
		}
		if idx != nil {
			cs.IndexExpr = NodeText(idx, source)
		}
		return cs
	case "call_expression":
		// Chained call: a()() — the target of the outer call is itself
		// a call. No static name to resolve; the site is classified
		// Unknown and marked Chained.
		return CallSite{Kind: CallSiteUnknown, Chained: true, Node: target}
	case "parenthesized_expression", "await_expression":
		if target.Type() == "await_expression" {
			inner := target.NamedChild(0)
			innerCS := ClassifyCallTarget(inner, source)
			return CallSite{Kind: CallSiteAwait, Inner: &innerCS, Node: target}
		}
		return CallSite{Kind: CallSiteUnknown, Node: target}
	default:
		return CallSite{Kind: CallSiteUnknown, Node: target}
	}
}
