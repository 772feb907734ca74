package frontend

import sitter "github.com/smacker/go-tree-sitter"

// knownGlobalNamespaces are receivers Stage 6 classifies as "builtin":
// well-known runtime objects every TS/JS program can reach without an
// import.
var knownGlobalNamespaces = map[string]bool{
	"console": true, "process": true, "Math": true, "JSON": true,
	"Object": true, "Array": true, "Reflect": true, "Promise": true,
}

// knownRuntimeGlobals are identifiers Stage 6 classifies as "global":
// timer, parsing, and encoding primitives available without an import.
var knownRuntimeGlobals = map[string]bool{
	"setTimeout": true, "setInterval": true, "clearTimeout": true, "clearInterval": true,
	"parseInt": true, "parseFloat": true, "isNaN": true, "isFinite": true,
	"encodeURIComponent": true, "decodeURIComponent": true, "encodeURI": true, "decodeURI": true,
	"Symbol": true, "BigInt": true, "structuredClone": true, "fetch": true,
	"queueMicrotask": true,
}

// builtinTypeNames are TypeScript/JS builtin and lib.d.ts type names: not
// project-defined, so never a CHA/RTA/type-reference target.
var builtinTypeNames = map[string]bool{
	"string": true, "number": true, "boolean": true, "bigint": true,
	"symbol": true, "any": true, "void": true, "null": true,
	"undefined": true, "never": true, "unknown": true, "object": true,

	"Array": true, "Object": true, "Function": true, "Promise": true,
	"Map": true, "Set": true, "WeakMap": true, "WeakSet": true,
	"Error": true, "TypeError": true, "RangeError": true, "SyntaxError": true,
	"ReferenceError": true, "EvalError": true, "URIError": true,
	"Date": true, "RegExp": true, "JSON": true, "Math": true,
	"console": true, "window": true, "document": true, "global": true,
	"process": true,

	"Partial": true, "Required": true, "Readonly": true, "Record": true,
	"Pick": true, "Omit": true, "Exclude": true, "Extract": true,
	"NonNullable": true, "Parameters": true, "ConstructorParameters": true,
	"ReturnType": true, "InstanceType": true, "ThisParameterType": true,
	"OmitThisParameter": true, "ThisType": true, "Uppercase": true,
	"Lowercase": true, "Capitalize": true, "Uncapitalize": true,

	"ArrayBuffer": true, "SharedArrayBuffer": true, "DataView": true,
	"Int8Array": true, "Uint8Array": true, "Uint8ClampedArray": true,
	"Int16Array": true, "Uint16Array": true, "Int32Array": true,
	"Uint32Array": true, "Float32Array": true, "Float64Array": true,
	"BigInt64Array": true, "BigUint64Array": true,

	"AsyncFunction": true, "Generator": true, "GeneratorFunction": true,
	"AsyncGenerator": true, "AsyncGeneratorFunction": true,
	"Iterator": true, "AsyncIterator": true, "Iterable": true,
	"AsyncIterable": true, "IterableIterator": true,

	"Element": true, "HTMLElement": true, "Event": true, "EventTarget": true,
	"Node": true, "NodeList": true, "Document": true, "Window": true,
}

// IsBuiltinType reports whether name is a lib.d.ts / global builtin rather
// than a project-defined type.
func IsBuiltinType(name string) bool {
	return builtinTypeNames[name]
}

// IsKnownGlobalNamespace reports whether receiver is a well-known global
// object (Stage 6 "builtin" classification).
func IsKnownGlobalNamespace(receiver string) bool {
	return knownGlobalNamespaces[receiver]
}

// IsKnownRuntimeGlobal reports whether name is a runtime global function
// available without an import (Stage 6 "global" classification).
func IsKnownRuntimeGlobal(name string) bool {
	return knownRuntimeGlobals[name]
}

// IsConditionalCall walks up from node to the enclosing function/class
// boundary, reporting whether the call sits inside an if/switch/ternary.
// Used to populate a CallEdge's call context (ContextConditional).
func IsConditionalCall(node *sitter.Node) bool {
	parent := node.Parent()
	for parent != nil {
		switch parent.Type() {
		case "if_statement", "switch_statement", "ternary_expression", "conditional_expression":
			return true
		case "function_declaration", "method_definition", "arrow_function",
			"function_expression", "class_declaration", "generator_function_declaration":
			return false
		}
		parent = parent.Parent()
	}
	return false
}

// IsInLoop walks up from node reporting whether it sits inside a loop body,
// stopping at the enclosing function/class boundary.
func IsInLoop(node *sitter.Node) bool {
	parent := node.Parent()
	for parent != nil {
		switch parent.Type() {
		case "for_statement", "for_in_statement", "while_statement", "do_statement":
			return true
		case "function_declaration", "method_definition", "arrow_function",
			"function_expression", "class_declaration", "generator_function_declaration":
			return false
		}
		parent = parent.Parent()
	}
	return false
}

// IsInTryOrCatch walks up from node reporting whether it sits inside a try
// block or a catch clause, and which.
func IsInTryOrCatch(node *sitter.Node) (inTry, inCatch bool) {
	parent := node.Parent()
	for parent != nil {
		switch parent.Type() {
		case "catch_clause":
			return false, true
		case "try_statement":
			return true, false
		case "function_declaration", "method_definition", "arrow_function",
			"function_expression", "class_declaration", "generator_function_declaration":
			return false, false
		}
		parent = parent.Parent()
	}
	return false, false
}

// IsInTypeContext reports whether node (typically a member_expression) sits
// in a type annotation rather than a value expression, so type-reference
// extraction doesn't mistake `Foo.Bar` value access for a type name.
func IsInTypeContext(node *sitter.Node) bool {
	parent := node.Parent()
	for parent != nil {
		switch parent.Type() {
		case "type_annotation", "type_alias_declaration", "interface_declaration",
			"type_parameter", "constraint", "default_type", "as_expression",
			"satisfies_expression", "implements_clause", "extends_clause",
			"extends_type_clause":
			return true
		case "call_expression", "new_expression":
			return false
		}
		parent = parent.Parent()
	}
	return false
}
