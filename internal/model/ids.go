package model

import (
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// hashID hashes a set of components into 16 hex characters (64-bit xxhash)
// and returns them behind a semantic prefix, as "prefix:hex"; the prefix
// itself is not hashed. Components are joined with a separator that cannot
// appear inside any single component value (file paths, qualified names).
func hashID(prefix string, parts ...string) string {
	h := xxhash.New()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0x1f}) // unit separator
	}
	sum := h.Sum(nil)
	return prefix + ":" + hex.EncodeToString(sum)
}

// PhysicalFunctionID identifies a function by its lexical position: file,
// start line, start column, and declaration kind. It changes whenever the
// function moves, even if nothing inside it changed.
func PhysicalFunctionID(file string, startLine, startCol int, kind string) string {
	return hashID("fn", file, fmt.Sprintf("%d:%d", startLine, startCol), kind)
}

// SemanticFunctionID identifies a function by its qualified name and
// signature shape. It stays stable across non-behavioral edits (moving the
// function, reformatting its body) as long as the name and parameter/return
// shape are unchanged.
func SemanticFunctionID(qualifiedName, signatureShape string) string {
	return hashID("sem", qualifiedName, signatureShape)
}

// ContentFunctionID identifies a function by its normalized body text. It
// changes if and only if the body changes.
func ContentFunctionID(normalizedBody string) string {
	return hashID("body", normalizedBody)
}

// CallEdgeID identifies a call edge by caller, callee (possibly empty/unknown
// until later stages resolve it further), and call-site position.
func CallEdgeID(callerID, calleeID, file string, line, col int) string {
	return hashID("edge", callerID, calleeID, file, fmt.Sprintf("%d:%d", line, col))
}

// TypeID identifies a type definition by its qualified name and file.
func TypeID(qualifiedName, file string) string {
	return hashID("typ", qualifiedName, file)
}

// TypeMemberID identifies a member (method or field) of a type.
func TypeMemberID(typeID, memberName string) string {
	return hashID("mem", typeID, memberName)
}

// TypeRelationshipID identifies a relationship edge between two types.
func TypeRelationshipID(fromTypeID, toTypeID, kind string) string {
	return hashID("rel", fromTypeID, toTypeID, kind)
}

// ExternalStubID identifies a synthetic function standing in for a callee
// the engine cannot resolve to a declaration in the current project — an
// external library member, a dynamic dispatch target, or an unresolved
// import. Stable across runs as long as the receiver type name and member
// name are unchanged.
func ExternalStubID(typeName, memberName string) string {
	return hashID("ext", typeName, memberName)
}
