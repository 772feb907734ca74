// Package model defines the entities persisted by the call-graph engine:
// functions, call edges, the type graph, and the snapshot that owns them.
package model

import "time"

// FunctionKind is the syntactic shape of a function-like declaration.
type FunctionKind string

const (
	KindFreeFunction     FunctionKind = "free-function"
	KindMethod           FunctionKind = "method"
	KindArrow            FunctionKind = "arrow"
	KindFunctionExpr     FunctionKind = "function-expression"
	KindConstructor      FunctionKind = "constructor"
	KindAccessor         FunctionKind = "accessor"
)

// AccessModifier mirrors TypeScript's class member visibility keywords.
type AccessModifier string

const (
	AccessPublic    AccessModifier = "public"
	AccessPrivate   AccessModifier = "private"
	AccessProtected AccessModifier = "protected"
)

// Parameter is one entry of a function's parameter list.
type Parameter struct {
	Name     string
	TypeText string
	Optional bool
	Rest     bool
	Position int
}

// QualityMetrics holds fields an external collaborator populates. The core
// engine neither computes nor reads these values.
type QualityMetrics struct {
	CyclomaticComplexity int
	CognitiveComplexity  int
	LinesOfCode          int
	MaintainabilityIndex float64
}

// Function is the primary entity: one function-like declaration found by
// the Function Registry.
type Function struct {
	PhysicalID string
	SemanticID string
	ContentID  string

	File      string // normalized to "/src/..." POSIX form
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int

	Name       string
	Parameters []Parameter
	ReturnType string
	IsAsync    bool
	IsGenerator bool

	ContextPath string // enclosing class/namespace chain, dot-joined
	Kind        FunctionKind
	Access      AccessModifier
	IsStatic    bool
	IsExported  bool

	Metrics QualityMetrics
}

// CallType classifies the syntactic shape of a call expression.
type CallType string

const (
	CallDirect      CallType = "direct"
	CallMethod      CallType = "method"
	CallConstructor CallType = "constructor"
	CallDynamic     CallType = "dynamic"
	CallAsync       CallType = "async"
	CallExternal    CallType = "external"
	CallVirtual     CallType = "virtual"
)

// CallContext classifies the control-flow position of a call site.
type CallContext string

const (
	ContextNormal      CallContext = "normal"
	ContextConditional CallContext = "conditional"
	ContextLoop        CallContext = "loop"
	ContextTry         CallContext = "try"
	ContextCatch       CallContext = "catch"
	ContextConstructor CallContext = "constructor"
	ContextCallback    CallContext = "callback"
)

// ResolutionLevel identifies which pipeline stage established an edge, and
// acts as a proxy for the edge's precision.
type ResolutionLevel string

const (
	ResolutionLocalExact       ResolutionLevel = "local_exact"
	ResolutionImportExact      ResolutionLevel = "import_exact"
	ResolutionCHAResolved      ResolutionLevel = "cha_resolved"
	ResolutionRTAResolved      ResolutionLevel = "rta_resolved"
	ResolutionRuntimeConfirmed ResolutionLevel = "runtime_confirmed"
	ResolutionExternalDetected ResolutionLevel = "external_detected"
	ResolutionVirtualCallback  ResolutionLevel = "virtual_callback"
	ResolutionDBBridge         ResolutionLevel = "db_bridge"
)

// ConfidenceRange returns the closed [low, high] range a resolution level
// permits; Confidence(e) must lie within the range for e's level.
func ConfidenceRange(level ResolutionLevel) (low, high float64) {
	switch level {
	case ResolutionLocalExact:
		return 1.0, 1.0
	case ResolutionImportExact:
		return 0.95, 0.95
	case ResolutionCHAResolved:
		return 0.8, 0.8
	case ResolutionRTAResolved:
		return 0.9, 0.9
	case ResolutionRuntimeConfirmed:
		return 1.0, 1.0
	case ResolutionExternalDetected:
		return 0.7, 0.95
	case ResolutionVirtualCallback:
		return 0.7, 0.9
	case ResolutionDBBridge:
		return 0.95, 0.95
	default:
		return 0, 0
	}
}

// CallEdge is a directed relation from a caller function to either a
// resolved callee function or an unresolved symbolic name.
type CallEdge struct {
	ID string

	CallerID    string
	CalleeID    string // empty when unresolved (external_detected)
	CalleeName  string // display name, always populated
	Candidates  []string

	File string
	Line int
	Col  int

	CallType    CallType
	Context     CallContext
	Resolution  ResolutionLevel
	Confidence  float64
	IsAsync     bool
	IsChained   bool

	// RuntimeConfirmed is set by Stage 5 when a trace observed this exact
	// static edge actually executing.
	RuntimeConfirmed bool

	// Namespace/Property are populated for external_detected edges.
	Namespace string
	Property  string
}

// TypeKind classifies a type-graph entity.
type TypeKind string

const (
	TypeClass     TypeKind = "class"
	TypeInterface TypeKind = "interface"
	TypeAlias     TypeKind = "type-alias"
	TypeEnum      TypeKind = "enum"
	TypeNamespace TypeKind = "namespace"
)

// TypeDefinition is a class, interface, type alias, enum, or namespace.
type TypeDefinition struct {
	ID         string
	Name       string
	Kind       TypeKind
	File       string
	IsExported bool
	IsGeneric  bool

	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// MemberKind classifies a type member.
type MemberKind string

const (
	MemberMethod        MemberKind = "method"
	MemberGetter        MemberKind = "getter"
	MemberSetter        MemberKind = "setter"
	MemberProperty      MemberKind = "property"
	MemberConstructor   MemberKind = "constructor"
	MemberIndex         MemberKind = "index"
	MemberCallSignature MemberKind = "call-signature"
)

// TypeMember is one member (method, property, accessor, ...) of a type.
type TypeMember struct {
	ID         string
	ParentType string
	Name       string
	Kind       MemberKind
	Optional   bool
	Readonly   bool
	Static     bool
	Abstract   bool
	FunctionID string // populated when the member is backed by a known Function
	Signature  string
}

// RelationshipKind is the kind of edge between two types.
type RelationshipKind string

const (
	RelationshipExtends    RelationshipKind = "extends"
	RelationshipImplements RelationshipKind = "implements"
)

// TypeRelationship is an edge in the type graph.
type TypeRelationship struct {
	ID         string
	FromTypeID string
	ToTypeID   string
	Kind       RelationshipKind
}

// GitMeta captures the repository state a snapshot was taken against.
type GitMeta struct {
	Commit string
	Branch string
	Tag    string
}

// Snapshot is an immutable analysis result set.
type Snapshot struct {
	ID         string
	CreatedAt  time.Time
	Label      string
	SourceRoot string
	ConfigHash string
	Git        GitMeta

	FunctionCount     int
	EdgeCount         int
	TypeCount         int
	UnresolvedCount   int
	SkippedFileCount  int
}
