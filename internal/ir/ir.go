// Package ir defines the language-agnostic intermediate representation
// produced by the analysis engine: an outline tree, per-function control-flow
// graphs, call edges, a class table, and an import list. Documents are built
// once via a Builder and never mutated afterwards.
package ir

// Position is a 1-based line/column location in source text. Byte offsets
// never appear in the IR; they are an edit-manager concern.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// NodeKind classifies an outline declaration.
type NodeKind string

const (
	KindModule    NodeKind = "module"
	KindNamespace NodeKind = "namespace"
	KindClass     NodeKind = "class"
	KindStruct    NodeKind = "struct"
	KindInterface NodeKind = "interface"
	KindFunction  NodeKind = "function"
	KindMethod    NodeKind = "method"
)

// OutlineNode is a single declaration in the outline tree. ParentID is empty
// only for the synthetic module root.
type OutlineNode struct {
	ID         string   `json:"id"`
	Kind       NodeKind `json:"kind"`
	Name       string   `json:"name"`
	ParentID   string   `json:"parentId,omitempty"`
	Range      Range    `json:"range"`
	Params     []string `json:"params,omitempty"`
	Visibility string   `json:"visibility,omitempty"`
}

// CFGNodeKind is the tagged-union discriminator for CFG nodes.
type CFGNodeKind string

const (
	CFGStart  CFGNodeKind = "start"
	CFGEnd    CFGNodeKind = "end"
	CFGStmt   CFGNodeKind = "stmt"
	CFGCond   CFGNodeKind = "cond"
	CFGSwitch CFGNodeKind = "switch"
)

// CFGNode is one node in a control-flow graph. Label and Range are unset for
// start/end nodes; Cases is populated only for switch nodes.
type CFGNode struct {
	ID    string      `json:"id"`
	Kind  CFGNodeKind `json:"kind"`
	Label string      `json:"label,omitempty"`
	Cases []string    `json:"cases,omitempty"`
	Range *Range      `json:"range,omitempty"`
}

// CFGEdge connects two CFG nodes. Labels are "true"/"false" out of cond
// nodes and "case: X"/"default" out of switch nodes.
type CFGEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// CFG is the control-flow graph of one function or method. FuncID equals the
// owning outline node's ID. Every CFG has exactly one start node (no incoming
// edges) and one end node (no outgoing edges).
type CFG struct {
	FuncID string    `json:"funcId"`
	Nodes  []CFGNode `json:"nodes"`
	Edges  []CFGEdge `json:"edges"`
}

// CallKind distinguishes bare calls from member-access calls.
type CallKind string

const (
	CallDirect CallKind = "direct"
	CallMember CallKind = "member"
)

// CallEdge records a call site inside a function. CalleeName is always the
// bare final identifier of the callee expression, never empty.
type CallEdge struct {
	CallerID   string   `json:"callerId"`
	CalleeName string   `json:"calleeName"`
	Kind       CallKind `json:"kind"`
}

// ClassInfo summarizes a class-like declaration for class diagrams.
type ClassInfo struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Methods []string `json:"methods"`
	Bases   []string `json:"bases,omitempty"`
}

// ImportEntry is one imported module or namespace, with its local alias when
// the source declares one.
type ImportEntry struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

// Document is the engine's sole output artifact. Consumers must treat it as
// immutable; a fresh Document is produced per analysis.
type Document struct {
	Outline []OutlineNode `json:"outline"`
	CFGs    []CFG         `json:"cfgs"`
	Calls   []CallEdge    `json:"calls"`
	Classes []ClassInfo   `json:"classes"`
	Imports []ImportEntry `json:"imports"`
}

// Empty returns a valid document with no content, used on parse and lookup
// failures so callers always receive a well-formed IR.
func Empty() *Document {
	return &Document{
		Outline: []OutlineNode{},
		CFGs:    []CFG{},
		Calls:   []CallEdge{},
		Classes: []ClassInfo{},
		Imports: []ImportEntry{},
	}
}

// Severity grades a diagnostic. Only "error" is treated as blocking by
// downstream consumers.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Diagnostic codes.
const (
	CodeParseError  = "TS_PARSE_ERROR"
	CodeNodeCap     = "NODE_CAP_REACHED"
	CodeUnsupported = "UNSUPPORTED_CONSTRUCT"
	CodeInternal    = "INTERNAL"
	CodeCancelled   = "CANCELLED"
)

// Diagnostic reports a recoverable analysis condition. Skipped and MaxNodes
// are populated only for NODE_CAP_REACHED.
type Diagnostic struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Range    *Range   `json:"range,omitempty"`
	Skipped  int      `json:"skipped,omitempty"`
	MaxNodes int      `json:"maxNodes,omitempty"`
}
