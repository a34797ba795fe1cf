package ir

import (
	"fmt"
	"strings"
)

// DefaultMaxNodes bounds the combined outline + CFG node count per analysis.
const DefaultMaxNodes = 2000

// labelBudget is the character budget for CFG node labels before truncation.
const labelBudget = 60

// kindPrefixes maps outline kinds to the short prefixes used in node IDs.
var kindPrefixes = map[NodeKind]string{
	KindModule:    "mod",
	KindNamespace: "ns",
	KindClass:     "cls",
	KindStruct:    "st",
	KindInterface: "ifc",
	KindFunction:  "fn",
	KindMethod:    "mt",
}

type occKey struct {
	kind NodeKind
	line int
}

// Builder accumulates IR content during a single traversal and enforces the
// node cap. A Builder is used once: populate, then Build.
type Builder struct {
	maxNodes  int
	nodeCount int
	capped    bool
	skipped   int
	occ       map[occKey]int

	outline []OutlineNode
	cfgs    []CFG
	calls   []CallEdge
	classes []ClassInfo
	imports []ImportEntry
	diags   []Diagnostic
}

// NewBuilder returns a Builder honoring maxNodes; zero or negative values
// fall back to DefaultMaxNodes.
func NewBuilder(maxNodes int) *Builder {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	return &Builder{
		maxNodes: maxNodes,
		occ:      make(map[occKey]int),
		outline:  []OutlineNode{},
		cfgs:     []CFG{},
		calls:    []CallEdge{},
		classes:  []ClassInfo{},
		imports:  []ImportEntry{},
	}
}

// AllocID assigns a document-unique outline ID. Same-shape re-analysis yields
// the same ID: the occurrence counter is keyed on (kind, startLine) and
// advances in traversal order, which is deterministic.
func (b *Builder) AllocID(kind NodeKind, name string, startLine int) string {
	prefix, ok := kindPrefixes[kind]
	if !ok {
		prefix = string(kind)
	}
	key := occKey{kind: kind, line: startLine}
	occ := b.occ[key]
	b.occ[key] = occ + 1
	return fmt.Sprintf("%s:%s@%d#%d", prefix, name, startLine, occ)
}

// AtCap reports whether the next node would exceed the cap. Visitors consult
// this before starting a new declaration; a function already being built is
// completed regardless.
func (b *Builder) AtCap() bool {
	return b.nodeCount >= b.maxNodes
}

// Capped reports whether the cap was hit at some point during the traversal.
func (b *Builder) Capped() bool {
	return b.capped
}

// MarkCapped records that traversal stopped at the node cap.
func (b *Builder) MarkCapped() {
	b.capped = true
}

// Skip counts nodes that were not produced because the cap was reached.
func (b *Builder) Skip(n int) {
	b.skipped += n
}

// AddOutline appends an outline node and counts it against the cap.
func (b *Builder) AddOutline(node OutlineNode) {
	b.nodeCount++
	b.outline = append(b.outline, node)
}

// AddCall appends a call edge. Edges with an empty callee name are dropped;
// the IR contract forbids them.
func (b *Builder) AddCall(callerID, calleeName string, kind CallKind) {
	if calleeName == "" {
		return
	}
	b.calls = append(b.calls, CallEdge{CallerID: callerID, CalleeName: calleeName, Kind: kind})
}

// AddClass appends a class table entry.
func (b *Builder) AddClass(info ClassInfo) {
	if info.Methods == nil {
		info.Methods = []string{}
	}
	b.classes = append(b.classes, info)
}

// AddImport appends an import entry.
func (b *Builder) AddImport(name, alias string) {
	if name == "" {
		return
	}
	b.imports = append(b.imports, ImportEntry{Name: name, Alias: alias})
}

// AddDiagnostic records a diagnostic alongside the IR under construction.
func (b *Builder) AddDiagnostic(d Diagnostic) {
	b.diags = append(b.diags, d)
}

// Build finalizes the document. If the cap was hit, a NODE_CAP_REACHED
// diagnostic is appended. The returned document is fresh and safe to hand to
// consumers; the Builder must not be used afterwards.
func (b *Builder) Build() (*Document, []Diagnostic) {
	if b.capped {
		b.diags = append(b.diags, Diagnostic{
			Code:     CodeNodeCap,
			Message:  fmt.Sprintf("node cap of %d reached; %d node(s) skipped", b.maxNodes, b.skipped),
			Severity: SeverityWarn,
			Skipped:  b.skipped,
			MaxNodes: b.maxNodes,
		})
	}
	doc := &Document{
		Outline: b.outline,
		CFGs:    b.cfgs,
		Calls:   b.calls,
		Classes: b.classes,
		Imports: b.imports,
	}
	return doc, b.diags
}

// NormalizeLabel trims a source span for display: whitespace runs (including
// newlines) collapse to single spaces and text beyond the label budget is
// truncated with an ellipsis.
func NormalizeLabel(s string) string {
	fields := strings.Fields(s)
	s = strings.Join(fields, " ")
	if len(s) > labelBudget {
		// Cut on a rune boundary so multi-byte labels stay valid UTF-8.
		runes := []rune(s)
		if len(runes) > labelBudget {
			s = string(runes[:labelBudget]) + "…"
		}
	}
	return s
}
