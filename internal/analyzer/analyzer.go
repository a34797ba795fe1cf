// Package analyzer hosts the per-language AST→IR visitors. Each visitor
// performs one pre-order traversal to build the outline and CFGs, followed by
// independent sweeps for imports and call sites. Visitors never mutate
// document state; they only populate the ir.Builder handed to them.
package analyzer

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/Zouzou-2006/algovision/internal/ir"
	"github.com/Zouzou-2006/algovision/internal/parser"
)

// Options controls one analysis pass.
type Options struct {
	MaxNodes            int
	IncludeClassDiagram bool
	IncludeCallGraph    bool
}

// DefaultOptions returns the options used when a request supplies none.
func DefaultOptions() Options {
	return Options{
		MaxNodes:            ir.DefaultMaxNodes,
		IncludeClassDiagram: true,
		IncludeCallGraph:    true,
	}
}

// Context carries the inputs of one analysis pass.
type Context struct {
	DocID   string
	Source  *parser.Source
	Root    *sitter.Node
	Builder *ir.Builder
	Options Options
}

// LanguageAnalyzer is the capability interface implemented once per
// language. Implementations are stateless; all per-pass state lives in the
// Context.
type LanguageAnalyzer interface {
	Language() string
	Analyze(ctx *Context)
}

var registry = map[string]LanguageAnalyzer{
	"python": pythonAnalyzer{},
	"csharp": csharpAnalyzer{},
}

// For returns the analyzer registered for a canonical language name.
func For(lang string) (LanguageAnalyzer, bool) {
	a, ok := registry[lang]
	return a, ok
}

// nodeKey identifies a syntax node by its byte span. The smacker binding
// allocates fresh *Node wrappers on every accessor call, so pointer identity
// cannot key side-tables; declaration spans are unique within a tree.
type nodeKey struct {
	start, end uint32
}

func keyOf(n *sitter.Node) nodeKey {
	return nodeKey{start: n.StartByte(), end: n.EndByte()}
}

// funcIndex is the side-table from declaration node span to outline ID,
// used to resolve the enclosing function during the call sweep.
type funcIndex map[nodeKey]string

// enclosingFunc walks n's ancestor chain until it reaches a node registered
// as a function or method declaration. Returns "" for module-level code.
func (fi funcIndex) enclosingFunc(n *sitter.Node) string {
	for cur := n; cur != nil; cur = cur.Parent() {
		if id, ok := fi[keyOf(cur)]; ok {
			return id
		}
	}
	return ""
}

// walk traverses named nodes in pre-order. visit returns false to skip the
// node's children.
func walk(n *sitter.Node, visit func(n *sitter.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}

// calleeName reduces a callee expression's text to its bare final
// identifier: the segment after the last '.', with any argument or type
// argument suffix stripped.
func calleeName(text string) (string, ir.CallKind) {
	text = strings.TrimSpace(text)
	kind := ir.CallDirect
	if i := strings.LastIndexByte(text, '.'); i >= 0 {
		text = text[i+1:]
		kind = ir.CallMember
	}
	if i := strings.IndexAny(text, "(<"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text), kind
}

// countDeclarations counts declaration nodes in a subtree, used to size the
// skipped-node diagnostic once the cap stops traversal.
func countDeclarations(n *sitter.Node, kinds map[string]bool) int {
	count := 0
	walk(n, func(c *sitter.Node) bool {
		if kinds[c.Type()] {
			count++
		}
		return true
	})
	return count
}

// moduleName derives the synthetic module root's name from the document ID:
// the final path segment with its extension removed.
func moduleName(docID string) string {
	name := docID
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return "module"
	}
	return name
}
