package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/Zouzou-2006/algovision/internal/ir"
	"github.com/Zouzou-2006/algovision/internal/parser"
)

// dangling is an edge whose source is known but whose target is still being
// decided: the frontier of CFG construction. The label survives onto the
// final edge (e.g. a cond's "false" branch falling through a statement list).
type dangling struct {
	from  string
	label string
}

type frameKind int

const (
	frameLoop frameKind = iota
	frameSwitch
)

// flowFrame is one entry of the break/continue resolution stack. break binds
// to the nearest frame of either kind; continue binds to the nearest loop
// frame's condition node.
type flowFrame struct {
	kind       frameKind
	continueTo string
	breaks     []dangling
}

// flow drives CFG construction for a single function. The language visitors
// share its mechanics (frontier wiring, loop frames, terminal statements) and
// supply only the per-construct statement walk.
type flow struct {
	cb        *ir.CFGBuilder
	src       *parser.Source
	frames    []flowFrame
	truncated bool
}

func newFlow(b *ir.Builder, src *parser.Source, funcID string) *flow {
	return &flow{cb: b.NewCFG(funcID), src: src}
}

func (f *flow) entry() []dangling {
	return []dangling{{from: f.cb.Start()}}
}

// connect wires every frontier edge to the given node.
func (f *flow) connect(entries []dangling, to string) {
	for _, e := range entries {
		f.cb.AddEdge(e.from, to, e.label)
	}
}

func (f *flow) rangeOf(n *sitter.Node) *ir.Range {
	r := f.src.RangeOf(n)
	return &r
}

// stmt emits a statement node for n, wired from the current frontier, and
// returns the new single-element frontier.
func (f *flow) stmt(n *sitter.Node, entries []dangling) []dangling {
	id := f.cb.AddStmt(f.src.Text(n), f.rangeOf(n))
	f.connect(entries, id)
	return []dangling{{from: id}}
}

// terminal emits a statement for n and routes it straight to the CFG end,
// replacing the normal successor edge. Returns an empty frontier.
func (f *flow) terminal(n *sitter.Node, entries []dangling) []dangling {
	id := f.cb.AddStmt(f.src.Text(n), f.rangeOf(n))
	f.connect(entries, id)
	f.cb.AddEdge(id, f.cb.End(), "")
	return nil
}

func (f *flow) pushLoop(continueTo string) {
	f.frames = append(f.frames, flowFrame{kind: frameLoop, continueTo: continueTo})
}

func (f *flow) pushSwitch() {
	f.frames = append(f.frames, flowFrame{kind: frameSwitch})
}

func (f *flow) pop() flowFrame {
	top := f.frames[len(f.frames)-1]
	f.frames = f.frames[:len(f.frames)-1]
	return top
}

// addBreak registers a break source with the nearest enclosing frame; its
// edge is resolved to the node after that construct when the frame pops.
// Returns false when no frame encloses the statement.
func (f *flow) addBreak(d dangling) bool {
	if len(f.frames) == 0 {
		return false
	}
	top := &f.frames[len(f.frames)-1]
	top.breaks = append(top.breaks, d)
	return true
}

// continueTarget returns the condition node of the nearest enclosing loop.
func (f *flow) continueTarget() (string, bool) {
	for i := len(f.frames) - 1; i >= 0; i-- {
		if f.frames[i].kind == frameLoop {
			return f.frames[i].continueTo, true
		}
	}
	return "", false
}

// finish seals the CFG, wiring the remaining frontier to the end node.
func (f *flow) finish(exits []dangling) {
	flat := make([]string, 0, len(exits))
	for _, e := range exits {
		if e.label == "" {
			flat = append(flat, e.from)
			continue
		}
		f.cb.AddEdge(e.from, f.cb.End(), e.label)
	}
	f.cb.Finish(flat)
}

// skeleton builds the minimal linear CFG start → body → end used when a
// function has no analyzable body (expression-bodied members, stubs).
func skeleton(b *ir.Builder, src *parser.Source, funcID string, decl *sitter.Node) {
	cb := b.NewCFG(funcID)
	r := src.RangeOf(decl)
	id := cb.AddStmt(src.Text(decl), &r)
	cb.AddEdge(cb.Start(), id, "")
	cb.Finish([]string{id})
}
