package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Zouzou-2006/algovision/internal/ir"
	"github.com/Zouzou-2006/algovision/internal/parser"
)

// analyzeText parses src and runs the registered analyzer over it, returning
// the built document and diagnostics.
func analyzeText(t *testing.T, lang, docID, src string, opts *Options) (*ir.Document, []ir.Diagnostic) {
	t.Helper()

	tree, err := parser.Parse(context.Background(), lang, []byte(src), nil)
	require.NoError(t, err)
	t.Cleanup(func() { tree.Close() })

	a, ok := For(lang)
	require.True(t, ok, "no analyzer for %s", lang)

	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	b := ir.NewBuilder(o.MaxNodes)
	a.Analyze(&Context{
		DocID:   docID,
		Source:  parser.NewSource([]byte(src)),
		Root:    tree.RootNode(),
		Builder: b,
		Options: o,
	})
	return b.Build()
}

func findOutline(t *testing.T, doc *ir.Document, kind ir.NodeKind, name string) ir.OutlineNode {
	t.Helper()
	for _, n := range doc.Outline {
		if n.Kind == kind && n.Name == name {
			return n
		}
	}
	t.Fatalf("no outline node kind=%s name=%s in %+v", kind, name, doc.Outline)
	return ir.OutlineNode{}
}

func cfgFor(t *testing.T, doc *ir.Document, funcID string) ir.CFG {
	t.Helper()
	for _, c := range doc.CFGs {
		if c.FuncID == funcID {
			return c
		}
	}
	t.Fatalf("no CFG for %s", funcID)
	return ir.CFG{}
}

func nodesOfKind(cfg ir.CFG, kind ir.CFGNodeKind) []ir.CFGNode {
	var out []ir.CFGNode
	for _, n := range cfg.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func outEdges(cfg ir.CFG, from string) []ir.CFGEdge {
	var out []ir.CFGEdge
	for _, e := range cfg.Edges {
		if e.From == from {
			out = append(out, e)
		}
	}
	return out
}

func hasEdge(cfg ir.CFG, from, to, label string) bool {
	for _, e := range cfg.Edges {
		if e.From == from && e.To == to && e.Label == label {
			return true
		}
	}
	return false
}

func edgeLabels(edges []ir.CFGEdge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.Label
	}
	return out
}

func diagWithCode(diags []ir.Diagnostic, code string) *ir.Diagnostic {
	for i := range diags {
		if diags[i].Code == code {
			return &diags[i]
		}
	}
	return nil
}

// checkCFGInvariants asserts the structural contract every CFG must satisfy:
// one start with no incoming edges, one end with no outgoing edges, and
// exactly {true, false} out of every cond node.
func checkCFGInvariants(t *testing.T, cfg ir.CFG) {
	t.Helper()

	in, out := map[string]int{}, map[string]int{}
	for _, e := range cfg.Edges {
		out[e.From]++
		in[e.To]++
	}

	require.Len(t, nodesOfKind(cfg, ir.CFGStart), 1, "%s: start node count", cfg.FuncID)
	require.Len(t, nodesOfKind(cfg, ir.CFGEnd), 1, "%s: end node count", cfg.FuncID)
	require.Zero(t, in["start"], "%s: start must have no incoming edges", cfg.FuncID)
	require.Zero(t, out["end"], "%s: end must have no outgoing edges", cfg.FuncID)

	for _, n := range nodesOfKind(cfg, ir.CFGCond) {
		labels := edgeLabels(outEdges(cfg, n.ID))
		require.ElementsMatch(t, []string{"true", "false"}, labels,
			"%s: cond %s (%s) must have exactly true/false edges", cfg.FuncID, n.ID, n.Label)
	}
}
