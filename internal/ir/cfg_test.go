package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// edgeCounts tallies incoming and outgoing edges per node ID.
func edgeCounts(cfg CFG) (in, out map[string]int) {
	in, out = map[string]int{}, map[string]int{}
	for _, e := range cfg.Edges {
		out[e.From]++
		in[e.To]++
	}
	return in, out
}

func TestCFGBuilder_StartEndInvariant(t *testing.T) {
	b := NewBuilder(0)
	cb := b.NewCFG("fn:f@1#0")
	s1 := cb.AddStmt("x = 1", nil)
	cb.AddEdge(cb.Start(), s1, "")
	cb.Finish([]string{s1})

	doc, _ := b.Build()
	require.Len(t, doc.CFGs, 1)
	cfg := doc.CFGs[0]

	assert.Equal(t, "fn:f@1#0", cfg.FuncID)
	assert.Equal(t, "start", cfg.Nodes[0].ID)
	assert.Equal(t, CFGStart, cfg.Nodes[0].Kind)
	last := cfg.Nodes[len(cfg.Nodes)-1]
	assert.Equal(t, "end", last.ID)
	assert.Equal(t, CFGEnd, last.Kind)

	in, out := edgeCounts(cfg)
	assert.Zero(t, in["start"], "start must have no incoming edges")
	assert.Zero(t, out["end"], "end must have no outgoing edges")
}

func TestCFGBuilder_NodeIDsSequential(t *testing.T) {
	b := NewBuilder(0)
	cb := b.NewCFG("fn:f@1#0")
	assert.Equal(t, "n0", cb.AddStmt("a", nil))
	assert.Equal(t, "n1", cb.AddCond("b", nil))
	assert.Equal(t, "n2", cb.AddSwitch("c", []string{"1"}, nil))
}

func TestCFGBuilder_EdgeDedupe(t *testing.T) {
	b := NewBuilder(0)
	cb := b.NewCFG("fn:f@1#0")
	s := cb.AddStmt("x", nil)
	cb.AddEdge(cb.Start(), s, "")
	cb.AddEdge(cb.Start(), s, "")
	cb.AddEdge(cb.Start(), s, "true") // distinct label survives
	cb.Finish([]string{s})

	doc, _ := b.Build()
	var fromStart int
	for _, e := range doc.CFGs[0].Edges {
		if e.From == "start" {
			fromStart++
		}
	}
	assert.Equal(t, 2, fromStart)
}

func TestCFGBuilder_NodesCountAgainstCap(t *testing.T) {
	b := NewBuilder(3)
	cb := b.NewCFG("fn:f@1#0") // start counts
	cb.AddStmt("a", nil)
	cb.AddStmt("b", nil)
	assert.True(t, b.AtCap())
}

func TestCFGBuilder_TruncateUncounted(t *testing.T) {
	b := NewBuilder(2)
	cb := b.NewCFG("fn:f@1#0")
	cb.AddStmt("a", nil)
	require.True(t, b.AtCap())

	id := cb.Truncate()
	cb.Finish([]string{id})

	doc, _ := b.Build()
	var found bool
	for _, n := range doc.CFGs[0].Nodes {
		if n.ID == id {
			found = true
			assert.Equal(t, CFGStmt, n.Kind)
			assert.Equal(t, TruncationLabel, n.Label)
		}
	}
	assert.True(t, found)
}

func TestCFGBuilder_SwitchCasesNeverNil(t *testing.T) {
	b := NewBuilder(0)
	cb := b.NewCFG("fn:f@1#0")
	id := cb.AddSwitch("switch x", nil, nil)
	cb.Finish([]string{id})

	doc, _ := b.Build()
	for _, n := range doc.CFGs[0].Nodes {
		if n.ID == id {
			assert.NotNil(t, n.Cases)
		}
	}
}
