package ir

import "fmt"

// Well-known CFG node IDs. IDs of interior nodes are "n0", "n1", … in
// creation order, which keeps re-analysis of identical text deterministic.
const (
	cfgStartID = "start"
	cfgEndID   = "end"
)

// TruncationLabel marks the placeholder statement appended when the node cap
// interrupts CFG construction.
const TruncationLabel = "… (truncated)"

// CFGBuilder assembles the control-flow graph of a single function. Obtain
// one via Builder.NewCFG, add nodes and edges, then call Finish exactly once.
type CFGBuilder struct {
	b    *Builder
	cfg  CFG
	next int
}

// NewCFG starts a CFG for the function identified by funcID. The start node
// is created immediately; the end node is created by Finish.
func (b *Builder) NewCFG(funcID string) *CFGBuilder {
	b.nodeCount++ // start node
	return &CFGBuilder{
		b: b,
		cfg: CFG{
			FuncID: funcID,
			Nodes:  []CFGNode{{ID: cfgStartID, Kind: CFGStart}},
			Edges:  []CFGEdge{},
		},
	}
}

// Start returns the ID of the CFG's start node.
func (c *CFGBuilder) Start() string { return cfgStartID }

// End returns the ID of the CFG's end node.
func (c *CFGBuilder) End() string { return cfgEndID }

func (c *CFGBuilder) addNode(n CFGNode) string {
	n.ID = fmt.Sprintf("n%d", c.next)
	c.next++
	c.b.nodeCount++
	c.cfg.Nodes = append(c.cfg.Nodes, n)
	return n.ID
}

// AddStmt appends a statement node with a normalized label.
func (c *CFGBuilder) AddStmt(label string, rng *Range) string {
	return c.addNode(CFGNode{Kind: CFGStmt, Label: NormalizeLabel(label), Range: rng})
}

// AddCond appends a condition node. The caller is responsible for attaching
// exactly one "true" and one "false" outgoing edge.
func (c *CFGBuilder) AddCond(label string, rng *Range) string {
	return c.addNode(CFGNode{Kind: CFGCond, Label: NormalizeLabel(label), Range: rng})
}

// AddSwitch appends a switch node carrying its case labels. The caller is
// responsible for one "case: X" edge per case plus a "default" edge.
func (c *CFGBuilder) AddSwitch(label string, cases []string, rng *Range) string {
	if cases == nil {
		cases = []string{}
	}
	return c.addNode(CFGNode{Kind: CFGSwitch, Label: NormalizeLabel(label), Cases: cases, Range: rng})
}

// AddEdge connects two nodes. Duplicate (from, to, label) triples collapse to
// a single edge so converging paths (e.g. two returns from one branch) do not
// produce parallel edges.
func (c *CFGBuilder) AddEdge(from, to, label string) {
	for _, e := range c.cfg.Edges {
		if e.From == from && e.To == to && e.Label == label {
			return
		}
	}
	c.cfg.Edges = append(c.cfg.Edges, CFGEdge{From: from, To: to, Label: label})
}

// Truncate appends the placeholder statement used when the node cap stops
// traversal mid-graph. The placeholder is not counted against the cap.
func (c *CFGBuilder) Truncate() string {
	id := fmt.Sprintf("n%d", c.next)
	c.next++
	c.cfg.Nodes = append(c.cfg.Nodes, CFGNode{ID: id, Kind: CFGStmt, Label: TruncationLabel})
	return id
}

// Finish adds the end node, wires every dangling exit to it, and commits the
// CFG to the owning Builder. A CFG with no exits (e.g. a body ending in
// return) still gets its end node so the one-start/one-end invariant holds.
func (c *CFGBuilder) Finish(exits []string) {
	c.b.nodeCount++ // end node
	c.cfg.Nodes = append(c.cfg.Nodes, CFGNode{ID: cfgEndID, Kind: CFGEnd})
	for _, from := range exits {
		c.AddEdge(from, cfgEndID, "")
	}
	c.b.cfgs = append(c.b.cfgs, c.cfg)
}
