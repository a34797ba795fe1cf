package server

import "github.com/Zouzou-2006/algovision"

// Wire shapes for the protocol. Field names follow the message contract,
// lowerCamel on the wire.

type initResult struct {
	ColdStartMs int64    `json:"coldStartMs"`
	Languages   []string `json:"languages"`
}

type openDocParams struct {
	DocID    string `json:"docId"`
	Language string `json:"language"`
	Text     string `json:"text"`
	Version  int    `json:"version"`
}

type applyEditsParams struct {
	DocID   string                `json:"docId"`
	Version int                   `json:"version"`
	Edits   []algovision.TextEdit `json:"edits"`

	// Analyze triggers an implicit analyze after the edits are applied.
	Analyze   bool            `json:"analyze,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Options   *analyzeOptions `json:"options,omitempty"`
}

type analyzeParams struct {
	DocID     string          `json:"docId"`
	RequestID string          `json:"requestId"`
	Options   *analyzeOptions `json:"options,omitempty"`
}

// analyzeOptions uses pointers for the booleans so "absent" and "false" are
// distinguishable; absent means true.
type analyzeOptions struct {
	MaxNodes            int   `json:"maxNodes,omitempty"`
	IncludeClassDiagram *bool `json:"includeClassDiagram,omitempty"`
	IncludeCallGraph    *bool `json:"includeCallGraph,omitempty"`
}

// toEngine maps the wire options onto engine options, applying defaults. A
// nil receiver yields nil, which the engine treats as all defaults.
func (p *analyzeOptions) toEngine() *algovision.AnalyzeOptions {
	if p == nil {
		return nil
	}
	o := &algovision.AnalyzeOptions{
		MaxNodes:            p.MaxNodes,
		IncludeClassDiagram: true,
		IncludeCallGraph:    true,
	}
	if p.IncludeClassDiagram != nil {
		o.IncludeClassDiagram = *p.IncludeClassDiagram
	}
	if p.IncludeCallGraph != nil {
		o.IncludeCallGraph = *p.IncludeCallGraph
	}
	return o
}

type cancelParams struct {
	RequestID string `json:"requestId"`
}

type closeDocParams struct {
	DocID string `json:"docId"`
}

type cancelledParams struct {
	RequestID string `json:"requestId"`
}
