package algovision

import (
	"github.com/Zouzou-2006/algovision/internal/analyzer"
	"github.com/Zouzou-2006/algovision/internal/document"
	"github.com/Zouzou-2006/algovision/internal/ir"
)

// Public type aliases for the internal IR and document types used in the
// Engine API. These are Go type aliases (=), identical to the internal
// types at compile time; no conversion is needed.

type IR = ir.Document
type OutlineNode = ir.OutlineNode
type CFG = ir.CFG
type CFGNode = ir.CFGNode
type CFGEdge = ir.CFGEdge
type CallEdge = ir.CallEdge
type ClassInfo = ir.ClassInfo
type ImportEntry = ir.ImportEntry
type Diagnostic = ir.Diagnostic
type Position = ir.Position
type Range = ir.Range

// TextEdit is one range replacement inside an ApplyEdits batch.
type TextEdit = document.Edit

// AnalyzeOptions tunes one analysis pass. A zero MaxNodes uses the Engine's
// configured default.
type AnalyzeOptions = analyzer.Options

// Result is the product of one analysis pass.
type Result struct {
	RequestID   string       `json:"requestId"`
	DocID       string       `json:"docId"`
	Language    string       `json:"language"`
	Version     int          `json:"version"`
	IR          *IR          `json:"ir"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Perf        Perf         `json:"perf"`
}

// Perf carries the phase timings of one analysis pass, in milliseconds.
type Perf struct {
	ParseMs int64 `json:"parseMs"`
	IRMs    int64 `json:"irMs"`
	TotalMs int64 `json:"totalMs"`
}
