package parser

import (
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/Zouzou-2006/algovision/internal/ir"
)

// Source pairs parsed bytes with a line index so tree-sitter points (0-based
// row, byte column) can be translated to 1-based line/character positions
// without rescanning the text per node.
type Source struct {
	bytes  []byte
	starts []int
}

// NewSource indexes src for position translation.
func NewSource(src []byte) *Source {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Source{bytes: src, starts: starts}
}

// Bytes returns the underlying source bytes.
func (s *Source) Bytes() []byte { return s.bytes }

// Text returns the source text covered by n.
func (s *Source) Text(n *sitter.Node) string {
	return n.Content(s.bytes)
}

// Position converts a tree-sitter point to a 1-based position. The byte
// column is re-counted in runes so multi-byte text reports character columns.
func (s *Source) Position(p sitter.Point) ir.Position {
	row := int(p.Row)
	if row >= len(s.starts) {
		row = len(s.starts) - 1
	}
	start := s.starts[row]
	end := start + int(p.Column)
	if end > len(s.bytes) {
		end = len(s.bytes)
	}
	return ir.Position{
		Line:   row + 1,
		Column: utf8.RuneCount(s.bytes[start:end]) + 1,
	}
}

// RangeOf returns the 1-based range covered by n.
func (s *Source) RangeOf(n *sitter.Node) ir.Range {
	return ir.Range{
		Start: s.Position(n.StartPoint()),
		End:   s.Position(n.EndPoint()),
	}
}
