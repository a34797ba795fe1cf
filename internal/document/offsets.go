package document

import (
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/Zouzou-2006/algovision/internal/ir"
)

// lineStarts returns the byte offset of every line start in text. The first
// entry is always 0; each subsequent entry follows a newline.
func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// byteOffset converts a 1-based position to a byte offset into the current
// text. Columns count characters, not bytes, so multi-byte runes advance the
// offset by their encoded length. Out-of-range positions clamp to the
// nearest valid offset.
func (st *State) byteOffset(pos ir.Position) int {
	line := pos.Line - 1
	if line < 0 {
		return 0
	}
	if line >= len(st.lineStarts) {
		return len(st.Text)
	}
	off := st.lineStarts[line]
	lineEnd := len(st.Text)
	if line+1 < len(st.lineStarts) {
		lineEnd = st.lineStarts[line+1]
	}
	for col := pos.Column - 1; col > 0 && off < lineEnd; col-- {
		_, size := utf8.DecodeRuneInString(st.Text[off:lineEnd])
		off += size
	}
	return off
}

// point converts a byte offset to a tree-sitter point (0-based row, byte
// column), as required by the parser's structural-edit API.
func (st *State) point(offset int) sitter.Point {
	row := 0
	for row+1 < len(st.lineStarts) && st.lineStarts[row+1] <= offset {
		row++
	}
	return sitter.Point{
		Row:    uint32(row),
		Column: uint32(offset - st.lineStarts[row]),
	}
}

// advancePoint returns the point reached after inserting text at start.
func advancePoint(start sitter.Point, text string) sitter.Point {
	newlines := strings.Count(text, "\n")
	if newlines == 0 {
		return sitter.Point{Row: start.Row, Column: start.Column + uint32(len(text))}
	}
	last := text[strings.LastIndexByte(text, '\n')+1:]
	return sitter.Point{Row: start.Row + uint32(newlines), Column: uint32(len(last))}
}
