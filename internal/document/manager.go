// Package document tracks open documents and keeps their text and parse
// trees in sync with live edits. It is the only place where 1-based
// line/column positions are translated to byte offsets.
package document

import (
	"fmt"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/Zouzou-2006/algovision/internal/ir"
)

// Edit is one range replacement expressed in 1-based positions.
type Edit struct {
	Range ir.Range `json:"range"`
	Text  string   `json:"text"`
}

// State is the mutable per-document record: created on open, replaced on
// re-open, mutated in place by edits, destroyed on close. Version is
// monotonic; stale updates are rejected by the Manager. All fields are
// guarded by the Manager's mutex; analysis reads them through Snapshot, not
// directly.
type State struct {
	DocID    string
	Language string
	Version  int
	Text     string
	Tree     *sitter.Tree

	lineStarts []int // byte offset of each line start
}

// Snapshot is a point-in-time copy of a document handed to an analysis.
// Tree, when non-nil, is detached from the State: the caller owns it and
// must Close it (returning a successor via StoreTree counts). Detaching
// keeps concurrent edits from mutating a tree an analysis is reading.
type Snapshot struct {
	Language string
	Version  int
	Text     string
	Tree     *sitter.Tree
}

// Manager owns all open DocumentStates. Safe for concurrent use: edits and
// analysis snapshots are serialized on the manager's mutex, so an edit batch
// is atomic with respect to any analysis.
type Manager struct {
	mu   sync.RWMutex
	docs map[string]*State
}

// NewManager returns an empty document manager.
func NewManager() *Manager {
	return &Manager{docs: make(map[string]*State)}
}

// Open creates a fresh DocumentState, discarding any prior state (and parse
// tree) for the same docID.
func (m *Manager) Open(docID, language, text string, version int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.docs[docID]; ok && prev.Tree != nil {
		prev.Tree.Close()
	}
	m.docs[docID] = &State{
		DocID:      docID,
		Language:   language,
		Version:    version,
		Text:       text,
		lineStarts: lineStarts(text),
	}
}

// Get returns the state for docID, or false when the document is not open.
func (m *Manager) Get(docID string) (*State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.docs[docID]
	return st, ok
}

// IDs returns the docIDs of all open documents.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	return ids
}

// Close discards the state for docID. Closing an unknown document is a no-op.
func (m *Manager) Close(docID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.docs[docID]; ok && st.Tree != nil {
		st.Tree.Close()
	}
	delete(m.docs, docID)
}

// ApplyEdits patches the document text and feeds each replacement to the
// existing parse tree as a structural edit, so the next parse can reuse
// unaffected subtrees.
//
// Versions not strictly greater than the stored one leave the state
// untouched (stale-write guard). An empty edit list changes no text but
// still commits the new version.
//
// Edits are applied in descending start-offset order: all offsets are
// computed against the pre-edit text up front, and replacing later spans
// first keeps earlier offsets valid.
func (m *Manager) ApplyEdits(docID string, version int, edits []Edit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.docs[docID]
	if !ok {
		return fmt.Errorf("document %q not open", docID)
	}
	if version <= st.Version {
		return nil
	}
	if len(edits) == 0 {
		st.Version = version
		return nil
	}

	type resolvedEdit struct {
		startByte, oldEndByte   int
		startPoint, oldEndPoint sitter.Point
		text                    string
	}
	resolved := make([]resolvedEdit, 0, len(edits))
	for _, e := range edits {
		start := st.byteOffset(e.Range.Start)
		end := st.byteOffset(e.Range.End)
		if end < start {
			start, end = end, start
		}
		resolved = append(resolved, resolvedEdit{
			startByte:   start,
			oldEndByte:  end,
			startPoint:  st.point(start),
			oldEndPoint: st.point(end),
			text:        e.Text,
		})
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].startByte > resolved[j].startByte
	})

	text := st.Text
	for _, e := range resolved {
		newEndByte := e.startByte + len(e.text)
		if st.Tree != nil {
			st.Tree.Edit(sitter.EditInput{
				StartIndex:  uint32(e.startByte),
				OldEndIndex: uint32(e.oldEndByte),
				NewEndIndex: uint32(newEndByte),
				StartPoint:  e.startPoint,
				OldEndPoint: e.oldEndPoint,
				NewEndPoint: advancePoint(e.startPoint, e.text),
			})
		}
		text = text[:e.startByte] + e.text + text[e.oldEndByte:]
	}

	st.Text = text
	st.lineStarts = lineStarts(text)
	st.Version = version
	return nil
}

// Snapshot copies the document's current language, version, and text, and
// detaches its parse tree for the caller's exclusive use. A later edit
// against a detached tree simply skips the structural patch; the next parse
// after that is a full one.
func (m *Manager) Snapshot(docID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.docs[docID]
	if !ok {
		return Snapshot{}, false
	}
	snap := Snapshot{
		Language: st.Language,
		Version:  st.Version,
		Text:     st.Text,
		Tree:     st.Tree,
	}
	st.Tree = nil
	return snap, ok
}

// StoreTree returns a parse tree to the document, provided the document is
// still open at the version the tree was parsed from. Otherwise the tree no
// longer matches the text and is closed instead. The caller must not use the
// tree after StoreTree returns.
func (m *Manager) StoreTree(docID string, version int, tree *sitter.Tree) {
	if tree == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.docs[docID]
	if !ok || st.Version != version {
		tree.Close()
		return
	}
	if st.Tree != nil && st.Tree != tree {
		st.Tree.Close()
	}
	st.Tree = tree
}
