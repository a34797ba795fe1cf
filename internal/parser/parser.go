package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Warmup instantiates every grammar and runs a trivial parse per language so
// the first real request does not pay grammar-loading cost. Safe to call
// more than once.
func Warmup(ctx context.Context) error {
	initGrammars()
	for _, lang := range Supported() {
		tree, err := Parse(ctx, lang, []byte{}, nil)
		if err != nil {
			return fmt.Errorf("warmup %s: %w", lang, err)
		}
		tree.Close()
	}
	return nil
}

// Parse produces a syntax tree for src. When prev is non-nil and has been
// patched with structural edits, tree-sitter reuses its unaffected subtrees
// (incremental re-parse); otherwise a full parse runs.
func Parse(ctx context.Context, lang string, src []byte, prev *sitter.Tree) (*sitter.Tree, error) {
	grammar, ok := Grammar(lang)
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", lang)
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(grammar)

	tree, err := p.ParseCtx(ctx, prev, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}
	return tree, nil
}

// FirstErrorNode returns the first ERROR or missing node found in a
// pre-order walk of the tree, or nil when the parse is clean. Used to attach
// a range to parse-failure diagnostics.
func FirstErrorNode(root *sitter.Node) *sitter.Node {
	if root == nil || !root.HasError() {
		return nil
	}
	var find func(n *sitter.Node) *sitter.Node
	find = func(n *sitter.Node) *sitter.Node {
		if n.Type() == "ERROR" || n.IsMissing() {
			return n
		}
		if !n.HasError() {
			return nil
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if hit := find(n.Child(i)); hit != nil {
				return hit
			}
		}
		return n
	}
	return find(root)
}
