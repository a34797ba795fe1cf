// Package algovision turns Python and C# source text into a compact,
// language-agnostic intermediate representation for diagramming: an outline
// tree, per-function control-flow graphs, call edges, a class table, and an
// import list.
//
// # Pipeline
//
// Analysis is incremental and per-document:
//
//  1. Documents are opened with full text and then mutated by versioned
//     batches of range edits. Each edit is fed to the previous tree-sitter
//     tree so the next parse reuses unaffected subtrees.
//
//  2. Analyze parses the current text, runs the language's visitor over the
//     syntax tree, and assembles the IR. A global node cap bounds output
//     size for pathological inputs.
//
// Requests target a document; a newer request for the same document
// supersedes any in-flight one, which is cancelled cooperatively and
// reported through the [CancelNotifier] before the successor's result.
//
// # Usage
//
// Create an Engine, open a document, and analyze:
//
//	e, err := algovision.New(algovision.WithMaxNodes(2000))
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	e.OpenDoc("main.py", "python", src, 1)
//	res, err := e.Analyze(ctx, "main.py", "r1", nil)
//
// The result's [IR] is stable: identical text yields byte-identical JSON,
// and an edited document is indistinguishable from one opened fresh with
// the final text.
//
// The same pipeline is served over JSON-RPC 2.0 on stdio by the algovision
// CLI's serve command.
package algovision
