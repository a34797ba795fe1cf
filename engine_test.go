package algovision

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zouzou-2006/algovision/internal/ir"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// notices records cancellation callbacks in arrival order.
type notices struct {
	mu  sync.Mutex
	ids []string
}

func (n *notices) add(requestID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, requestID)
}

func (n *notices) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.ids...)
}

func TestInit(t *testing.T) {
	e := newTestEngine(t)
	ms, err := e.Init(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ms, int64(0))
}

func TestLanguages(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, []string{"csharp", "python"}, e.Languages())
}

func TestAnalyze_Python(t *testing.T) {
	e := newTestEngine(t)
	e.OpenDoc("a.py", "python", "class Foo:\n    def bar(self, x, y):\n        if x > y:\n            return x\n", 1)

	res, err := e.Analyze(context.Background(), "a.py", "r1", nil)
	require.NoError(t, err)

	assert.Equal(t, "r1", res.RequestID)
	assert.Equal(t, "a.py", res.DocID)
	assert.Equal(t, "python", res.Language)
	assert.Equal(t, 1, res.Version)
	assert.Empty(t, res.Diagnostics)
	assert.GreaterOrEqual(t, res.Perf.TotalMs, int64(0))

	var names []string
	for _, n := range res.IR.Outline {
		names = append(names, string(n.Kind)+":"+n.Name)
	}
	assert.Equal(t, []string{"module:a", "class:Foo", "method:bar"}, names)
	require.Len(t, res.IR.CFGs, 1)
}

func TestAnalyze_LanguageAlias(t *testing.T) {
	e := newTestEngine(t)
	e.OpenDoc("a.cs", "C#", "class C { }", 1)
	res, err := e.Analyze(context.Background(), "a.cs", "r1", nil)
	require.NoError(t, err)
	assert.Equal(t, "csharp", res.Language)
	assert.Empty(t, res.Diagnostics)
}

func TestAnalyze_Idempotent(t *testing.T) {
	e := newTestEngine(t)
	src := "def f(x):\n    if x:\n        return 1\n    return 2\n"
	e.OpenDoc("a.py", "python", src, 1)

	first, err := e.Analyze(context.Background(), "a.py", "r1", nil)
	require.NoError(t, err)
	second, err := e.Analyze(context.Background(), "a.py", "r2", nil)
	require.NoError(t, err)

	assert.Equal(t, first.IR, second.IR)
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
}

func TestAnalyze_MissingDocument(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.Analyze(context.Background(), "ghost.py", "r1", nil)
	require.NoError(t, err, "a missing document is a diagnostic, not a protocol error")

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, ir.CodeInternal, res.Diagnostics[0].Code)
	assert.Equal(t, ir.SeverityError, res.Diagnostics[0].Severity)
	assert.Empty(t, res.IR.Outline)
}

func TestAnalyze_UnsupportedLanguage(t *testing.T) {
	e := newTestEngine(t)
	e.OpenDoc("a.rb", "ruby", "puts 1", 1)
	res, err := e.Analyze(context.Background(), "a.rb", "r1", nil)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, ir.CodeInternal, res.Diagnostics[0].Code)
}

func TestAnalyze_SyntaxErrorDiagnostic(t *testing.T) {
	e := newTestEngine(t)
	e.OpenDoc("bad.py", "python", "def f(:\n", 1)
	res, err := e.Analyze(context.Background(), "bad.py", "r1", nil)
	require.NoError(t, err)

	var found *Diagnostic
	for i := range res.Diagnostics {
		if res.Diagnostics[i].Code == ir.CodeParseError {
			found = &res.Diagnostics[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, ir.SeverityWarn, found.Severity)
	assert.NotNil(t, found.Range, "the parse-error diagnostic carries the error node's range")
}

func TestAnalyze_EditEquivalence(t *testing.T) {
	ctx := context.Background()
	before := "def f():\n    return 1\n"
	after := "def f():\n    return 2\n"

	edited := newTestEngine(t)
	edited.OpenDoc("a.py", "python", before, 1)
	_, err := edited.Analyze(ctx, "a.py", "r1", nil) // populate the tree for incremental re-parse
	require.NoError(t, err)
	require.NoError(t, edited.ApplyEdits("a.py", 2, []TextEdit{{
		Range: Range{Start: Position{Line: 2, Column: 12}, End: Position{Line: 2, Column: 13}},
		Text:  "2",
	}}))
	editedRes, err := edited.Analyze(ctx, "a.py", "r2", nil)
	require.NoError(t, err)

	fresh := newTestEngine(t)
	fresh.OpenDoc("a.py", "python", after, 1)
	freshRes, err := fresh.Analyze(ctx, "a.py", "r1", nil)
	require.NoError(t, err)

	assert.Equal(t, freshRes.IR, editedRes.IR,
		"an edited document analyzes identically to a fresh open of the final text")
}

func TestApplyEdits_StaleVersionThenAnalyze(t *testing.T) {
	e := newTestEngine(t)
	e.OpenDoc("a.py", "python", "x = 2\n", 2)

	// Version 1 against a version-2 document is a no-op.
	require.NoError(t, e.ApplyEdits("a.py", 1, []TextEdit{{
		Range: Range{Start: Position{Line: 1, Column: 5}, End: Position{Line: 1, Column: 6}},
		Text:  "9",
	}}))

	res, err := e.Analyze(context.Background(), "a.py", "r1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Version, "analysis reflects the version-2 text")
}

func TestAnalyze_SequentialRequestsNotSuperseded(t *testing.T) {
	rec := &notices{}
	e := newTestEngine(t, WithCancelNotifier(rec.add))
	e.OpenDoc("a.py", "python", "def f():\n    pass\n", 1)

	ctx := context.Background()
	resA, err := e.Analyze(ctx, "a.py", "A", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", resA.RequestID)

	resB, err := e.Analyze(ctx, "a.py", "B", nil)
	require.NoError(t, err)
	assert.Equal(t, "B", resB.RequestID)
	assert.Empty(t, rec.all(), "a finished request is not superseded")
}

func TestAnalyze_ConcurrentSupersede(t *testing.T) {
	rec := &notices{}
	e := newTestEngine(t, WithCancelNotifier(rec.add))
	e.OpenDoc("a.py", "python", "def f():\n    if f():\n        return 1\n    return 2\n", 1)

	ctx := context.Background()
	const n = 8
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = e.Analyze(ctx, "a.py", fmt.Sprintf("r%d", i), nil)
		}(i)
	}
	wg.Wait()

	// Every request either completed or was observed as cancelled. A
	// request superseded after its last checkpoint still completes, so the
	// notice count bounds the cancelled count from above.
	var cancelled int
	for _, err := range results {
		if err == ErrCancelled {
			cancelled++
		} else {
			require.NoError(t, err)
		}
	}
	got := len(rec.all())
	assert.GreaterOrEqual(t, got, cancelled)
	assert.LessOrEqual(t, got, n-1)
}

func TestCancel_BeforeRun(t *testing.T) {
	rec := &notices{}
	e := newTestEngine(t, WithCancelNotifier(rec.add))
	e.OpenDoc("a.py", "python", "def f():\n    pass\n", 1)

	// Explicit cancel always emits exactly one notice.
	e.Cancel("A")
	assert.Equal(t, []string{"A"}, rec.all())
}

func TestCloseDoc_CancelsActive(t *testing.T) {
	rec := &notices{}
	e := newTestEngine(t, WithCancelNotifier(rec.add))
	e.OpenDoc("a.py", "python", "x = 1\n", 1)
	e.CloseDoc("a.py")

	res, err := e.Analyze(context.Background(), "a.py", "r1", nil)
	require.NoError(t, err)
	assert.Equal(t, ir.CodeInternal, res.Diagnostics[0].Code, "a closed doc is gone")
}

func TestAnalyze_MaxNodesOption(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "def f%d():\n    pass\n", i)
	}

	e := newTestEngine(t)
	e.OpenDoc("cap.py", "python", sb.String(), 1)

	opts := &AnalyzeOptions{MaxNodes: 10, IncludeClassDiagram: true, IncludeCallGraph: true}
	res, err := e.Analyze(context.Background(), "cap.py", "r1", opts)
	require.NoError(t, err)

	var capDiag *Diagnostic
	for i := range res.Diagnostics {
		if res.Diagnostics[i].Code == ir.CodeNodeCap {
			capDiag = &res.Diagnostics[i]
		}
	}
	require.NotNil(t, capDiag)
	assert.Equal(t, 10, capDiag.MaxNodes)
	assert.Greater(t, capDiag.Skipped, 0)
}

func TestAnalyze_EngineDefaultMaxNodes(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "def f%d():\n    pass\n", i)
	}

	e := newTestEngine(t, WithMaxNodes(10))
	e.OpenDoc("cap.py", "python", sb.String(), 1)

	res, err := e.Analyze(context.Background(), "cap.py", "r1", nil)
	require.NoError(t, err)

	var found bool
	for _, d := range res.Diagnostics {
		if d.Code == ir.CodeNodeCap {
			found = true
			assert.Equal(t, 10, d.MaxNodes)
		}
	}
	assert.True(t, found)
}

func TestAnalyze_ConcurrentEdits(t *testing.T) {
	e := newTestEngine(t)
	e.OpenDoc("a.py", "python", "x = 0\n", 1)

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Edits land while analyses run; each analysis sees one consistent
		// version+text pair.
		for v := 2; v <= 50; v++ {
			_ = e.ApplyEdits("a.py", v, []TextEdit{{
				Range: Range{Start: Position{Line: 1, Column: 5}, End: Position{Line: 1, Column: 6}},
				Text:  fmt.Sprintf("%d", v%10),
			}})
		}
	}()

	for i := 0; i < 20; i++ {
		res, err := e.Analyze(ctx, "a.py", fmt.Sprintf("r%d", i), nil)
		if err == ErrCancelled {
			continue
		}
		require.NoError(t, err)
		assert.Empty(t, res.Diagnostics)
	}
	<-done

	res, err := e.Analyze(ctx, "a.py", "final", nil)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Version)
}

func TestEngine_SnapshotPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "snap.db")
	e := newTestEngine(t, WithStore(dbPath))
	e.OpenDoc("a.py", "python", "def f():\n    pass\n", 4)

	res, err := e.Analyze(context.Background(), "a.py", "r1", nil)
	require.NoError(t, err)

	snap, err := e.LatestSnapshot("a.py")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 4, snap.Version)
	assert.Equal(t, "r1", snap.RequestID)
	assert.Equal(t, res.IR, snap.IR)
}

func TestEngine_NoStoreLatestSnapshotNil(t *testing.T) {
	e := newTestEngine(t)
	snap, err := e.LatestSnapshot("a.py")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestOpenDoc_Reopen(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.OpenDoc("a.py", "python", "def old():\n    pass\n", 3)
	_, err := e.Analyze(ctx, "a.py", "r1", nil)
	require.NoError(t, err)

	// Re-open discards text, tree, and version.
	e.OpenDoc("a.py", "python", "def fresh():\n    pass\n", 1)
	res, err := e.Analyze(ctx, "a.py", "r2", nil)
	require.NoError(t, err)

	var names []string
	for _, n := range res.IR.Outline {
		names = append(names, n.Name)
	}
	assert.Contains(t, names, "fresh")
	assert.NotContains(t, names, "old")
	assert.Equal(t, 1, res.Version)
}
