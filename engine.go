package algovision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Zouzou-2006/algovision/internal/analyzer"
	"github.com/Zouzou-2006/algovision/internal/document"
	"github.com/Zouzou-2006/algovision/internal/ir"
	"github.com/Zouzou-2006/algovision/internal/parser"
	"github.com/Zouzou-2006/algovision/internal/scheduler"
	"github.com/Zouzou-2006/algovision/internal/store"
)

// ErrCancelled is returned by Analyze when the request was cancelled
// explicitly or superseded by a newer request for the same document.
var ErrCancelled = errors.New("analysis cancelled")

// CancelNotifier receives the requestID of every request that was cancelled
// or superseded, before the successor's result is produced.
type CancelNotifier func(requestID string)

// Engine orchestrates the analysis pipeline: document state, incremental
// tree-sitter parsing, language visitors, and snapshot persistence. All
// methods are safe for concurrent use; per-document analysis is exclusive.
type Engine struct {
	log      *slog.Logger
	docs     *document.Manager
	sched    *scheduler.Scheduler
	store    *store.Store // nil when snapshots are disabled
	tracer   trace.Tracer
	maxNodes int
	notify   CancelNotifier

	storePath string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithMaxNodes sets the default node cap applied when a request does not
// supply one. Values <= 0 fall back to the built-in default.
func WithMaxNodes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxNodes = n
		}
	}
}

// WithStore enables snapshot persistence backed by a SQLite database at
// dbPath. Persistence is advisory: store failures are logged, never
// surfaced as analysis errors.
func WithStore(dbPath string) Option {
	return func(e *Engine) {
		e.storePath = dbPath
	}
}

// WithTracer sets the tracer used to span the parse and visit phases.
// Defaults to a no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithCancelNotifier registers a callback invoked for every cancelled or
// superseded request. The protocol server uses this to emit cancelled
// notices; the callback must not block.
func WithCancelNotifier(fn CancelNotifier) Option {
	return func(e *Engine) {
		e.notify = fn
	}
}

// New creates an Engine. With no options it keeps documents in memory only,
// logs via slog.Default(), and does not trace.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		log:      slog.Default(),
		docs:     document.NewManager(),
		tracer:   noop.NewTracerProvider().Tracer(""),
		maxNodes: ir.DefaultMaxNodes,
	}
	for _, opt := range opts {
		opt(e)
	}

	// The scheduler reads e.notify through a closure so the option order
	// does not matter.
	e.sched = scheduler.New(func(requestID string) {
		if e.notify != nil {
			e.notify(requestID)
		}
	})

	if e.storePath != "" {
		s, err := store.Open(e.storePath)
		if err != nil {
			return nil, fmt.Errorf("algovision: open store: %w", err)
		}
		e.store = s
	}

	return e, nil
}

// Close releases the Engine's resources: open documents, their syntax
// trees, and the snapshot store.
func (e *Engine) Close() error {
	for _, docID := range e.docs.IDs() {
		e.sched.CancelDoc(docID)
		e.docs.Close(docID)
	}
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Languages returns the canonical names of the supported languages.
func (e *Engine) Languages() []string {
	return parser.Supported()
}

// LanguageForFile maps a file path to its canonical language name by
// extension. ok is false for unsupported extensions.
func LanguageForFile(path string) (lang string, ok bool) {
	return parser.LanguageForFile(path)
}

// Init warms the grammar caches so the first Analyze does not pay grammar
// load cost. Returns the cold-start duration in milliseconds.
func (e *Engine) Init(ctx context.Context) (int64, error) {
	start := time.Now()
	if err := parser.Warmup(ctx); err != nil {
		return 0, fmt.Errorf("algovision: warmup: %w", err)
	}
	return time.Since(start).Milliseconds(), nil
}

// OpenDoc registers (or fully replaces) a document. Any previous state for
// the docID, including its syntax tree, is discarded.
func (e *Engine) OpenDoc(docID, language, text string, version int) {
	lang, ok := parser.Canonical(language)
	if !ok {
		// Kept as given so the analyze diagnostic can name it.
		lang = language
	}
	e.docs.Open(docID, lang, text, version)
	e.log.Debug("doc opened", "docID", docID, "language", lang, "version", version)
}

// ApplyEdits applies a batch of text edits to a document. Batches whose
// version is not newer than the document's current version are ignored.
func (e *Engine) ApplyEdits(docID string, version int, edits []document.Edit) error {
	return e.docs.ApplyEdits(docID, version, edits)
}

// Cancel cancels the request if it is still pending or running. Cancelling
// an unknown or finished request still emits the cancel notice.
func (e *Engine) Cancel(requestID string) {
	e.sched.Cancel(requestID)
}

// CloseDoc cancels in-flight work for the document and discards its state.
func (e *Engine) CloseDoc(docID string) {
	e.sched.CancelDoc(docID)
	e.docs.Close(docID)
}

// Analyze runs one analysis pass over the document's current text and
// returns the produced IR. A newer Analyze for the same document supersedes
// this one; superseded and cancelled requests return ErrCancelled after the
// CancelNotifier has fired. Failures the protocol treats as diagnostics
// (missing document, unsupported language, parse failure) return a Result
// with an empty IR and an INTERNAL diagnostic, not an error.
func (e *Engine) Analyze(ctx context.Context, docID, requestID string, opts *AnalyzeOptions) (*Result, error) {
	start := time.Now()

	o := analyzer.DefaultOptions()
	o.MaxNodes = e.maxNodes
	if opts != nil {
		o = *opts
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = e.maxNodes
	}

	token, run := e.sched.Begin(docID, requestID)
	run.Lock()
	defer run.Unlock()
	defer e.sched.Finish(docID, requestID)

	if token.Cancelled() {
		return nil, ErrCancelled
	}

	ctx, span := e.tracer.Start(ctx, "engine.analyze", trace.WithAttributes(
		attribute.String("doc_id", docID),
		attribute.String("request_id", requestID),
	))
	defer span.End()

	// The snapshot detaches the document's tree, so a concurrent edit batch
	// cannot mutate what this analysis parses and walks. The tree goes back
	// via StoreTree once the walk is done.
	snap, ok := e.docs.Snapshot(docID)
	if !ok {
		e.log.Warn("analyze for unknown doc", "docID", docID, "requestID", requestID)
		return e.internalResult(docID, requestID, "", 0, "document not open", start), nil
	}
	lang, version, text := snap.Language, snap.Version, snap.Text

	az, ok := analyzer.For(lang)
	if !ok {
		if snap.Tree != nil {
			snap.Tree.Close()
		}
		return e.internalResult(docID, requestID, lang, version,
			fmt.Sprintf("no analyzer for language %q", lang), start), nil
	}

	parseStart := time.Now()
	tree, err := parser.Parse(ctx, lang, []byte(text), snap.Tree)
	if snap.Tree != nil {
		snap.Tree.Close()
	}
	if err != nil {
		e.log.Error("parse failed", "docID", docID, "error", err)
		return e.internalResult(docID, requestID, lang, version,
			fmt.Sprintf("parse: %v", err), start), nil
	}
	parseMs := time.Since(parseStart).Milliseconds()

	if token.Cancelled() {
		tree.Close()
		return nil, ErrCancelled
	}
	// This analysis owns the tree until it is handed back; StoreTree closes
	// it when the doc was re-opened or edited past this version meanwhile.
	defer func() { e.docs.StoreTree(docID, version, tree) }()

	irStart := time.Now()
	src := parser.NewSource([]byte(text))
	b := ir.NewBuilder(o.MaxNodes)

	root := tree.RootNode()
	if errNode := parser.FirstErrorNode(root); errNode != nil {
		rng := src.RangeOf(errNode)
		b.AddDiagnostic(ir.Diagnostic{
			Code:     ir.CodeParseError,
			Message:  "source contains syntax errors; results may be partial",
			Severity: ir.SeverityWarn,
			Range:    &rng,
		})
	}

	if token.Cancelled() {
		return nil, ErrCancelled
	}

	_, visitSpan := e.tracer.Start(ctx, "engine.visit",
		trace.WithAttributes(attribute.String("language", lang)))
	az.Analyze(&analyzer.Context{
		DocID:   docID,
		Source:  src,
		Root:    root,
		Builder: b,
		Options: o,
	})
	visitSpan.End()

	doc, diags := b.Build()
	irMs := time.Since(irStart).Milliseconds()

	if token.Cancelled() {
		return nil, ErrCancelled
	}

	if e.store != nil {
		if err := e.store.SaveResult(docID, lang, version, requestID, doc, diags); err != nil {
			e.log.Warn("snapshot save failed", "docID", docID, "error", err)
		}
	}

	res := &Result{
		RequestID:   requestID,
		DocID:       docID,
		Language:    lang,
		Version:     version,
		IR:          doc,
		Diagnostics: diags,
		Perf: Perf{
			ParseMs: parseMs,
			IRMs:    irMs,
			TotalMs: time.Since(start).Milliseconds(),
		},
	}
	e.log.Debug("analysis complete", "docID", docID, "requestID", requestID,
		"totalMs", res.Perf.TotalMs, "diagnostics", len(diags))
	return res, nil
}

// internalResult builds the empty-IR result used when analysis cannot run
// at all.
func (e *Engine) internalResult(docID, requestID, lang string, version int, msg string, start time.Time) *Result {
	return &Result{
		RequestID: requestID,
		DocID:     docID,
		Language:  lang,
		Version:   version,
		IR:        ir.Empty(),
		Diagnostics: []ir.Diagnostic{{
			Code:     ir.CodeInternal,
			Message:  msg,
			Severity: ir.SeverityError,
		}},
		Perf: Perf{TotalMs: time.Since(start).Milliseconds()},
	}
}

// LatestSnapshot returns the most recent persisted analysis for a document,
// or nil when persistence is disabled or nothing was saved.
func (e *Engine) LatestSnapshot(docID string) (*store.Snapshot, error) {
	if e.store == nil {
		return nil, nil
	}
	return e.store.Latest(docID)
}
