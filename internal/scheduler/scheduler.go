// Package scheduler serializes analysis requests per document and implements
// the last-writer-wins cancellation protocol: a new analyze request for a
// document immediately supersedes and cancels any in-flight one.
//
// Per-document state machine: Idle → Analyzing → (Completed | Cancelled).
// At most one request per document is ever Analyzing.
package scheduler

import "sync"

// Notifier receives cancellation notices. Called at most once per superseded
// request, and once per explicit Cancel call, always before any result for a
// newer request on the same document is produced.
type Notifier func(requestID string)

// Scheduler tracks at most one active request per document.
type Scheduler struct {
	mu     sync.Mutex
	active map[string]*Token // docID → active token
	byID   map[string]*Token // requestID → token, while active
	runs   map[string]*sync.Mutex
	notify Notifier
}

// New returns a Scheduler that emits cancellation notices via notify.
// A nil notify is allowed and drops notices.
func New(notify Notifier) *Scheduler {
	if notify == nil {
		notify = func(string) {}
	}
	return &Scheduler{
		active: make(map[string]*Token),
		byID:   make(map[string]*Token),
		runs:   make(map[string]*sync.Mutex),
		notify: notify,
	}
}

// Begin registers requestID as the active request for docID. Any previously
// active request is marked cancelled and its notice is emitted before Begin
// returns, so the notice always precedes the new request's result.
//
// The returned run lock must be held for the duration of the analysis: the
// superseded request still holds it until it observes its flag at the next
// checkpoint, which keeps the document's text and tree single-owner.
func (s *Scheduler) Begin(docID, requestID string) (*Token, *sync.Mutex) {
	s.mu.Lock()
	var superseded string
	if prev, ok := s.active[docID]; ok && !prev.Cancelled() {
		prev.Cancel()
		delete(s.byID, prev.requestID)
		superseded = prev.requestID
	}
	tok := &Token{requestID: requestID}
	s.active[docID] = tok
	s.byID[requestID] = tok
	run, ok := s.runs[docID]
	if !ok {
		run = &sync.Mutex{}
		s.runs[docID] = run
	}
	s.mu.Unlock()

	if superseded != "" {
		s.notify(superseded)
	}
	return tok, run
}

// Finish clears the active-request marker, unless a newer request has
// already replaced it.
func (s *Scheduler) Finish(docID, requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok, ok := s.active[docID]; ok && tok.requestID == requestID {
		delete(s.active, docID)
	}
	delete(s.byID, requestID)
}

// Cancel sets the cancellation flag for requestID if it is active, and emits
// a cancellation notice regardless of scheduler bookkeeping.
func (s *Scheduler) Cancel(requestID string) {
	s.mu.Lock()
	if tok, ok := s.byID[requestID]; ok {
		tok.Cancel()
		delete(s.byID, requestID)
	}
	s.mu.Unlock()
	s.notify(requestID)
}

// CancelDoc cancels whatever request is active for docID, emitting its
// notice. Used when a document closes.
func (s *Scheduler) CancelDoc(docID string) {
	s.mu.Lock()
	var cancelled string
	if tok, ok := s.active[docID]; ok && !tok.Cancelled() {
		tok.Cancel()
		delete(s.byID, tok.requestID)
		cancelled = tok.requestID
	}
	delete(s.active, docID)
	s.mu.Unlock()

	if cancelled != "" {
		s.notify(cancelled)
	}
}
