package scheduler

import "sync/atomic"

// Token is the cooperative cancellation token threaded through the
// parse→visit→build chain. Work checks Cancelled at phase boundaries; it is
// never preempted mid-instruction.
type Token struct {
	requestID string
	cancelled atomic.Bool
}

// RequestID returns the request this token belongs to.
func (t *Token) RequestID() string { return t.requestID }

// Cancel sets the cancellation flag. Idempotent.
func (t *Token) Cancel() { t.cancelled.Store(true) }

// Cancelled reports whether the request has been cancelled.
func (t *Token) Cancelled() bool { return t.cancelled.Load() }
