package access

import (
	"sync"
	"time"
)

// DefaultAckTimeout is the minimum time an acknowledged message waits
// for a response before resolving as a timeout (spec.md §4.F).
const DefaultAckTimeout = 30 * time.Second

type pendingAck struct {
	key       CorrelationKey
	timer     *time.Timer
	onTimeout func()
}

// Tracker correlates outbound acknowledged requests with their inbound
// responses and resolves unanswered requests as timeouts. Grounded on
// pkg/pase/window.go's single-owned-timer idiom, keyed here by
// CorrelationKey instead of a single per-struct timer.
//
// For segmented responses the caller must call Await only once the last
// outbound segment has been sent, not at enqueue time, per spec.md
// §4.F's "the timer starts at send of the last outbound segment".
type Tracker struct {
	mu      sync.Mutex
	pending map[CorrelationKey]*pendingAck
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{pending: make(map[CorrelationKey]*pendingAck)}
}

func ackTimeout(configured time.Duration) time.Duration {
	if configured < DefaultAckTimeout {
		return DefaultAckTimeout
	}
	return configured
}

// Await registers a pending acknowledged request. onTimeout fires if no
// matching Resolve happens within max(DefaultAckTimeout, configured).
func (t *Tracker) Await(key CorrelationKey, configured time.Duration, onTimeout func()) {
	d := ackTimeout(configured)

	t.mu.Lock()
	if existing, ok := t.pending[key]; ok {
		existing.timer.Stop()
	}
	pa := &pendingAck{key: key, onTimeout: onTimeout}
	pa.timer = time.AfterFunc(d, func() { t.handleTimeout(key) })
	t.pending[key] = pa
	t.mu.Unlock()
}

// Resolve reports an inbound response matching key, cancelling its
// timeout. It returns false if no request was pending under that key.
func (t *Tracker) Resolve(key CorrelationKey) bool {
	t.mu.Lock()
	pa, ok := t.pending[key]
	if ok {
		delete(t.pending, key)
	}
	t.mu.Unlock()

	if ok {
		pa.timer.Stop()
	}
	return ok
}

// Cancel aborts a pending wait without invoking onTimeout.
func (t *Tracker) Cancel(key CorrelationKey) {
	t.mu.Lock()
	pa, ok := t.pending[key]
	if ok {
		delete(t.pending, key)
	}
	t.mu.Unlock()
	if ok {
		pa.timer.Stop()
	}
}

func (t *Tracker) handleTimeout(key CorrelationKey) {
	t.mu.Lock()
	pa, ok := t.pending[key]
	if ok {
		delete(t.pending, key)
	}
	t.mu.Unlock()

	if ok && pa.onTimeout != nil {
		pa.onTimeout()
	}
}
