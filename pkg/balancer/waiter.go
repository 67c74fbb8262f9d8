package balancer

import (
	"sync"

	"github.com/cuemby/wayfinder/pkg/metrics"
)

// waiterQueue is the per-property-name state backing one ensureListening
// registration: an open queue accumulates callbacks until close is
// called exactly once, at which point it is frozen and any further offer
// fails.
type waiterQueue struct {
	mu        sync.Mutex
	closed    bool
	callbacks []func()
}

// offer appends cb to the queue and reports true, unless the queue has
// already been closed, in which case it reports false and the caller
// must invoke cb itself.
func (q *waiterQueue) offer(cb func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.callbacks = append(q.callbacks, cb)
	return true
}

// close freezes the queue and returns every callback accumulated so far.
// Safe to call exactly once; subsequent offers observe closed and return
// false.
func (q *waiterQueue) close() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	cbs := q.callbacks
	q.callbacks = nil
	return cbs
}

// waiter implements the ensureListening protocol shared by
// all three subscribers: install a waiterQueue the first time a name is
// seen, register with the bus exactly once, and fire every queued
// callback when that name's first value arrives.
type waiter struct {
	kind    string // property kind label for metrics
	mu      sync.Mutex
	queues  map[string]*waiterQueue
	onFirst func(name string) // invoked exactly once per name, after the waiter's lock is released
}

func newWaiter(kind string, onFirst func(name string)) *waiter {
	return &waiter{
		kind:    kind,
		queues:  make(map[string]*waiterQueue),
		onFirst: onFirst,
	}
}

// ensureListening installs cb to run once name's property has
// initialized. If name is new, this is also the call that triggers bus
// registration (via onFirst); every subsequent call for the same name
// only enqueues or fires immediately.
func (w *waiter) ensureListening(name string, cb func()) {
	w.mu.Lock()
	q, existed := w.queues[name]
	if !existed {
		q = &waiterQueue{}
		w.queues[name] = q
	}
	w.mu.Unlock()

	if !existed {
		q.offer(cb)
		metrics.ListenCallsTotal.WithLabelValues(w.kind, "registered").Inc()
		w.onFirst(name)
		return
	}

	if !q.offer(cb) {
		// Lost the race to close: the property already initialized.
		metrics.ListenCallsTotal.WithLabelValues(w.kind, "immediate").Inc()
		cb()
		return
	}
	metrics.ListenCallsTotal.WithLabelValues(w.kind, "queued").Inc()
}

// initialized closes name's waiter queue (installing one if somehow
// absent — e.g. a publisher that initializes before any ensureListening
// call registered one) and fires every accumulated callback.
func (w *waiter) initialized(name string) {
	w.mu.Lock()
	q, ok := w.queues[name]
	if !ok {
		q = &waiterQueue{}
		w.queues[name] = q
	}
	w.mu.Unlock()

	for _, cb := range q.close() {
		cb()
	}
}

// count returns the number of distinct names this waiter has ever been
// asked to listen for. Used by Engine.ListenerCountByKind.
func (w *waiter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queues)
}
