package eventloop

import "sync"

// Loop is a multi-producer, single-consumer FIFO task queue. Submit
// enqueues and returns immediately; tasks run strictly in enqueue order,
// one at a time, on the loop's single goroutine.
type Loop struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

// New creates a Loop. Call Start to begin draining it.
func New() *Loop {
	l := &Loop{done: make(chan struct{})}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Start launches the loop's consumer goroutine.
func (l *Loop) Start() {
	go l.run()
}

// Submit enqueues task to run on the loop's goroutine. It returns
// immediately without waiting for the task to run. Submitting after
// ShutdownAndWait has been called is a silent no-op: the engine does not
// guard against post-shutdown writes, but it does not crash on them
// either.
func (l *Loop) Submit(task func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	l.cond.Signal()
}

// QueueDepth reports the number of tasks currently queued. Safe to call
// from any goroutine.
func (l *Loop) QueueDepth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// ShutdownAndWait stops accepting new tasks, drains whatever is already
// queued, and invokes callback exactly once after the last queued task
// completes and the consumer goroutine exits. It does not block the
// caller.
func (l *Loop) ShutdownAndWait(callback func()) {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cond.Signal()

	go func() {
		<-l.done
		if callback != nil {
			callback()
		}
	}()
}

func (l *Loop) run() {
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 && l.closed {
			l.mu.Unlock()
			close(l.done)
			return
		}
		task := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		task()
	}
}
