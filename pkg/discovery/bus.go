package discovery

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Listener receives the bus's outbound contract for one property kind:
// exactly one OnInitialize per name as the first callback, followed by
// zero or more OnAdd/OnRemove in publisher order. A nil value is legal
// on OnInitialize/OnAdd and means "known absent."
type Listener[V any] interface {
	OnInitialize(name string, value *V)
	OnAdd(name string, value *V)
	OnRemove(name string)
}

// Sink is how a Publisher pushes events for one name into the bus.
type Sink[V any] interface {
	Initialize(value *V)
	Add(value *V)
	Remove()
}

// Publisher is the external discovery backend for one property kind. It
// is out of scope for this package beyond this interface: Watch must
// invoke exactly one Initialize on sink before any Add/Remove for name.
// Watch returns a cancel function the bus calls once no listener remains
// interested in name.
type Publisher[V any] interface {
	Watch(name string, sink Sink[V]) (cancel func())
}

// Bus multiplexes a Publisher's per-name notifications out to any number
// of registered Listeners. Register is safe to call concurrently for the
// same name; a singleflight.Group guarantees the underlying Publisher
// sees exactly one Watch call per name no matter how many Listeners
// register for it.
type Bus[V any] struct {
	publisher Publisher[V]
	group     singleflight.Group

	mu        sync.Mutex
	listeners map[string][]Listener[V]
	cancels   map[string]func()
}

// NewBus creates a Bus backed by publisher.
func NewBus[V any](publisher Publisher[V]) *Bus[V] {
	return &Bus[V]{
		publisher: publisher,
		listeners: make(map[string][]Listener[V]),
		cancels:   make(map[string]func()),
	}
}

// Register adds listener for name, establishing the upstream watch on
// first registration for that name.
func (b *Bus[V]) Register(name string, listener Listener[V]) {
	b.mu.Lock()
	b.listeners[name] = append(b.listeners[name], listener)
	b.mu.Unlock()

	b.group.Do(name, func() (any, error) {
		b.mu.Lock()
		_, watching := b.cancels[name]
		b.mu.Unlock()
		if watching {
			return nil, nil
		}

		sink := &busSink[V]{bus: b, name: name}
		cancel := b.publisher.Watch(name, sink)

		b.mu.Lock()
		b.cancels[name] = cancel
		b.mu.Unlock()
		return nil, nil
	})
}

// Unregister removes listener from name's fan-out list. When the last
// listener for name is removed, the upstream watch is canceled.
func (b *Bus[V]) Unregister(name string, listener Listener[V]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ls := b.listeners[name]
	for i, l := range ls {
		if sameListener(l, listener) {
			ls = append(ls[:i], ls[i+1:]...)
			break
		}
	}

	if len(ls) == 0 {
		delete(b.listeners, name)
		if cancel, ok := b.cancels[name]; ok {
			cancel()
			delete(b.cancels, name)
		}
		return
	}
	b.listeners[name] = ls
}

func sameListener[V any](a, b Listener[V]) bool {
	return any(a) == any(b)
}

func (b *Bus[V]) dispatch(name string, fn func(Listener[V])) {
	b.mu.Lock()
	ls := make([]Listener[V], len(b.listeners[name]))
	copy(ls, b.listeners[name])
	b.mu.Unlock()

	for _, l := range ls {
		fn(l)
	}
}

type busSink[V any] struct {
	bus  *Bus[V]
	name string
}

func (s *busSink[V]) Initialize(value *V) {
	s.bus.dispatch(s.name, func(l Listener[V]) { l.OnInitialize(s.name, value) })
}

func (s *busSink[V]) Add(value *V) {
	s.bus.dispatch(s.name, func(l Listener[V]) { l.OnAdd(s.name, value) })
}

func (s *busSink[V]) Remove() {
	s.bus.dispatch(s.name, func(l Listener[V]) { l.OnRemove(s.name) })
}
