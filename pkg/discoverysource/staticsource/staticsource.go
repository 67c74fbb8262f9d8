// Package staticsource implements an in-memory discovery.Publisher for
// each property kind. A Store holds the current value per name; Set and
// Delete push the change to every active watcher, honoring the
// publisher contract (one Initialize first, then Add/Remove in call
// order). Useful for demos, fixtures, and wiring an engine without a
// live discovery backend.
package staticsource

import (
	"sync"

	"github.com/cuemby/wayfinder/pkg/discovery"
)

// Store is an in-memory Publisher for one property kind.
type Store[V any] struct {
	mu     sync.Mutex
	values map[string]*V
	known  map[string]bool // distinguishes "set to nil" from "never set"
	sinks  map[string][]discovery.Sink[V]
}

var _ discovery.Publisher[struct{}] = (*Store[struct{}])(nil)

// NewStore creates an empty Store.
func NewStore[V any]() *Store[V] {
	return &Store[V]{
		values: make(map[string]*V),
		known:  make(map[string]bool),
		sinks:  make(map[string][]discovery.Sink[V]),
	}
}

// Watch delivers the current value for name as an immediate Initialize
// (nil if the name has never been Set, meaning known absent) and subscribes
// sink to future Set/Delete calls. The cancel unsubscribes.
func (s *Store[V]) Watch(name string, sink discovery.Sink[V]) (cancel func()) {
	s.mu.Lock()
	s.sinks[name] = append(s.sinks[name], sink)
	value := s.values[name]
	s.mu.Unlock()

	sink.Initialize(value)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		sinks := s.sinks[name]
		for i, existing := range sinks {
			if existing == sink {
				s.sinks[name] = append(sinks[:i], sinks[i+1:]...)
				return
			}
		}
	}
}

// Set publishes value for name. A nil value is legal and means "known
// absent." Watchers registered for name receive an Add.
func (s *Store[V]) Set(name string, value *V) {
	s.mu.Lock()
	s.values[name] = value
	s.known[name] = true
	sinks := append([]discovery.Sink[V](nil), s.sinks[name]...)
	s.mu.Unlock()

	for _, sink := range sinks {
		sink.Add(value)
	}
}

// Delete removes name entirely. Watchers receive a Remove.
func (s *Store[V]) Delete(name string) {
	s.mu.Lock()
	delete(s.values, name)
	delete(s.known, name)
	sinks := append([]discovery.Sink[V](nil), s.sinks[name]...)
	s.mu.Unlock()

	for _, sink := range sinks {
		sink.Remove()
	}
}

// Names returns every name that has ever been Set and not Deleted.
func (s *Store[V]) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.known))
	for name := range s.known {
		out = append(out, name)
	}
	return out
}
