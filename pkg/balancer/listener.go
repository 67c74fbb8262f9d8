package balancer

import (
	"sync"

	"github.com/cuemby/wayfinder/pkg/strategy"
	"github.com/cuemby/wayfinder/pkg/transport"
)

// Listener observes tracker-client and strategy churn as it happens.
// All four methods are invoked on the event thread; implementations
// must not block it.
type Listener interface {
	OnClientAdded(clusterName string, tracker *transport.Tracker)
	OnClientRemoved(clusterName string, tracker *transport.Tracker)
	OnStrategyAdded(serviceName, scheme string, s strategy.Strategy)
	OnStrategyRemoved(serviceName, scheme string, s strategy.Strategy)
}

// listenerRegistry is the plain list of registered Listeners. Mutated
// only from the event thread (AddListener/RemoveListener are themselves
// submitted there by Engine), read under a mutex so an incidental
// off-thread reader (ListenerCount) never races a registration.
type listenerRegistry struct {
	mu        sync.Mutex
	listeners []Listener
}

func (r *listenerRegistry) add(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *listenerRegistry) remove(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.listeners {
		if existing == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

func (r *listenerRegistry) snapshot() []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Listener, len(r.listeners))
	copy(out, r.listeners)
	return out
}

func (r *listenerRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

func (r *listenerRegistry) clientAdded(cluster string, t *transport.Tracker) {
	for _, l := range r.snapshot() {
		l.OnClientAdded(cluster, t)
	}
}

func (r *listenerRegistry) clientRemoved(cluster string, t *transport.Tracker) {
	for _, l := range r.snapshot() {
		l.OnClientRemoved(cluster, t)
	}
}

func (r *listenerRegistry) strategyAdded(service, scheme string, s strategy.Strategy) {
	for _, l := range r.snapshot() {
		l.OnStrategyAdded(service, scheme, s)
	}
}

func (r *listenerRegistry) strategyRemoved(service, scheme string, s strategy.Strategy) {
	for _, l := range r.snapshot() {
		l.OnStrategyRemoved(service, scheme, s)
	}
}
