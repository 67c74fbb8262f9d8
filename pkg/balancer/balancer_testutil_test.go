package balancer

import (
	"fmt"
	"sync"

	"github.com/cuemby/wayfinder/pkg/discovery"
	"github.com/cuemby/wayfinder/pkg/partition"
	"github.com/cuemby/wayfinder/pkg/properties"
	"github.com/cuemby/wayfinder/pkg/strategy"
	"github.com/cuemby/wayfinder/pkg/transport"
)

// fakePublisher is a hand-driven discovery.Publisher: tests call push to
// simulate the publisher's Initialize/Add/Remove contract directly,
// without any real discovery backend.
type fakePublisher[V any] struct {
	mu    sync.Mutex
	sinks map[string]discovery.Sink[V]
}

func newFakePublisher[V any]() *fakePublisher[V] {
	return &fakePublisher[V]{sinks: make(map[string]discovery.Sink[V])}
}

func (p *fakePublisher[V]) Watch(name string, sink discovery.Sink[V]) func() {
	p.mu.Lock()
	p.sinks[name] = sink
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.sinks, name)
		p.mu.Unlock()
	}
}

func (p *fakePublisher[V]) initialize(name string, v *V) {
	p.sinkFor(name).Initialize(v)
}

func (p *fakePublisher[V]) add(name string, v *V) {
	p.sinkFor(name).Add(v)
}

func (p *fakePublisher[V]) remove(name string) {
	p.sinkFor(name).Remove()
}

func (p *fakePublisher[V]) sinkFor(name string) discovery.Sink[V] {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.sinks[name]
	if s == nil {
		panic(fmt.Sprintf("fakePublisher: no sink registered for %q (engine never called ensureListening/Register)", name))
	}
	return s
}

// recordingClient is a transport.Client fake that records whether it has
// been shut down, for scenario assertions like "the old client must be
// shut down, the new one must not be."
type recordingClient struct {
	mu       sync.Mutex
	scheme   string
	shutdown bool
}

func (c *recordingClient) Shutdown(callback func(error)) {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()
	callback(nil)
}

func (c *recordingClient) wasShutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdown
}

// recordingListener implements Listener and records every notification
// in arrival order, for ordering assertions (e.g. remove-before-add
// during strategy replacement).
type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingListener) OnClientAdded(cluster string, t *transport.Tracker) {
	l.record(fmt.Sprintf("client-added:%s:%s", cluster, t.URI))
}

func (l *recordingListener) OnClientRemoved(cluster string, t *transport.Tracker) {
	l.record(fmt.Sprintf("client-removed:%s:%s", cluster, t.URI))
}

func (l *recordingListener) OnStrategyAdded(service, scheme string, s strategy.Strategy) {
	l.record(fmt.Sprintf("strategy-added:%s:%s", service, scheme))
}

func (l *recordingListener) OnStrategyRemoved(service, scheme string, s strategy.Strategy) {
	l.record(fmt.Sprintf("strategy-removed:%s:%s", service, scheme))
}

func (l *recordingListener) record(s string) {
	l.mu.Lock()
	l.events = append(l.events, s)
	l.mu.Unlock()
}

func (l *recordingListener) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

// fixedStrategy is a no-op strategy.Strategy fake.
type fixedStrategy struct{}

func (fixedStrategy) Select(candidates []*transport.Tracker) (*transport.Tracker, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[0], true
}

// testHarness bundles an Engine together with the fake publishers that
// drive it, so scenario tests can push events without reaching into
// engine internals.
type testHarness struct {
	engine     *Engine
	uriPub     *fakePublisher[properties.UriProperties]
	clusterPub *fakePublisher[properties.ClusterProperties]
	servicePub *fakePublisher[properties.ServiceProperties]
	clients    []*recordingClient
	clientsMu  sync.Mutex
}

func newTestHarness() *testHarness {
	h := &testHarness{
		uriPub:     newFakePublisher[properties.UriProperties](),
		clusterPub: newFakePublisher[properties.ClusterProperties](),
		servicePub: newFakePublisher[properties.ServiceProperties](),
	}

	transportFactories := transport.NewRegistry()
	for _, scheme := range []string{"http", "https"} {
		scheme := scheme
		transportFactories.Register(scheme, transport.FactoryFunc(func(props map[string]string) (transport.Client, error) {
			c := &recordingClient{scheme: scheme}
			h.clientsMu.Lock()
			h.clients = append(h.clients, c)
			h.clientsMu.Unlock()
			return c, nil
		}))
	}

	strategyFactories := strategy.NewRegistry()
	strategyFactories.Register("roundrobin", strategy.FactoryFunc(func(string, map[string]string) (strategy.Strategy, error) {
		return fixedStrategy{}, nil
	}))

	h.engine = New(Config{
		UriPublisher:       h.uriPub,
		ClusterPublisher:   h.clusterPub,
		ServicePublisher:   h.servicePub,
		TransportFactories: transportFactories,
		StrategyFactories:  strategyFactories,
		PartitionAccessorFactory: func(props properties.PartitionProperties) (partition.Accessor, error) {
			return noopAccessor{}, nil
		},
	})
	return h
}

type noopAccessor struct{}

func (noopAccessor) PartitionFor(key string) (int, error) { return 0, nil }

// settle blocks until every task submitted to the engine's event loop so
// far has completed, by submitting one more task and waiting for it.
func (h *testHarness) settle() {
	done := make(chan struct{})
	h.engine.submit(func() { close(done) })
	<-done
}
