package balancer

import (
	"sync"

	"github.com/cuemby/wayfinder/pkg/discovery"
	"github.com/cuemby/wayfinder/pkg/eventloop"
	"github.com/cuemby/wayfinder/pkg/log"
	"github.com/cuemby/wayfinder/pkg/metrics"
	"github.com/cuemby/wayfinder/pkg/partition"
	"github.com/cuemby/wayfinder/pkg/properties"
	"github.com/cuemby/wayfinder/pkg/strategy"
	"github.com/cuemby/wayfinder/pkg/transport"
)

// ClusterInfoItem is the value stored in clusterIndex: a cluster's
// properties together with the PartitionAccessor derived from them. Both
// fields are nil for the "known absent" sentinel stored when a publisher
// sends a null ClusterProperties.
type ClusterInfoItem struct {
	Properties *properties.ClusterProperties
	Accessor   partition.Accessor
}

// Config wires an Engine to its external collaborators: the discovery
// publishers, the pluggable client/strategy/partition factories. None of
// these are implemented by this package; see pkg/transport/httptransport,
// pkg/strategy/roundrobin, pkg/partition/hashpartition, and
// pkg/discoverysource/dnssource for reference implementations.
type Config struct {
	UriPublisher     discovery.Publisher[properties.UriProperties]
	ClusterPublisher discovery.Publisher[properties.ClusterProperties]
	ServicePublisher discovery.Publisher[properties.ServiceProperties]

	TransportFactories       *transport.Registry
	StrategyFactories        *strategy.Registry
	PartitionAccessorFactory partition.AccessorFactory

	// InitialVersion seeds the version counter, as though SeedVersion had
	// been called immediately after construction.
	InitialVersion int64
}

// Engine is the reconciliation core: three authoritative indexes, three
// derived caches, and the subscribers that keep them in sync off a
// single-writer event thread. See the package doc for the full
// component breakdown.
type Engine struct {
	loop *eventloop.Loop

	uriBus     *discovery.Bus[properties.UriProperties]
	clusterBus *discovery.Bus[properties.ClusterProperties]
	serviceBus *discovery.Bus[properties.ServiceProperties]

	uriSub     *uriSubscriber
	clusterSub *clusterSubscriber
	serviceSub *serviceSubscriber

	versionCounter properties.VersionCounter

	transportFactories       *transport.Registry
	strategyFactories        *strategy.Registry
	partitionAccessorFactory partition.AccessorFactory

	// Authoritative indexes. Values are properties.VersionedItem[*T];
	// sync.Map gives lock-free reads against the single writer (the event
	// thread), and each Store call publishes a fully-formed item, so
	// readers never observe a partially constructed one.
	uriIndex     sync.Map // clusterName -> VersionedItem[*properties.UriProperties]
	clusterIndex sync.Map // clusterName -> VersionedItem[*ClusterInfoItem]
	serviceIndex sync.Map // serviceName -> VersionedItem[*properties.ServiceProperties]

	// servicesPerCluster is mutated only from the event thread (every
	// caller is a subscriber's handlePut/handleRemove); the mutex exists
	// so that incidental off-thread readers of servicesForCluster (such
	// as tests) never race a write.
	spcMu              sync.Mutex
	servicesPerCluster map[string]map[string]struct{}

	// Derived caches. Inner maps are frozen once built: a Store replaces
	// the whole inner map atomically, so readers never see a half-updated
	// scheme/URI set.
	clusterClients    sync.Map // clusterName -> map[string]transport.Client
	trackerClients     sync.Map // clusterName -> map[string]*transport.Tracker
	serviceStrategies sync.Map // serviceName -> map[string]strategy.Strategy
	strategyCache     sync.Map // serviceName -> []OrderedStrategy

	listeners listenerRegistry
}

// New constructs an Engine and starts its event thread. Callers should
// arrange for the configured publishers to be ready before any
// ListenToService/ListenToCluster call that would trigger a Watch.
func New(cfg Config) *Engine {
	e := &Engine{
		loop:                     eventloop.New(),
		transportFactories:       cfg.TransportFactories,
		strategyFactories:        cfg.StrategyFactories,
		partitionAccessorFactory: cfg.PartitionAccessorFactory,
		servicesPerCluster:       make(map[string]map[string]struct{}),
	}

	if cfg.InitialVersion != 0 {
		e.versionCounter.Seed(cfg.InitialVersion)
	}

	e.uriBus = discovery.NewBus[properties.UriProperties](cfg.UriPublisher)
	e.clusterBus = discovery.NewBus[properties.ClusterProperties](cfg.ClusterPublisher)
	e.serviceBus = discovery.NewBus[properties.ServiceProperties](cfg.ServicePublisher)

	e.uriSub = &uriSubscriber{engine: e}
	e.uriSub.waiter = newWaiter("uri", func(name string) { e.uriBus.Register(name, e.uriSub) })

	e.clusterSub = &clusterSubscriber{engine: e}
	e.clusterSub.waiter = newWaiter("cluster", func(name string) { e.clusterBus.Register(name, e.clusterSub) })

	e.serviceSub = &serviceSubscriber{engine: e}
	e.serviceSub.waiter = newWaiter("service", func(name string) { e.serviceBus.Register(name, e.serviceSub) })

	e.loop.Start()
	return e
}

// submit wraps a core-mutating task so it always runs on the event
// thread, serialized with every other mutation.
func (e *Engine) submit(task func()) {
	e.loop.Submit(func() {
		timer := metrics.NewTimer()
		defer func() {
			if r := recover(); r != nil {
				// A panicking task must not kill the event thread; every
				// other cluster and service still depends on it.
				log.Logger.Error().Interface("panic", r).Msg("event thread task panicked")
			}
			timer.ObserveDuration(metrics.EventThreadTaskDuration)
			metrics.EventThreadQueueDepth.Set(float64(e.loop.QueueDepth()))
		}()
		task()
	})
}

func (e *Engine) addServiceToCluster(cluster, service string) {
	e.spcMu.Lock()
	defer e.spcMu.Unlock()
	set, ok := e.servicesPerCluster[cluster]
	if !ok {
		set = make(map[string]struct{})
		e.servicesPerCluster[cluster] = set
	}
	set[service] = struct{}{}
}

func (e *Engine) removeServiceFromCluster(cluster, service string) {
	e.spcMu.Lock()
	defer e.spcMu.Unlock()
	if set, ok := e.servicesPerCluster[cluster]; ok {
		delete(set, service)
		if len(set) == 0 {
			delete(e.servicesPerCluster, cluster)
		}
	}
}

func (e *Engine) servicesForCluster(cluster string) []string {
	e.spcMu.Lock()
	defer e.spcMu.Unlock()
	set := e.servicesPerCluster[cluster]
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}
