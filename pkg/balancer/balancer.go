package balancer

import (
	"net/url"
	"strings"
	"sync"

	"github.com/cuemby/wayfinder/pkg/log"
	"github.com/cuemby/wayfinder/pkg/partition"
	"github.com/cuemby/wayfinder/pkg/properties"
	"github.com/cuemby/wayfinder/pkg/strategy"
	"github.com/cuemby/wayfinder/pkg/transport"
)

// ListenToService calls through to the service subscriber's
// ensureListening exactly once. cb is invoked on the event thread when
// serviceName's properties initialize; if they already had, cb is
// invoked immediately on the calling goroutine.
func (e *Engine) ListenToService(serviceName string, cb func()) {
	e.serviceSub.ensureListening(serviceName, cb)
}

// ListenToCluster installs a two-count barrier: cb fires only once both
// the cluster and URI properties for clusterName have initialized, in
// whichever order they actually arrive.
func (e *Engine) ListenToCluster(clusterName string, cb func()) {
	var mu sync.Mutex
	remaining := 2
	fire := func() {
		mu.Lock()
		remaining--
		done := remaining == 0
		mu.Unlock()
		if done {
			cb()
		}
	}
	e.clusterSub.ensureListening(clusterName, fire)
	e.uriSub.ensureListening(clusterName, fire)
}

// AddListener registers l to receive tracker-client and strategy churn
// notifications. Enqueued on the event thread so it can never race a
// notification already in flight.
func (e *Engine) AddListener(l Listener) {
	e.submit(func() { e.listeners.add(l) })
}

// RemoveListener unregisters l.
func (e *Engine) RemoveListener(l Listener) {
	e.submit(func() { e.listeners.remove(l) })
}

// SeedVersion reseeds the version counter on the event thread, the same
// discipline every other mutation follows.
func (e *Engine) SeedVersion(v int64) {
	e.submit(func() { e.versionCounter.Seed(v) })
}

// --- Public read API. All lock-free against the event thread. ---

// GetTrackerClient looks up the tracker client for (cluster, uri). Returns
// nil if the cluster or URI is unknown to the engine.
func (e *Engine) GetTrackerClient(cluster, uri string) *transport.Tracker {
	raw, ok := e.trackerClients.Load(cluster)
	if !ok {
		log.WithCluster(cluster).Warn().Str("uri", uri).Msg("getTrackerClient: cluster unknown")
		return nil
	}
	trackers := raw.(map[string]*transport.Tracker)
	t, ok := trackers[uri]
	if !ok {
		log.WithCluster(cluster).Warn().Str("uri", uri).Msg("getTrackerClient: uri unknown")
		return nil
	}
	return t
}

// GetTransportClient looks up the transport client for (cluster, scheme).
// Returns nil if the cluster is unknown or has no client for scheme.
func (e *Engine) GetTransportClient(cluster, scheme string) transport.Client {
	raw, ok := e.clusterClients.Load(cluster)
	if !ok {
		log.WithCluster(cluster).Warn().Str("scheme", scheme).Msg("getTransportClient: cluster unknown")
		return nil
	}
	clients := raw.(map[string]transport.Client)
	return clients[strings.ToLower(scheme)]
}

// GetStrategy looks up the strategy for (service, scheme).
func (e *Engine) GetStrategy(service, scheme string) strategy.Strategy {
	raw, ok := e.serviceStrategies.Load(service)
	if !ok {
		log.WithService(service).Warn().Str("scheme", scheme).Msg("getStrategy: service unknown")
		return nil
	}
	strategies := raw.(map[string]strategy.Strategy)
	return strategies[strings.ToLower(scheme)]
}

// GetStrategiesForService returns (scheme, strategy) pairs in
// prioritizedSchemes order, dropping schemes with no resolved strategy.
// The result is memoized per service and invalidated by every
// refreshServiceStrategies call for that service.
func (e *Engine) GetStrategiesForService(service string, prioritizedSchemes []string) []OrderedStrategy {
	if cached, ok := e.strategyCache.Load(service); ok {
		return cached.([]OrderedStrategy)
	}

	raw, ok := e.serviceStrategies.Load(service)
	var strategies map[string]strategy.Strategy
	if ok {
		strategies = raw.(map[string]strategy.Strategy)
	}

	ordered := make([]OrderedStrategy, 0, len(prioritizedSchemes))
	for _, scheme := range prioritizedSchemes {
		lower := strings.ToLower(scheme)
		st, ok := strategies[lower]
		if !ok {
			continue
		}
		ordered = append(ordered, OrderedStrategy{Scheme: lower, Strategy: st})
	}

	e.strategyCache.Store(service, ordered)
	return ordered
}

// GetUriProperties returns the versioned URI properties item for
// cluster, or the zero item with ok=false if the engine has never heard
// of it.
func (e *Engine) GetUriProperties(cluster string) (properties.VersionedItem[*properties.UriProperties], bool) {
	raw, ok := e.uriIndex.Load(cluster)
	if !ok {
		return properties.VersionedItem[*properties.UriProperties]{}, false
	}
	return raw.(properties.VersionedItem[*properties.UriProperties]), true
}

// GetClusterProperties returns the versioned cluster properties item for
// cluster, or ok=false if unknown.
func (e *Engine) GetClusterProperties(cluster string) (properties.VersionedItem[*properties.ClusterProperties], bool) {
	raw, ok := e.clusterIndex.Load(cluster)
	if !ok {
		return properties.VersionedItem[*properties.ClusterProperties]{}, false
	}
	item := raw.(properties.VersionedItem[*ClusterInfoItem])
	var props *properties.ClusterProperties
	if item.Value != nil {
		props = item.Value.Properties
	}
	return properties.VersionedItem[*properties.ClusterProperties]{
		Value:     props,
		Version:   item.Version,
		Timestamp: item.Timestamp,
	}, true
}

// GetPartitionAccessor returns the PartitionAccessor derived for
// cluster, or nil if the cluster is unknown or has no properties.
func (e *Engine) GetPartitionAccessor(cluster string) partition.Accessor {
	raw, ok := e.clusterIndex.Load(cluster)
	if !ok {
		return nil
	}
	item := raw.(properties.VersionedItem[*ClusterInfoItem])
	if item.Value == nil {
		return nil
	}
	return item.Value.Accessor
}

// GetServiceProperties returns the versioned service properties item for
// service, or ok=false if unknown.
func (e *Engine) GetServiceProperties(service string) (properties.VersionedItem[*properties.ServiceProperties], bool) {
	raw, ok := e.serviceIndex.Load(service)
	if !ok {
		return properties.VersionedItem[*properties.ServiceProperties]{}, false
	}
	return raw.(properties.VersionedItem[*properties.ServiceProperties]), true
}

// SchemeOf returns the lower-cased scheme of uri, or "" if it doesn't
// parse. Exported since callers computing a cluster/scheme transport
// lookup from a raw URI need the same normalization the engine applies
// internally.
func SchemeOf(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// Shutdown enqueues a task that gathers every transport client across
// all clusters, issues an asynchronous Shutdown to each, and invokes
// callback once the last one completes. Writes submitted after Shutdown
// is called but before the event loop has stopped still run (nothing
// rejects them) but are ill-advised; once the loop has stopped, further
// submissions are silently dropped.
func (e *Engine) Shutdown(callback func()) {
	e.submit(func() {
		var clients []transport.Client
		e.clusterClients.Range(func(_, v any) bool {
			for _, c := range v.(map[string]transport.Client) {
				clients = append(clients, c)
			}
			return true
		})

		if len(clients) == 0 {
			e.loop.ShutdownAndWait(callback)
			return
		}

		var mu sync.Mutex
		remaining := len(clients)
		done := func() {
			mu.Lock()
			remaining--
			fired := remaining == 0
			mu.Unlock()
			if fired {
				e.loop.ShutdownAndWait(callback)
			}
		}
		for _, c := range clients {
			c.Shutdown(func(err error) {
				if err != nil {
					log.Logger.Warn().Err(err).Msg("transport client shutdown failed during engine shutdown")
				}
				done()
			})
		}
	})
}
