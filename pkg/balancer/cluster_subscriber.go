package balancer

import (
	"strings"

	"github.com/cuemby/wayfinder/pkg/discovery"
	"github.com/cuemby/wayfinder/pkg/log"
	"github.com/cuemby/wayfinder/pkg/metrics"
	"github.com/cuemby/wayfinder/pkg/properties"
	"github.com/cuemby/wayfinder/pkg/transport"
)

// clusterSubscriber is the largest and most fan-out-heavy of the three
// subscribers: a cluster's prioritized-scheme change
// forces a rebuild of its transport clients, a rebuild of every tracker
// client that referenced them, an asynchronous shutdown of whatever
// transport clients it replaced, and a strategy refresh for every
// service hosted on the cluster.
type clusterSubscriber struct {
	engine *Engine
	waiter *waiter
}

var _ discovery.Listener[properties.ClusterProperties] = (*clusterSubscriber)(nil)

func (s *clusterSubscriber) OnInitialize(name string, value *properties.ClusterProperties) {
	metrics.PropertyEventsTotal.WithLabelValues("cluster", "initialize").Inc()
	s.engine.submit(func() {
		s.handlePut(name, value)
		s.waiter.initialized(name)
	})
}

func (s *clusterSubscriber) OnAdd(name string, value *properties.ClusterProperties) {
	metrics.PropertyEventsTotal.WithLabelValues("cluster", "add").Inc()
	s.engine.submit(func() { s.handlePut(name, value) })
}

func (s *clusterSubscriber) OnRemove(name string) {
	metrics.PropertyEventsTotal.WithLabelValues("cluster", "remove").Inc()
	s.engine.submit(func() { s.handleRemove(name) })
}

func (s *clusterSubscriber) ensureListening(name string, cb func()) {
	s.waiter.ensureListening(name, cb)
}

// handlePut runs the full fanout for a non-null clusterProps, and the
// null-sentinel branch for a known-absent one.
func (s *clusterSubscriber) handlePut(clusterName string, clusterProps *properties.ClusterProperties) {
	e := s.engine

	if clusterProps == nil {
		// Known-absent sentinel: store it, rebuild nothing. Downstream
		// lookups see clusterIndex[clusterName].Value == nil and treat the
		// cluster as degraded, not unknown.
		e.clusterIndex.Store(clusterName, properties.NewVersionedItem(&e.versionCounter, &ClusterInfoItem{}))
		return
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ClusterFanoutDuration)

	// Step 1: partition accessor + clusterIndex.
	accessor, err := e.partitionAccessorFactory(clusterProps.Partition)
	if err != nil {
		log.WithCluster(clusterName).Warn().Err(err).Msg("failed to build partition accessor")
		accessor = nil
	}
	e.clusterIndex.Store(clusterName, properties.NewVersionedItem(&e.versionCounter, &ClusterInfoItem{
		Properties: clusterProps,
		Accessor:   accessor,
	}))

	// Step 2: build the new frozen scheme -> client map.
	newClients := make(map[string]transport.Client, len(clusterProps.PrioritizedSchemes))
	for _, scheme := range clusterProps.PrioritizedSchemes {
		lower := strings.ToLower(scheme)
		factory := e.transportFactories.Lookup(lower)
		if factory == nil {
			log.WithCluster(clusterName).Warn().Str("scheme", scheme).Msg("no transport client factory registered for scheme")
			continue
		}
		client, err := factory.NewClient(clusterProps.Properties)
		if err != nil {
			log.WithCluster(clusterName).Warn().Str("scheme", scheme).Err(err).Msg("transport client factory failed")
			continue
		}
		newClients[lower] = client
	}

	// Step 3: atomic swap, capturing the old map for async shutdown.
	var oldClients map[string]transport.Client
	if raw, ok := e.clusterClients.Load(clusterName); ok {
		oldClients = raw.(map[string]transport.Client)
	}
	e.clusterClients.Store(clusterName, newClients)

	// Step 4: rebuild the tracker-client map against the new clients.
	newTrackers := make(map[string]*transport.Tracker)
	if raw, ok := e.uriIndex.Load(clusterName); ok {
		item := raw.(properties.VersionedItem[*properties.UriProperties])
		if item.Value != nil {
			for uri, endpoint := range item.Value.Endpoints {
				tracker := e.buildTracker(clusterName, uri, endpoint.PartitionDataMap)
				if tracker != nil {
					newTrackers[uri] = tracker
				}
			}
		}
	}
	// Installed even when empty: a cluster whose last tracker just went
	// away keeps an (empty) map entry, and readers treat that the same
	// as never having had one.
	e.trackerClients.Store(clusterName, newTrackers)

	// Step 5: retire the clients the new map replaced.
	for scheme, client := range oldClients {
		scheme, client := scheme, client
		client.Shutdown(func(err error) {
			l := log.WithCluster(clusterName)
			if err != nil {
				l.Warn().Str("scheme", scheme).Err(err).Msg("transport client shutdown failed")
				return
			}
			l.Debug().Str("scheme", scheme).Msg("transport client shut down")
		})
	}

	// Step 6: refresh every service hosted on this cluster — the scheme
	// set may have changed.
	for _, serviceName := range e.servicesForCluster(clusterName) {
		raw, ok := e.serviceIndex.Load(serviceName)
		if !ok {
			continue
		}
		item := raw.(properties.VersionedItem[*properties.ServiceProperties])
		if item.Value == nil {
			continue
		}
		e.refreshServiceStrategies(serviceName, item.Value)
	}
}

// handleRemove deletes clusterIndex only. It does not shut down
// transport clients or clear tracker clients, and a URI removal does not
// either: tracker clients go away only when a later URI update drops
// their URIs, and transport clients only when a later cluster update
// replaces them or the engine shuts down.
func (s *clusterSubscriber) handleRemove(clusterName string) {
	log.WithCluster(clusterName).Debug().Msg("cluster properties removed")
	s.engine.clusterIndex.Delete(clusterName)
}
