package balancer

import (
	"github.com/cuemby/wayfinder/pkg/discovery"
	"github.com/cuemby/wayfinder/pkg/log"
	"github.com/cuemby/wayfinder/pkg/metrics"
	"github.com/cuemby/wayfinder/pkg/properties"
	"github.com/cuemby/wayfinder/pkg/transport"
)

// uriSubscriber owns uriIndex and the
// tracker-client half of the derived caches, reacting to URI property
// churn by building or discarding transport.Tracker wrappers. It never
// shuts a transport.Client down — that lifecycle belongs entirely to the
// cluster subscriber.
type uriSubscriber struct {
	engine *Engine
	waiter *waiter
}

var _ discovery.Listener[properties.UriProperties] = (*uriSubscriber)(nil)

func (s *uriSubscriber) OnInitialize(name string, value *properties.UriProperties) {
	metrics.PropertyEventsTotal.WithLabelValues("uri", "initialize").Inc()
	s.engine.submit(func() {
		s.handlePut(name, value)
		s.waiter.initialized(name)
	})
}

func (s *uriSubscriber) OnAdd(name string, value *properties.UriProperties) {
	metrics.PropertyEventsTotal.WithLabelValues("uri", "add").Inc()
	s.engine.submit(func() { s.handlePut(name, value) })
}

func (s *uriSubscriber) OnRemove(name string) {
	metrics.PropertyEventsTotal.WithLabelValues("uri", "remove").Inc()
	s.engine.submit(func() { s.handleRemove(name) })
}

// ensureListening is the URI half of the listen handshake: ListenToCluster
// drives this directly (as one leg of its two-count barrier), and
// nothing else needs to listen for URI-only initialization.
func (s *uriSubscriber) ensureListening(name string, cb func()) {
	s.waiter.ensureListening(name, cb)
}

// handlePut diffs the new URI set
// against whatever tracker clients exist for clusterName: trackers for
// newly seen URIs are added (and announced) before uriIndex[clusterName]
// is replaced with the versioned item, and trackers for URIs no longer
// present are dropped (and announced) after it.
func (s *uriSubscriber) handlePut(clusterName string, uriProps *properties.UriProperties) {
	e := s.engine

	oldTrackers := map[string]*transport.Tracker{}
	if raw, ok := e.trackerClients.Load(clusterName); ok {
		oldTrackers = raw.(map[string]*transport.Tracker)
	}

	newTrackers := make(map[string]*transport.Tracker, len(oldTrackers))

	if uriProps != nil {
		for uri, endpoint := range uriProps.Endpoints {
			if existing, ok := oldTrackers[uri]; ok {
				newTrackers[uri] = existing
				continue
			}
			tracker := e.buildTracker(clusterName, uri, endpoint.PartitionDataMap)
			if tracker == nil {
				continue
			}
			newTrackers[uri] = tracker
			e.listeners.clientAdded(clusterName, tracker)
		}
	}

	e.uriIndex.Store(clusterName, properties.NewVersionedItem(&e.versionCounter, uriProps))

	for uri, tracker := range oldTrackers {
		if _, stillPresent := newTrackers[uri]; stillPresent {
			continue
		}
		e.listeners.clientRemoved(clusterName, tracker)
	}

	if len(newTrackers) == 0 {
		e.trackerClients.Delete(clusterName)
		return
	}
	e.trackerClients.Store(clusterName, newTrackers)
}

// handleRemove drops uriIndex[clusterName] only; existing tracker
// clients are left in place. Tracker-client teardown happens only in
// handlePut, when an Initialize/Add publishes a URI set that no longer
// contains a URI, matching the observed ordering of discovery events.
func (s *uriSubscriber) handleRemove(clusterName string) {
	log.WithCluster(clusterName).Debug().Msg("uri properties removed")
	s.engine.uriIndex.Delete(clusterName)
}
