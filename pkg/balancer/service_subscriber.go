package balancer

import (
	"strings"

	"github.com/cuemby/wayfinder/pkg/discovery"
	"github.com/cuemby/wayfinder/pkg/log"
	"github.com/cuemby/wayfinder/pkg/metrics"
	"github.com/cuemby/wayfinder/pkg/properties"
	"github.com/cuemby/wayfinder/pkg/strategy"
)

// serviceSubscriber owns serviceIndex and
// servicesPerCluster membership, and triggers refreshServiceStrategies
// whenever a service's properties change.
type serviceSubscriber struct {
	engine *Engine
	waiter *waiter
}

var _ discovery.Listener[properties.ServiceProperties] = (*serviceSubscriber)(nil)

func (s *serviceSubscriber) OnInitialize(name string, value *properties.ServiceProperties) {
	metrics.PropertyEventsTotal.WithLabelValues("service", "initialize").Inc()
	s.engine.submit(func() {
		s.handlePut(name, value)
		s.waiter.initialized(name)
	})
}

func (s *serviceSubscriber) OnAdd(name string, value *properties.ServiceProperties) {
	metrics.PropertyEventsTotal.WithLabelValues("service", "add").Inc()
	s.engine.submit(func() { s.handlePut(name, value) })
}

func (s *serviceSubscriber) OnRemove(name string) {
	metrics.PropertyEventsTotal.WithLabelValues("service", "remove").Inc()
	s.engine.submit(func() { s.handleRemove(name) })
}

func (s *serviceSubscriber) ensureListening(name string, cb func()) {
	s.waiter.ensureListening(name, cb)
}

// handlePut stores the new versioned item, refreshes strategies, and
// keeps servicesPerCluster membership current.
func (s *serviceSubscriber) handlePut(serviceName string, svcProps *properties.ServiceProperties) {
	e := s.engine

	var oldClusterName string
	var hadOldValue bool
	if raw, ok := e.serviceIndex.Load(serviceName); ok {
		item := raw.(properties.VersionedItem[*properties.ServiceProperties])
		if item.Value != nil {
			oldClusterName = item.Value.ClusterName
			hadOldValue = true
		}
	}

	e.serviceIndex.Store(serviceName, properties.NewVersionedItem(&e.versionCounter, svcProps))

	if svcProps != nil {
		e.refreshServiceStrategies(serviceName, svcProps)
		if hadOldValue && oldClusterName != svcProps.ClusterName {
			e.removeServiceFromCluster(oldClusterName, serviceName)
		}
		e.addServiceToCluster(svcProps.ClusterName, serviceName)
		return
	}

	if hadOldValue {
		e.removeServiceFromCluster(oldClusterName, serviceName)
	}
}

// handleRemove drops the service from serviceIndex and from its old
// cluster's membership set.
func (s *serviceSubscriber) handleRemove(serviceName string) {
	e := s.engine

	var oldClusterName string
	var hadOldValue bool
	if raw, ok := e.serviceIndex.Load(serviceName); ok {
		item := raw.(properties.VersionedItem[*properties.ServiceProperties])
		if item.Value != nil {
			oldClusterName = item.Value.ClusterName
			hadOldValue = true
		}
	}

	e.serviceIndex.Delete(serviceName)
	if hadOldValue {
		e.removeServiceFromCluster(oldClusterName, serviceName)
	}
}

// refreshServiceStrategies resolves a strategy factory, builds one
// Strategy per prioritized scheme
// of the service's cluster, atomically replaces
// serviceStrategies[service], invalidates the ordered-strategy cache,
// and notifies listeners with every removal before any addition.
func (e *Engine) refreshServiceStrategies(serviceName string, svcProps *properties.ServiceProperties) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.StrategyRefreshDuration)

	_, factory, resolved := e.strategyFactories.Resolve(svcProps.StrategyList, svcProps.StrategyName)
	if !resolved {
		log.WithService(serviceName).Warn().Msg("no strategy factory resolved for service")
	}

	var newStrategies map[string]strategy.Strategy

	if resolved {
		var clusterInfo *ClusterInfoItem
		if raw, ok := e.clusterIndex.Load(svcProps.ClusterName); ok {
			item := raw.(properties.VersionedItem[*ClusterInfoItem])
			clusterInfo = item.Value
		}
		if clusterInfo != nil && clusterInfo.Properties != nil {
			newStrategies = make(map[string]strategy.Strategy, len(clusterInfo.Properties.PrioritizedSchemes))
			for _, scheme := range clusterInfo.Properties.PrioritizedSchemes {
				lower := strings.ToLower(scheme)
				st, err := factory.NewStrategy(serviceName, svcProps.CopyStrategyProperties())
				if err != nil {
					log.WithService(serviceName).Warn().Str("scheme", scheme).Err(err).Msg("strategy factory failed")
					continue
				}
				newStrategies[lower] = st
			}
		}
	}

	var oldStrategies map[string]strategy.Strategy
	if raw, ok := e.serviceStrategies.Load(serviceName); ok {
		oldStrategies = raw.(map[string]strategy.Strategy)
	}

	if len(newStrategies) == 0 {
		e.serviceStrategies.Delete(serviceName)
	} else {
		e.serviceStrategies.Store(serviceName, newStrategies)
	}
	e.strategyCache.Delete(serviceName)

	for scheme, st := range oldStrategies {
		e.listeners.strategyRemoved(serviceName, scheme, st)
	}
	for scheme, st := range newStrategies {
		e.listeners.strategyAdded(serviceName, scheme, st)
	}
}
