package balancer

import "github.com/cuemby/wayfinder/pkg/transport"

// Counts is the snapshot form of the engine's observability surface,
// useful for a single atomic-ish read from the demo command or tests.
// The individual methods below back pkg/metrics.EngineStats.
type Counts struct {
	URIs                 int
	Clusters             int
	Services             int
	TransportClients     int
	TrackerClientsByName map[string]int
	ListenersByKind      map[string]int
	Version              int64
}

// Counts gathers every counter in one call.
func (e *Engine) Counts() Counts {
	return Counts{
		URIs:                 e.URICount(),
		Clusters:             e.ClusterCount(),
		Services:             e.ServiceCount(),
		TransportClients:     e.TransportClientCount(),
		TrackerClientsByName: e.TrackerClientCountByCluster(),
		ListenersByKind:      e.ListenerCountByKind(),
		Version:              e.Version(),
	}
}

// URICount returns the number of clusters with a known URI index entry
// (present or null-sentinel).
func (e *Engine) URICount() int {
	n := 0
	e.uriIndex.Range(func(_, _ any) bool { n++; return true })
	return n
}

// ClusterCount returns the number of clusters with a known cluster index
// entry.
func (e *Engine) ClusterCount() int {
	n := 0
	e.clusterIndex.Range(func(_, _ any) bool { n++; return true })
	return n
}

// ServiceCount returns the number of services with a known service index
// entry.
func (e *Engine) ServiceCount() int {
	n := 0
	e.serviceIndex.Range(func(_, _ any) bool { n++; return true })
	return n
}

// TransportClientCount returns the number of distinct transport clients
// currently live across every cluster/scheme pair.
func (e *Engine) TransportClientCount() int {
	n := 0
	e.clusterClients.Range(func(_, v any) bool {
		n += len(v.(map[string]transport.Client))
		return true
	})
	return n
}

// TrackerClientCountByCluster returns, for every cluster with a tracker
// map installed, how many tracker clients it holds. A cluster rebuilt to
// zero trackers appears with a zero count.
func (e *Engine) TrackerClientCountByCluster() map[string]int {
	out := make(map[string]int)
	e.trackerClients.Range(func(k, v any) bool {
		out[k.(string)] = len(v.(map[string]*transport.Tracker))
		return true
	})
	return out
}

// ListenerCountByKind returns, per property kind, how many distinct
// names have ever had ensureListening called for them.
func (e *Engine) ListenerCountByKind() map[string]int {
	return map[string]int{
		"uri":     e.uriSub.waiter.count(),
		"cluster": e.clusterSub.waiter.count(),
		"service": e.serviceSub.waiter.count(),
	}
}

// ListenerCount returns the number of registered Listener observers.
func (e *Engine) ListenerCount() int {
	return e.listeners.count()
}

// Version returns the most recently issued version number.
func (e *Engine) Version() int64 {
	return e.versionCounter.Current()
}

// SupportedSchemes returns every scheme with a registered transport
// client factory.
func (e *Engine) SupportedSchemes() []string {
	return e.transportFactories.Schemes()
}

// SupportedStrategies returns every registered strategy name.
func (e *Engine) SupportedStrategies() []string {
	return e.strategyFactories.Names()
}
