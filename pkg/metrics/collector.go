package metrics

import "time"

// EngineStats is the subset of the balancer engine's observability surface
// the collector polls. balancer.Engine satisfies this interface via its
// URICount, ClusterCount, ServiceCount, TrackerClientCountByCluster,
// TransportClientCount, ListenerCountByKind and Version methods; it is
// declared here, rather than imported, so this package never depends on
// pkg/balancer.
type EngineStats interface {
	URICount() int
	ClusterCount() int
	ServiceCount() int
	TrackerClientCountByCluster() map[string]int
	TransportClientCount() int
	ListenerCountByKind() map[string]int
	Version() int64
}

// Collector periodically snapshots an engine's counters into the
// registered gauges.
type Collector struct {
	engine EngineStats
	stopCh chan struct{}
}

// NewCollector creates a collector over the given engine.
func NewCollector(engine EngineStats) *Collector {
	return &Collector{
		engine: engine,
		stopCh: make(chan struct{}),
	}
}

// Start begins polling on a 15s interval, collecting immediately first.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts polling.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	URIsTotal.Set(float64(c.engine.URICount()))
	ClustersTotal.Set(float64(c.engine.ClusterCount()))
	ServicesTotal.Set(float64(c.engine.ServiceCount()))

	for cluster, n := range c.engine.TrackerClientCountByCluster() {
		TrackerClientsPerCluster.WithLabelValues(cluster).Set(float64(n))
	}
	TransportClientsTotal.Set(float64(c.engine.TransportClientCount()))

	for kind, n := range c.engine.ListenerCountByKind() {
		ListenersTotal.WithLabelValues(kind).Set(float64(n))
	}

	GlobalVersion.Set(float64(c.engine.Version()))
}
