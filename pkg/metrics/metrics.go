package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Index sizes
	URIsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfinder_uris_total",
			Help: "Number of clusters with a URI properties entry",
		},
	)

	ClustersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfinder_clusters_total",
			Help: "Total number of clusters tracked",
		},
	)

	ServicesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfinder_services_total",
			Help: "Total number of services tracked",
		},
	)

	// Derived cache sizes
	TrackerClientsPerCluster = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wayfinder_tracker_clients_per_cluster",
			Help: "Number of tracker clients held for a cluster",
		},
		[]string{"cluster"},
	)

	TransportClientsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfinder_transport_clients_total",
			Help: "Total number of live transport clients across all cluster/scheme pairs",
		},
	)

	// Listener / subscriber bookkeeping
	ListenersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wayfinder_listeners_total",
			Help: "Number of registered listeners by property kind",
		},
		[]string{"kind"},
	)

	ListenCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfinder_listen_calls_total",
			Help: "Total ensureListening calls by property kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// Global version counter, mirrored as a gauge for scraping
	GlobalVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfinder_global_version",
			Help: "Current value of the monotonic version counter",
		},
	)

	// Reconciliation work
	StrategyRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wayfinder_strategy_refresh_duration_seconds",
			Help:    "Time taken to rebuild a service's per-scheme strategy map",
			Buckets: prometheus.DefBuckets,
		},
	)

	ClusterFanoutDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wayfinder_cluster_fanout_duration_seconds",
			Help:    "Time taken for a cluster change to propagate through transport clients, tracker clients, and dependent services",
			Buckets: prometheus.DefBuckets,
		},
	)

	EventThreadTaskDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wayfinder_event_thread_task_duration_seconds",
			Help:    "Time taken to execute a single task on the event thread",
			Buckets: prometheus.DefBuckets,
		},
	)

	EventThreadQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfinder_event_thread_queue_depth",
			Help: "Number of tasks currently queued for the event thread",
		},
	)

	PropertyEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfinder_property_events_total",
			Help: "Total property bus events observed by kind and event type",
		},
		[]string{"kind", "event"},
	)
)

func init() {
	prometheus.MustRegister(URIsTotal)
	prometheus.MustRegister(ClustersTotal)
	prometheus.MustRegister(ServicesTotal)
	prometheus.MustRegister(TrackerClientsPerCluster)
	prometheus.MustRegister(TransportClientsTotal)
	prometheus.MustRegister(ListenersTotal)
	prometheus.MustRegister(ListenCallsTotal)
	prometheus.MustRegister(GlobalVersion)
	prometheus.MustRegister(StrategyRefreshDuration)
	prometheus.MustRegister(ClusterFanoutDuration)
	prometheus.MustRegister(EventThreadTaskDuration)
	prometheus.MustRegister(EventThreadQueueDepth)
	prometheus.MustRegister(PropertyEventsTotal)
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a small helper for timing operations against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a labeled histogram vec.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
