/*
Package metrics registers wayfinder's Prometheus surface: the index and
derived-cache sizes, listener bookkeeping, the global version counter, and
the handful of histograms around reconciliation work (strategy refresh,
cluster fanout, event thread task latency).

All metrics are package-level prometheus.Collectors registered at init.
Collector polls an EngineStats
implementation (satisfied by balancer.Engine) on a fixed interval and
writes the snapshot into the gauges; Handler exposes them over HTTP via
promhttp.
*/
package metrics
