package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewTimer(t *testing.T) {
	timer := NewTimer()
	if timer == nil {
		t.Fatal("NewTimer() returned nil")
	}
	if timer.start.IsZero() {
		t.Error("NewTimer() start time is zero")
	}
}

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(20 * time.Millisecond)

	d := timer.Duration()
	if d < 20*time.Millisecond {
		t.Errorf("Duration() = %v, want >= 20ms", d)
	}
}

func TestTimerObserveDuration(t *testing.T) {
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_wayfinder_duration_seconds",
		Help:    "test histogram",
		Buckets: prometheus.DefBuckets,
	})

	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	timer.ObserveDuration(histogram)

	if timer.Duration() == 0 {
		t.Error("ObserveDuration() left a zero elapsed time")
	}
}

func TestTimerObserveDurationVec(t *testing.T) {
	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "test_wayfinder_duration_vec_seconds",
			Help:    "test histogram vec",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cluster"},
	)

	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	timer.ObserveDurationVec(vec, "cluster-a")

	if timer.Duration() == 0 {
		t.Error("ObserveDurationVec() left a zero elapsed time")
	}
}

type fakeEngineStats struct {
	uris, clusters, services, transport int
	trackers                            map[string]int
	listeners                           map[string]int
	version                             int64
}

func (f fakeEngineStats) URICount() int      { return f.uris }
func (f fakeEngineStats) ClusterCount() int  { return f.clusters }
func (f fakeEngineStats) ServiceCount() int  { return f.services }
func (f fakeEngineStats) TransportClientCount() int { return f.transport }
func (f fakeEngineStats) TrackerClientCountByCluster() map[string]int { return f.trackers }
func (f fakeEngineStats) ListenerCountByKind() map[string]int         { return f.listeners }
func (f fakeEngineStats) Version() int64                              { return f.version }

func TestCollectorCollectsSnapshot(t *testing.T) {
	stats := fakeEngineStats{
		uris: 3, clusters: 2, services: 1, transport: 4,
		trackers:  map[string]int{"cluster-a": 3, "cluster-b": 1},
		listeners: map[string]int{"uri": 2, "cluster": 1, "service": 1},
		version:   42,
	}

	c := NewCollector(stats)
	c.collect()

	if got := testutilValue(URIsTotal); got != 3 {
		t.Errorf("URIsTotal = %v, want 3", got)
	}
	if got := testutilValue(GlobalVersion); got != 42 {
		t.Errorf("GlobalVersion = %v, want 42", got)
	}
}

func testutilValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	_ = g.Write(&m)
	if m.Gauge == nil {
		return 0
	}
	return m.Gauge.GetValue()
}
