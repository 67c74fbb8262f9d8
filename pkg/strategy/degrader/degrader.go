// Package degrader implements a latency-degrading round robin Strategy:
// each endpoint gets a token bucket, and an endpoint that has exhausted
// its bucket is skipped for the round. Callers report call latency back
// through ObserveLatency; an endpoint running above the configured high
// watermark is marked degraded and skipped until it recovers, so a slow
// host sheds traffic onto its healthy peers instead of dragging every
// request down with it.
package degrader

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cuemby/wayfinder/pkg/strategy"
	"github.com/cuemby/wayfinder/pkg/transport"
)

// Name is the strategy name this package registers under.
const Name = "degrader"

// Property keys read from the service's strategy properties map.
const (
	PropMaxRate     = "degrader.maxRequestsPerSecond"
	PropBurst       = "degrader.burst"
	PropHighLatency = "degrader.highLatencyMs"
)

// Defaults applied when a property is absent or unparsable.
const (
	defaultMaxRate     = 100.0
	defaultBurst       = 10
	defaultHighLatency = 500 * time.Millisecond
)

type endpointState struct {
	limiter *rate.Limiter
	// degraded is set when observed latency crosses the high watermark
	// and cleared when it drops back under.
	degraded bool
}

// Degrader is a round-robin selector with per-endpoint admission. Safe
// for concurrent use.
type Degrader struct {
	maxRate     rate.Limit
	burst       int
	highLatency time.Duration

	mu        sync.Mutex
	index     int
	endpoints map[string]*endpointState // keyed by tracker URI
}

// New builds a Degrader from the service's strategy properties. Unknown
// or malformed property values fall back to defaults rather than
// failing: a misconfigured service should degrade to sane behavior, not
// lose its strategy entirely.
func New(serviceName string, properties map[string]string) (strategy.Strategy, error) {
	d := &Degrader{
		maxRate:     rate.Limit(defaultMaxRate),
		burst:       defaultBurst,
		highLatency: defaultHighLatency,
		endpoints:   make(map[string]*endpointState),
	}
	if v, ok := properties[PropMaxRate]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			d.maxRate = rate.Limit(f)
		}
	}
	if v, ok := properties[PropBurst]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			d.burst = n
		}
	}
	if v, ok := properties[PropHighLatency]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			d.highLatency = time.Duration(n) * time.Millisecond
		}
	}
	return d, nil
}

// Factory is a strategy.Factory producing Degrader strategies.
var Factory = strategy.FactoryFunc(New)

// Register installs this strategy into r under Name.
func Register(r *strategy.Registry) {
	r.Register(Name, Factory)
}

// Select walks candidates round-robin, skipping endpoints that are
// currently degraded or out of tokens. If every candidate is
// inadmissible it falls back to plain round robin: sending a request to
// a degraded host beats dropping it on the floor.
func (d *Degrader) Select(candidates []*transport.Tracker) (*transport.Tracker, bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	start := d.index % len(candidates)
	for i := 0; i < len(candidates); i++ {
		idx := (start + i) % len(candidates)
		st := d.stateFor(candidates[idx].URI)
		if st.degraded {
			continue
		}
		if !st.limiter.Allow() {
			continue
		}
		d.index = (idx + 1) % len(candidates)
		return candidates[idx], true
	}

	// Everything is degraded or throttled; fall back.
	d.index = (start + 1) % len(candidates)
	return candidates[start], true
}

// ObserveLatency records the outcome of a call to uri. Latency at or
// above the high watermark marks the endpoint degraded; below it, the
// mark is cleared.
func (d *Degrader) ObserveLatency(uri string, latency time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.stateFor(uri)
	st.degraded = latency >= d.highLatency
}

// stateFor returns uri's endpoint state, creating it on first sight.
// Caller holds d.mu.
func (d *Degrader) stateFor(uri string) *endpointState {
	st, ok := d.endpoints[uri]
	if !ok {
		st = &endpointState{limiter: rate.NewLimiter(d.maxRate, d.burst)}
		d.endpoints[uri] = st
	}
	return st
}
