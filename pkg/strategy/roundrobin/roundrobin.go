// Package roundrobin implements the plainest useful Strategy: walk the
// candidate list in order, one request at a time, wrapping at the end.
package roundrobin

import (
	"sync"

	"github.com/cuemby/wayfinder/pkg/strategy"
	"github.com/cuemby/wayfinder/pkg/transport"
)

// Name is the strategy name this package registers under.
const Name = "roundrobin"

// RoundRobin selects candidates in rotation. The candidate list may
// change between calls (endpoints churn); the index is simply reduced
// modulo the current list length, so a shrinking list never panics and a
// growing list picks up new members on the next lap.
type RoundRobin struct {
	mu    sync.Mutex
	index int
}

// New creates a RoundRobin strategy. The properties map is accepted for
// factory-signature compatibility; round robin has nothing to configure.
func New(serviceName string, properties map[string]string) (strategy.Strategy, error) {
	return &RoundRobin{}, nil
}

// Factory is a strategy.Factory producing RoundRobin strategies.
var Factory = strategy.FactoryFunc(New)

// Register installs this strategy into r under Name.
func Register(r *strategy.Registry) {
	r.Register(Name, Factory)
}

// Select returns the next candidate in rotation, or false if candidates
// is empty.
func (s *RoundRobin) Select(candidates []*transport.Tracker) (*transport.Tracker, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	s.mu.Lock()
	index := s.index % len(candidates)
	s.index = (index + 1) % len(candidates)
	s.mu.Unlock()
	return candidates[index], true
}
