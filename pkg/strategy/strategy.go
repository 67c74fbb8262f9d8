package strategy

import (
	"sync"

	"github.com/cuemby/wayfinder/pkg/transport"
)

// Strategy selects one tracker client from a set of candidates for a
// single request. Host-selection algorithms themselves are out of scope
// for the engine; Strategy only declares the contract a pluggable
// implementation must satisfy.
type Strategy interface {
	// Select returns a tracker client chosen from candidates, or false if
	// none is available.
	Select(candidates []*transport.Tracker) (*transport.Tracker, bool)
}

// Factory builds a Strategy for one service, given that service's
// strategy-specific properties. The properties map passed in is always a
// copy: the factory may retain it without risk of the caller mutating it
// later.
type Factory interface {
	NewStrategy(serviceName string, properties map[string]string) (Strategy, error)
}

// FactoryFunc adapts a plain function to a Factory.
type FactoryFunc func(serviceName string, properties map[string]string) (Strategy, error)

func (f FactoryFunc) NewStrategy(serviceName string, properties map[string]string) (Strategy, error) {
	return f(serviceName, properties)
}

// Registry maps strategy name to Factory. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs factory under name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Lookup returns the factory registered under name, or nil.
func (r *Registry) Lookup(name string) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[name]
}

// Names returns every registered strategy name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	return out
}

// Resolve walks prioritized, a service's strategyList in fallback order,
// and returns the first name with a registered factory. If prioritized
// is empty, it falls back to legacyName. Returns ("", nil, false) if
// nothing resolves.
func (r *Registry) Resolve(prioritized []string, legacyName string) (string, Factory, bool) {
	names := prioritized
	if len(names) == 0 && legacyName != "" {
		names = []string{legacyName}
	}
	for _, name := range names {
		if f := r.Lookup(name); f != nil {
			return name, f, true
		}
	}
	return "", nil, false
}
