// Package properties defines the authoritative input types published by a
// discovery backend, the versioned wrapper every stored property is kept
// in, and the single counter that stamps all of them.
package properties

import (
	"sync/atomic"
	"time"
)

// PartitionData is the per-URI, per-partition metadata a discovery
// publisher attaches to an endpoint — most commonly a relative weight.
type PartitionData struct {
	Weight float64
}

// URIEndpoint is one member of a cluster's URI set together with the
// partition metadata that endpoint carries.
type URIEndpoint struct {
	URI             string
	PartitionDataMap map[int]PartitionData
}

// UriProperties is the authoritative set of live endpoints for a cluster.
// A nil *UriProperties (wrapped in a VersionedItem) means "known absent":
// the cluster currently has no endpoints, as distinct from "never heard
// of this cluster."
type UriProperties struct {
	ClusterName string
	Endpoints   map[string]URIEndpoint // keyed by URI string
}

// PartitionType selects how a cluster's key space is split.
type PartitionType int

const (
	// PartitionNone means the cluster is unpartitioned; every key maps to
	// partition 0.
	PartitionNone PartitionType = iota
	PartitionRange
	PartitionHash
)

// PartitionProperties describes how to build a PartitionAccessor for a
// cluster. Count is the number of partitions; for PartitionRange, Bucket
// is the width of each range bucket.
type PartitionProperties struct {
	Type   PartitionType
	Count  int
	Bucket int64
}

// ClusterProperties is the authoritative configuration for a cluster:
// which schemes it offers, in preference order, plus opaque transport
// configuration and its partitioning scheme.
type ClusterProperties struct {
	PrioritizedSchemes []string
	Properties         map[string]string
	Partition          PartitionProperties
}

// ServiceProperties is the authoritative configuration for a service: the
// cluster it lives on and its strategy preferences. StrategyName is the
// legacy single-strategy fallback consulted only when StrategyList is
// empty.
type ServiceProperties struct {
	ClusterName        string
	StrategyList       []string
	StrategyName       string
	StrategyProperties map[string]string
}

// CopyStrategyProperties returns a deep copy of the strategy properties
// map so that a strategy instance built from it cannot alias the
// service's stored properties.
func (s *ServiceProperties) CopyStrategyProperties() map[string]string {
	out := make(map[string]string, len(s.StrategyProperties))
	for k, v := range s.StrategyProperties {
		out[k] = v
	}
	return out
}

// VersionedItem wraps a stored property value with the version it was
// written at and the wall-clock time of that write. A nil Value is legal
// and means "known absent" rather than "never seen."
type VersionedItem[T any] struct {
	Value     T
	Version   int64
	Timestamp time.Time
}

// NewVersionedItem stamps value with the next version from counter.
func NewVersionedItem[T any](counter *VersionCounter, value T) VersionedItem[T] {
	return VersionedItem[T]{
		Value:     value,
		Version:   counter.Next(),
		Timestamp: time.Now(),
	}
}

// VersionCounter is a single monotonically increasing counter shared
// across every property kind, so stored versions are pairwise distinct
// and reflect insertion order globally, not just per property kind.
type VersionCounter struct {
	n atomic.Int64
}

// Next returns the next version number, starting at 1.
func (c *VersionCounter) Next() int64 {
	return c.n.Add(1)
}

// Seed resets the counter so the next Next() call returns v+1. Used to
// replay a version counter recovered from an external snapshot.
func (c *VersionCounter) Seed(v int64) {
	c.n.Store(v)
}

// Current returns the most recently issued version, or 0 if Next has
// never been called.
func (c *VersionCounter) Current() int64 {
	return c.n.Load()
}
