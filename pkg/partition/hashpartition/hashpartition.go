// Package hashpartition implements a hash-based PartitionAccessor: a key
// maps to partition hash(key) % count. The hash is a polynomial string
// hash (hash = hash*31 + byte): cheap, stable across runs, and a good
// enough spread for routing, not cryptographic use.
package hashpartition

import (
	"fmt"

	"github.com/cuemby/wayfinder/pkg/partition"
	"github.com/cuemby/wayfinder/pkg/properties"
)

type accessor struct {
	count int
}

// New builds a hash-based Accessor over count partitions.
func New(count int) (partition.Accessor, error) {
	if count <= 0 {
		return nil, fmt.Errorf("hashpartition: count must be positive, got %d", count)
	}
	return &accessor{count: count}, nil
}

// Factory is a partition.AccessorFactory for properties.PartitionHash.
func Factory(props properties.PartitionProperties) (partition.Accessor, error) {
	return New(props.Count)
}

func (a *accessor) PartitionFor(key string) (int, error) {
	h := hashString(key)
	return int(h % uint32(a.count)), nil
}

func hashString(s string) uint32 {
	var hash uint32
	for i := 0; i < len(s); i++ {
		hash = hash*31 + uint32(s[i])
	}
	return hash
}
