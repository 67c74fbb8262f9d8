package partition

import "github.com/cuemby/wayfinder/pkg/properties"

// Accessor maps a key to a partition id. Implementations are pure and
// hold no mutable state beyond their construction-time configuration.
type Accessor interface {
	PartitionFor(key string) (int, error)
}

// AccessorFactory builds an Accessor from a cluster's partition
// properties. It is a pure function: same input, same Accessor shape,
// every time.
type AccessorFactory func(props properties.PartitionProperties) (Accessor, error)

// Single returns the Accessor for an unpartitioned cluster: every key
// maps to partition 0.
func Single() Accessor {
	return singleAccessor{}
}

type singleAccessor struct{}

func (singleAccessor) PartitionFor(key string) (int, error) { return 0, nil }
