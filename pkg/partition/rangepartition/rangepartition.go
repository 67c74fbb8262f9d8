// Package rangepartition implements a range-based PartitionAccessor: keys
// are parsed as a base-10 integer and divided into fixed-width buckets.
package rangepartition

import (
	"fmt"
	"strconv"

	"github.com/cuemby/wayfinder/pkg/partition"
	"github.com/cuemby/wayfinder/pkg/properties"
)

type accessor struct {
	count  int
	bucket int64
}

// New builds a range-based Accessor over count partitions of the given
// bucket width.
func New(count int, bucket int64) (partition.Accessor, error) {
	if count <= 0 {
		return nil, fmt.Errorf("rangepartition: count must be positive, got %d", count)
	}
	if bucket <= 0 {
		return nil, fmt.Errorf("rangepartition: bucket width must be positive, got %d", bucket)
	}
	return &accessor{count: count, bucket: bucket}, nil
}

// Factory is a partition.AccessorFactory for properties.PartitionRange.
func Factory(props properties.PartitionProperties) (partition.Accessor, error) {
	return New(props.Count, props.Bucket)
}

func (a *accessor) PartitionFor(key string) (int, error) {
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rangepartition: key %q is not numeric: %w", key, err)
	}
	p := (n / a.bucket) % int64(a.count)
	if p < 0 {
		p += int64(a.count)
	}
	return int(p), nil
}
