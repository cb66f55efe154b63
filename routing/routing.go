package routing

import (
	"context"

	"github.com/hupe1980/readmany/partitionkey"
)

// PartitionKeyRange is one physical partition of a container: an opaque
// identifier plus the half-open effective-partition-key interval it owns.
// Ranges are supplied by a MapProvider and never constructed by the read
// pipeline itself.
type PartitionKeyRange struct {
	ID           string `json:"id"`
	MinInclusive string `json:"minInclusive"`
	MaxExclusive string `json:"maxExclusive"`
}

// Contains reports whether the range owns the effective partition key.
func (r PartitionKeyRange) Contains(key string) bool {
	return r.MinInclusive <= key && key < r.MaxExclusive
}

// Overlaps reports whether the range shares at least one key with q.
func (r PartitionKeyRange) Overlaps(q partitionkey.Range) bool {
	if q.Min >= r.MaxExclusive {
		return false
	}
	if q.Max < r.MinInclusive {
		return false
	}
	if q.Max == r.MinInclusive && !q.MaxInclusive {
		return false
	}
	return true
}

// String implements fmt.Stringer for log output.
func (r PartitionKeyRange) String() string {
	return r.ID + ":[" + r.MinInclusive + "," + r.MaxExclusive + ")"
}

// MapProvider resolves effective-partition-key ranges to the physical
// partitions that currently own them.
//
// Implementations are read concurrently by every fan-out task of a read
// and must be safe for concurrent use. The routing map may be cached;
// Invalidate marks a container's cached map stale after the caller
// detected a partition split, the refresh itself happens on the next
// lookup.
type MapProvider interface {
	// OverlappingRanges returns the physical partitions owning any key in
	// any of the given ranges, ordered by MinInclusive and deduplicated.
	OverlappingRanges(ctx context.Context, container string, ranges []partitionkey.Range) ([]PartitionKeyRange, error)

	// Invalidate discards cached routing state for the container.
	Invalidate(container string)
}
