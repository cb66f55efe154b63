package routing

import (
	"context"
	"fmt"
	"math/bits"
	"sort"
	"strconv"
	"sync"

	"github.com/hupe1980/readmany/partitionkey"
)

// Compile time check to ensure StaticMapProvider satisfies the MapProvider interface.
var _ MapProvider = (*StaticMapProvider)(nil)

// StaticMapProvider is a MapProvider over a fixed routing map. It serves
// every container the same ranges, which is what tests, emulators and
// single-partition deployments need. Safe for concurrent use.
type StaticMapProvider struct {
	mu     sync.RWMutex
	ranges []PartitionKeyRange
}

// NewStaticMapProvider creates a provider over the given ranges. The
// ranges are sorted by MinInclusive and must not overlap; IDs must be
// unique and non-empty.
func NewStaticMapProvider(ranges ...PartitionKeyRange) (*StaticMapProvider, error) {
	sorted, err := normalizeRanges(ranges)
	if err != nil {
		return nil, err
	}
	return &StaticMapProvider{ranges: sorted}, nil
}

// OverlappingRanges returns the physical partitions owning any key in any
// of the given ranges. The container argument is ignored.
func (p *StaticMapProvider) OverlappingRanges(ctx context.Context, _ string, ranges []partitionkey.Range) ([]PartitionKeyRange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	hit := make([]bool, len(p.ranges))
	for _, q := range ranges {
		// First candidate is the first range whose upper bound lies above
		// the query minimum; everything before it is entirely below q.
		i := sort.Search(len(p.ranges), func(i int) bool {
			return p.ranges[i].MaxExclusive > q.Min
		})
		for ; i < len(p.ranges) && p.ranges[i].Overlaps(q); i++ {
			hit[i] = true
		}
	}

	var out []PartitionKeyRange
	for i, h := range hit {
		if h {
			out = append(out, p.ranges[i])
		}
	}
	return out, nil
}

// Invalidate is a no-op: a static map has nothing to refresh.
func (p *StaticMapProvider) Invalidate(string) {}

// Replace swaps the routing map, e.g. to simulate a partition split.
func (p *StaticMapProvider) Replace(ranges ...PartitionKeyRange) error {
	sorted, err := normalizeRanges(ranges)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ranges = sorted
	return nil
}

// Ranges returns a snapshot of the current routing map.
func (p *StaticMapProvider) Ranges() []PartitionKeyRange {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]PartitionKeyRange, len(p.ranges))
	copy(out, p.ranges)
	return out
}

func normalizeRanges(ranges []PartitionKeyRange) ([]PartitionKeyRange, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("routing map has no ranges")
	}

	sorted := make([]PartitionKeyRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinInclusive < sorted[j].MinInclusive
	})

	ids := make(map[string]struct{}, len(sorted))
	for i, r := range sorted {
		if r.ID == "" {
			return nil, fmt.Errorf("partition-key range %d has no id", i)
		}
		if _, dup := ids[r.ID]; dup {
			return nil, fmt.Errorf("duplicate partition-key range id %q", r.ID)
		}
		ids[r.ID] = struct{}{}

		if r.MinInclusive >= r.MaxExclusive {
			return nil, fmt.Errorf("partition-key range %q is empty", r.ID)
		}
		if i > 0 && sorted[i-1].MaxExclusive > r.MinInclusive {
			return nil, fmt.Errorf("partition-key ranges %q and %q overlap", sorted[i-1].ID, r.ID)
		}
	}
	return sorted, nil
}

// SplitEvenly builds a routing map of n contiguous ranges covering the
// whole effective-partition-key space, with ids "0" through "n-1".
// Boundaries divide the space reachable by version 2 hashes (the top two
// bits of a hash are always zero) into equal slices, so uniformly hashed
// keys spread uniformly across the ranges. The last range extends to
// MaximumExclusiveKey.
func SplitEvenly(n int) []PartitionKeyRange {
	if n < 1 {
		n = 1
	}

	out := make([]PartitionKeyRange, n)
	min := partitionkey.MinimumInclusiveKey
	for i := 1; i <= n; i++ {
		max := partitionkey.MaximumExclusiveKey
		if i < n {
			// boundary = i * 2^62 / n, rendered over the first 16 hex
			// characters of the key space.
			q, _ := bits.Div64(uint64(i)>>2, uint64(i)<<62, uint64(n))
			max = fmt.Sprintf("%016X", q)
		}
		out[i-1] = PartitionKeyRange{ID: strconv.Itoa(i - 1), MinInclusive: min, MaxExclusive: max}
		min = max
	}
	return out
}
