package readmany

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/readmany/partitionkey"
)

// fanoutItem is one requested item carrying its original input position
// and its canonical partition-key components. The position is the sole
// ordering key of the final result.
type fanoutItem struct {
	index      int
	item       Item
	components []partitionkey.Value
}

// partitionGroup is the ordered item list owned by one physical partition.
type partitionGroup struct {
	partition string
	items     []fanoutItem
}

// owner is the cached outcome of resolving one distinct logical key.
type owner struct {
	partition string
	err       error
}

// partitionItems groups the items by the physical partition owning their
// logical key. The routing lookup runs once per distinct logical key, not
// once per item; all items sharing a key inherit the same partition.
// Groups preserve the first-appearance order of partitions and the input
// order of items within each group.
//
// Malformed partition-key values fail the whole call. Routing failures
// are per-item: affected items are skipped with a warning, or abort the
// call when the engine was built with WithStrictResolution.
func (e *Engine) partitionItems(ctx context.Context, container string, def partitionkey.Definition, items []Item, log *Logger) ([]partitionGroup, error) {
	var groups []partitionGroup
	groupIdx := make(map[string]int)
	owners := make(map[string]owner)

	for i, it := range items {
		components, err := def.Components(it.PartitionKey)
		if err != nil {
			return nil, err
		}

		key := it.PartitionKey.Key()
		own, seen := owners[key]
		if !seen {
			own = e.resolveOwner(ctx, container, def, it.PartitionKey)
			owners[key] = own
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if own.err != nil {
			rerr := &ResolutionError{ItemID: it.ID, cause: own.err}
			if e.strictResolution {
				return nil, rerr
			}
			log.LogResolutionFailure(ctx, it.ID, own.err)
			e.metrics.RecordResolutionFailure()
			continue
		}

		gi, ok := groupIdx[own.partition]
		if !ok {
			gi = len(groups)
			groups = append(groups, partitionGroup{partition: own.partition})
			groupIdx[own.partition] = gi
		}
		groups[gi].items = append(groups[gi].items, fanoutItem{index: i, item: it, components: components})
	}
	return groups, nil
}

// resolveOwner maps one logical key to the physical partition owning it.
// Point lookups resolve to exactly one range; a prefix of a hierarchical
// key may span several, in which case the first returned range owns the
// whole group.
func (e *Engine) resolveOwner(ctx context.Context, container string, def partitionkey.Definition, value partitionkey.Value) owner {
	r, err := partitionkey.EffectiveRange(def, value)
	if err != nil {
		return owner{err: err}
	}

	ranges, err := e.provider.OverlappingRanges(ctx, container, []partitionkey.Range{r})
	if err != nil {
		return owner{err: err}
	}
	if len(ranges) == 0 {
		return owner{err: fmt.Errorf("no partition owns range %s", r)}
	}
	return owner{partition: ranges[0].ID}
}

// matchKey is the canonical identity a returned document is matched back
// to requested items with: the item id plus the normalized component
// tuple. Missing trailing components count as Undefined, and the Empty
// sentinel matches documents without the property, same as Undefined.
func matchKey(id string, components []partitionkey.Value, pathCount int) string {
	var sb strings.Builder
	sb.WriteString(id)
	for j := 0; j < pathCount; j++ {
		c := partitionkey.Undefined()
		if j < len(components) && components[j].Kind != partitionkey.KindEmpty {
			c = components[j]
		}
		sb.WriteByte(0x00)
		sb.WriteString(c.Key())
	}
	return sb.String()
}
