package readmany

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// assemble merges unit outcomes into the final result. Item results sort
// by original input position, absent items drop out, and metadata
// aggregates across every unit. Missing lists the input positions that
// produced no document, resolution-skipped items included.
func assemble(outcomes []unitOutcome, inputLen int) *Result {
	var all []itemResult
	var md Metadata
	for _, o := range outcomes {
		all = append(all, o.results...)
		md.merge(o.metadata)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].index < all[j].index })

	found := roaring.New()
	items := make([]Document, 0, len(all))
	for _, r := range all {
		if r.found {
			items = append(items, r.doc)
			found.Add(uint32(r.index))
		}
	}

	absent := roaring.Flip(found, 0, uint64(inputLen))
	missing := make([]int, 0, absent.GetCardinality())
	for _, idx := range absent.ToArray() {
		missing = append(missing, int(idx))
	}

	return &Result{Items: items, Missing: missing, Metadata: md}
}
