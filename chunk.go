package readmany

// chunk is one unit of fan-out execution: an ordered slice of items from
// a single partition group, at most the per-query item limit long.
type chunk struct {
	partition string
	items     []fanoutItem
}

// chunkGroups slices every partition group into chunks of at most limit
// items. Each group yields ceil(len/limit) chunks, all but the last
// exactly limit long; chunks never mix partitions and keep the grouped
// item order.
func chunkGroups(groups []partitionGroup, limit int) []chunk {
	var out []chunk
	for _, g := range groups {
		for start := 0; start < len(g.items); start += limit {
			end := min(start+limit, len(g.items))
			out = append(out, chunk{partition: g.partition, items: g.items[start:end]})
		}
	}
	return out
}
