// Package readmany provides a partition-aware multi-item read engine for
// distributed document stores.
//
// Given a list of (id, partition key) pairs, the engine resolves the
// physical partition owning each key, groups the items per partition,
// splits oversized groups into bounded chunks, and serves every chunk
// with the cheapest operation its shape allows. Results come back in
// input order no matter how the chunks interleave on the wire.
//
// # Quick Start
//
//	provider, _ := routing.NewStaticMapProvider(routing.SplitEvenly(4)...)
//	eng, _ := readmany.New(provider, queries, reads)
//
//	def := partitionkey.Definition{Paths: []string{"/pk"}}
//	items := []readmany.Item{
//	    {ID: "a", PartitionKey: partitionkey.String("tenant-1")},
//	    {ID: "b", PartitionKey: partitionkey.String("tenant-2")},
//	}
//
//	res, _ := eng.ReadMany(ctx, "orders", def, items)
//	for _, doc := range res.Items {
//	    fmt.Println(string(doc))
//	}
//
// The queries and reads collaborators implement QueryExecutor and
// PointReadExecutor over the actual transport; the engine itself never
// opens a connection.
//
// # Query Shapes
//
// Each chunk is planned independently, picking the first shape that fits:
//
//   - a single item becomes a direct point read, no query text at all
//   - items keyed by their own id collapse to SELECT * FROM c WHERE c.id IN (...)
//   - items sharing one bindable key value become a pk equality plus an id IN list
//   - everything else renders one parenthesized clause per item, OR-joined
//
// Undefined and empty key components cannot be bound as parameters; the
// general shape compares them with IS_DEFINED(...) = false instead.
//
// # Missing Items
//
// Items the container does not hold are not an error. Their documents are
// simply absent from Result.Items and their input positions are listed in
// Result.Missing, so callers can re-fetch or fill defaults selectively.
//
// # Tuning
//
//	eng, _ := readmany.New(provider, queries, reads,
//	    readmany.WithMaxConcurrency(8),
//	    readmany.WithMaxItemsPerQuery(500),
//	    readmany.WithRateLimiter(rate.NewLimiter(rate.Limit(100), 1)),
//	)
//
// Both bounds can be overridden per call through CallOptions.
package readmany
