// Package query builds the per-chunk read operations of a multi-item
// read: it picks the cheapest shape a chunk can be served with and
// renders the parameterized query text for it.
//
// Shape selection is a fixed priority ladder. Single-item chunks become
// point reads and never touch the query engine. Containers partitioned on
// /id whose items all key on their own id collapse into one IN list over
// ids. Chunks sharing a single bindable key value bind it once and list
// ids inside that logical partition. Everything else, hierarchical keys
// included, falls back to one OR clause per item with IS_DEFINED guards
// for missing key components.
package query
