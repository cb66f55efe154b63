// Package testutil provides testing utilities for the read engine.
//
// This package is intended for use in tests and examples only. It provides
// an in-memory document Store and a fake transport Client that implements
// the engine's QueryExecutor and PointReadExecutor interfaces, with hooks
// for injecting delays, failures, and blocking gates.
//
// # Fixture Setup
//
//	def := partitionkey.Definition{Paths: []string{"/pk"}}
//	ranges := routing.SplitEvenly(4)
//
//	store := testutil.NewStore(def)
//	_ = store.Put(testutil.Doc("a", map[string]any{"pk": "tenant-1"}))
//
//	provider, _ := routing.NewStaticMapProvider(ranges...)
//	client := testutil.NewClient(store, ranges)
//	eng, _ := readmany.New(provider, client, client)
//
// # Fault Injection
//
//	client.FailQueriesOn("2", errServerBusy)
//	client.HoldQueriesOn("3", release)
package testutil
