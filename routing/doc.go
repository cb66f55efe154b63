// Package routing resolves effective-partition-key ranges to the physical
// partitions owning them.
//
// The read pipeline consumes the MapProvider interface and never builds
// PartitionKeyRange values itself; production providers wrap the service's
// partition-key-range feed, while StaticMapProvider serves a fixed map for
// tests, emulators and single-partition deployments. CachingMapProvider
// wraps any provider and keeps each container's map in memory between
// invalidations, so a slow feed is consulted once per container instead of
// once per read.
package routing
