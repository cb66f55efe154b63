package routing

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/readmany/partitionkey"
)

// Compile time check to ensure CachingMapProvider satisfies the MapProvider interface.
var _ MapProvider = (*CachingMapProvider)(nil)

// CachingMapProvider wraps a MapProvider and caches each container's full
// routing map. The first lookup for a container fetches the complete map
// from the inner provider; later lookups answer locally until Invalidate
// drops the cached map. Safe for concurrent use; concurrent first lookups
// for the same container may fetch more than once, the last one wins.
type CachingMapProvider struct {
	inner MapProvider

	mu   sync.RWMutex
	maps map[string]*StaticMapProvider
}

// NewCachingMapProvider creates a caching decorator around inner.
func NewCachingMapProvider(inner MapProvider) (*CachingMapProvider, error) {
	if inner == nil {
		return nil, fmt.Errorf("routing: inner map provider is nil")
	}
	return &CachingMapProvider{
		inner: inner,
		maps:  make(map[string]*StaticMapProvider),
	}, nil
}

// OverlappingRanges answers from the cached map for the container,
// fetching the full map from the inner provider on a miss.
func (p *CachingMapProvider) OverlappingRanges(ctx context.Context, container string, ranges []partitionkey.Range) ([]PartitionKeyRange, error) {
	p.mu.RLock()
	cached, ok := p.maps[container]
	p.mu.RUnlock()

	if !ok {
		var err error
		cached, err = p.fetch(ctx, container)
		if err != nil {
			return nil, err
		}
	}
	return cached.OverlappingRanges(ctx, container, ranges)
}

// Invalidate drops the cached map for the container and forwards the
// call, so an inner provider holding its own cache refreshes too.
func (p *CachingMapProvider) Invalidate(container string) {
	p.mu.Lock()
	delete(p.maps, container)
	p.mu.Unlock()

	p.inner.Invalidate(container)
}

func (p *CachingMapProvider) fetch(ctx context.Context, container string) (*StaticMapProvider, error) {
	all, err := p.inner.OverlappingRanges(ctx, container, []partitionkey.Range{partitionkey.FullRange()})
	if err != nil {
		return nil, err
	}

	cached, err := NewStaticMapProvider(all...)
	if err != nil {
		return nil, fmt.Errorf("routing: invalid map for container %q: %w", container, err)
	}

	p.mu.Lock()
	p.maps[container] = cached
	p.mu.Unlock()
	return cached, nil
}
