package readmany

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/readmany/query"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    readCounter    prometheus.Counter
//	    chunkHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordReadMany(requested, returned int, charge float64, duration time.Duration, err error) {
//	    p.readCounter.Inc()
//	    // ... record error state, duration, charge, etc.
//	}
type MetricsCollector interface {
	// RecordReadMany is called after each read-many call. requested and
	// returned are item counts, charge is the aggregated request charge,
	// duration is the total time taken, err is nil if successful.
	RecordReadMany(requested, returned int, charge float64, duration time.Duration, err error)

	// RecordChunk is called after each chunk operation, point reads
	// included. items is the number of items the chunk carried.
	RecordChunk(shape query.Shape, items int, duration time.Duration, err error)

	// RecordResolutionFailure is called for each item skipped because its
	// partition could not be resolved.
	RecordResolutionFailure()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordReadMany(int, int, float64, time.Duration, error) {}
func (NoopMetricsCollector) RecordChunk(query.Shape, int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordResolutionFailure()                               {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ReadManyCount      atomic.Int64
	ReadManyErrors     atomic.Int64
	ReadManyTotalNanos atomic.Int64
	ItemsRequested     atomic.Int64
	ItemsReturned      atomic.Int64
	RequestChargeMilli atomic.Int64
	ChunkCount         atomic.Int64
	ChunkErrors        atomic.Int64
	ChunkTotalNanos    atomic.Int64
	PointReads         atomic.Int64
	Queries            atomic.Int64
	ResolutionFailures atomic.Int64
}

// RecordReadMany implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReadMany(requested, returned int, charge float64, duration time.Duration, err error) {
	b.ReadManyCount.Add(1)
	b.ReadManyTotalNanos.Add(duration.Nanoseconds())
	b.ItemsRequested.Add(int64(requested))
	b.ItemsReturned.Add(int64(returned))
	b.RequestChargeMilli.Add(int64(charge * 1000))
	if err != nil {
		b.ReadManyErrors.Add(1)
	}
}

// RecordChunk implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunk(shape query.Shape, items int, duration time.Duration, err error) {
	b.ChunkCount.Add(1)
	b.ChunkTotalNanos.Add(duration.Nanoseconds())
	if shape == query.ShapePointRead {
		b.PointReads.Add(1)
	} else {
		b.Queries.Add(1)
	}
	if err != nil {
		b.ChunkErrors.Add(1)
	}
}

// RecordResolutionFailure implements MetricsCollector.
func (b *BasicMetricsCollector) RecordResolutionFailure() {
	b.ResolutionFailures.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ReadManyCount:      b.ReadManyCount.Load(),
		ReadManyErrors:     b.ReadManyErrors.Load(),
		ReadManyAvgNanos:   b.getAvgReadManyNanos(),
		ItemsRequested:     b.ItemsRequested.Load(),
		ItemsReturned:      b.ItemsReturned.Load(),
		TotalRequestCharge: float64(b.RequestChargeMilli.Load()) / 1000,
		ChunkCount:         b.ChunkCount.Load(),
		ChunkErrors:        b.ChunkErrors.Load(),
		ChunkAvgNanos:      b.getAvgChunkNanos(),
		PointReads:         b.PointReads.Load(),
		Queries:            b.Queries.Load(),
		ResolutionFailures: b.ResolutionFailures.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgReadManyNanos() int64 {
	count := b.ReadManyCount.Load()
	if count == 0 {
		return 0
	}
	return b.ReadManyTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgChunkNanos() int64 {
	count := b.ChunkCount.Load()
	if count == 0 {
		return 0
	}
	return b.ChunkTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ReadManyCount      int64
	ReadManyErrors     int64
	ReadManyAvgNanos   int64
	ItemsRequested     int64
	ItemsReturned      int64
	TotalRequestCharge float64
	ChunkCount         int64
	ChunkErrors        int64
	ChunkAvgNanos      int64
	PointReads         int64
	Queries            int64
	ResolutionFailures int64
}
