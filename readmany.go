package readmany

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hupe1980/readmany/partitionkey"
	"github.com/hupe1980/readmany/routing"
)

// Engine is the partition-aware multi-item read engine. It turns a list
// of (id, partition key) pairs into the cheapest set of point reads and
// per-partition queries, fans them out under a concurrency bound, and
// reassembles the results in input order.
//
// An Engine holds no per-call state and is safe for concurrent use.
type Engine struct {
	provider routing.MapProvider
	queries  QueryExecutor
	reads    PointReadExecutor

	maxConcurrency   int
	maxItemsPerQuery int
	limiter          *rate.Limiter
	strictResolution bool
	metrics          MetricsCollector
	logger           *Logger
}

// New creates an Engine over the given collaborators: the routing map
// provider and the two transport executors.
func New(provider routing.MapProvider, queries QueryExecutor, reads PointReadExecutor, optFns ...Option) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("readmany: routing map provider is nil")
	}
	if queries == nil {
		return nil, fmt.Errorf("readmany: query executor is nil")
	}
	if reads == nil {
		return nil, fmt.Errorf("readmany: point-read executor is nil")
	}

	o := applyOptions(optFns)
	if o.maxConcurrency < 1 {
		return nil, fmt.Errorf("readmany: max concurrency must be positive, got %d", o.maxConcurrency)
	}
	if o.maxItemsPerQuery < 1 {
		return nil, fmt.Errorf("readmany: max items per query must be positive, got %d", o.maxItemsPerQuery)
	}

	return &Engine{
		provider:         provider,
		queries:          queries,
		reads:            reads,
		maxConcurrency:   o.maxConcurrency,
		maxItemsPerQuery: o.maxItemsPerQuery,
		limiter:          o.limiter,
		strictResolution: o.strictResolution,
		metrics:          o.metricsCollector,
		logger:           o.logger,
	}, nil
}

// ReadMany reads many items from one container in a single call.
//
// Items are grouped by the physical partition owning their key, split
// into bounded chunks, and served by the cheapest operation per chunk: a
// direct point read for single items, otherwise a parameterized query.
// Chunks run concurrently up to the concurrency bound; the first failure
// cancels the rest and is returned alone, with no partial result.
//
// The returned documents keep the input order of the items that requested
// them. Items the container does not hold are omitted, their input
// positions listed in Result.Missing. An empty items slice returns an
// empty Result without touching the service.
//
// Example:
//
//	res, err := eng.ReadMany(ctx, "orders", def, items, func(o *readmany.CallOptions) {
//	    o.MaxConcurrency = 8
//	    o.Request.SessionToken = token
//	})
func (e *Engine) ReadMany(ctx context.Context, container string, def partitionkey.Definition, items []Item, optFns ...func(*CallOptions)) (*Result, error) {
	start := time.Now()

	co := CallOptions{
		MaxConcurrency:   e.maxConcurrency,
		MaxItemsPerQuery: e.maxItemsPerQuery,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&co)
		}
	}
	if co.Request.ActivityID == "" {
		co.Request.ActivityID = uuid.NewString()
	}

	log := e.logger.WithContainer(container).WithActivityID(co.Request.ActivityID)

	result, err := e.readMany(ctx, container, def, items, co, log)

	returned, missing := 0, 0
	var charge float64
	if result != nil {
		returned = len(result.Items)
		missing = len(result.Missing)
		charge = result.Metadata.RequestCharge
	}
	e.metrics.RecordReadMany(len(items), returned, charge, time.Since(start), err)
	log.LogReadMany(ctx, len(items), returned, missing, err)

	return result, err
}

func (e *Engine) readMany(ctx context.Context, container string, def partitionkey.Definition, items []Item, co CallOptions, log *Logger) (*Result, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if co.MaxConcurrency < 1 {
		return nil, fmt.Errorf("readmany: max concurrency must be positive, got %d", co.MaxConcurrency)
	}
	if co.MaxItemsPerQuery < 1 {
		return nil, fmt.Errorf("readmany: max items per query must be positive, got %d", co.MaxItemsPerQuery)
	}
	if len(items) == 0 {
		return &Result{Metadata: Metadata{ActivityID: co.Request.ActivityID}}, nil
	}

	groups, err := e.partitionItems(ctx, container, def, items, log)
	if err != nil {
		return nil, err
	}

	units, err := buildUnits(chunkGroups(groups, co.MaxItemsPerQuery), def)
	if err != nil {
		return nil, err
	}

	outcomes, err := e.executeUnits(ctx, container, def, units, co, log)
	if err != nil {
		return nil, err
	}

	result := assemble(outcomes, len(items))
	result.Metadata.ActivityID = co.Request.ActivityID
	return result, nil
}
