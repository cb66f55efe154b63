package readmany

import (
	"log/slog"

	"golang.org/x/time/rate"
)

const (
	// DefaultMaxConcurrency is the default bound on concurrently running
	// chunk operations.
	DefaultMaxConcurrency = 5

	// DefaultMaxItemsPerQuery is the default bound on items served by one
	// query.
	DefaultMaxItemsPerQuery = 1000
)

type options struct {
	maxConcurrency   int
	maxItemsPerQuery int
	limiter          *rate.Limiter
	strictResolution bool
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Engine constructor behavior.
type Option func(*options)

// WithMaxConcurrency configures how many chunk operations may run at
// once. The default is DefaultMaxConcurrency.
func WithMaxConcurrency(n int) Option {
	return func(o *options) {
		o.maxConcurrency = n
	}
}

// WithMaxItemsPerQuery configures how many items one query may serve.
// Larger chunks mean fewer round trips but heavier queries. The default
// is DefaultMaxItemsPerQuery, matching the service limit on IN list size.
func WithMaxItemsPerQuery(n int) Option {
	return func(o *options) {
		o.maxItemsPerQuery = n
	}
}

// WithRateLimiter configures request pacing across all chunk operations
// of all calls, e.g. to stay inside a provisioned-throughput budget.
// Pass nil to disable pacing.
//
// Example:
//
//	eng, _ := readmany.New(provider, queries, reads,
//	    readmany.WithRateLimiter(rate.NewLimiter(rate.Limit(100), 10)))
func WithRateLimiter(l *rate.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithStrictResolution makes any partition-resolution failure abort the
// whole call instead of skipping the affected items with a warning.
func WithStrictResolution() Option {
	return func(o *options) {
		o.strictResolution = true
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &readmany.BasicMetricsCollector{}
//	eng, _ := readmany.New(provider, queries, reads, readmany.WithMetricsCollector(metrics))
//	// ... use eng ...
//	stats := metrics.GetStats()
//	fmt.Printf("Reads: %d, Avg latency: %dns\n", stats.ReadManyCount, stats.ReadManyAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := readmany.NewJSONLogger(slog.LevelInfo)
//	eng, _ := readmany.New(provider, queries, reads, readmany.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		maxConcurrency:   DefaultMaxConcurrency,
		maxItemsPerQuery: DefaultMaxItemsPerQuery,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

// CallOptions are per-call overrides of one read-many execution. Zero
// values keep the engine defaults.
type CallOptions struct {
	// MaxConcurrency overrides the engine's chunk concurrency bound.
	MaxConcurrency int

	// MaxItemsPerQuery overrides the engine's per-query item bound.
	MaxItemsPerQuery int

	// Request carries per-request service options into every chunk
	// operation of the call.
	Request RequestOptions
}
