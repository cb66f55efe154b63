package readmany

import (
	"context"

	"github.com/hupe1980/readmany/partitionkey"
	"github.com/hupe1980/readmany/query"
)

// RequestOptions carries per-request service options through to the
// transport collaborators. Zero values mean service defaults.
type RequestOptions struct {
	// SessionToken pins session consistency across calls.
	SessionToken string

	// ConsistencyLevel overrides the account consistency level for the
	// requests of this call.
	ConsistencyLevel string

	// ActivityID correlates every request of one read-many call. The
	// engine stamps a fresh id when left empty.
	ActivityID string
}

// Page is one page of query results together with its response metadata.
// Metadata.Requests should report the round trips the page cost,
// normally one.
type Page struct {
	Documents []Document
	Metadata  Metadata
}

// Pager drains the result pages of one executed query.
type Pager interface {
	// More reports whether NextPage can be called again.
	More() bool

	// NextPage fetches the next page of documents.
	NextPage(ctx context.Context) (Page, error)
}

// QueryExecutor runs parameterized queries against a single physical
// partition of a container.
//
// Implementations wrap the service's query transport, including its
// retry and timeout policies, and must be safe for concurrent use: one
// read-many call executes many queries at once.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, container string, spec query.Spec, partitionID string, opts RequestOptions) (Pager, error)
}

// PointReadExecutor reads single items directly by id and partition key.
//
// A missing item must return an error satisfying errors.Is(err,
// ErrNotFound); the engine treats it as "item absent". Implementations
// must be safe for concurrent use.
type PointReadExecutor interface {
	ReadItem(ctx context.Context, container, itemID string, pk partitionkey.Value, opts RequestOptions) (Document, Metadata, error)
}
