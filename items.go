package readmany

import (
	"encoding/json"

	"github.com/hupe1980/readmany/partitionkey"
)

// Document is one item payload exactly as the service returned it.
type Document = json.RawMessage

// Item identifies one requested item: its id plus the logical
// partition-key value it lives under.
type Item struct {
	ID           string
	PartitionKey partitionkey.Value
}

// Metadata aggregates service response metadata. On a Result it covers
// every request the call performed: numeric fields are summed, string
// fields keep the last value seen with no defined ordering between
// concurrent chunks.
type Metadata struct {
	// RequestCharge is the total request charge.
	RequestCharge float64

	// ETag is the entity tag of the last response that carried one.
	ETag string

	// SessionToken is the session token of the last response that carried
	// one. Pass it to later calls for session consistency.
	SessionToken string

	// ActivityID correlates every request of one read-many call.
	ActivityID string

	// Requests is the number of service round trips performed, as
	// reported by the executors.
	Requests int
}

// merge folds unit metadata into the aggregate.
func (m *Metadata) merge(other Metadata) {
	m.RequestCharge += other.RequestCharge
	m.Requests += other.Requests
	if other.ETag != "" {
		m.ETag = other.ETag
	}
	if other.SessionToken != "" {
		m.SessionToken = other.SessionToken
	}
	if other.ActivityID != "" {
		m.ActivityID = other.ActivityID
	}
}

// Result is the outcome of a successful read-many call.
type Result struct {
	// Items holds the found documents, ordered by the input position of
	// the item that requested them. Absent items are omitted, not nulled.
	Items []Document

	// Missing lists the input indexes no document was returned for, in
	// ascending order. Items skipped after a partition-resolution failure
	// are included.
	Missing []int

	// Metadata aggregates service metadata over every request performed.
	Metadata Metadata
}
