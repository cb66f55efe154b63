package query

import (
	"github.com/hupe1980/readmany/partitionkey"
)

// Shape identifies the cheapest operation that can serve a chunk.
type Shape uint8

const (
	// ShapePointRead reads the single item of the chunk directly.
	ShapePointRead Shape = iota + 1
	// ShapeIDIn selects by id alone, for containers partitioned on /id.
	ShapeIDIn
	// ShapePKAndIDIn pins one partition-key value and selects ids inside it.
	ShapePKAndIDIn
	// ShapeGenericOR matches every item with its own id and key clause.
	ShapeGenericOR
)

// String implements fmt.Stringer for log and metric labels.
func (s Shape) String() string {
	switch s {
	case ShapePointRead:
		return "PointRead"
	case ShapeIDIn:
		return "IdIn"
	case ShapePKAndIDIn:
		return "PkAndIdIn"
	case ShapeGenericOR:
		return "GenericOr"
	default:
		return "Invalid"
	}
}

// Parameter is one bound query parameter in the service's wire shape.
type Parameter struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Spec is a parameterized query in the service's wire shape.
type Spec struct {
	Text       string      `json:"query"`
	Parameters []Parameter `json:"parameters,omitempty"`
}

// ChunkItem is one requested item as the query builder sees it: the item
// id plus the canonical partition-key components.
type ChunkItem struct {
	ID         string
	Components []partitionkey.Value
}

// Plan is the built operation for one chunk. A point-read plan carries no
// query; every other shape carries the query to run.
type Plan struct {
	Shape Shape
	Query Spec
}
