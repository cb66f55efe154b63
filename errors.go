package readmany

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/readmany/query"
)

var (
	// ErrNotFound is returned by PointReadExecutor implementations when an
	// item does not exist. The engine maps it to "item absent" and never
	// surfaces it as a call failure.
	ErrNotFound = errors.New("not found")
)

// ResolutionError indicates that an item's logical partition key could not
// be resolved to a physical partition. By default affected items are
// skipped with a warning; with WithStrictResolution the error aborts the
// call.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ResolutionError struct {
	ItemID string
	cause  error
}

func (e *ResolutionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("partition resolution failed for item %q: %v", e.ItemID, e.cause)
	}
	return fmt.Sprintf("partition resolution failed for item %q", e.ItemID)
}

func (e *ResolutionError) Unwrap() error { return e.cause }

// ExecutionError indicates that one chunk operation failed and aborted the
// whole fan-out.
//
// The original underlying error can be accessed via errors.Unwrap.
type ExecutionError struct {
	Partition string
	Shape     query.Shape
	Items     int
	cause     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("chunk on partition %q failed (%s, %d items): %v", e.Partition, e.Shape, e.Items, e.cause)
}

func (e *ExecutionError) Unwrap() error { return e.cause }

// wrapChunkError dresses a unit failure with its chunk context. Pure
// context errors pass through untouched so callers can match their own
// cancellation directly.
func wrapChunkError(partition string, shape query.Shape, items int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ExecutionError{Partition: partition, Shape: shape, Items: items, cause: err}
}
