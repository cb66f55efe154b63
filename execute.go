package readmany

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/readmany/partitionkey"
	"github.com/hupe1980/readmany/query"
)

// unit pairs a chunk with its built plan.
type unit struct {
	chunk chunk
	plan  query.Plan
}

// itemResult is the outcome for one requested item. Absent items keep
// found false and carry no document.
type itemResult struct {
	index int
	doc   Document
	found bool
}

// unitOutcome collects one unit's item results and response metadata.
type unitOutcome struct {
	results  []itemResult
	metadata Metadata
}

// buildUnits builds every chunk's plan before anything executes, so that
// shape validation failures surface without a single request sent.
func buildUnits(chunks []chunk, def partitionkey.Definition) ([]unit, error) {
	units := make([]unit, len(chunks))
	for i, c := range chunks {
		items := make([]query.ChunkItem, len(c.items))
		for j, fi := range c.items {
			items[j] = query.ChunkItem{ID: fi.item.ID, Components: fi.components}
		}
		plan, err := query.BuildPlan(items, def)
		if err != nil {
			return nil, err
		}
		units[i] = unit{chunk: c, plan: plan}
	}
	return units, nil
}

// executeUnits fans the units out under the concurrency bound. The first
// failing unit cancels the group context; the remaining units are awaited
// to completion, their cancellation artifacts discarded, and the original
// error returned alone. No partial results accompany an error.
func (e *Engine) executeUnits(ctx context.Context, container string, def partitionkey.Definition, units []unit, co CallOptions, log *Logger) ([]unitOutcome, error) {
	outcomes := make([]unitOutcome, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(co.MaxConcurrency)

	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			start := time.Now()
			outcome, err := e.runUnit(gctx, container, def, u, co.Request)
			e.metrics.RecordChunk(u.plan.Shape, len(u.chunk.items), time.Since(start), err)
			log.LogChunk(gctx, u.chunk.partition, u.plan.Shape.String(), len(u.chunk.items), err)
			if err != nil {
				return wrapChunkError(u.chunk.partition, u.plan.Shape, len(u.chunk.items), err)
			}
			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// runUnit executes one chunk operation, pacing it first when the engine
// carries a rate limiter.
func (e *Engine) runUnit(ctx context.Context, container string, def partitionkey.Definition, u unit, req RequestOptions) (unitOutcome, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return unitOutcome{}, err
		}
	}

	if u.plan.Shape == query.ShapePointRead {
		return e.runPointRead(ctx, container, u.chunk.items[0], req)
	}
	return e.runQuery(ctx, container, def, u, req)
}

// runPointRead reads the chunk's single item directly. A missing item is
// an absent result, not an error; its response metadata still counts.
func (e *Engine) runPointRead(ctx context.Context, container string, fi fanoutItem, req RequestOptions) (unitOutcome, error) {
	doc, md, err := e.reads.ReadItem(ctx, container, fi.item.ID, fi.item.PartitionKey, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return unitOutcome{results: []itemResult{{index: fi.index}}, metadata: md}, nil
		}
		return unitOutcome{}, err
	}
	return unitOutcome{
		results:  []itemResult{{index: fi.index, doc: doc, found: true}},
		metadata: md,
	}, nil
}

// runQuery executes the chunk's query, drains every page, and matches the
// returned documents back to the requested items by id and partition-key
// components. Items no document matched stay absent.
func (e *Engine) runQuery(ctx context.Context, container string, def partitionkey.Definition, u unit, req RequestOptions) (unitOutcome, error) {
	pager, err := e.queries.ExecuteQuery(ctx, container, u.plan.Query, u.chunk.partition, req)
	if err != nil {
		return unitOutcome{}, err
	}

	results := make([]itemResult, len(u.chunk.items))
	slots := make(map[string][]int, len(u.chunk.items))
	for i, fi := range u.chunk.items {
		results[i] = itemResult{index: fi.index}
		mk := matchKey(fi.item.ID, fi.components, len(def.Paths))
		slots[mk] = append(slots[mk], i)
	}

	var md Metadata
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return unitOutcome{}, err
		}
		md.merge(page.Metadata)

		for _, doc := range page.Documents {
			mk, err := documentMatchKey(doc, def)
			if err != nil {
				return unitOutcome{}, err
			}
			for _, slot := range slots[mk] {
				results[slot].doc = doc
				results[slot].found = true
			}
		}
	}
	return unitOutcome{results: results, metadata: md}, nil
}

// documentMatchKey extracts the match identity of a returned document.
func documentMatchKey(doc Document, def partitionkey.Definition) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return "", fmt.Errorf("malformed document in query response: %w", err)
	}
	id, ok := m["id"].(string)
	if !ok {
		return "", fmt.Errorf("document without string id in query response")
	}
	return matchKey(id, def.Extract(m), len(def.Paths)), nil
}
