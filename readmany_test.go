package readmany_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/hupe1980/readmany"
	"github.com/hupe1980/readmany/partitionkey"
	"github.com/hupe1980/readmany/query"
	"github.com/hupe1980/readmany/routing"
	"github.com/hupe1980/readmany/testutil"
)

var singlePartition = []routing.PartitionKeyRange{{ID: "0", MinInclusive: "", MaxExclusive: "FF"}}

func newTestEngine(t *testing.T, def partitionkey.Definition, ranges []routing.PartitionKeyRange, docs []readmany.Document, optFns ...readmany.Option) (*readmany.Engine, *testutil.Client) {
	t.Helper()

	store := testutil.NewStore(def)
	require.NoError(t, store.Put(docs...))

	client := testutil.NewClient(store, ranges)
	client.ChargePerPage = 2.0
	client.ChargePerRead = 1.0

	provider, err := routing.NewStaticMapProvider(ranges...)
	require.NoError(t, err)

	eng, err := readmany.New(provider, client, client, optFns...)
	require.NoError(t, err)

	return eng, client
}

func idOf(t *testing.T, doc readmany.Document) string {
	t.Helper()
	var m struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(doc, &m))
	return m.ID
}

// keyOwnedBy scans string keys until one hashes into the given range.
func keyOwnedBy(t *testing.T, def partitionkey.Definition, ranges []routing.PartitionKeyRange, rangeID string) partitionkey.Value {
	t.Helper()
	for i := 0; i < 4096; i++ {
		v := partitionkey.String(fmt.Sprintf("tenant-%d", i))
		epk, err := partitionkey.EffectiveKey(def, v)
		require.NoError(t, err)
		for _, r := range ranges {
			if r.ID == rangeID && r.Contains(epk) {
				return v
			}
		}
	}
	t.Fatalf("no string key hashes into range %s", rangeID)
	return partitionkey.Value{}
}

// keyOutside scans string keys until one hashes outside every range.
func keyOutside(t *testing.T, def partitionkey.Definition, ranges []routing.PartitionKeyRange) partitionkey.Value {
	t.Helper()
scan:
	for i := 0; i < 4096; i++ {
		v := partitionkey.String(fmt.Sprintf("tenant-%d", i))
		epk, err := partitionkey.EffectiveKey(def, v)
		require.NoError(t, err)
		for _, r := range ranges {
			if r.Contains(epk) {
				continue scan
			}
		}
		return v
	}
	t.Fatal("no string key hashes outside the layout")
	return partitionkey.Value{}
}

func TestReadManyOrdersResultsByInput(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}
	ranges := routing.SplitEvenly(8)

	rng := rand.New(rand.NewSource(99))

	var docs []readmany.Document
	var items []readmany.Item
	var wantMissing []int

	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("item-%02d", i)
		pk := fmt.Sprintf("tenant-%d", rng.Intn(12))
		items = append(items, readmany.Item{ID: id, PartitionKey: partitionkey.String(pk)})

		if i%7 == 3 {
			wantMissing = append(wantMissing, i)
			continue
		}
		docs = append(docs, testutil.Doc(id, map[string]any{"pk": pk}))
	}

	eng, client := newTestEngine(t, def, ranges, docs)
	client.Jitter = 3 * time.Millisecond
	client.PageSize = 2

	res, err := eng.ReadMany(context.Background(), "orders", def, items)
	require.NoError(t, err)

	assert.Equal(t, wantMissing, res.Missing)
	require.Len(t, res.Items, len(items)-len(wantMissing))

	next := 0
	for i, it := range items {
		if i%7 == 3 {
			continue
		}
		assert.Equal(t, it.ID, idOf(t, res.Items[next]), "result %d out of order", next)
		next++
	}
}

func TestReadManySingleItemUsesPointRead(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}
	docs := []readmany.Document{testutil.Doc("a", map[string]any{"pk": "x"})}

	eng, client := newTestEngine(t, def, singlePartition, docs)

	res, err := eng.ReadMany(context.Background(), "orders", def, []readmany.Item{
		{ID: "a", PartitionKey: partitionkey.String("x")},
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "a", idOf(t, res.Items[0]))
	assert.Empty(t, res.Missing)

	assert.Len(t, client.Reads(), 1)
	assert.Empty(t, client.Queries())

	assert.Equal(t, 1.0, res.Metadata.RequestCharge)
	assert.Equal(t, 1, res.Metadata.Requests)
}

func TestReadManyMissingPointReadKeepsCharge(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}

	eng, _ := newTestEngine(t, def, singlePartition, nil)

	res, err := eng.ReadMany(context.Background(), "orders", def, []readmany.Item{
		{ID: "ghost", PartitionKey: partitionkey.String("x")},
	})
	require.NoError(t, err)

	assert.Empty(t, res.Items)
	assert.Equal(t, []int{0}, res.Missing)
	assert.Equal(t, 1.0, res.Metadata.RequestCharge, "a not-found read still reports its charge")
}

func TestReadManyQueryShapes(t *testing.T) {
	t.Run("IdIn", func(t *testing.T) {
		def := partitionkey.Definition{Paths: []string{"/id"}}
		docs := []readmany.Document{
			testutil.Doc("a", nil),
			testutil.Doc("b", nil),
			testutil.Doc("c", nil),
		}

		eng, client := newTestEngine(t, def, singlePartition, docs)

		res, err := eng.ReadMany(context.Background(), "orders", def, []readmany.Item{
			{ID: "a", PartitionKey: partitionkey.String("a")},
			{ID: "b", PartitionKey: partitionkey.String("b")},
			{ID: "c", PartitionKey: partitionkey.String("c")},
		})
		require.NoError(t, err)
		assert.Len(t, res.Items, 3)
		assert.Empty(t, res.Missing)

		calls := client.Queries()
		require.Len(t, calls, 1)
		assert.Equal(t, "SELECT * FROM c WHERE c.id IN (@id0,@id1,@id2)", calls[0].Spec.Text)
		assert.Equal(t, []query.Parameter{
			{Name: "@id0", Value: "a"},
			{Name: "@id1", Value: "b"},
			{Name: "@id2", Value: "c"},
		}, calls[0].Spec.Parameters)
	})

	t.Run("PkAndIdIn", func(t *testing.T) {
		def := partitionkey.Definition{Paths: []string{"/pk"}}
		docs := []readmany.Document{
			testutil.Doc("a", map[string]any{"pk": "p1"}),
			testutil.Doc("b", map[string]any{"pk": "p1"}),
		}

		eng, client := newTestEngine(t, def, singlePartition, docs)

		res, err := eng.ReadMany(context.Background(), "orders", def, []readmany.Item{
			{ID: "a", PartitionKey: partitionkey.String("p1")},
			{ID: "b", PartitionKey: partitionkey.String("p1")},
		})
		require.NoError(t, err)
		assert.Len(t, res.Items, 2)

		calls := client.Queries()
		require.Len(t, calls, 1)
		assert.Equal(t, "SELECT * FROM c WHERE c.pk=@pk AND c.id IN (@id0,@id1)", calls[0].Spec.Text)
		assert.Equal(t, []query.Parameter{
			{Name: "@pk", Value: "p1"},
			{Name: "@id0", Value: "a"},
			{Name: "@id1", Value: "b"},
		}, calls[0].Spec.Parameters)
	})

	t.Run("GenericOr", func(t *testing.T) {
		def := partitionkey.Definition{Paths: []string{"/pk"}}
		docs := []readmany.Document{
			testutil.Doc("u1", map[string]any{"pk": "a"}),
			testutil.Doc("u2", nil),
		}

		eng, client := newTestEngine(t, def, singlePartition, docs)

		res, err := eng.ReadMany(context.Background(), "orders", def, []readmany.Item{
			{ID: "u1", PartitionKey: partitionkey.String("a")},
			{ID: "u2", PartitionKey: partitionkey.Undefined()},
		})
		require.NoError(t, err)
		assert.Len(t, res.Items, 2)
		assert.Empty(t, res.Missing)

		calls := client.Queries()
		require.Len(t, calls, 1)
		assert.Equal(t,
			"SELECT * FROM c WHERE (c.id = @id_0 AND c.pk = @pk_0_0) OR (c.id = @id_1 AND IS_DEFINED(c.pk) = false)",
			calls[0].Spec.Text)
		assert.Equal(t, []query.Parameter{
			{Name: "@id_0", Value: "u1"},
			{Name: "@pk_0_0", Value: "a"},
			{Name: "@id_1", Value: "u2"},
		}, calls[0].Spec.Parameters)
	})
}

func TestReadManyChunksLargePartitions(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}

	var docs []readmany.Document
	var items []readmany.Item
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("item-%02d", i)
		docs = append(docs, testutil.Doc(id, map[string]any{"pk": "p"}))
		items = append(items, readmany.Item{ID: id, PartitionKey: partitionkey.String("p")})
	}

	t.Run("EngineBound", func(t *testing.T) {
		eng, client := newTestEngine(t, def, singlePartition, docs, readmany.WithMaxItemsPerQuery(10))

		res, err := eng.ReadMany(context.Background(), "orders", def, items)
		require.NoError(t, err)
		assert.Len(t, res.Items, 25)
		assert.Empty(t, res.Missing)

		calls := client.Queries()
		require.Len(t, calls, 3, "25 items at 10 per query need 3 queries")
		assert.Len(t, calls[0].Spec.Parameters, 11)
		assert.Len(t, calls[1].Spec.Parameters, 11)
		assert.Len(t, calls[2].Spec.Parameters, 6)
	})

	t.Run("CallOverride", func(t *testing.T) {
		eng, client := newTestEngine(t, def, singlePartition, docs, readmany.WithMaxItemsPerQuery(10))

		res, err := eng.ReadMany(context.Background(), "orders", def, items, func(o *readmany.CallOptions) {
			o.MaxItemsPerQuery = 7
		})
		require.NoError(t, err)
		assert.Len(t, res.Items, 25)
		assert.Len(t, client.Queries(), 4, "25 items at 7 per query need 4 queries")
	})

	t.Run("BoundOfOneForcesPointReads", func(t *testing.T) {
		eng, client := newTestEngine(t, def, singlePartition, docs, readmany.WithMaxItemsPerQuery(1))

		res, err := eng.ReadMany(context.Background(), "orders", def, items)
		require.NoError(t, err)
		assert.Len(t, res.Items, 25)
		assert.Empty(t, client.Queries())
		assert.Len(t, client.Reads(), 25)
	})
}

func TestReadManyAggregatesMetadata(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}

	var docs []readmany.Document
	var items []readmany.Item
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("item-%d", i)
		docs = append(docs, testutil.Doc(id, map[string]any{"pk": "p"}))
		items = append(items, readmany.Item{ID: id, PartitionKey: partitionkey.String("p")})
	}

	eng, client := newTestEngine(t, def, singlePartition, docs)
	client.PageSize = 2
	client.SessionToken = "tok-5"

	res, err := eng.ReadMany(context.Background(), "orders", def, items)
	require.NoError(t, err)

	assert.Equal(t, 6.0, res.Metadata.RequestCharge, "three pages at 2.0 each")
	assert.Equal(t, 3, res.Metadata.Requests)
	assert.Equal(t, "tok-5", res.Metadata.SessionToken)
	assert.NotEmpty(t, res.Metadata.ActivityID)
}

func TestReadManyActivityID(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}
	docs := []readmany.Document{
		testutil.Doc("a", map[string]any{"pk": "p"}),
		testutil.Doc("b", map[string]any{"pk": "p"}),
	}
	items := []readmany.Item{
		{ID: "a", PartitionKey: partitionkey.String("p")},
		{ID: "b", PartitionKey: partitionkey.String("p")},
	}

	t.Run("Generated", func(t *testing.T) {
		eng, client := newTestEngine(t, def, singlePartition, docs)

		res, err := eng.ReadMany(context.Background(), "orders", def, items)
		require.NoError(t, err)

		require.NotEmpty(t, res.Metadata.ActivityID)
		calls := client.Queries()
		require.Len(t, calls, 1)
		assert.Equal(t, res.Metadata.ActivityID, calls[0].Options.ActivityID, "generated activity id reaches the transport")
	})

	t.Run("CallerProvided", func(t *testing.T) {
		eng, client := newTestEngine(t, def, singlePartition, docs)

		res, err := eng.ReadMany(context.Background(), "orders", def, items, func(o *readmany.CallOptions) {
			o.Request.ActivityID = "act-42"
		})
		require.NoError(t, err)

		assert.Equal(t, "act-42", res.Metadata.ActivityID)
		calls := client.Queries()
		require.Len(t, calls, 1)
		assert.Equal(t, "act-42", calls[0].Options.ActivityID)
	})
}

func TestReadManyDuplicateItems(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}
	docs := []readmany.Document{
		testutil.Doc("a", map[string]any{"pk": "p"}),
		testutil.Doc("b", map[string]any{"pk": "p"}),
	}

	eng, _ := newTestEngine(t, def, singlePartition, docs)

	res, err := eng.ReadMany(context.Background(), "orders", def, []readmany.Item{
		{ID: "a", PartitionKey: partitionkey.String("p")},
		{ID: "b", PartitionKey: partitionkey.String("p")},
		{ID: "a", PartitionKey: partitionkey.String("p")},
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 3)
	assert.Empty(t, res.Missing)
	assert.Equal(t, "a", idOf(t, res.Items[0]))
	assert.Equal(t, "b", idOf(t, res.Items[1]))
	assert.Equal(t, "a", idOf(t, res.Items[2]))
	assert.Equal(t, res.Items[0], res.Items[2], "duplicate requests share the document")
}

func TestReadManyFailFast(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}
	ranges := routing.SplitEvenly(2)

	pkLow := keyOwnedBy(t, def, ranges, "0")
	pkHigh := keyOwnedBy(t, def, ranges, "1")

	items := []readmany.Item{
		{ID: "a", PartitionKey: pkLow},
		{ID: "b", PartitionKey: pkLow},
		{ID: "c", PartitionKey: pkHigh},
		{ID: "d", PartitionKey: pkHigh},
	}

	eng, client := newTestEngine(t, def, ranges, nil)

	boom := errors.New("boom")
	client.FailQueriesOn("0", boom)
	client.HoldQueriesOn("1", make(chan struct{}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := eng.ReadMany(ctx, "orders", def, items)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var ee *readmany.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "0", ee.Partition)
	assert.Equal(t, query.ShapePKAndIDIn, ee.Shape)
	assert.Equal(t, 2, ee.Items)
}

func TestReadManyContextCancellation(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}

	items := []readmany.Item{
		{ID: "a", PartitionKey: partitionkey.String("p")},
		{ID: "b", PartitionKey: partitionkey.String("p")},
	}

	eng, client := newTestEngine(t, def, singlePartition, nil)
	client.HoldQueriesOn("0", make(chan struct{}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	res, err := eng.ReadMany(ctx, "orders", def, items)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)

	var ee *readmany.ExecutionError
	assert.False(t, errors.As(err, &ee), "context errors pass through undressed")
}

func TestReadManyResolutionFailures(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}
	half := []routing.PartitionKeyRange{{ID: "0", MinInclusive: "", MaxExclusive: "2000000000000000"}}

	pkIn := keyOwnedBy(t, def, half, "0")
	pkOut := keyOutside(t, def, half)

	inID, _ := pkIn.AsString()
	docs := []readmany.Document{
		testutil.Doc("in-1", map[string]any{"pk": inID}),
		testutil.Doc("in-2", map[string]any{"pk": inID}),
	}

	items := []readmany.Item{
		{ID: "in-1", PartitionKey: pkIn},
		{ID: "lost", PartitionKey: pkOut},
		{ID: "in-2", PartitionKey: pkIn},
	}

	t.Run("SkippedByDefault", func(t *testing.T) {
		mc := &readmany.BasicMetricsCollector{}
		eng, _ := newTestEngine(t, def, half, docs, readmany.WithMetricsCollector(mc))

		res, err := eng.ReadMany(context.Background(), "orders", def, items)
		require.NoError(t, err)

		require.Len(t, res.Items, 2)
		assert.Equal(t, "in-1", idOf(t, res.Items[0]))
		assert.Equal(t, "in-2", idOf(t, res.Items[1]))
		assert.Equal(t, []int{1}, res.Missing)
		assert.Equal(t, int64(1), mc.GetStats().ResolutionFailures)
	})

	t.Run("StrictAborts", func(t *testing.T) {
		eng, client := newTestEngine(t, def, half, docs, readmany.WithStrictResolution())

		res, err := eng.ReadMany(context.Background(), "orders", def, items)
		assert.Nil(t, res)
		require.Error(t, err)

		var re *readmany.ResolutionError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "lost", re.ItemID)

		assert.Empty(t, client.Queries(), "strict mode aborts before any chunk runs")
		assert.Empty(t, client.Reads())
	})
}

func TestReadManyValidation(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}

	t.Run("InvalidDefinition", func(t *testing.T) {
		eng, client := newTestEngine(t, def, singlePartition, nil)

		res, err := eng.ReadMany(context.Background(), "orders", partitionkey.Definition{}, []readmany.Item{
			{ID: "a", PartitionKey: partitionkey.String("p")},
		})
		assert.Nil(t, res)

		var ve *partitionkey.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Empty(t, client.Queries())
		assert.Empty(t, client.Reads())
	})

	t.Run("TooManyComponents", func(t *testing.T) {
		eng, client := newTestEngine(t, def, singlePartition, nil)

		res, err := eng.ReadMany(context.Background(), "orders", def, []readmany.Item{
			{ID: "a", PartitionKey: partitionkey.List(partitionkey.String("x"), partitionkey.String("y"))},
		})
		assert.Nil(t, res)

		var ve *partitionkey.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Empty(t, client.Reads())
	})

	t.Run("CallOptionOverrides", func(t *testing.T) {
		eng, _ := newTestEngine(t, def, singlePartition, nil)

		_, err := eng.ReadMany(context.Background(), "orders", def, []readmany.Item{
			{ID: "a", PartitionKey: partitionkey.String("p")},
		}, func(o *readmany.CallOptions) {
			o.MaxConcurrency = -1
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max concurrency")

		_, err = eng.ReadMany(context.Background(), "orders", def, []readmany.Item{
			{ID: "a", PartitionKey: partitionkey.String("p")},
		}, func(o *readmany.CallOptions) {
			o.MaxItemsPerQuery = 0
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max items per query")
	})
}

func TestNewValidation(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}

	provider, err := routing.NewStaticMapProvider(routing.SplitEvenly(2)...)
	require.NoError(t, err)

	client := testutil.NewClient(testutil.NewStore(def), routing.SplitEvenly(2))

	_, err = readmany.New(nil, client, client)
	assert.ErrorContains(t, err, "provider")

	_, err = readmany.New(provider, nil, client)
	assert.ErrorContains(t, err, "query executor")

	_, err = readmany.New(provider, client, nil)
	assert.ErrorContains(t, err, "point-read executor")

	_, err = readmany.New(provider, client, client, readmany.WithMaxConcurrency(0))
	assert.ErrorContains(t, err, "max concurrency")

	_, err = readmany.New(provider, client, client, readmany.WithMaxItemsPerQuery(-5))
	assert.ErrorContains(t, err, "max items per query")
}

func TestReadManyEmptyInput(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}

	eng, client := newTestEngine(t, def, singlePartition, nil)

	res, err := eng.ReadMany(context.Background(), "orders", def, nil)
	require.NoError(t, err)

	assert.Empty(t, res.Items)
	assert.Empty(t, res.Missing)
	assert.NotEmpty(t, res.Metadata.ActivityID)
	assert.Zero(t, res.Metadata.RequestCharge)

	assert.Empty(t, client.Queries())
	assert.Empty(t, client.Reads())
}

type gauge struct {
	mu  sync.Mutex
	cur int
	max int
}

func (g *gauge) enter() {
	g.mu.Lock()
	g.cur++
	if g.cur > g.max {
		g.max = g.cur
	}
	g.mu.Unlock()
}

func (g *gauge) exit() {
	g.mu.Lock()
	g.cur--
	g.mu.Unlock()
}

func (g *gauge) peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.max
}

type gaugedQueries struct {
	inner readmany.QueryExecutor
	g     *gauge
}

func (q *gaugedQueries) ExecuteQuery(ctx context.Context, container string, spec query.Spec, partitionID string, opts readmany.RequestOptions) (readmany.Pager, error) {
	q.g.enter()
	defer q.g.exit()
	return q.inner.ExecuteQuery(ctx, container, spec, partitionID, opts)
}

func TestReadManyHonorsConcurrencyBound(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}

	var docs []readmany.Document
	var items []readmany.Item
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("item-%02d", i)
		docs = append(docs, testutil.Doc(id, map[string]any{"pk": "p"}))
		items = append(items, readmany.Item{ID: id, PartitionKey: partitionkey.String("p")})
	}

	store := testutil.NewStore(def)
	require.NoError(t, store.Put(docs...))

	client := testutil.NewClient(store, singlePartition)
	client.Jitter = 2 * time.Millisecond

	provider, err := routing.NewStaticMapProvider(singlePartition...)
	require.NoError(t, err)

	g := &gauge{}
	eng, err := readmany.New(provider, &gaugedQueries{inner: client, g: g}, client,
		readmany.WithMaxConcurrency(2),
		readmany.WithMaxItemsPerQuery(2),
	)
	require.NoError(t, err)

	res, err := eng.ReadMany(context.Background(), "orders", def, items)
	require.NoError(t, err)
	assert.Len(t, res.Items, 30)

	assert.GreaterOrEqual(t, g.peak(), 1)
	assert.LessOrEqual(t, g.peak(), 2, "no more than two chunks in flight")
}

func TestReadManyRecordsMetrics(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}
	ranges := routing.SplitEvenly(2)

	pkLow := keyOwnedBy(t, def, ranges, "0")
	pkHigh := keyOwnedBy(t, def, ranges, "1")

	lowS, _ := pkLow.AsString()
	highS, _ := pkHigh.AsString()
	_ = highS

	docs := []readmany.Document{
		testutil.Doc("a", map[string]any{"pk": lowS}),
		testutil.Doc("b", map[string]any{"pk": lowS}),
	}

	items := []readmany.Item{
		{ID: "a", PartitionKey: pkLow},
		{ID: "b", PartitionKey: pkLow},
		{ID: "c", PartitionKey: pkHigh},
	}

	mc := &readmany.BasicMetricsCollector{}
	eng, _ := newTestEngine(t, def, ranges, docs, readmany.WithMetricsCollector(mc))

	res, err := eng.ReadMany(context.Background(), "orders", def, items)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, []int{2}, res.Missing)

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.ReadManyCount)
	assert.Equal(t, int64(0), stats.ReadManyErrors)
	assert.Equal(t, int64(3), stats.ItemsRequested)
	assert.Equal(t, int64(2), stats.ItemsReturned)
	assert.Equal(t, int64(2), stats.ChunkCount)
	assert.Equal(t, int64(1), stats.PointReads)
	assert.Equal(t, int64(1), stats.Queries)
	assert.Equal(t, 3.0, stats.TotalRequestCharge, "one query page plus one point read")
}

func TestReadManyWithRateLimiter(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}}

	var docs []readmany.Document
	var items []readmany.Item
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("item-%d", i)
		docs = append(docs, testutil.Doc(id, map[string]any{"pk": "p"}))
		items = append(items, readmany.Item{ID: id, PartitionKey: partitionkey.String("p")})
	}

	eng, client := newTestEngine(t, def, singlePartition, docs,
		readmany.WithRateLimiter(rate.NewLimiter(rate.Limit(10_000), 16)),
		readmany.WithMaxItemsPerQuery(1),
	)

	res, err := eng.ReadMany(context.Background(), "orders", def, items)
	require.NoError(t, err)
	assert.Len(t, res.Items, 4)
	assert.Len(t, client.Reads(), 4)
}

func TestReadManyHierarchicalKeys(t *testing.T) {
	def := partitionkey.Definition{
		Paths: []string{"/tenant", "/user"},
		Kind:  partitionkey.MultiHash,
	}

	docs := []readmany.Document{
		testutil.Doc("o1", map[string]any{"tenant": "t1", "user": "u1"}),
		testutil.Doc("o2", map[string]any{"tenant": "t1", "user": "u2"}),
		testutil.Doc("o3", map[string]any{"tenant": "t1"}),
	}

	eng, client := newTestEngine(t, def, singlePartition, docs)

	res, err := eng.ReadMany(context.Background(), "orders", def, []readmany.Item{
		{ID: "o1", PartitionKey: partitionkey.List(partitionkey.String("t1"), partitionkey.String("u1"))},
		{ID: "o2", PartitionKey: partitionkey.List(partitionkey.String("t1"), partitionkey.String("u2"))},
		{ID: "o3", PartitionKey: partitionkey.List(partitionkey.String("t1"))},
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 3)
	assert.Empty(t, res.Missing)
	assert.Equal(t, "o1", idOf(t, res.Items[0]))
	assert.Equal(t, "o2", idOf(t, res.Items[1]))
	assert.Equal(t, "o3", idOf(t, res.Items[2]))

	calls := client.Queries()
	require.Len(t, calls, 1)
	assert.Equal(t,
		`SELECT * FROM c WHERE (c.id = @id_0 AND c["tenant"] = @pk_0_0 AND c["user"] = @pk_0_1)`+
			` OR (c.id = @id_1 AND c["tenant"] = @pk_1_0 AND c["user"] = @pk_1_1)`+
			` OR (c.id = @id_2 AND c["tenant"] = @pk_2_0 AND IS_DEFINED(c["user"]) = false)`,
		calls[0].Spec.Text)
}

func TestReadManyLegacyHashVersion(t *testing.T) {
	def := partitionkey.Definition{Paths: []string{"/pk"}, Version: partitionkey.V1}

	docs := []readmany.Document{
		testutil.Doc("a", map[string]any{"pk": "x"}),
		testutil.Doc("b", map[string]any{"pk": "y"}),
	}

	eng, _ := newTestEngine(t, def, routing.SplitEvenly(4), docs)

	res, err := eng.ReadMany(context.Background(), "orders", def, []readmany.Item{
		{ID: "a", PartitionKey: partitionkey.String("x")},
		{ID: "b", PartitionKey: partitionkey.String("y")},
		{ID: "zz", PartitionKey: partitionkey.String("x")},
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, []int{2}, res.Missing)
}
