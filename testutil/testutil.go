package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/readmany"
	"github.com/hupe1980/readmany/partitionkey"
	"github.com/hupe1980/readmany/query"
	"github.com/hupe1980/readmany/routing"
)

// Compile-time check that Client satisfies the engine collaborator interfaces.
var (
	_ readmany.QueryExecutor     = (*Client)(nil)
	_ readmany.PointReadExecutor = (*Client)(nil)
	_ readmany.Pager             = (*pager)(nil)
)

// Doc renders a JSON document with the given id and extra fields.
// Keys are marshaled in sorted order, so the output is deterministic.
func Doc(id string, fields map[string]any) readmany.Document {
	m := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		m[k] = v
	}
	m["id"] = id

	b, err := json.Marshal(m)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal document %q: %v", id, err))
	}

	return readmany.Document(b)
}

type storedDoc struct {
	id  string
	epk string
	doc readmany.Document
}

// Store is an in-memory document fixture keyed by id and partition key.
// It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	def  partitionkey.Definition
	docs map[string]storedDoc
}

// NewStore creates an empty Store for documents partitioned by def.
func NewStore(def partitionkey.Definition) *Store {
	return &Store{
		def:  def,
		docs: make(map[string]storedDoc),
	}
}

// Put upserts documents. Each document must carry a string id; its
// partition key components are extracted per the store's definition.
func (s *Store) Put(docs ...readmany.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		var m map[string]any
		if err := json.Unmarshal(doc, &m); err != nil {
			return fmt.Errorf("testutil: decode document: %w", err)
		}

		id, ok := m["id"].(string)
		if !ok {
			return errors.New("testutil: document has no string id")
		}

		comps := s.def.Extract(m)

		epk, err := s.epkOf(comps)
		if err != nil {
			return fmt.Errorf("testutil: document %q: %w", id, err)
		}

		s.docs[lookupKey(id, comps)] = storedDoc{id: id, epk: epk, doc: doc}
	}

	return nil
}

// Get returns the document stored under the given id and partition key.
func (s *Store) Get(id string, pk partitionkey.Value) (readmany.Document, bool, error) {
	comps, err := s.def.Components(pk)
	if err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[lookupKey(id, comps)]
	if !ok {
		return nil, false, nil
	}

	return d.doc, true, nil
}

// DocsInRange returns every stored document whose effective partition key
// falls inside r, ordered by key and then id.
func (s *Store) DocsInRange(r routing.PartitionKeyRange) []readmany.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []storedDoc
	for _, d := range s.docs {
		if r.Contains(d.epk) {
			hits = append(hits, d)
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].epk != hits[j].epk {
			return hits[i].epk < hits[j].epk
		}
		return hits[i].id < hits[j].id
	})

	out := make([]readmany.Document, len(hits))
	for i, d := range hits {
		out[i] = d.doc
	}

	return out
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *Store) epkOf(comps []partitionkey.Value) (string, error) {
	v := comps[0]
	if len(comps) > 1 {
		v = partitionkey.List(comps...)
	}
	return partitionkey.EffectiveKey(s.def, v)
}

// lookupKey joins the id and normalized components so that an absent key
// property and an explicit undefined component address the same document.
func lookupKey(id string, comps []partitionkey.Value) string {
	key := id
	for _, c := range comps {
		if !c.IsDefined() {
			c = partitionkey.Undefined()
		}
		key += "\x00" + c.Key()
	}
	return key
}

// QueryCall records one ExecuteQuery invocation.
type QueryCall struct {
	Container string
	Partition string
	Spec      query.Spec
	Options   readmany.RequestOptions
}

// ReadCall records one ReadItem invocation.
type ReadCall struct {
	Container string
	ID        string
	Key       partitionkey.Value
	Options   readmany.RequestOptions
}

// Client is an in-memory transport for the read engine. It serves queries
// and point reads from a Store, records every call, and can inject delays,
// failures, and blocking gates. It is safe for concurrent use.
type Client struct {
	// PageSize caps the documents returned per query page. Zero means
	// everything fits in a single page.
	PageSize int

	// ChargePerPage and ChargePerRead are the request charges reported on
	// each query page and each point read.
	ChargePerPage float64
	ChargePerRead float64

	// SessionToken is stamped on every response.
	SessionToken string

	// Jitter is the upper bound for a random delay before each call and
	// each page. Zero disables delays.
	Jitter time.Duration

	store  *Store
	ranges map[string]routing.PartitionKeyRange

	mu         sync.Mutex
	rng        *rand.Rand
	queryCalls []QueryCall
	readCalls  []ReadCall
	queryErrs  map[string]error
	readErrs   map[string]error
	queryGates map[string]<-chan struct{}
}

// NewClient creates a Client serving documents from store, with the given
// ranges as its partition layout.
func NewClient(store *Store, ranges []routing.PartitionKeyRange) *Client {
	byID := make(map[string]routing.PartitionKeyRange, len(ranges))
	for _, r := range ranges {
		byID[r.ID] = r
	}

	return &Client{
		store:      store,
		ranges:     byID,
		rng:        rand.New(rand.NewSource(4711)),
		queryErrs:  make(map[string]error),
		readErrs:   make(map[string]error),
		queryGates: make(map[string]<-chan struct{}),
	}
}

// FailQueriesOn makes every query against the given partition fail with err.
func (c *Client) FailQueriesOn(partitionID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queryErrs[partitionID] = err
}

// FailReadsOn makes every point read of the given item id fail with err.
func (c *Client) FailReadsOn(itemID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErrs[itemID] = err
}

// HoldQueriesOn blocks queries against the given partition until release is
// closed or the call's context is done.
func (c *Client) HoldQueriesOn(partitionID string, release <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queryGates[partitionID] = release
}

// Queries returns a copy of the recorded query calls.
func (c *Client) Queries() []QueryCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]QueryCall, len(c.queryCalls))
	copy(out, c.queryCalls)
	return out
}

// Reads returns a copy of the recorded point-read calls.
func (c *Client) Reads() []ReadCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ReadCall, len(c.readCalls))
	copy(out, c.readCalls)
	return out
}

// ExecuteQuery implements readmany.QueryExecutor.
func (c *Client) ExecuteQuery(ctx context.Context, container string, spec query.Spec, partitionID string, opts readmany.RequestOptions) (readmany.Pager, error) {
	c.mu.Lock()
	c.queryCalls = append(c.queryCalls, QueryCall{Container: container, Partition: partitionID, Spec: spec, Options: opts})
	gate := c.queryGates[partitionID]
	failure := c.queryErrs[partitionID]
	r, known := c.ranges[partitionID]
	c.mu.Unlock()

	if err := c.pause(ctx); err != nil {
		return nil, err
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if failure != nil {
		return nil, failure
	}

	if !known {
		return nil, fmt.Errorf("testutil: unknown partition %q", partitionID)
	}

	return &pager{
		client: c,
		docs:   c.store.DocsInRange(r),
		meta: readmany.Metadata{
			RequestCharge: c.ChargePerPage,
			SessionToken:  c.SessionToken,
			ActivityID:    opts.ActivityID,
			Requests:      1,
		},
	}, nil
}

// ReadItem implements readmany.PointReadExecutor.
func (c *Client) ReadItem(ctx context.Context, container string, itemID string, pk partitionkey.Value, opts readmany.RequestOptions) (readmany.Document, readmany.Metadata, error) {
	c.mu.Lock()
	c.readCalls = append(c.readCalls, ReadCall{Container: container, ID: itemID, Key: pk, Options: opts})
	failure := c.readErrs[itemID]
	c.mu.Unlock()

	md := readmany.Metadata{
		RequestCharge: c.ChargePerRead,
		SessionToken:  c.SessionToken,
		ActivityID:    opts.ActivityID,
		Requests:      1,
	}

	if err := c.pause(ctx); err != nil {
		return nil, readmany.Metadata{}, err
	}

	if failure != nil {
		return nil, readmany.Metadata{}, failure
	}

	doc, ok, err := c.store.Get(itemID, pk)
	if err != nil {
		return nil, readmany.Metadata{}, err
	}
	if !ok {
		return nil, md, readmany.ErrNotFound
	}

	return doc, md, nil
}

func (c *Client) pause(ctx context.Context) error {
	if c.Jitter <= 0 {
		return nil
	}

	c.mu.Lock()
	d := time.Duration(c.rng.Int63n(int64(c.Jitter)))
	c.mu.Unlock()

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pager pages through a fixed document slice. An empty result still costs
// one page, the way a real query round trip does.
type pager struct {
	client *Client

	mu   sync.Mutex
	docs []readmany.Document
	meta readmany.Metadata
	done bool
}

func (p *pager) More() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.done
}

func (p *pager) NextPage(ctx context.Context) (readmany.Page, error) {
	if err := p.client.pause(ctx); err != nil {
		return readmany.Page{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return readmany.Page{}, errors.New("testutil: NextPage called after the final page")
	}

	n := len(p.docs)
	if p.client.PageSize > 0 && n > p.client.PageSize {
		n = p.client.PageSize
	}

	page := readmany.Page{Documents: p.docs[:n], Metadata: p.meta}
	p.docs = p.docs[n:]
	p.done = len(p.docs) == 0

	return page, nil
}
