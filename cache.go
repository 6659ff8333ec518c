package squallcache

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// EntityQueryTable maps a query key to its current entry.
type EntityQueryTable map[string]*QueryEntry

// HeaderProvider returns the headers to attach to an outgoing request,
// invoked at effect-execution time so host-side credential changes
// take effect without reconstructing the Cache.
type HeaderProvider func() http.Header

// Clock returns the current time, injected so the Fetcher's fetch
// latency measurements are deterministic in tests. StoreQuery does not
// consult it; it takes an explicit timestamp.
type Clock func() time.Time

// Recorder receives cache lifecycle events for ambient instrumentation
// (cache hits/misses, dispatched fetches, optimistic commits). The
// core package depends only on this interface; concrete
// implementations (e.g. Prometheus-backed) live in the metrics
// package so squallcache itself never imports a metrics library.
type Recorder interface {
	CacheHit(queryName string)
	CacheMiss(queryName string)
	PendingDispatched(queryName string)
	FetchSucceeded(queryName string, elapsed time.Duration)
	FetchFailed(queryName string, elapsed time.Duration)
	OptimisticApplied(mutationID string)
	OptimisticCommitted(mutationID string)
	OptimisticRolledBack(mutationID string)
}

// NoopRecorder is the zero-value Recorder: every event is discarded.
type NoopRecorder struct{}

func (NoopRecorder) CacheHit(string)                      {}
func (NoopRecorder) CacheMiss(string)                     {}
func (NoopRecorder) PendingDispatched(string)             {}
func (NoopRecorder) FetchSucceeded(string, time.Duration) {}
func (NoopRecorder) FetchFailed(string, time.Duration)    {}
func (NoopRecorder) OptimisticApplied(string)             {}
func (NoopRecorder) OptimisticCommitted(string)           {}
func (NoopRecorder) OptimisticRolledBack(string)          {}

// Cache is the immutable cache value: the base entity
// table, the optimistic overlay, the mutation ledger, the query table,
// and the pending-fetch set. Every operation returns a new *Cache; the
// value a caller already holds is never observably mutated by another
// caller's use of an operation's result — squall-cache implements this
// as "copy the top-level map that changed, share the rest" rather than
// a fully persistent tree.
type Cache struct {
	endpoint            string
	entities            EntityTable
	optimisticEntities  EntityTable
	optimisticMutations map[string]string // mutation id -> entity key
	queries             EntityQueryTable
	pendingFetches      map[string]struct{}
	mutationCounter     int

	headerProvider HeaderProvider
	clock          Clock
	logger         *zap.Logger
	metrics        Recorder
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithHeaderProvider sets the function consulted for request headers
// at effect-execution time.
func WithHeaderProvider(hp HeaderProvider) Option {
	return func(c *Cache) { c.headerProvider = hp }
}

// WithClock overrides the cache's notion of "now", used only by the
// Fetcher (StoreQuery itself takes an explicit timestamp).
func WithClock(clock Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithLogger attaches a zap logger for the fetch orchestrator's
// lifecycle logging. Cache's own operations stay silent and pure.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithMetrics attaches a Recorder for ambient instrumentation.
func WithMetrics(recorder Recorder) Option {
	return func(c *Cache) { c.metrics = recorder }
}

// New creates an empty Cache targeting endpoint.
func New(endpoint string, opts ...Option) *Cache {
	c := &Cache{
		endpoint:            endpoint,
		entities:            EntityTable{},
		optimisticEntities:  EntityTable{},
		optimisticMutations: map[string]string{},
		queries:             EntityQueryTable{},
		pendingFetches:      map[string]struct{}{},
		headerProvider:      func() http.Header { return http.Header{} },
		clock:               time.Now,
		logger:              zap.NewNop(),
		metrics:             NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWithHeaders is a convenience constructor for the common case of
// a cache whose every request needs per-call headers (auth tokens,
// trace ids) computed fresh at dispatch time.
func NewWithHeaders(endpoint string, headerProvider HeaderProvider, opts ...Option) *Cache {
	return New(endpoint, append([]Option{WithHeaderProvider(headerProvider)}, opts...)...)
}

// Endpoint returns the GraphQL endpoint this cache targets.
func (c *Cache) Endpoint() string { return c.endpoint }

// HasPendingMutations reports whether any optimistic mutation is
// currently outstanding.
func (c *Cache) HasPendingMutations() bool {
	return len(c.optimisticMutations) > 0
}

// Snapshot is a read-only debug accessor reporting the cache's
// current size along each dimension, useful for host-side
// observability and metrics scraping. It does not affect any
// invariant.
type Snapshot struct {
	Entities            int
	OptimisticEntities  int
	OptimisticMutations int
	Queries             int
	PendingFetches      int
}

func (c *Cache) Snapshot() Snapshot {
	return Snapshot{
		Entities:            len(c.entities),
		OptimisticEntities:  len(c.optimisticEntities),
		OptimisticMutations: len(c.optimisticMutations),
		Queries:             len(c.queries),
		PendingFetches:      len(c.pendingFetches),
	}
}

// clone returns a shallow copy of c: every map field still points at
// the same underlying map as c until the caller replaces the field it
// intends to change, at which point it must cloneShallow that one map
// before mutating it. This is the "copy on write" discipline every
// mutating method in this package follows.
func (c *Cache) clone() *Cache {
	copied := *c
	return &copied
}
