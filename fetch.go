package squallcache

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// QueryInfo is the query text a Registry resolves a name to.
type QueryInfo struct {
	Query string
}

// Registry maps a query name to its GraphQL query text. The cache core
// never stores query text itself.
type Registry interface {
	Get(name string) (QueryInfo, error)
}

// Request is the prepared GraphQL request a Transport sends.
type Request struct {
	Query     string
	Variables Value
	Headers   http.Header
}

// Transport sends a prepared request and returns the response body as
// UTF-8 text, or an error.
type Transport interface {
	Send(ctx context.Context, req Request) (string, error)
}

// OnResponse is dispatched once per completed fetch effect, routing
// the result back into the host's event loop.
type OnResponse func(name string, variables Value, body string, err error)

// Effect is a detached unit of work produced by the fetch orchestrator;
// the host decides how and when to run it. Running it never
// blocks the Cache value it was produced from — by design, Cache
// operations themselves never suspend.
type Effect func(ctx context.Context)

// MutationResponse is dispatched once an optimistic mutation's effect
// completes. On a transport failure only Err is set. Otherwise Body
// holds the raw response and Data/Err hold the parser's result, so a
// parser error also arrives in Err (with Body populated). The host
// can then pass Body to CommitOptimistic, or call RollbackOptimistic
// on failure.
type MutationResponse[T any] struct {
	MutationID string
	Data       T
	Body       string
	Err        error
}

// OnMutationResponse is dispatched once a mutation effect completes.
type OnMutationResponse[T any] func(MutationResponse[T])

// Fetcher is the fetch orchestrator: it drains a Cache's
// pending-fetch set into transport-invoking effects and builds the
// effect for an optimistic mutation. A Fetcher holds no cache state of
// its own — every method takes the Cache it operates on and returns a
// new one — so a single Fetcher can safely service many Cache values.
type Fetcher struct {
	registry  Registry
	transport Transport
	logger    *zap.Logger
	metrics   Recorder
}

// FetcherOption configures a Fetcher at construction time.
type FetcherOption func(*Fetcher)

// WithFetcherLogger attaches a zap logger for fetch lifecycle events.
func WithFetcherLogger(logger *zap.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = logger }
}

// WithFetcherMetrics attaches a Recorder for fetch instrumentation.
func WithFetcherMetrics(recorder Recorder) FetcherOption {
	return func(f *Fetcher) { f.metrics = recorder }
}

// NewFetcher creates a Fetcher backed by registry and transport.
func NewFetcher(registry Registry, transport Transport, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		registry:  registry,
		transport: transport,
		logger:    zap.NewNop(),
		metrics:   NoopRecorder{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ProcessPending drains c's pending-fetch set into one Effect per
// registered query key:
//  1. snapshot pending_fetches;
//  2. reverse-decode each key and look its name up in the registry;
//     keys whose name isn't registered are silently dropped;
//  3. build one effect per remaining key that sends the request and
//     dispatches onResponse with the result;
//  4. transition every registered queued key to Loading and clear
//     pending_fetches entirely (unregistered keys are simply dropped,
//     never left Loading forever).
func (f *Fetcher) ProcessPending(c *Cache, onResponse OnResponse) (*Cache, []Effect) {
	keys := make([]string, 0, len(c.pendingFetches))
	for key := range c.pendingFetches {
		keys = append(keys, key)
	}

	next := c.clone()
	next.queries = cloneShallow(next.queries)
	next.pendingFetches = map[string]struct{}{}

	headerProvider := c.headerProvider
	clock := c.clock

	effects := make([]Effect, 0, len(keys))
	for _, key := range keys {
		name, variables, err := DecodeQueryKey(key)
		if err != nil {
			continue
		}

		info, err := f.registry.Get(name)
		if err != nil {
			f.logger.Debug("dropping pending fetch for unregistered query", zap.String("query", name))
			continue
		}

		next.queries[key] = loadingEntry(next.queries[key])
		f.metrics.PendingDispatched(name)

		queryText, queryName, queryVars := info.Query, name, variables
		effects = append(effects, func(ctx context.Context) {
			headers := headerProvider()
			start := clock()
			body, sendErr := f.transport.Send(ctx, Request{Query: queryText, Variables: queryVars, Headers: headers})
			elapsed := clock().Sub(start)
			if sendErr != nil {
				f.metrics.FetchFailed(queryName, elapsed)
			} else {
				f.metrics.FetchSucceeded(queryName, elapsed)
			}
			onResponse(queryName, queryVars, body, sendErr)
		})
	}

	return next, effects
}

// loadingEntry returns a copy of entry (or a fresh one) with its
// status transitioned to Loading.
func loadingEntry(entry *QueryEntry) *QueryEntry {
	if entry == nil {
		return &QueryEntry{Status: StatusLoading}
	}
	copied := *entry
	copied.Status = StatusLoading
	return &copied
}

// ExecuteMutation allocates a mutation id, applies updater to the
// overlay immediately, and returns the effect that performs the
// network round trip. The host commits or rolls back the
// mutation once the dispatched MutationResponse arrives. An
// unregistered mutation name is surfaced as an error immediately,
// unlike ProcessPending's silent drop, because this is a direct call
// with no pending-fetch queue to fall back into.
func ExecuteMutation[T any](
	f *Fetcher,
	c *Cache,
	name string,
	variables Value,
	entityKey string,
	updater Updater,
	parser func(string) (T, error),
	onResponse OnMutationResponse[T],
) (*Cache, string, Effect, error) {
	info, err := f.registry.Get(name)
	if err != nil {
		return c, "", nil, fmt.Errorf("%w: %s", ErrQueryNotRegistered, name)
	}

	mutationID := fmt.Sprintf("mutation-%d", c.mutationCounter)
	next := c.clone()
	next.mutationCounter = c.mutationCounter + 1
	next = next.ApplyOptimisticUpdate(mutationID, entityKey, updater)

	headerProvider := c.headerProvider
	effect := func(ctx context.Context) {
		headers := headerProvider()
		body, sendErr := f.transport.Send(ctx, Request{Query: info.Query, Variables: variables, Headers: headers})
		if sendErr != nil {
			onResponse(MutationResponse[T]{MutationID: mutationID, Err: sendErr})
			return
		}
		data, parseErr := parser(body)
		onResponse(MutationResponse[T]{MutationID: mutationID, Data: data, Body: body, Err: parseErr})
	}

	return next, mutationID, effect, nil
}
