package squallcache

import "github.com/bytedance/sonic"

// Status is the lookup state machine's current state for a query key:
// Loading, Fresh, or Stale.
type Status int

const (
	StatusLoading Status = iota
	StatusFresh
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "Loading"
	case StatusFresh:
		return "Fresh"
	case StatusStale:
		return "Stale"
	default:
		return "Unknown"
	}
}

// QueryEntry is the per-query record the cache keeps. The response is
// kept in memory as a skeleton tree (Skeleton); round-trip preservation (not byte
// identity) is the only contract a caller should rely on.
type QueryEntry struct {
	Skeleton    Value
	RawBody     string // verbatim response body when it failed to parse as JSON
	ParseFailed bool
	Timestamp   int64
	Status      Status
}

// ResultKind tags a QueryResult's variant.
type ResultKind int

const (
	ResultLoading ResultKind = iota
	ResultFailed
	ResultData
)

// QueryResult is the tagged Loading | Failed(message) | Data(T)
// produced by a call to Lookup.
type QueryResult[T any] struct {
	Kind    ResultKind
	Data    T
	Message string
}

func loadingResult[T any]() QueryResult[T] {
	return QueryResult[T]{Kind: ResultLoading}
}

func failedResult[T any](message string) QueryResult[T] {
	return QueryResult[T]{Kind: ResultFailed, Message: message}
}

func dataResult[T any](data T) QueryResult[T] {
	return QueryResult[T]{Kind: ResultData, Data: data}
}

// MarkLoading transitions a query key to Loading, from any prior state.
func (c *Cache) MarkLoading(name string, variables Value) *Cache {
	key := QueryKey(name, variables)
	next := c.clone()
	entry := next.queries[key]
	if entry == nil {
		entry = &QueryEntry{}
	} else {
		copied := *entry
		entry = &copied
	}
	entry.Status = StatusLoading
	next.queries = cloneShallow(next.queries)
	next.queries[key] = entry
	return next
}

// MarkStale transitions an existing Fresh query entry to Stale. A
// missing entry is left absent; only a Fresh -> Stale transition is defined.
func (c *Cache) MarkStale(name string, variables Value) *Cache {
	key := QueryKey(name, variables)
	entry, ok := c.queries[key]
	if !ok || entry.Status != StatusFresh {
		return c
	}
	next := c.clone()
	copied := *entry
	copied.Status = StatusStale
	next.queries = cloneShallow(next.queries)
	next.queries[key] = &copied
	return next
}

// Invalidate removes a query's entry entirely.
func (c *Cache) Invalidate(name string, variables Value) *Cache {
	key := QueryKey(name, variables)
	if _, ok := c.queries[key]; !ok {
		return c
	}
	next := c.clone()
	next.queries = cloneShallow(next.queries)
	delete(next.queries, key)
	return next
}

// Clear removes every query entry and pending fetch. Entities and the
// optimistic overlay are untouched: an Entity is never deleted
// and an overlay entry is only removed by commit/rollback of its
// mutation, so Clear resets the query table without violating either
// lifecycle.
func (c *Cache) Clear() *Cache {
	next := c.clone()
	next.queries = EntityQueryTable{}
	next.pendingFetches = map[string]struct{}{}
	return next
}

// StoreQuery parses body and stores the result as a Fresh entry.
// On successful parse, entities are extracted and
// merged into the base entity table; the normalized skeleton is
// stored. On parse failure, the raw body is stored instead so a later
// Lookup can still surface a Failed result via the parser.
func (c *Cache) StoreQuery(name string, variables Value, body string, timestamp int64) *Cache {
	key := QueryKey(name, variables)
	next := c.clone()

	var tree Value
	if err := sonic.UnmarshalString(body, &tree); err != nil {
		next.queries = cloneShallow(next.queries)
		next.queries[key] = &QueryEntry{
			RawBody:     body,
			ParseFailed: true,
			Timestamp:   timestamp,
			Status:      StatusFresh,
		}
		return next
	}

	entities, skeleton := Normalize(tree)
	next.entities = mergeTables(next.entities, entities)
	next.queries = cloneShallow(next.queries)
	next.queries[key] = &QueryEntry{
		Skeleton:  skeleton,
		Timestamp: timestamp,
		Status:    StatusFresh,
	}
	return next
}

// Lookup answers a query from the cache:
//   - entry absent: the key is queued into pending fetches and Loading
//     is returned.
//   - entry Loading: Loading is returned unchanged.
//   - entry Fresh or Stale: the stored skeleton is denormalized against
//     overlay-then-base, serialized, and handed to parser; a parser
//     error surfaces as Failed("Parse error: " + msg).
func Lookup[T any](c *Cache, name string, variables Value, parser func(string) (T, error)) (*Cache, QueryResult[T]) {
	key := QueryKey(name, variables)
	entry, ok := c.queries[key]
	if !ok {
		c.metrics.CacheMiss(name)
		return c.withPendingFetch(key), loadingResult[T]()
	}
	if entry.Status == StatusLoading {
		return c, loadingResult[T]()
	}
	c.metrics.CacheHit(name)

	var serialized string
	if entry.ParseFailed {
		serialized = entry.RawBody
	} else {
		tree := Denormalize(entry.Skeleton, c.optimisticEntities, c.entities)
		data, err := sonic.MarshalString(tree)
		if err != nil {
			return c, failedResult[T]("Parse error: " + err.Error())
		}
		serialized = data
	}

	data, err := parser(serialized)
	if err != nil {
		return c, failedResult[T]("Parse error: " + err.Error())
	}
	return c, dataResult(data)
}

// withPendingFetch adds key to the pending-fetch set.
func (c *Cache) withPendingFetch(key string) *Cache {
	if _, ok := c.pendingFetches[key]; ok {
		return c
	}
	next := c.clone()
	next.pendingFetches = cloneShallow(next.pendingFetches)
	next.pendingFetches[key] = struct{}{}
	return next
}
