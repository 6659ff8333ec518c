// Package squallcache is a normalized GraphQL client cache with optimistic
// mutation support. It sits between a view layer and a GraphQL HTTP
// endpoint: queries are answered from a local store when possible, misses
// are turned into deduplicated network effects, responses are normalized
// into entities addressed by a stable key, and every read is denormalized
// against the latest known entity state so a mutation to one entity is
// reflected in every query that referenced it.
//
// The package itself never performs I/O. It consumes three small
// interfaces supplied by the host: Registry (query name -> query text),
// Transport (send a prepared request, get a response body), and a parser
// callback per query (response body -> typed data). Concrete
// implementations of Registry and Transport live in the sibling registry
// and transport packages.
package squallcache
