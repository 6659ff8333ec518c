package squallcache

import "errors"

// Sentinel errors surfaced by the fetch orchestrator and transport
// boundary. Cache operations themselves never return an error —
// parse and parser failures are represented in-band as QueryResult's
// Failed variant instead.
var (
	// ErrQueryNotRegistered is returned by a Registry when asked for a
	// query name it doesn't know. ProcessPending treats this as a
	// silent drop; ExecuteMutation surfaces it to the caller.
	ErrQueryNotRegistered = errors.New("squallcache: query not registered")

	// ErrUnknownMutation names the case of committing or rolling back a
	// mutation id the overlay has no record of. No function in this
	// package returns it: CommitOptimistic and RollbackOptimistic treat
	// an unknown id as a no-op and return the Cache unchanged. It is
	// exposed for callers that want their own error for that case.
	ErrUnknownMutation = errors.New("squallcache: unknown mutation id")

	// ErrEmptyResponseBody is returned by a Transport implementation
	// when the server responds with a 2xx status but an empty body.
	ErrEmptyResponseBody = errors.New("squallcache: empty response body")

	// ErrNonSuccessStatus is returned by a Transport implementation
	// when the server responds with a non-2xx status.
	ErrNonSuccessStatus = errors.New("squallcache: non-success response status")
)
