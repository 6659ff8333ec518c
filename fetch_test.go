package squallcache

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

type fakeRegistry map[string]string

func (r fakeRegistry) Get(name string) (QueryInfo, error) {
	query, ok := r[name]
	if !ok {
		return QueryInfo{}, ErrQueryNotRegistered
	}
	return QueryInfo{Query: query}, nil
}

type fakeTransport struct {
	body string
	err  error
	reqs []Request
}

func (f *fakeTransport) Send(ctx context.Context, req Request) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.body, f.err
}

func runEffects(effects []Effect) {
	for _, e := range effects {
		e(context.Background())
	}
}

// ProcessPending dispatches one effect per registered pending key and
// transitions it to Loading immediately (not after the effect runs).
func TestProcessPending_DispatchesRegisteredQueriesAndMarksLoading(t *testing.T) {
	c := New("https://example.com/graphql")
	c, _ = Lookup(c, "GetGreeting", nil, parseGreeting)

	registry := fakeRegistry{"GetGreeting": "query GetGreeting { message }"}
	transport := &fakeTransport{body: `{"message":"hi"}`}
	f := NewFetcher(registry, transport)

	var gotName string
	var gotBody string
	next, effects := f.ProcessPending(c, func(name string, variables Value, body string, err error) {
		gotName, gotBody = name, body
		if err != nil {
			t.Errorf("onResponse err = %v, want nil", err)
		}
	})

	if len(effects) != 1 {
		t.Fatalf("effects = %d, want 1", len(effects))
	}
	if len(next.pendingFetches) != 0 {
		t.Error("ProcessPending should drain pendingFetches")
	}
	key := QueryKey("GetGreeting", nil)
	if next.queries[key].Status != StatusLoading {
		t.Errorf("status = %v, want Loading immediately after ProcessPending", next.queries[key].Status)
	}

	runEffects(effects)

	if gotName != "GetGreeting" {
		t.Errorf("onResponse name = %q, want GetGreeting", gotName)
	}
	if gotBody != `{"message":"hi"}` {
		t.Errorf("onResponse body = %q", gotBody)
	}
	if len(transport.reqs) != 1 || transport.reqs[0].Query != "query GetGreeting { message }" {
		t.Errorf("transport.reqs = %#v", transport.reqs)
	}
}

// An unregistered pending key is dropped silently, never marked
// Loading, and produces no effect.
func TestProcessPending_DropsUnregisteredQuerySilently(t *testing.T) {
	c := New("https://example.com/graphql")
	c, _ = Lookup(c, "GetUnknown", nil, parseGreeting)

	f := NewFetcher(fakeRegistry{}, &fakeTransport{})
	next, effects := f.ProcessPending(c, func(string, Value, string, error) {
		t.Error("onResponse should never be called for an unregistered query")
	})

	if len(effects) != 0 {
		t.Fatalf("effects = %d, want 0", len(effects))
	}
	key := QueryKey("GetUnknown", nil)
	if _, ok := next.queries[key]; ok {
		t.Error("unregistered query must not be left in Loading or any other state")
	}
	if len(next.pendingFetches) != 0 {
		t.Error("ProcessPending should still drain the unregistered key out of pendingFetches")
	}
}

func TestProcessPending_HeaderProviderCalledAtEffectTime(t *testing.T) {
	c := New("https://example.com/graphql")
	c, _ = Lookup(c, "GetGreeting", nil, parseGreeting)

	calls := 0
	c.headerProvider = func() http.Header {
		calls++
		h := http.Header{}
		h.Set("Authorization", "Bearer token")
		return h
	}

	registry := fakeRegistry{"GetGreeting": "query GetGreeting { message }"}
	transport := &fakeTransport{body: `{"message":"hi"}`}
	f := NewFetcher(registry, transport)

	_, effects := f.ProcessPending(c, func(string, Value, string, error) {})
	if calls != 0 {
		t.Fatalf("headerProvider called %d times before effect ran, want 0", calls)
	}

	runEffects(effects)
	if calls != 1 {
		t.Errorf("headerProvider called %d times, want 1", calls)
	}
	if got := transport.reqs[0].Headers.Get("Authorization"); got != "Bearer token" {
		t.Errorf("Authorization header = %q", got)
	}
}

func TestProcessPending_TransportErrorPropagatesToOnResponse(t *testing.T) {
	c := New("https://example.com/graphql")
	c, _ = Lookup(c, "GetGreeting", nil, parseGreeting)

	registry := fakeRegistry{"GetGreeting": "query GetGreeting { message }"}
	wantErr := errors.New("network down")
	transport := &fakeTransport{err: wantErr}
	f := NewFetcher(registry, transport)

	var gotErr error
	_, effects := f.ProcessPending(c, func(name string, variables Value, body string, err error) {
		gotErr = err
	})
	runEffects(effects)

	if gotErr != wantErr {
		t.Errorf("onResponse err = %v, want %v", gotErr, wantErr)
	}
}

type likeResult struct {
	Likes int `json:"likes"`
}

func parseLikeResult(body string) (likeResult, error) {
	return likeResult{}, nil
}

// ExecuteMutation applies the optimistic update synchronously and
// returns an effect that performs the network round trip and reports
// back through onResponse.
func TestExecuteMutation_AppliesOptimisticUpdateAndDispatchesEffect(t *testing.T) {
	c := New("https://example.com/graphql")
	c.entities["Post:1"] = map[string]any{"id": "1", "likes": float64(2)}

	registry := fakeRegistry{"LikePost": "mutation LikePost($id: ID!) { likePost(id: $id) { likes } }"}
	transport := &fakeTransport{body: `{"data":{"likePost":{"likes":3}}}`}
	f := NewFetcher(registry, transport)

	updater := func(current map[string]any, found bool) map[string]any {
		return map[string]any{"id": "1", "likes": float64(3)}
	}

	var response MutationResponse[likeResult]
	next, mutationID, effect, err := ExecuteMutation(f, c, "LikePost", map[string]any{"id": "1"}, "Post:1", updater, parseLikeResult,
		func(r MutationResponse[likeResult]) { response = r })
	if err != nil {
		t.Fatalf("ExecuteMutation: %v", err)
	}
	if mutationID == "" {
		t.Fatal("mutationID is empty")
	}

	got, found := lookupEntity("Post:1", next.optimisticEntities, next.entities)
	if !found || got["likes"] != float64(3) {
		t.Errorf("optimistic overlay not applied synchronously: %#v", got)
	}

	effect(context.Background())
	if response.MutationID != mutationID {
		t.Errorf("response.MutationID = %q, want %q", response.MutationID, mutationID)
	}
	if response.Err != nil {
		t.Errorf("response.Err = %v, want nil", response.Err)
	}
}

func TestExecuteMutation_UnregisteredNameSurfacesError(t *testing.T) {
	c := New("https://example.com/graphql")
	f := NewFetcher(fakeRegistry{}, &fakeTransport{})

	_, _, _, err := ExecuteMutation(f, c, "LikePost", nil, "Post:1",
		func(current map[string]any, found bool) map[string]any { return current },
		parseLikeResult,
		func(MutationResponse[likeResult]) {})

	if !errors.Is(err, ErrQueryNotRegistered) {
		t.Errorf("err = %v, want ErrQueryNotRegistered", err)
	}
}

func TestExecuteMutation_AllocatesDistinctMutationIDs(t *testing.T) {
	c := New("https://example.com/graphql")
	registry := fakeRegistry{"LikePost": "mutation LikePost { likePost { likes } }"}
	f := NewFetcher(registry, &fakeTransport{body: `{}`})

	noop := func(current map[string]any, found bool) map[string]any { return current }

	next, id1, _, _ := ExecuteMutation(f, c, "LikePost", nil, "Post:1", noop, parseLikeResult, func(MutationResponse[likeResult]) {})
	_, id2, _, _ := ExecuteMutation(f, next, "LikePost", nil, "Post:2", noop, parseLikeResult, func(MutationResponse[likeResult]) {})

	if id1 == id2 {
		t.Errorf("expected distinct mutation ids, got %q twice", id1)
	}
}
