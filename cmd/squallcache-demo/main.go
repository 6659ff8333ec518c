// Command squallcache-demo exercises squallcache end to end against a
// local GraphQL stub: a settings query and an optimistic "rename domain
// authority" mutation.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"

	squallcache "github.com/bigmoves/squall-cache"
	"github.com/bigmoves/squall-cache/logging"
	"github.com/bigmoves/squall-cache/registry"
	"github.com/bigmoves/squall-cache/transport"
)

type settingsResult struct {
	Data struct {
		Settings struct {
			DomainAuthority string `json:"domainAuthority"`
		} `json:"settings"`
	} `json:"data"`
}

func main() {
	logger := logging.New(logging.Config{Style: logging.StyleLogfmt, Level: "info"})
	defer logger.Sync()

	server := httptest.NewServer(http.HandlerFunc(stubHandler))
	defer server.Close()

	reg := registry.MapRegistry{
		"GetSettings":  "query GetSettings { settings { domainAuthority } }",
		"RenameDomain": "mutation RenameDomain($name: String!) { renameDomain(name: $name) { domainAuthority } }",
	}
	httpTransport, err := transport.NewHTTPTransport(server.URL, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cache := squallcache.New(server.URL)
	fetcher := squallcache.NewFetcher(reg, httpTransport, squallcache.WithFetcherLogger(logger))

	cache, result := squallcache.Lookup(cache, "GetSettings", nil, parseSettings)
	logger.Info("initial lookup", zap.String("correlation_id", uuid.NewString()), zap.Any("kind", result.Kind))

	var effects []squallcache.Effect
	cache, effects = fetcher.ProcessPending(cache, func(name string, variables squallcache.Value, body string, err error) {
		if err != nil {
			logger.Error("fetch failed", zap.String("query", name), zap.Error(err))
			return
		}
		cache = cache.StoreQuery(name, variables, body, 1)
	})
	for _, effect := range effects {
		effect(context.Background())
	}

	cache, result = squallcache.Lookup(cache, "GetSettings", nil, parseSettings)
	logger.Info("lookup after fetch", zap.String("domainAuthority", result.Data.Data.Settings.DomainAuthority))

	updater := func(current map[string]any, found bool) map[string]any {
		next := map[string]any{}
		for k, v := range current {
			next[k] = v
		}
		next["domainAuthority"] = "xyz.statusphere"
		return next
	}

	cache, mutationID, effect, err := squallcache.ExecuteMutation(
		fetcher, cache, "RenameDomain", map[string]any{"name": "xyz.statusphere"}, "Settings:singleton", updater,
		func(body string) (settingsResult, error) {
			var r settingsResult
			err := sonic.UnmarshalString(body, &r)
			return r, err
		},
		func(resp squallcache.MutationResponse[settingsResult]) {
			if resp.Err != nil {
				cache = cache.RollbackOptimistic(resp.MutationID)
				return
			}
			cache = cache.CommitOptimistic(resp.MutationID, resp.Body)
		},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Info("optimistic mutation applied", zap.String("mutation_id", mutationID))
	effect(context.Background())

	_, result = squallcache.Lookup(cache, "GetSettings", nil, parseSettings)
	logger.Info("final lookup", zap.String("domainAuthority", result.Data.Data.Settings.DomainAuthority))
}

func parseSettings(body string) (settingsResult, error) {
	var r settingsResult
	err := sonic.UnmarshalString(body, &r)
	return r, err
}

func stubHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	_ = sonic.NewDecoder(r.Body).Decode(&req)

	w.Header().Set("Content-Type", "application/json")
	switch {
	case req.Query == "query GetSettings { settings { domainAuthority } }":
		w.Write([]byte(`{"data":{"settings":{"__typename":"Settings","id":"singleton","domainAuthority":"fm.teal"}}}`))
	default:
		w.Write([]byte(`{"data":{"renameDomain":{"__typename":"Settings","id":"singleton","domainAuthority":"xyz.statusphere"}}}`))
	}
}
