// Package transport provides default squallcache.Transport
// implementations: a plain HTTP transport and a retrying decorator.
// Neither is imported by the core squallcache package.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"

	squallcache "github.com/bigmoves/squall-cache"
)

// graphQLRequest is the wire body POSTed to the GraphQL endpoint.
type graphQLRequest struct {
	Query     string            `json:"query"`
	Variables squallcache.Value `json:"variables,omitempty"`
}

// HTTPTransport is the default squallcache.Transport: it POSTs a
// {query, variables} body to endpoint and returns the response body
// as text.
type HTTPTransport struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPTransport builds an HTTPTransport targeting endpoint. If
// client is nil, a client with a cookie jar is created so credentialed
// requests (session cookies) survive across calls.
func NewHTTPTransport(endpoint string, client *http.Client) (*HTTPTransport, error) {
	if client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		client = &http.Client{Jar: jar}
	}
	return &HTTPTransport{endpoint: endpoint, httpClient: client}, nil
}

// Send implements squallcache.Transport.
func (t *HTTPTransport) Send(ctx context.Context, req squallcache.Request) (string, error) {
	body, err := sonic.Marshal(graphQLRequest{Query: req.Query, Variables: req.Variables})
	if err != nil {
		return "", fmt.Errorf("marshalling graphql request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for name, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", squallcache.ErrNonSuccessStatus, resp.StatusCode, string(respBody))
	}
	if len(respBody) == 0 {
		return "", squallcache.ErrEmptyResponseBody
	}

	return string(respBody), nil
}

// RetryingTransport decorates a Transport with exponential backoff
// retry, for hosts that want resilience the core deliberately doesn't
// provide: nothing is retried inside the core.
type RetryingTransport struct {
	inner      squallcache.Transport
	maxElapsed time.Duration
}

// NewRetryingTransport wraps inner with exponential backoff, giving up
// after maxElapsed total.
func NewRetryingTransport(inner squallcache.Transport, maxElapsed time.Duration) *RetryingTransport {
	return &RetryingTransport{inner: inner, maxElapsed: maxElapsed}
}

// Send implements squallcache.Transport, retrying on every error the
// inner transport returns until maxElapsed has passed or ctx is done;
// it does not tell transient failures from permanent ones.
func (t *RetryingTransport) Send(ctx context.Context, req squallcache.Request) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = t.maxElapsed

	var body string
	operation := func() error {
		var sendErr error
		body, sendErr = t.inner.Send(ctx, req)
		return sendErr
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return "", err
	}
	return body, nil
}
