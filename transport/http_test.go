package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	squallcache "github.com/bigmoves/squall-cache"
)

func TestHTTPTransport_SendsQueryAndReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":{"message":"hi"}}`))
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(server.URL, nil)
	if err != nil {
		t.Fatalf("NewHTTPTransport: %v", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer token")
	body, err := tr.Send(context.Background(), squallcache.Request{
		Query:     "query Greeting { message }",
		Variables: nil,
		Headers:   headers,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if body != `{"data":{"message":"hi"}}` {
		t.Errorf("body = %q", body)
	}
}

func TestHTTPTransport_NonSuccessStatusWrapsSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	tr, _ := NewHTTPTransport(server.URL, nil)
	_, err := tr.Send(context.Background(), squallcache.Request{Query: "query {}"})
	if !errors.Is(err, squallcache.ErrNonSuccessStatus) {
		t.Fatalf("err = %v, want an error wrapping ErrNonSuccessStatus for a 500 response", err)
	}
}

func TestHTTPTransport_EmptyBodyIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr, _ := NewHTTPTransport(server.URL, nil)
	_, err := tr.Send(context.Background(), squallcache.Request{Query: "query {}"})
	if err != squallcache.ErrEmptyResponseBody {
		t.Errorf("err = %v, want ErrEmptyResponseBody", err)
	}
}

func TestRetryingTransport_RetriesUntilSuccess(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	inner, _ := NewHTTPTransport(server.URL, nil)
	retrying := NewRetryingTransport(inner, 2*time.Second)

	body, err := retrying.Send(context.Background(), squallcache.Request{Query: "query {}"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if body != `{"data":{}}` {
		t.Errorf("body = %q", body)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}
