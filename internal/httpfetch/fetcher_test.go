package httpfetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func handleOK(resp *http.Response) (string, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func TestFetchAllSucceedsOnFirstRound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Query().Get("key")))
	}))
	defer srv.Close()

	f := New(srv.URL, Config{ConcurrentNum: 3, RetryNum: 2, WaitUnit: time.Millisecond})

	requests := []Request[string]{
		{Key: "a", Build: func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?key=a", nil)
		}},
		{Key: "b", Build: func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?key=b", nil)
		}},
	}

	results := FetchAll(context.Background(), f, requests, handleOK)

	if len(results) != 2 {
		t.Fatalf("want 2 results, got %d", len(results))
	}
	if results["a"] == nil || *results["a"] != "a" {
		t.Errorf("key a: got %v", results["a"])
	}
	if results["b"] == nil || *results["b"] != "b" {
		t.Errorf("key b: got %v", results["b"])
	}
}

func TestFetchAllRetriesTransientFailures(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(srv.URL, Config{ConcurrentNum: 1, RetryNum: 5, WaitUnit: time.Millisecond})

	requests := []Request[string]{
		{Key: "only", Build: func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		}},
	}

	results := FetchAll(context.Background(), f, requests, handleOK)

	if results["only"] == nil {
		t.Fatalf("want eventual success, got nil result")
	}
	if *results["only"] != "ok" {
		t.Errorf("got %q, want %q", *results["only"], "ok")
	}
	if atomic.LoadInt32(&calls) < 3 {
		t.Errorf("expected at least 3 attempts, got %d", calls)
	}
}

func TestFetchAllDropsKeyAfterRetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(srv.URL, Config{ConcurrentNum: 1, RetryNum: 2, WaitUnit: time.Millisecond, BreakerMaxFailures: 1000})

	requests := []Request[string]{
		{Key: "doomed", Build: func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		}},
	}

	results := FetchAll(context.Background(), f, requests, handleOK)

	if _, ok := results["doomed"]; !ok {
		t.Fatalf("want an entry for the exhausted key, got none")
	}
	if results["doomed"] != nil {
		t.Errorf("want nil result for exhausted key, got %v", *results["doomed"])
	}
}

func TestFetchAllReturnsOneEntryPerKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	f := New(srv.URL, Config{ConcurrentNum: 2, RetryNum: 3, WaitUnit: time.Millisecond})

	keys := []string{"a", "b", "c", "d", "e"}
	requests := make([]Request[string], len(keys))
	for i, k := range keys {
		k := k
		requests[i] = Request[string]{Key: k, Build: func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		}}
	}

	results := FetchAll(context.Background(), f, requests, handleOK)

	if len(results) != len(keys) {
		t.Fatalf("want %d results, got %d", len(keys), len(results))
	}
	for _, k := range keys {
		if _, ok := results[k]; !ok {
			t.Errorf("missing result for key %q", k)
		}
	}
}

func TestFetchAllHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := New(srv.URL, Config{ConcurrentNum: 1, RetryNum: 1000, WaitUnit: 50 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 75*time.Millisecond)
	defer cancel()

	requests := []Request[string]{
		{Key: "slow", Build: func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		}},
	}

	start := time.Now()
	results := FetchAll(ctx, f, requests, handleOK)
	if time.Since(start) > 2*time.Second {
		t.Fatalf("FetchAll did not return promptly after context cancellation")
	}
	if _, ok := results["slow"]; !ok {
		t.Errorf("want an entry for the in-flight key after cancellation")
	}
}
