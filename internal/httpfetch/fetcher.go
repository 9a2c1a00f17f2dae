// Package httpfetch drives bounded-concurrency, round-based HTTP requests
// against a single logical host, matching the crawler's patient-retry
// behavior: failed keys are requeued rather than abandoned, and each round's
// dispatch is preceded by a backoff that grows with the previous round's
// failure count.
package httpfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/lc-predictor/ratingpipeline/internal/logging"
	"github.com/lc-predictor/ratingpipeline/internal/metrics"
)

// Config tunes a Fetcher's round size, retry budget, and politeness pacing.
type Config struct {
	// ConcurrentNum bounds how many requests a single round dispatches.
	ConcurrentNum int
	// RetryNum is how many failed attempts a key tolerates before it is
	// dropped and reported as permanently failed.
	RetryNum int
	// RequestTimeout bounds a single HTTP round trip.
	RequestTimeout time.Duration
	// WaitUnit scales the round-wide backoff: a round that saw n failures
	// sleeps n*WaitUnit before the next round dispatches.
	WaitUnit time.Duration
	// UserAgent is sent on every request.
	UserAgent string
	// RateLimitPerSecond caps outbound request rate; zero disables pacing.
	RateLimitPerSecond float64
	// BreakerMaxFailures is the consecutive-failure threshold that trips
	// the per-host circuit breaker; zero uses a default of 5.
	BreakerMaxFailures uint32
	// BreakerOpenTimeout is how long the breaker stays open before
	// allowing a half-open probe; zero uses a default of 30s.
	BreakerOpenTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConcurrentNum <= 0 {
		c.ConcurrentNum = 5
	}
	if c.RetryNum <= 0 {
		c.RetryNum = 10
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.WaitUnit <= 0 {
		c.WaitUnit = time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; rating-pipeline/1.0)"
	}
	return c
}

// Request pairs a request key with the builder for the *http.Request it maps
// to. Key identifies the request for retry bookkeeping and for locating its
// result in FetchAll's returned map; it is typically a username or contest
// slug. Build is called again on every retry, so it must be safe to call more
// than once.
type Request[K comparable] struct {
	Key   K
	Build func(ctx context.Context) (*http.Request, error)
}

// HandleFunc parses a completed, 2xx HTTP response into a typed result.
// Returning an error marks the request as failed, requeuing its key for
// another round. HandleFunc must not close resp.Body; the fetcher does.
type HandleFunc[R any] func(resp *http.Response) (R, error)

// Fetcher drives rounds of bounded-concurrency HTTP requests against one
// logical host. A Fetcher is safe for concurrent use by multiple FetchAll
// calls; its circuit breaker and rate limiter are shared across them.
type Fetcher struct {
	host    string
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// New builds a Fetcher for host (used only for logging/metrics labels and
// the circuit breaker's name).
func New(host string, cfg Config) *Fetcher {
	cfg = cfg.withDefaults()

	var limiter *rate.Limiter
	if cfg.RateLimitPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.ConcurrentNum)
	}

	return &Fetcher{
		host:    host,
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: limiter,
		breaker: newBreaker(host, cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout),
	}
}

// WithConcurrency returns a shallow copy of f whose rounds dispatch n
// requests at a time instead of f's configured default, sharing the same
// client, breaker, and rate limiter. Callers that know a particular batch of
// requests can tolerate more (or less) parallelism than the Fetcher's
// steady-state default use this rather than constructing a second Fetcher.
func (f *Fetcher) WithConcurrency(n int) *Fetcher {
	cp := *f
	if n > 0 {
		cp.cfg.ConcurrentNum = n
	}
	return &cp
}

// FetchAll runs requests to completion: every key either yields a non-nil
// result or, having failed RetryNum times, a nil one. The returned map always
// has exactly one entry per input key.
func FetchAll[K comparable, R any](ctx context.Context, f *Fetcher, requests []Request[K], handle HandleFunc[R]) map[K]*R {
	queue := make([]Request[K], len(requests))
	copy(queue, requests)

	failCount := make(map[K]int, len(requests))
	results := make(map[K]*R, len(requests))

	waitTime := 0
	for len(queue) > 0 {
		if waitTime > 0 {
			select {
			case <-ctx.Done():
				for _, r := range queue {
					results[r.Key] = nil
				}
				return results
			case <-time.After(time.Duration(waitTime) * f.cfg.WaitUnit):
			}
		} else if ctx.Err() != nil {
			for _, r := range queue {
				results[r.Key] = nil
			}
			return results
		}

		batch := make([]Request[K], 0, f.cfg.ConcurrentNum)
		for len(queue) > 0 && len(batch) < f.cfg.ConcurrentNum {
			r := queue[0]
			queue = queue[1:]
			if failCount[r.Key] >= f.cfg.RetryNum {
				logging.Error().Str("host", f.host).Any("key", r.Key).Msg("httpfetch: dropping key after exhausting retries")
				metrics.RecordFetcherKeyExhausted(f.host)
				metrics.RecordFetcherRequest(f.host, "exhausted")
				results[r.Key] = nil
				continue
			}
			batch = append(batch, r)
		}

		if len(batch) == 0 {
			continue
		}

		type outcome struct {
			req    Request[K]
			result *R
			err    error
		}
		outcomes := make([]outcome, len(batch))
		var wg sync.WaitGroup
		for i, r := range batch {
			wg.Add(1)
			go func(i int, r Request[K]) {
				defer wg.Done()
				res, err := fetchOne(ctx, f, r, handle)
				outcomes[i] = outcome{req: r, result: res, err: err}
			}(i, r)
		}
		wg.Wait()

		waitTime = 0
		for _, o := range outcomes {
			if o.err != nil {
				failCount[o.req.Key]++
				waitTime++
				metrics.RecordFetcherRequest(f.host, "failure")
				logging.Debug().Str("host", f.host).Any("key", o.req.Key).Err(o.err).Int("attempt", failCount[o.req.Key]).Msg("httpfetch: request failed, requeuing")
				queue = append(queue, o.req)
			} else {
				results[o.req.Key] = o.result
				metrics.RecordFetcherRequest(f.host, "success")
			}
		}
		metrics.RecordFetcherRound(f.host, time.Duration(waitTime)*f.cfg.WaitUnit)
	}

	return results
}

func fetchOne[K comparable, R any](ctx context.Context, f *Fetcher, req Request[K], handle HandleFunc[R]) (*R, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	httpReq, err := req.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build request for key %v: %w", req.Key, err)
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.breaker.Execute(func() (*http.Response, error) {
		resp, err := f.client.Do(httpReq)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("key %v: %w", req.Key, err)
	}
	defer resp.Body.Close()

	result, err := handle(resp)
	if err != nil {
		return nil, fmt.Errorf("key %v: %w", req.Key, err)
	}
	return &result, nil
}
