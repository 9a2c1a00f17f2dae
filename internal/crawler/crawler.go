// Package crawler adapts the contest/records/question/user-rating endpoints
// that the pipeline polls into typed requests over httpfetch.Fetcher.
package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lc-predictor/ratingpipeline/internal/httpfetch"
	"github.com/lc-predictor/ratingpipeline/internal/models"
)

// usBaseURL and cnBaseURL are vars, not consts, so tests can point them at an
// httptest server instead of stubbing every call site.
var (
	usBaseURL = "https://leetcode.com"
	cnBaseURL = "https://leetcode.cn"
)

func baseURL(region models.DataRegion) string {
	if region == models.RegionCN {
		return cnBaseURL
	}
	return usBaseURL
}

func getRequest(url string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func graphQLRequest(url, query string, variables map[string]any) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
		if err != nil {
			return nil, fmt.Errorf("marshal graphql body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
}

func decodeJSON[T any](resp *http.Response) (T, error) {
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		var zero T
		return zero, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

func readText(resp *http.Response) (string, error) {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	return string(b), nil
}

// fetchSingle dispatches one request through f and returns its decoded
// result, or nil if the request ultimately failed after all retries.
func fetchSingle[R any](ctx context.Context, f *httpfetch.Fetcher, build func(ctx context.Context) (*http.Request, error), handle httpfetch.HandleFunc[R]) *R {
	results := httpfetch.FetchAll(ctx, f, []httpfetch.Request[string]{{Key: "only", Build: build}}, handle)
	return results["only"]
}
