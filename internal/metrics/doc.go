// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements application instrumentation using the Prometheus
client library, exposing metrics for monitoring API latency, the outbound
fetcher, the dispatcher tick loop, and the job queue.

# Overview

The package provides metrics for:
  - HTTP API request latency and throughput
  - Circuit breaker state transitions on the outbound LeetCode fetcher
  - Round-based fetcher request outcomes
  - Dispatcher tick decisions and checkpoint debounce skips
  - Job queue publish/consume counts
  - Pipeline step duration

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: Active requests (gauge)

Circuit Breaker Metrics (outbound LeetCode fetcher):
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_consecutive_failures: Current streak (gauge)
    Labels: name
  - circuit_breaker_state_transitions_total: State transitions (counter)
    Labels: name, from_state, to_state

Fetcher Metrics:
  - fetcher_requests_total: Request attempts (counter)
    Labels: host, result (success, failure, exhausted)
  - fetcher_rounds_total: Dispatch rounds completed (counter)
    Labels: host
  - fetcher_round_wait_seconds: Backoff wait before each round (histogram)
    Labels: host
  - fetcher_keys_exhausted_total: Keys dropped after exhausting retries (counter)
    Labels: host

Dispatcher and Job Queue Metrics:
  - dispatcher_ticks_total: Dispatch ticks by decision branch (counter)
    Labels: branch (weekly, biweekly, biweekly_skipped, off_contest)
  - checkpoint_ticks_skipped_total: Ticks skipped by checkpoint debounce (counter)
  - jobqueue_published_total: Jobs published (counter)
    Labels: kind
  - jobqueue_consumed_total: Jobs consumed (counter)
    Labels: kind, result (success, failure)
  - pipeline_step_duration_seconds: Named pipeline step duration (histogram)
    Labels: step, result

# Usage Example

Recording a request in the API middleware:

	func MetricsMiddleware(next http.Handler) http.Handler {
	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	        start := time.Now()
	        metrics.TrackActiveRequest(true)
	        defer metrics.TrackActiveRequest(false)

	        rw := &statusWriter{ResponseWriter: w, statusCode: 200}
	        next.ServeHTTP(rw, r)

	        metrics.RecordAPIRequest(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode), time.Since(start))
	    })
	}

Recording a dispatch tick decision:

	metrics.RecordDispatcherTick("weekly")

# Prometheus Configuration

Example prometheus.yml configuration:

	scrape_configs:
	  - job_name: 'ratingpipeline'
	    static_configs:
	      - targets: ['localhost:8080']
	    metrics_path: '/metrics'
	    scrape_interval: 15s

Example PromQL queries:

	# API p95 latency
	histogram_quantile(0.95, rate(api_request_duration_seconds_bucket[5m]))

	# Dispatch ticks skipped by the checkpoint debounce
	rate(checkpoint_ticks_skipped_total[5m])

	# Job consume failure rate by kind
	sum by (kind) (rate(jobqueue_consumed_total{result="failure"}[5m]))

# Cardinality Management

The endpoint label is the request's URL path as received (without the query
string). Path parameters such as a contest slug or username are not collapsed
into route patterns, so each distinct path gets its own series. Status codes
are recorded verbatim rather than bucketed.

# See Also

  - internal/middleware: HTTP middleware with metrics integration
  - internal/httpfetch: Round-based fetcher and circuit breaker
  - internal/dispatcher: Tick loop instrumentation
  - internal/jobqueue: Job queue publish/consume instrumentation
  - internal/pipeline: Pipeline step instrumentation
*/
package metrics
