// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package instruments:
// - API endpoint latency and throughput
// - Circuit breaker state for outbound fetches
// - The round-based HTTP fetcher
// - The dispatcher tick loop and job queue
// - Pipeline step duration

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// =============================================================================
// HTTP Fetcher Metrics
// =============================================================================

var (
	// FetcherRequestsTotal counts individual request attempts made by the
	// round-based fetcher, by host and outcome.
	FetcherRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_requests_total",
			Help: "Total number of HTTP requests attempted by the round-based fetcher",
		},
		[]string{"host", "result"}, // result: "success", "failure", "exhausted"
	)

	// FetcherRoundsTotal counts dispatch rounds completed, by host.
	FetcherRoundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_rounds_total",
			Help: "Total number of dispatch rounds completed by the round-based fetcher",
		},
		[]string{"host"},
	)

	// FetcherRoundWaitSeconds records the backoff sleep applied before each
	// round's dispatch.
	FetcherRoundWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetcher_round_wait_seconds",
			Help:    "Backoff wait applied before a fetch round's dispatch",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"host"},
	)

	// FetcherKeysExhausted counts keys that were dropped after exhausting
	// their retry budget without a successful response.
	FetcherKeysExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_keys_exhausted_total",
			Help: "Total number of request keys dropped after exhausting retries",
		},
		[]string{"host"},
	)
)

// RecordFetcherRequest records the outcome of a single request attempt.
func RecordFetcherRequest(host, result string) {
	FetcherRequestsTotal.WithLabelValues(host, result).Inc()
}

// RecordFetcherRound records completion of one dispatch round and the wait
// that preceded it.
func RecordFetcherRound(host string, wait time.Duration) {
	FetcherRoundsTotal.WithLabelValues(host).Inc()
	FetcherRoundWaitSeconds.WithLabelValues(host).Observe(wait.Seconds())
}

// RecordFetcherKeyExhausted records a key dropped after exhausting retries.
func RecordFetcherKeyExhausted(host string) {
	FetcherKeysExhausted.WithLabelValues(host).Inc()
}

// =============================================================================
// Dispatcher and Job Queue Metrics
// =============================================================================

var (
	// DispatcherTicksTotal counts dispatch-tick decisions, by the branch
	// taken (weekly, biweekly, biweekly_skipped, off_contest).
	DispatcherTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_ticks_total",
			Help: "Total number of dispatch ticks by decision branch",
		},
		[]string{"branch"},
	)

	// CheckpointSkippedTotal counts ticks the checkpoint store rejected as
	// already handled, the debounce path working as intended.
	CheckpointSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkpoint_ticks_skipped_total",
			Help: "Total number of ticks skipped because the minute was already recorded as handled",
		},
		[]string{},
	)

	// JobsPublishedTotal counts jobs handed to the job queue, by kind.
	JobsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobqueue_published_total",
			Help: "Total number of jobs published to the job queue, by kind",
		},
		[]string{"kind"},
	)

	// JobsConsumedTotal counts jobs a consumer finished handling, by kind
	// and outcome.
	JobsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobqueue_consumed_total",
			Help: "Total number of jobs consumed from the job queue, by kind and outcome",
		},
		[]string{"kind", "result"}, // result: "success", "failure"
	)

	// PipelineStepDurationSeconds records the wall time of each named
	// pipeline step (the sequence-level steps wrapped by Instrument).
	PipelineStepDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_step_duration_seconds",
			Help:    "Duration of a named pipeline step",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"step", "result"},
	)
)

// RecordDispatcherTick records a dispatch tick's decision branch.
func RecordDispatcherTick(branch string) {
	DispatcherTicksTotal.WithLabelValues(branch).Inc()
}

// RecordCheckpointSkip records a tick skipped by the checkpoint debounce.
func RecordCheckpointSkip() {
	CheckpointSkippedTotal.WithLabelValues().Inc()
}

// RecordJobPublished records a job handed to the job queue.
func RecordJobPublished(kind string) {
	JobsPublishedTotal.WithLabelValues(kind).Inc()
}

// RecordJobConsumed records a job a consumer finished handling.
func RecordJobConsumed(kind, result string) {
	JobsConsumedTotal.WithLabelValues(kind, result).Inc()
}

// RecordPipelineStep records a named pipeline step's duration and outcome.
func RecordPipelineStep(step, result string, duration time.Duration) {
	PipelineStepDurationSeconds.WithLabelValues(step, result).Observe(duration.Seconds())
}
