// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordAPIRequest tests API request metric recording
func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		endpoint   string
		statusCode string
		duration   time.Duration
	}{
		{
			name:       "successful GET request",
			method:     "GET",
			endpoint:   "/api/v1/contests",
			statusCode: "200",
			duration:   25 * time.Millisecond,
		},
		{
			name:       "not found request",
			method:     "GET",
			endpoint:   "/api/v1/unknown",
			statusCode: "404",
			duration:   2 * time.Millisecond,
		},
		{
			name:       "internal server error",
			method:     "GET",
			endpoint:   "/api/v1/records",
			statusCode: "500",
			duration:   500 * time.Millisecond,
		},
		{
			name:       "rate limited request",
			method:     "GET",
			endpoint:   "/api/v1/questions",
			statusCode: "429",
			duration:   1 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.statusCode))
			RecordAPIRequest(tt.method, tt.endpoint, tt.statusCode, tt.duration)
			after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.statusCode))
			if after != before+1 {
				t.Errorf("APIRequestsTotal = %v, want %v", after, before+1)
			}
		})
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	if got, want := testutil.ToFloat64(APIActiveRequests), before+1; got != want {
		t.Errorf("APIActiveRequests after increment = %v, want %v", got, want)
	}

	TrackActiveRequest(false)
	if got, want := testutil.ToFloat64(APIActiveRequests), before; got != want {
		t.Errorf("APIActiveRequests after decrement = %v, want %v", got, want)
	}
}

func TestTrackActiveRequest_RequestLifecycle(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	defer TrackActiveRequest(false)

	if got, want := testutil.ToFloat64(APIActiveRequests), before+1; got != want {
		t.Errorf("APIActiveRequests mid-request = %v, want %v", got, want)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	const name = "leetcode-test"

	CircuitBreakerState.WithLabelValues(name).Set(1)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues(name)); got != 1 {
		t.Errorf("CircuitBreakerState = %v, want 1", got)
	}

	CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(3)
	if got := testutil.ToFloat64(CircuitBreakerConsecutiveFailures.WithLabelValues(name)); got != 3 {
		t.Errorf("CircuitBreakerConsecutiveFailures = %v, want 3", got)
	}

	before := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues(name, "closed", "open"))
	CircuitBreakerTransitions.WithLabelValues(name, "closed", "open").Inc()
	if got, want := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues(name, "closed", "open")), before+1; got != want {
		t.Errorf("CircuitBreakerTransitions = %v, want %v", got, want)
	}
}

func TestRecordFetcherRequest(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		result string
	}{
		{name: "success", host: "leetcode", result: "success"},
		{name: "failure", host: "leetcode", result: "failure"},
		{name: "exhausted", host: "leetcode", result: "exhausted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(FetcherRequestsTotal.WithLabelValues(tt.host, tt.result))
			RecordFetcherRequest(tt.host, tt.result)
			after := testutil.ToFloat64(FetcherRequestsTotal.WithLabelValues(tt.host, tt.result))
			if after != before+1 {
				t.Errorf("FetcherRequestsTotal = %v, want %v", after, before+1)
			}
		})
	}
}

func TestRecordFetcherRound(t *testing.T) {
	const host = "leetcode"

	beforeRounds := testutil.ToFloat64(FetcherRoundsTotal.WithLabelValues(host))
	beforeCount := testutil.CollectAndCount(FetcherRoundWaitSeconds)

	RecordFetcherRound(host, 2*time.Second)

	if got, want := testutil.ToFloat64(FetcherRoundsTotal.WithLabelValues(host)), beforeRounds+1; got != want {
		t.Errorf("FetcherRoundsTotal = %v, want %v", got, want)
	}
	if got := testutil.CollectAndCount(FetcherRoundWaitSeconds); got < beforeCount {
		t.Errorf("FetcherRoundWaitSeconds lost observations: %d < %d", got, beforeCount)
	}
}

func TestRecordFetcherKeyExhausted(t *testing.T) {
	const host = "leetcode"

	before := testutil.ToFloat64(FetcherKeysExhausted.WithLabelValues(host))
	RecordFetcherKeyExhausted(host)
	after := testutil.ToFloat64(FetcherKeysExhausted.WithLabelValues(host))
	if after != before+1 {
		t.Errorf("FetcherKeysExhausted = %v, want %v", after, before+1)
	}
}

func TestRecordDispatcherTick(t *testing.T) {
	branches := []string{"weekly", "biweekly", "biweekly_skipped", "off_contest"}

	for _, branch := range branches {
		t.Run(branch, func(t *testing.T) {
			before := testutil.ToFloat64(DispatcherTicksTotal.WithLabelValues(branch))
			RecordDispatcherTick(branch)
			after := testutil.ToFloat64(DispatcherTicksTotal.WithLabelValues(branch))
			if after != before+1 {
				t.Errorf("DispatcherTicksTotal[%s] = %v, want %v", branch, after, before+1)
			}
		})
	}
}

func TestRecordCheckpointSkip(t *testing.T) {
	before := testutil.ToFloat64(CheckpointSkippedTotal.WithLabelValues())
	RecordCheckpointSkip()
	after := testutil.ToFloat64(CheckpointSkippedTotal.WithLabelValues())
	if after != before+1 {
		t.Errorf("CheckpointSkippedTotal = %v, want %v", after, before+1)
	}
}

func TestRecordJobPublishedAndConsumed(t *testing.T) {
	const kind = "run_prediction"

	beforePub := testutil.ToFloat64(JobsPublishedTotal.WithLabelValues(kind))
	RecordJobPublished(kind)
	if got, want := testutil.ToFloat64(JobsPublishedTotal.WithLabelValues(kind)), beforePub+1; got != want {
		t.Errorf("JobsPublishedTotal = %v, want %v", got, want)
	}

	beforeOK := testutil.ToFloat64(JobsConsumedTotal.WithLabelValues(kind, "success"))
	RecordJobConsumed(kind, "success")
	if got, want := testutil.ToFloat64(JobsConsumedTotal.WithLabelValues(kind, "success")), beforeOK+1; got != want {
		t.Errorf("JobsConsumedTotal[success] = %v, want %v", got, want)
	}

	beforeFail := testutil.ToFloat64(JobsConsumedTotal.WithLabelValues(kind, "failure"))
	RecordJobConsumed(kind, "failure")
	if got, want := testutil.ToFloat64(JobsConsumedTotal.WithLabelValues(kind, "failure")), beforeFail+1; got != want {
		t.Errorf("JobsConsumedTotal[failure] = %v, want %v", got, want)
	}
}

func TestRecordPipelineStep(t *testing.T) {
	beforeCount := testutil.CollectAndCount(PipelineStepDurationSeconds)
	RecordPipelineStep("save_recent_contests", "success", 3*time.Second)
	if got := testutil.CollectAndCount(PipelineStepDurationSeconds); got < beforeCount {
		t.Errorf("PipelineStepDurationSeconds lost observations: %d < %d", got, beforeCount)
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	const goroutines = 20

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			RecordAPIRequest("GET", "/api/v1/contests", "200", time.Millisecond)
			RecordFetcherRequest("leetcode", "success")
			RecordDispatcherTick("off_contest")
			RecordJobPublished("precache_users")
		}(i)
	}
	wg.Wait()
	// No panics and no data race under -race is the assertion here.
}

func TestMetricsRegistration(t *testing.T) {
	if testutil.CollectAndCount(APIRequestsTotal) < 0 {
		t.Error("APIRequestsTotal should be registered")
	}
	if testutil.CollectAndCount(CircuitBreakerState) < 0 {
		t.Error("CircuitBreakerState should be registered")
	}
	if testutil.CollectAndCount(FetcherRequestsTotal) < 0 {
		t.Error("FetcherRequestsTotal should be registered")
	}
	if testutil.CollectAndCount(DispatcherTicksTotal) < 0 {
		t.Error("DispatcherTicksTotal should be registered")
	}
	if testutil.CollectAndCount(JobsPublishedTotal) < 0 {
		t.Error("JobsPublishedTotal should be registered")
	}
}
