package httpfetch

import (
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/lc-predictor/ratingpipeline/internal/logging"
	"github.com/lc-predictor/ratingpipeline/internal/metrics"
)

// newBreaker builds a per-host circuit breaker around the raw HTTP round
// trip. It trips on consecutive transport/status failures, not on handler
// parse errors, so a host serving well-formed-but-unexpected payloads never
// opens the circuit by itself.
func newBreaker(host string, maxConsecutiveFailures uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker[*http.Response] {
	if maxConsecutiveFailures == 0 {
		maxConsecutiveFailures = 5
	}
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(host).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(host).Set(0)

	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    host,
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("host", name).
				Str("from", breakerStateString(from)).
				Str("to", breakerStateString(to)).
				Msg("fetcher circuit breaker state change")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, breakerStateString(from), breakerStateString(to)).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})
}

func breakerStateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func breakerStateFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
