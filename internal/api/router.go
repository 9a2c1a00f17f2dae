// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lc-predictor/ratingpipeline/internal/middleware"
)

// asChiMiddleware adapts a func(http.HandlerFunc) http.HandlerFunc middleware
// to chi's func(http.Handler) http.Handler shape.
func asChiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// NewRouter wires the contest/records/questions read endpoints behind the
// standard middleware stack: request-ID logging, CORS, security headers,
// metrics, compression, and endpoint-scoped rate limiting.
func NewRouter(h *Handler, mw *ChiMiddleware) http.Handler {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}

	r := chi.NewRouter()
	r.Use(RequestIDWithLogging())
	r.Use(mw.CORS())
	r.Use(APISecurityHeaders())
	r.Use(E2EDebugLogging())
	r.Use(asChiMiddleware(middleware.PrometheusMetrics))
	r.Use(asChiMiddleware(middleware.Compression))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimitCustom(RateLimitAPI))

		r.Get("/contests", h.ListContests)
		r.With(mw.RateLimitCustom(RateLimitBurst)).Get("/contests/recent", h.RecentContestStats)
		r.Get("/contests/{slug}", h.GetContest)
		r.Get("/contests/{slug}/records", h.ListPredictRecords)
		r.Get("/contests/{slug}/archive", h.ListArchiveRecords)
		r.Get("/contests/{slug}/records/{username}", h.GetUserRecord)
		r.Post("/contests/{slug}/predicted-ratings", h.BatchPredictedRatings)
		r.Get("/contests/{slug}/realtime-rank", h.GetRealTimeRank)
		r.Get("/questions", h.ListQuestions)
	})

	r.With(mw.RateLimitHealth()).Get("/health/live", h.HealthLive)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// HealthLive reports liveness: the process is up and able to answer HTTP
// requests. It does not check the store, unlike a readiness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}
