// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package middleware provides HTTP middleware components layered onto the
rating-pipeline API router, alongside the CORS, security-header, and
request-ID middleware defined in internal/api.

Key Components:

  - Compression: gzip compression for responses, skipping WebSocket upgrades
  - Prometheus Metrics: HTTP request/response instrumentation

Usage:

	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression)

Both middlewares are typed as func(http.HandlerFunc) http.HandlerFunc rather
than chi's func(http.Handler) http.Handler; NewRouter adapts them when
building the chi middleware chain.

See Also:

  - internal/api: HTTP handlers and the chi router these middlewares wrap
  - internal/metrics: Prometheus metric definitions recorded by PrometheusMetrics
*/
package middleware
