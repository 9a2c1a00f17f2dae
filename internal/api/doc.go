// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package api provides the read-only HTTP query surface over contest rating
data: contests, predicted and archived standings, per-user records, and
the questions that made up each contest.

Key Components:

  - Router: Chi route configuration and middleware stack integration
  - Handlers: request handlers for each endpoint group
  - Response formatting: standardized JSON envelope with metadata via ResponseWriter
  - Validation: request struct validation via internal/validation

API Categories:

1. Contests (/api/v1/contests):
  - List contests, paginated, newest first
  - Recent contest participation summary

2. Records (/api/v1/contests/{slug}/records, /api/v1/contests/{slug}/archive):
  - Paginated scored standings for a contest, predicted or archived
  - Per-user record lookup
  - Batch predicted-rating lookup across multiple users

3. Questions (/api/v1/questions):
  - Questions for a contest, or by question ID

4. Real-time rank (/api/v1/contests/{slug}/realtime-rank):
  - A single user's rank history snapshots during a live contest

Usage Example:

	import (
	    "github.com/lc-predictor/ratingpipeline/internal/api"
	    "github.com/lc-predictor/ratingpipeline/internal/store"
	)

	st, _ := store.New(ctx, config)
	handler := api.NewHandler(st)
	router := api.NewRouter(handler, nil)

	http.ListenAndServe(":8080", router)

Thread Safety:

All handlers are thread-safe and designed for concurrent request handling;
the underlying store holds its own connection pool.

See Also:

  - internal/store: Mongo-backed data access layer
  - internal/models: Domain data structures
  - internal/validation: Request struct validation
*/
package api
