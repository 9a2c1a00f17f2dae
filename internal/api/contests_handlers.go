// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lc-predictor/ratingpipeline/internal/logging"
)

// listContestsRequest mirrors the original list_contests query: a page of
// contests, optionally including the handful of pre-2015 seed rows that
// predate the pipeline's own rating history.
type listContestsRequest struct {
	Limit           int  `validate:"min=0,max=500"`
	Offset          int  `validate:"min=0"`
	IncludeArchived bool
}

// ListContests returns a page of contests, newest first.
func (h *Handler) ListContests(w http.ResponseWriter, r *http.Request) {
	req := listContestsRequest{
		Limit:           getIntParam(r, "limit", defaultPageLimit),
		Offset:          getIntParam(r, "offset", 0),
		IncludeArchived: r.URL.Query().Get("include_archived") == "true",
	}
	if message, details := validateRequest(req); message != "" {
		NewResponseWriter(w, r).BadRequestWithDetails(message, details)
		return
	}

	ctx := r.Context()
	limit := clampLimit(req.Limit)
	offset := clampOffset(req.Offset)

	contests, err := h.store.ListContestsPage(ctx, req.IncludeArchived, offset, limit)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	total, err := h.store.CountContests(ctx, req.IncludeArchived)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	NewResponseWriter(w, r).SuccessWithPagination(contests, &PaginationMeta{
		Total:   total,
		Count:   len(contests),
		Offset:  int(offset),
		Limit:   int(limit),
		HasMore: offset+int64(len(contests)) < total,
	})
}

// GetContest returns a single contest by slug.
func (h *Handler) GetContest(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	contest, err := h.store.GetContest(r.Context(), slug)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	if contest == nil {
		NewResponseWriter(w, r).NotFound("contest not found")
		return
	}

	NewResponseWriter(w, r).Success(contest)
}

// RecentContestStats returns the last ten contests within the past 60 days
// that have recorded both region participant counts, for a landing-page
// participation summary.
func (h *Handler) RecentContestStats(w http.ResponseWriter, r *http.Request) {
	contests, err := h.store.ListRecentContestStats(r.Context(), time.Now())
	if err != nil {
		logging.Error().Err(err).Msg("list recent contest stats")
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	NewResponseWriter(w, r).Success(contests)
}
