// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lc-predictor/ratingpipeline/internal/models"
	"github.com/lc-predictor/ratingpipeline/internal/store"
)

// listRecordsRequest paginates a contest's scored standings, predicted or
// archived depending on which handler calls it.
type listRecordsRequest struct {
	Limit  int `validate:"min=0,max=500"`
	Offset int `validate:"min=0"`
}

// ListPredictRecords returns a rank-sorted page of the contest's predicted
// standings.
func (h *Handler) ListPredictRecords(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	req := listRecordsRequest{
		Limit:  getIntParam(r, "limit", defaultPageLimit),
		Offset: getIntParam(r, "offset", 0),
	}
	if message, details := validateRequest(req); message != "" {
		NewResponseWriter(w, r).BadRequestWithDetails(message, details)
		return
	}

	ctx := r.Context()
	limit := clampLimit(req.Limit)
	offset := clampOffset(req.Offset)

	records, err := h.store.ListPredictRecordsPage(ctx, slug, offset, limit)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	total, err := h.store.CountPredictRecords(ctx, slug)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	NewResponseWriter(w, r).SuccessWithPagination(records, &PaginationMeta{
		Total:   total,
		Count:   len(records),
		Offset:  int(offset),
		Limit:   int(limit),
		HasMore: offset+int64(len(records)) < total,
	})
}

// ListArchiveRecords returns a rank-sorted page of the contest's final,
// archived standings.
func (h *Handler) ListArchiveRecords(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	req := listRecordsRequest{
		Limit:  getIntParam(r, "limit", defaultPageLimit),
		Offset: getIntParam(r, "offset", 0),
	}
	if message, details := validateRequest(req); message != "" {
		NewResponseWriter(w, r).BadRequestWithDetails(message, details)
		return
	}

	ctx := r.Context()
	limit := clampLimit(req.Limit)
	offset := clampOffset(req.Offset)

	records, err := h.store.ListArchiveRecordsPage(ctx, slug, offset, limit)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	total, err := h.store.CountArchiveRecords(ctx, slug)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	NewResponseWriter(w, r).SuccessWithPagination(records, &PaginationMeta{
		Total:   total,
		Count:   len(records),
		Offset:  int(offset),
		Limit:   int(limit),
		HasMore: offset+int64(len(records)) < total,
	})
}

// GetUserRecord returns one participant's standing for a contest. The
// archive query parameter picks the archived row over the transient
// predicted one, the same toggle the original records API exposed.
func (h *Handler) GetUserRecord(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	username := chi.URLParam(r, "username")
	ctx := r.Context()

	if r.URL.Query().Get("archive") == "true" {
		record, err := h.store.FindUserArchiveRecord(ctx, slug, username)
		if err != nil {
			NewResponseWriter(w, r).DatabaseError(err)
			return
		}
		if record == nil {
			NewResponseWriter(w, r).NotFound("no archived record for this user")
			return
		}
		NewResponseWriter(w, r).Success(record)
		return
	}

	record, err := h.store.FindUserPredictRecord(ctx, slug, username)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	if record == nil {
		NewResponseWriter(w, r).NotFound("no predicted record for this user")
		return
	}
	NewResponseWriter(w, r).Success(record)
}

// batchPredictedRatingsRequest is the request body for BatchPredictedRatings.
// Usernames is capped at 26, the limit the original batch endpoint enforced
// to keep one lookup burst bounded.
type batchPredictedRatingsRequest struct {
	Region    string   `json:"region" validate:"required,oneof=us cn"`
	Usernames []string `json:"usernames" validate:"required,min=1,max=26,dive,required"`
}

// BatchPredictedRatings looks up predicted rating movement for a batch of
// users in one contest, preserving the request's ordering in the response.
func (h *Handler) BatchPredictedRatings(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req batchPredictedRatingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		NewResponseWriter(w, r).BadRequest("invalid request body")
		return
	}
	if message, details := validateRequest(req); message != "" {
		NewResponseWriter(w, r).BadRequestWithDetails(message, details)
		return
	}

	region := models.DataRegion(req.Region)
	users := make([]store.UserRef, len(req.Usernames))
	for i, username := range req.Usernames {
		users[i] = store.UserRef{Region: region, Username: username}
	}

	ratings, err := h.store.BatchPredictedRatings(r.Context(), slug, users)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	NewResponseWriter(w, r).Success(ratings)
}

// GetRealTimeRank returns one participant's rank-vector snapshots from a
// live contest replay.
func (h *Handler) GetRealTimeRank(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	region := models.DataRegion(r.URL.Query().Get("region"))
	username := r.URL.Query().Get("username")

	if region == "" || username == "" {
		NewResponseWriter(w, r).BadRequest("region and username query parameters are required")
		return
	}

	entry, err := h.store.GetRealTimeRank(r.Context(), slug, region, username)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	if entry == nil {
		NewResponseWriter(w, r).NotFound("no real-time rank recorded for this user")
		return
	}

	NewResponseWriter(w, r).Success(entry)
}
