// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"github.com/lc-predictor/ratingpipeline/internal/store"
)

// Handler holds the dependencies shared by every endpoint in this package.
type Handler struct {
	store *store.Store
}

// NewHandler builds a Handler backed by st.
func NewHandler(st *store.Store) *Handler {
	return &Handler{store: st}
}

// defaultPageLimit and maxPageLimit bound the page-size query parameter
// across every paginated endpoint in this package.
const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

func clampLimit(limit int) int64 {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return int64(limit)
}

func clampOffset(offset int) int64 {
	if offset < 0 {
		return 0
	}
	return int64(offset)
}
