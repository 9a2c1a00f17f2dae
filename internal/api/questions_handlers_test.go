//go:build integration

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lc-predictor/ratingpipeline/internal/models"
)

func TestListQuestions_RequiresExactlyOneFilter(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/questions", nil)
	w := httptest.NewRecorder()
	h.ListQuestions(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("no filter: status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/questions?contest_slug=x&question_id=1", nil)
	w = httptest.NewRecorder()
	h.ListQuestions(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("both filters: status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestListQuestions_ByContestSlug(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	questions := []models.Question{
		{ContestSlug: "weekly-contest-406", QuestionID: 1000, Index: 0, Title: "Two Sum", TitleSlug: "two-sum", Credit: 3},
	}
	if err := h.store.UpsertQuestions(ctx, "weekly-contest-406", questions); err != nil {
		t.Fatalf("seed questions: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/questions?contest_slug=weekly-contest-406", nil)
	w := httptest.NewRecorder()
	h.ListQuestions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestListQuestions_ByQuestionID_NotFound(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/questions?question_id=999999", nil)
	w := httptest.NewRecorder()
	h.ListQuestions(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestListQuestions_InvalidQuestionID(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/questions?question_id=abc", nil)
	w := httptest.NewRecorder()
	h.ListQuestions(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
