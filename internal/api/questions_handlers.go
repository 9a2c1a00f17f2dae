// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"
	"strconv"
)

// ListQuestions returns the questions for a contest, or a single question
// looked up by its LeetCode question ID. Exactly one of contest_slug or
// question_id must be given, mirroring the original get_questions XOR
// requirement.
func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	contestSlug := r.URL.Query().Get("contest_slug")
	questionIDParam := r.URL.Query().Get("question_id")

	if (contestSlug == "") == (questionIDParam == "") {
		NewResponseWriter(w, r).BadRequest("exactly one of contest_slug or question_id is required")
		return
	}

	ctx := r.Context()

	if contestSlug != "" {
		questions, err := h.store.ListQuestions(ctx, contestSlug)
		if err != nil {
			NewResponseWriter(w, r).DatabaseError(err)
			return
		}
		NewResponseWriter(w, r).Success(questions)
		return
	}

	questionID, err := strconv.Atoi(questionIDParam)
	if err != nil {
		NewResponseWriter(w, r).BadRequest("question_id must be an integer")
		return
	}

	question, err := h.store.FindQuestionByID(ctx, questionID)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	if question == nil {
		NewResponseWriter(w, r).NotFound("question not found")
		return
	}

	NewResponseWriter(w, r).Success(question)
}
