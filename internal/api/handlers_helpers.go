// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/lc-predictor/ratingpipeline/internal/validation"
)

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
// This includes newlines, carriage returns, tabs, and other control characters that could
// allow attackers to forge log entries or corrupt log files.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// validateRequest validates a struct using go-playground/validator, returning a
// ResponseWriter-compatible error message and details on failure.
func validateRequest(v interface{}) (message string, details interface{}) {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return "", nil
	}
	apiErr := validationErr.ToAPIError()
	return apiErr.Message, apiErr.Details
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// parseCommaSeparatedInts parses a comma-separated string into a slice of integers.
func parseCommaSeparatedInts(value string) []int {
	if value == "" {
		return nil
	}
	var result []int
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if num, err := strconv.Atoi(trimmed); err == nil {
			result = append(result, num)
		}
	}
	return result
}
