// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/ewm-stats/internal/logging"
	"github.com/tomtom215/ewm-stats/internal/models"
	"github.com/tomtom215/ewm-stats/internal/validation"
)

// sanitizeLogValue replaces control characters so request data cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// respondJSON writes response as JSON with the given status.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondData writes a success envelope.
func respondData(w http.ResponseWriter, r *http.Request, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:     time.Now().UTC(),
			QueryTimeMS:   time.Since(start).Milliseconds(),
			CorrelationID: logging.CorrelationIDFromContext(r.Context()),
		},
	})
}

// respondError writes an error envelope. err, when set, is logged but not
// returned to the caller.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", sanitizeLogValue(code)).Str("error", sanitizeLogValue(err.Error())).Msg("API Error")
	}
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}

// respondAPIError writes a prepared APIError with status 400.
func respondAPIError(w http.ResponseWriter, apiErr *models.APIError) {
	respondJSON(w, http.StatusBadRequest, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    apiErr,
	})
}

// respondQueryError maps an engine failure to a status code.
func respondQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		respondError(w, http.StatusGatewayTimeout, "QUERY_TIMEOUT", "Query timed out", err)
		return
	}
	respondError(w, http.StatusInternalServerError, "QUERY_ERROR", "Failed to run query", err)
}

// validateRequest validates v, returning nil or a VALIDATION_ERROR.
func validateRequest(v interface{}) *models.APIError {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr.ToAPIError()
	}
	return nil
}

// invalidParam builds the error for a malformed parameter.
func invalidParam(name, value string) *models.APIError {
	return &models.APIError{
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("%s must be an integer", name),
		Details: map[string]interface{}{"field": name, "value": sanitizeLogValue(value)},
	}
}

// parseInt64 parses a path or query value. An empty value yields def.
func parseInt64(name, value string, def int64) (int64, *models.APIError) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, invalidParam(name, value)
	}
	return n, nil
}

// parseIDList parses a comma-separated id list, skipping empty entries.
func parseIDList(name, value string) ([]int64, *models.APIError) {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, apiErr := parseInt64(name, part, 0)
		if apiErr != nil {
			return nil, apiErr
		}
		ids = append(ids, id)
	}
	return ids, nil
}
