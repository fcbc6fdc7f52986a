// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

// Package validation wraps go-playground/validator v10 behind a process-wide
// validator instance.
//
// Field names in errors are taken from json tags, so messages match the wire
// names callers sent ("userId is required"). Custom tags:
//
//   - action_kind: string parses with models.ParseActionKind
//
// Typical use in a handler:
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	    return
//	}
package validation
