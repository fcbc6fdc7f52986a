// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type actionRequest struct {
	UserID     int64  `json:"userId" validate:"required,gt=0"`
	EventID    int64  `json:"eventId" validate:"required,gt=0"`
	ActionType string `json:"actionType" validate:"required,action_kind"`
	Comment    string `json:"comment,omitempty" validate:"max=5"`
}

type pairRequest struct {
	EventA int64   `json:"eventA" validate:"gt=0"`
	EventB int64   `json:"eventB" validate:"gtfield=EventA"`
	Score  float64 `json:"score" validate:"gte=0"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantMsg   string
	}{
		{"valid action", &actionRequest{UserID: 1, EventID: 2, ActionType: "ACTION_LIKE"}, "", ""},
		{"short action kind", &actionRequest{UserID: 1, EventID: 2, ActionType: "view"}, "", ""},
		{"missing user", &actionRequest{EventID: 2, ActionType: "ACTION_VIEW"}, "userId", "userId is required"},
		{"unknown kind", &actionRequest{UserID: 1, EventID: 2, ActionType: "ACTION_SHARE"}, "actionType", "must be one of"},
		{"string too long", &actionRequest{UserID: 1, EventID: 2, ActionType: "like", Comment: "toolong"}, "comment", "at most 5 characters"},
		{"valid pair", &pairRequest{EventA: 1, EventB: 2, Score: 0.5}, "", ""},
		{"reversed pair", &pairRequest{EventA: 3, EventB: 2}, "eventB", "must be greater than EventA"},
		{"negative score", &pairRequest{EventA: 1, EventB: 2, Score: -1}, "score", "greater than or equal to 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.input)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected a validation error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("errors = %v, want one", verr)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("field = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if !strings.Contains(errs[0].Error(), tt.wantMsg) {
				t.Errorf("message %q does not contain %q", errs[0].Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	verr := ValidateStruct(&actionRequest{})
	if verr == nil {
		t.Fatal("expected errors for empty request")
	}
	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q", apiErr.Code)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Fatalf("details = %#v, want three fields", apiErr.Details)
	}
	if !strings.Contains(apiErr.Message, "userId: userId is required") {
		t.Errorf("message = %q", apiErr.Message)
	}

	single := ValidateStruct(&pairRequest{EventA: 5, EventB: 1}).ToAPIError()
	if single.Details["field"] != "eventB" || single.Details["tag"] != "gtfield" {
		t.Errorf("single details = %#v", single.Details)
	}
}
