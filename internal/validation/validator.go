// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/ewm-stats/internal/models"
)

const errorCode = "VALIDATION_ERROR"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed constraint, named by the field's json tag.
type FieldError struct {
	field   string
	tag     string
	value   interface{}
	message string
}

func (e FieldError) Field() string { return e.field }

func (e FieldError) Tag() string { return e.tag }

func (e FieldError) Error() string { return e.message }

// RequestValidationError collects the failed constraints of one request or
// record.
type RequestValidationError struct {
	errors []FieldError
}

// Errors returns the individual field failures in struct order.
func (ve *RequestValidationError) Errors() []FieldError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve.errors))
	for i, e := range ve.errors {
		msgs[i] = e.message
	}
	return strings.Join(msgs, "; ")
}

// ToAPIError converts the failures to the VALIDATION_ERROR envelope. A
// single failure reports its field directly; several are listed under
// "fields".
func (ve *RequestValidationError) ToAPIError() *models.APIError {
	switch len(ve.errors) {
	case 0:
		return &models.APIError{Code: errorCode, Message: "Validation failed"}
	case 1:
		e := ve.errors[0]
		return &models.APIError{
			Code:    errorCode,
			Message: e.message,
			Details: map[string]interface{}{"field": e.field, "tag": e.tag, "value": e.value},
		}
	}

	fields := make([]map[string]interface{}, len(ve.errors))
	msgs := make([]string, len(ve.errors))
	for i, e := range ve.errors {
		fields[i] = map[string]interface{}{"field": e.field, "tag": e.tag, "message": e.message}
		msgs[i] = e.field + ": " + e.message
	}
	return &models.APIError{
		Code:    errorCode,
		Message: strings.Join(msgs, "; "),
		Details: map[string]interface{}{"fields": fields},
	}
}

// GetValidator returns the process-wide validator with the action_kind tag
// registered and json field names.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
		if err := validate.RegisterValidation("action_kind", isActionKind); err != nil {
			panic(fmt.Sprintf("register action_kind validator: %v", err))
		}
	})
	return validate
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

func isActionKind(fl validator.FieldLevel) bool {
	_, err := models.ParseActionKind(fl.Field().String())
	return err == nil
}

// ValidateStruct validates s and returns nil when every constraint holds.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{errors: []FieldError{{field: "unknown", tag: "unknown", message: err.Error()}}}
	}

	out := make([]FieldError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = FieldError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			value:   fe.Value(),
			message: message(fe),
		}
	}
	return &RequestValidationError{errors: out}
}

// message renders fe for API callers. Only the tags used on request and
// record types have dedicated wording.
func message(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	chars := ""
	if fe.Kind() == reflect.String {
		chars = " characters"
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "action_kind":
		return field + " must be one of ACTION_VIEW, ACTION_REGISTER, ACTION_LIKE"
	case "datetime":
		return field + " must be a valid RFC3339 timestamp"
	case "unique":
		return field + " must not contain duplicates"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "gt", "gtfield":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, chars)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, chars)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
