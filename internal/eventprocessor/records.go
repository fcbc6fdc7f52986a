// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/ewm-stats/internal/models"
	"github.com/tomtom215/ewm-stats/internal/validation"
)

// Record is one decoded stream payload: *UserActionRecord or
// *SimilarityRecord.
type Record interface {
	record()
}

// UserActionRecord is the payload of the user actions subject.
type UserActionRecord struct {
	UserID     int64             `json:"userId" validate:"gt=0"`
	EventID    int64             `json:"eventId" validate:"gt=0"`
	ActionType models.ActionKind `json:"actionType" validate:"required,action_kind"`
	Timestamp  time.Time         `json:"timestamp" validate:"required"`
}

func (*UserActionRecord) record() {}

// MessageID identifies the action for broker-side duplicate suppression.
// Resending the same action yields the same id.
func (r *UserActionRecord) MessageID() string {
	return fmt.Sprintf("%d-%d-%s-%d", r.UserID, r.EventID, r.ActionType, r.Timestamp.UnixNano())
}

// UserAction converts the record with the given weights. ok is false for
// an unknown action kind.
func (r *UserActionRecord) UserAction(weights models.ActionWeights) (models.UserAction, bool) {
	w, ok := weights.Weight(r.ActionType)
	if !ok {
		return models.UserAction{}, false
	}
	return models.UserAction{UserID: r.UserID, EventID: r.EventID, Weight: w, Timestamp: r.Timestamp}, true
}

// SimilarityRecord is the payload of the similarity subject.
type SimilarityRecord struct {
	EventA    int64     `json:"eventA" validate:"gt=0"`
	EventB    int64     `json:"eventB" validate:"gtfield=EventA"`
	Score     float64   `json:"score" validate:"gte=0"`
	Timestamp time.Time `json:"timestamp"`
}

func (*SimilarityRecord) record() {}

// NewSimilarityRecord converts an edge.
func NewSimilarityRecord(e models.SimilarityEdge) *SimilarityRecord {
	return &SimilarityRecord{EventA: e.EventA, EventB: e.EventB, Score: e.Score, Timestamp: e.UpdatedAt}
}

// Edge converts the record back to a similarity edge.
func (r *SimilarityRecord) Edge() models.SimilarityEdge {
	return models.SimilarityEdge{EventA: r.EventA, EventB: r.EventB, Score: r.Score, UpdatedAt: r.Timestamp}
}

// ValidateRecord normalizes short action kinds ("like") to the wire form
// and validates r. Failures wrap ErrUnexpectedRecord.
func ValidateRecord(r Record) error {
	if ua, ok := r.(*UserActionRecord); ok {
		kind, err := models.ParseActionKind(string(ua.ActionType))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnexpectedRecord, err)
		}
		ua.ActionType = kind
	}
	if verr := validation.ValidateStruct(r); verr != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedRecord, verr)
	}
	return nil
}

// EncodeRecord validates and marshals a record.
func EncodeRecord(r Record) ([]byte, error) {
	if err := ValidateRecord(r); err != nil {
		return nil, err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

// Codec selects the record type of a payload by subject.
type Codec struct {
	UserActionsSubject string
	SimilaritySubject  string
}

// DefaultCodec uses the default subjects.
func DefaultCodec() Codec {
	return Codec{UserActionsSubject: DefaultUserActionsSubject, SimilaritySubject: DefaultSimilaritySubject}
}

// Decode unmarshals and validates data as the record type of subject. Any
// failure wraps ErrUnexpectedRecord.
func (c Codec) Decode(subject string, data []byte) (Record, error) {
	var rec Record
	switch subject {
	case c.UserActionsSubject:
		rec = &UserActionRecord{}
	case c.SimilaritySubject:
		rec = &SimilarityRecord{}
	default:
		return nil, fmt.Errorf("%w: unknown subject %q", ErrUnexpectedRecord, subject)
	}

	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedRecord, err)
	}
	if err := ValidateRecord(rec); err != nil {
		return nil, err
	}
	return rec, nil
}
