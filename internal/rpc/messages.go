// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package rpc

import (
	"time"

	"github.com/tomtom215/ewm-stats/internal/models"
)

// UserPredictionsRequest asks for recommendations for one user.
type UserPredictionsRequest struct {
	UserID     int64 `json:"userId" validate:"gt=0"`
	MaxResults int   `json:"maxResults" validate:"gte=0"`
}

// SimilarEventsRequest asks for events similar to EventID that UserID has
// not interacted with.
type SimilarEventsRequest struct {
	EventID    int64 `json:"eventId" validate:"gt=0"`
	UserID     int64 `json:"userId" validate:"gt=0"`
	MaxResults int   `json:"maxResults" validate:"gte=0"`
}

// InteractionsCountRequest asks for the summed weights of a set of events.
type InteractionsCountRequest struct {
	EventIDs []int64 `json:"eventIds" validate:"max=1000,dive,gt=0"`
}

// RecommendedEvent is one streamed result.
type RecommendedEvent struct {
	EventID int64   `json:"eventId"`
	Score   float64 `json:"score"`
}

func fromModel(e models.RecommendedEvent) *RecommendedEvent {
	return &RecommendedEvent{EventID: e.EventID, Score: e.Score}
}

func (e *RecommendedEvent) toModel() models.RecommendedEvent {
	return models.RecommendedEvent{EventID: e.EventID, Score: e.Score}
}

// UserActionRequest is a user action sent to the collector.
type UserActionRequest struct {
	UserID     int64             `json:"userId"`
	EventID    int64             `json:"eventId"`
	ActionType models.ActionKind `json:"actionType"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Empty is the response of unary calls without a result.
type Empty struct{}
