// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package models

import "time"

// SimilarityEdge is the persisted score of an unordered event pair.
// EventA is always the smaller id.
type SimilarityEdge struct {
	EventA    int64     `json:"event_a"`
	EventB    int64     `json:"event_b"`
	Score     float64   `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanonicalPair orders two event ids so the smaller one comes first.
func CanonicalPair(a, b int64) (lo, hi int64) {
	if a <= b {
		return a, b
	}
	return b, a
}

// NewSimilarityEdge builds an edge for (a, b) in canonical order.
func NewSimilarityEdge(a, b int64, score float64, at time.Time) SimilarityEdge {
	lo, hi := CanonicalPair(a, b)
	return SimilarityEdge{EventA: lo, EventB: hi, Score: score, UpdatedAt: at}
}

// Other returns the endpoint of the edge that is not id.
func (e SimilarityEdge) Other(id int64) int64 {
	if e.EventA == id {
		return e.EventB
	}
	return e.EventA
}

// Touches reports whether id is one of the endpoints.
func (e SimilarityEdge) Touches(id int64) bool {
	return e.EventA == id || e.EventB == id
}

// RecommendedEvent is one row of a recommendation, similarity or
// interaction-total result.
type RecommendedEvent struct {
	EventID int64   `json:"event_id"`
	Score   float64 `json:"score"`
}
