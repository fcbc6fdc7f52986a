// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package gormstore

import (
	"time"

	"github.com/tomtom215/ewm-stats/internal/models"
)

// UserAction is the user_action row. (user_id, event_id) is unique.
type UserAction struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	UserID     int64     `gorm:"not null;uniqueIndex:idx_user_action_user_event,priority:1;index:idx_user_action_recent,priority:1"`
	EventID    int64     `gorm:"not null;uniqueIndex:idx_user_action_user_event,priority:2;index:idx_user_action_event"`
	Weight     float64   `gorm:"not null"`
	ActionTime time.Time `gorm:"not null;index:idx_user_action_recent,priority:2"`
}

func (UserAction) TableName() string { return "user_action" }

func (u UserAction) toModel() models.UserAction {
	return models.UserAction{UserID: u.UserID, EventID: u.EventID, Weight: u.Weight, Timestamp: u.ActionTime.UTC()}
}

// EventSimilarity is the event_similarity row, stored once per unordered
// pair with EventA < EventB.
type EventSimilarity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	EventA    int64     `gorm:"not null;uniqueIndex:idx_event_similarity_pair,priority:1"`
	EventB    int64     `gorm:"not null;uniqueIndex:idx_event_similarity_pair,priority:2;index:idx_event_similarity_b"`
	Score     float64   `gorm:"not null;index:idx_event_similarity_score"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (EventSimilarity) TableName() string { return "event_similarity" }

func (s EventSimilarity) toModel() models.SimilarityEdge {
	return models.SimilarityEdge{EventA: s.EventA, EventB: s.EventB, Score: s.Score, UpdatedAt: s.UpdatedAt.UTC()}
}
