// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package models

import (
	"fmt"
	"strings"
	"time"
)

// ActionKind is the type of interaction a user had with an event.
type ActionKind string

const (
	ActionView     ActionKind = "ACTION_VIEW"
	ActionRegister ActionKind = "ACTION_REGISTER"
	ActionLike     ActionKind = "ACTION_LIKE"
)

// Default weights per action kind. They only ever increase from view to like.
const (
	ViewWeight     = 0.4
	RegisterWeight = 0.8
	LikeWeight     = 1.0
)

// ActionWeights maps action kinds to interaction weights.
type ActionWeights struct {
	View     float64
	Register float64
	Like     float64
}

// DefaultActionWeights returns the fixed view/register/like mapping.
func DefaultActionWeights() ActionWeights {
	return ActionWeights{View: ViewWeight, Register: RegisterWeight, Like: LikeWeight}
}

// Weight returns the weight for kind, or false for an unknown kind.
func (w ActionWeights) Weight(kind ActionKind) (float64, bool) {
	switch kind {
	case ActionView:
		return w.View, true
	case ActionRegister:
		return w.Register, true
	case ActionLike:
		return w.Like, true
	default:
		return 0, false
	}
}

// ParseActionKind accepts both the wire form (ACTION_LIKE) and the short
// form (like), case-insensitively.
func ParseActionKind(s string) (ActionKind, error) {
	k := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(k, "ACTION_") {
		k = "ACTION_" + k
	}
	switch ActionKind(k) {
	case ActionView, ActionRegister, ActionLike:
		return ActionKind(k), nil
	}
	return "", fmt.Errorf("unknown action kind %q", s)
}

// UserAction is one row of the weighted-action store: the maximum weight a
// user has shown for an event and when that weight was recorded.
type UserAction struct {
	UserID    int64     `json:"user_id"`
	EventID   int64     `json:"event_id"`
	Weight    float64   `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
}

// WeightChange reports the effect of raising a stored weight.
type WeightChange struct {
	Old     float64
	New     float64
	Changed bool
}

// RaiseResult computes the outcome of offering weight against current, where
// exists reports whether a prior value was stored.
func RaiseResult(current float64, exists bool, weight float64) WeightChange {
	if !exists {
		return WeightChange{Old: 0, New: weight, Changed: true}
	}
	if weight <= current {
		return WeightChange{Old: current, New: current}
	}
	return WeightChange{Old: current, New: weight, Changed: true}
}
