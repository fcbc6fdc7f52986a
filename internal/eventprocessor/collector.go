// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package eventprocessor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ActionPublisher publishes user actions.
type ActionPublisher interface {
	PublishUserAction(ctx context.Context, rec *UserActionRecord) error
}

// Collector accepts user actions from the API surfaces and publishes them
// to the user actions subject.
type Collector struct {
	publisher ActionPublisher
	now       func() time.Time
	logger    zerolog.Logger
}

// NewCollector creates a collector.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCollector(publisher ActionPublisher, logger zerolog.Logger) *Collector {
	return &Collector{
		publisher: publisher,
		now:       time.Now,
		logger:    logger.With().Str("component", "collector").Logger(),
	}
}

// Collect stamps rec with the current time when it has none, then
// validates and publishes it. Validation failures wrap ErrUnexpectedRecord.
func (c *Collector) Collect(ctx context.Context, rec *UserActionRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = c.now().UTC()
	}
	if err := ValidateRecord(rec); err != nil {
		return err
	}
	if err := c.publisher.PublishUserAction(ctx, rec); err != nil {
		c.logger.Error().Err(err).
			Int64("user_id", rec.UserID).
			Int64("event_id", rec.EventID).
			Msg("failed to publish user action")
		return err
	}
	c.logger.Debug().
		Int64("user_id", rec.UserID).
		Int64("event_id", rec.EventID).
		Str("action_type", string(rec.ActionType)).
		Msg("user action collected")
	return nil
}
