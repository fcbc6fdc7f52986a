// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package eventprocessor

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ewm-stats/internal/models"
	"github.com/tomtom215/ewm-stats/internal/similarity"
)

// SimilarityPublisher publishes recomputed similarity edges.
type SimilarityPublisher interface {
	PublishSimilarity(ctx context.Context, rec *SimilarityRecord) error
}

// ActionWriter persists user action weights.
type ActionWriter interface {
	RaiseWeight(ctx context.Context, action models.UserAction) (models.WeightChange, error)
}

// EdgeWriter persists similarity edges.
type EdgeWriter interface {
	UpsertSimilarity(ctx context.Context, edge models.SimilarityEdge) error
}

// AggregatorHandler feeds user actions into the similarity engine and
// publishes every recomputed pair.
type AggregatorHandler struct {
	engine    *similarity.Engine
	publisher SimilarityPublisher
	weights   models.ActionWeights
	logger    zerolog.Logger
}

// NewAggregatorHandler creates the aggregator handler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAggregatorHandler(engine *similarity.Engine, publisher SimilarityPublisher, weights models.ActionWeights, logger zerolog.Logger) *AggregatorHandler {
	return &AggregatorHandler{
		engine:    engine,
		publisher: publisher,
		weights:   weights,
		logger:    logger.With().Str("component", "aggregator").Logger(),
	}
}

// Handle never fails: publish errors are logged and counted, and the edge
// is recovered by replaying the originating action.
func (h *AggregatorHandler) Handle(ctx context.Context, rec Record) error {
	action, ok := toUserAction(rec, h.weights, h.logger)
	if !ok {
		return nil
	}

	_, edges := h.engine.Apply(action.UserID, action.EventID, action.Weight)
	for _, edge := range edges {
		if err := h.publisher.PublishSimilarity(ctx, NewSimilarityRecord(edge)); err != nil {
			h.logger.Error().Err(err).
				Int64("event_a", edge.EventA).
				Int64("event_b", edge.EventB).
				Msg("failed to publish similarity")
		}
	}
	return nil
}

// ActionsHandler stores user action weights for the analyzer.
type ActionsHandler struct {
	store   ActionWriter
	weights models.ActionWeights
	logger  zerolog.Logger
}

// NewActionsHandler creates the analyzer's user action handler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewActionsHandler(store ActionWriter, weights models.ActionWeights, logger zerolog.Logger) *ActionsHandler {
	return &ActionsHandler{store: store, weights: weights, logger: logger.With().Str("component", "analyzer-actions").Logger()}
}

// Handle raises the stored weight. Store errors are returned.
func (h *ActionsHandler) Handle(ctx context.Context, rec Record) error {
	action, ok := toUserAction(rec, h.weights, h.logger)
	if !ok {
		return nil
	}
	_, err := h.store.RaiseWeight(ctx, action)
	return err
}

// SimilarityHandler stores similarity edges for the analyzer.
type SimilarityHandler struct {
	store  EdgeWriter
	logger zerolog.Logger
}

// NewSimilarityHandler creates the analyzer's similarity handler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSimilarityHandler(store EdgeWriter, logger zerolog.Logger) *SimilarityHandler {
	return &SimilarityHandler{store: store, logger: logger.With().Str("component", "analyzer-similarity").Logger()}
}

// Handle upserts the edge. Store errors are returned.
func (h *SimilarityHandler) Handle(ctx context.Context, rec Record) error {
	sim, ok := rec.(*SimilarityRecord)
	if !ok {
		h.logger.Warn().Type("record", rec).Msg("ignoring non-similarity record")
		return nil
	}
	return h.store.UpsertSimilarity(ctx, sim.Edge())
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func toUserAction(rec Record, weights models.ActionWeights, logger zerolog.Logger) (models.UserAction, bool) {
	ua, ok := rec.(*UserActionRecord)
	if !ok {
		logger.Warn().Type("record", rec).Msg("ignoring non-action record")
		return models.UserAction{}, false
	}
	action, ok := ua.UserAction(weights)
	if !ok {
		logger.Warn().Str("action_type", string(ua.ActionType)).Msg("ignoring unknown action kind")
		return models.UserAction{}, false
	}
	return action, true
}
