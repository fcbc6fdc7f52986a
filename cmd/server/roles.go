// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package main

import (
	"github.com/tomtom215/ewm-stats/internal/config"
	"github.com/tomtom215/ewm-stats/internal/eventprocessor"
	"github.com/tomtom215/ewm-stats/internal/logging"
	"github.com/tomtom215/ewm-stats/internal/models"
	"github.com/tomtom215/ewm-stats/internal/similarity"
)

func actionWeights(cfg *config.SimilarityConfig) models.ActionWeights {
	return models.ActionWeights{View: cfg.ViewWeight, Register: cfg.RegisterWeight, Like: cfg.LikeWeight}
}

// consumerPlan is one durable consumer and the handler fed by it.
type consumerPlan struct {
	cfg     eventprocessor.ConsumerConfig
	handler eventprocessor.Handler
}

// roleDeps are the dependencies the consumer handlers need. Fields for
// disabled roles may be nil.
type roleDeps struct {
	engine    *similarity.Engine
	publisher eventprocessor.SimilarityPublisher
	store     statsStore
	weights   models.ActionWeights
}

// consumerPlans lists the consumers of the enabled roles.
//
//   - aggregator: user actions into the similarity model, replayed from the
//     start of the stream when nats.replay_on_start is set
//   - analyzer: user actions into the store, similarity scores into the store
func consumerPlans(cfg *config.Config, deps roleDeps) []consumerPlan {
	nats := &cfg.NATS
	var plans []consumerPlan

	if cfg.HasRole(config.RoleAggregator) {
		c := eventprocessor.ConsumerConfigFrom(nats, "aggregator", nats.AggregatorDurable, nats.UserActionsSubject)
		c.ResetOnStart = nats.ReplayOnStart
		plans = append(plans, consumerPlan{
			cfg:     c,
			handler: eventprocessor.NewAggregatorHandler(deps.engine, deps.publisher, deps.weights, logging.WithComponent("aggregator")),
		})
	}

	if cfg.HasRole(config.RoleAnalyzer) {
		plans = append(plans,
			consumerPlan{
				cfg:     eventprocessor.ConsumerConfigFrom(nats, "analyzer-user-actions", nats.AnalyzerActionsDurable, nats.UserActionsSubject),
				handler: eventprocessor.NewActionsHandler(deps.store, deps.weights, logging.WithComponent("analyzer")),
			},
			consumerPlan{
				cfg:     eventprocessor.ConsumerConfigFrom(nats, "analyzer-similarity", nats.AnalyzerSimilarityDurable, nats.SimilaritySubject),
				handler: eventprocessor.NewSimilarityHandler(deps.store, logging.WithComponent("analyzer")),
			},
		)
	}

	return plans
}
