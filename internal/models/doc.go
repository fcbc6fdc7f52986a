// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

/*
Package models defines the data shared between the ingestion pipelines, the
stores and the query surfaces.

  - ActionKind: VIEW, REGISTER or LIKE, each mapped to a fixed weight
  - UserAction: the strongest interaction a user has had with an event
  - SimilarityEdge: an undirected scored pair of events, smaller id first
  - RecommendedEvent: one (event, score) row of a query result
  - WeightChange: the outcome of raising a stored weight
  - APIResponse: envelope for every HTTP response
*/
package models
