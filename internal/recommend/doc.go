// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

// Package recommend answers the three read-side queries of the analyzer
// from the persisted user actions and similarity edges.
//
// # Queries
//
//   - RecommendationsForUser: candidates are events similar to the user's
//     most recent interactions. Each candidate gets a predicted score, the
//     similarity-weighted average of the user's weights on the candidate's
//     top neighbours:
//
//     predicted(c) = Σ w(user, n) · sim(c, n) / Σ sim(c, n)
//
//     over the K best neighbours n of c, and 0 when Σ sim is 0.
//   - SimilarEvents: edges of one event, minus events the user already
//     interacted with, best score first.
//   - InteractionTotals: sum of stored weights per event.
//
// Unknown users and events produce empty results, never errors. The engine
// holds no locks; it reads whatever the stores have persisted so far.
package recommend
