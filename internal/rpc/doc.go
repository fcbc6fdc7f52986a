// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

/*
Package rpc exposes the recommendation queries and the collector over gRPC.

Two services are registered from hand-written service descriptors:

  - stats.service.dashboard.RecommendationsController with the
    server-streaming methods GetRecommendationsForUser, GetSimilarEvents and
    GetInteractionsCount
  - stats.service.collector.UserActionController with the unary method
    CollectUserAction

Messages are plain Go structs carried by a JSON codec registered under the
"json" content subtype, so no generated code is involved. Unknown ids yield
an empty stream, never an error.

Client is the caller-side counterpart. Like the services it talks to, it
treats the statistics as best effort: RPC failures are logged and produce
an empty result.
*/
package rpc
