// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

/*
Package api provides the HTTP surface using the Chi router.

Routes:

	GET  /api/v1/health                              liveness
	GET  /api/v1/health/ready                        store and broker readiness
	GET  /metrics                                    Prometheus metrics
	GET  /api/v1/users/{userID}/recommendations?max= recommendations for a user
	GET  /api/v1/events/{eventID}/similar?user=&max= events similar to one event
	GET  /api/v1/events/interactions?ids=1,2,3       summed interaction weights
	POST /api/v1/actions                             collect a user action

The query routes mirror the gRPC query service and are registered only when
a Recommender is configured; POST /api/v1/actions is registered only when a
Collector is configured. Every body is a models.APIResponse envelope.
*/
package api
