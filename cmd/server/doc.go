// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

/*
Command server runs EWM Stats.

One binary hosts any combination of three roles, selected with ROLES
(comma separated, default all three):

  - collector: accepts user actions over HTTP (POST /api/v1/actions) and gRPC
    (UserActionController) and publishes them to stats.user-actions.v1
  - aggregator: consumes user actions, maintains the in-memory similarity
    model and publishes changed pair scores to stats.events-similarity.v1
  - analyzer: persists user actions and similarity scores and serves the
    recommendation queries over HTTP and gRPC (RecommendationsController)

# Startup

 1. Configuration (koanf: defaults, config.yaml, environment)
 2. Store (analyzer only): DuckDB or PostgreSQL via GORM
 3. NATS: embedded JetStream server or external URL, stream STATS
 4. Publisher (collector, aggregator) with a circuit breaker
 5. Durable consumers per role
 6. gRPC and HTTP servers
 7. Supervisor tree until SIGINT or SIGTERM

# Shutdown

The tree stops first, so every consumer makes its final synchronous
acknowledgement while NATS is still up. The publisher, the NATS connection,
the embedded server and the store are closed afterwards, in that order.

# Example

	ROLES=collector,aggregator,analyzer \
	DATABASE_DRIVER=duckdb DUCKDB_PATH=/data/ewm-stats.duckdb \
	NATS_EMBEDDED=true NATS_STORE_DIR=/data/nats \
	./server
*/
package main
