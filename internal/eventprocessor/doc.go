// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

// Package eventprocessor moves records through NATS JetStream.
//
// # Streams
//
// One stream (STATS by default) carries two subjects:
//
//	stats.user-actions.v1        user interactions, keyed by user id
//	stats.events-similarity.v1   similarity edges, keyed by the lower event id
//
// The collector publishes user actions. The aggregator consumes them, feeds
// the in-memory similarity engine and publishes one similarity record per
// recomputed pair. The analyzer consumes both subjects into its store.
//
// # Delivery
//
// Every Consumer is a single goroutine pulling batches with a bounded wait.
// Processed messages are acknowledged asynchronously every CommitEvery
// records and after each batch; on shutdown the remainder is acknowledged
// synchronously. Records that fail to decode are logged, acknowledged and
// skipped. A handler error negatively acknowledges the failing message and
// everything after it in the batch, then stops the loop so the supervisor
// restarts it from the last acknowledged position. Delivery is therefore
// at least once, and handlers are idempotent.
//
// Publishing goes through a Watermill NATS publisher guarded by a circuit
// breaker. User actions carry a deterministic Nats-Msg-Id so retried
// collector requests are dropped by the stream's duplicate window.
package eventprocessor
