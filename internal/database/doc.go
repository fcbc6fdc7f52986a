// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

/*
Package database is the DuckDB-backed persisted side of the model.

Tables:
  - user_action: one row per (user_id, event_id) holding the maximum weight
    seen for that pair and when it was recorded
  - event_similarity: one row per unordered event pair, event_a < event_b

Writes are upserts and never delete. The recommendation read path queries
both tables; see RecentEventsByUser, NewSimilar and SimilaritiesByEvent.

The gormstore subpackage implements the same operations on PostgreSQL.
*/
package database
