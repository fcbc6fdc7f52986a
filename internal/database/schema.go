// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package database

import (
	"context"
	"fmt"
)

// Timestamps are stored as naive UTC TIMESTAMP so the ICU extension is not
// needed.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS user_action (
		user_id     BIGINT    NOT NULL,
		event_id    BIGINT    NOT NULL,
		weight      DOUBLE    NOT NULL,
		action_time TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, event_id)
	)`,
	`CREATE TABLE IF NOT EXISTS event_similarity (
		event_a    BIGINT    NOT NULL,
		event_b    BIGINT    NOT NULL,
		score      DOUBLE    NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (event_a, event_b),
		CHECK (event_a < event_b)
	)`,
}

func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
