// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/ewm-stats/internal/metrics"
	"github.com/tomtom215/ewm-stats/internal/models"
)

// UpsertSimilarity inserts the edge or overwrites the score of the existing
// row for the same pair. Re-applying an identical edge leaves the score
// unchanged.
func (db *DB) UpsertSimilarity(ctx context.Context, edge models.SimilarityEdge) error {
	if db.conn == nil {
		return ErrDatabaseClosed
	}
	if edge.EventA >= edge.EventB {
		return fmt.Errorf("%w: (%d, %d)", ErrInvalidEdge, edge.EventA, edge.EventB)
	}
	updatedAt := edge.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	start := time.Now()
	err := db.retryConflicts(ctx, func() error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO event_similarity (event_a, event_b, score, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (event_a, event_b) DO UPDATE SET
				score = EXCLUDED.score,
				updated_at = EXCLUDED.updated_at`,
			edge.EventA, edge.EventB, edge.Score, updatedAt.UTC())
		return err
	})
	metrics.RecordDBQuery("upsert", "event_similarity", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert similarity (%d, %d): %w", edge.EventA, edge.EventB, err)
	}
	return nil
}

// SimilaritiesByEvent returns the edges touching eventID, best score first.
// limit <= 0 returns all of them.
func (db *DB) SimilaritiesByEvent(ctx context.Context, eventID int64, limit int) ([]models.SimilarityEdge, error) {
	query := `SELECT event_a, event_b, score, updated_at FROM event_similarity
		WHERE event_a = ? OR event_b = ?
		ORDER BY score DESC, event_a, event_b`
	args := []interface{}{eventID, eventID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return db.queryEdges(ctx, "similarities_by_event", query, args...)
}

// NewSimilar returns edges with exactly one endpoint in eventIDs, best score
// first, at most limit rows.
func (db *DB) NewSimilar(ctx context.Context, eventIDs []int64, limit int) ([]models.SimilarityEdge, error) {
	if len(eventIDs) == 0 || limit <= 0 {
		return nil, nil
	}
	in, ids := inClause(eventIDs)
	args := make([]interface{}, 0, 4*len(ids)+1)
	for i := 0; i < 4; i++ {
		args = append(args, ids...)
	}
	args = append(args, limit)

	return db.queryEdges(ctx, "new_similar", `
		SELECT event_a, event_b, score, updated_at FROM event_similarity
		WHERE (event_a IN (`+in+`) OR event_b IN (`+in+`))
		  AND NOT (event_a IN (`+in+`) AND event_b IN (`+in+`))
		ORDER BY score DESC, event_a, event_b
		LIMIT ?`, args...)
}

func (db *DB) queryEdges(ctx context.Context, op, query string, args ...interface{}) ([]models.SimilarityEdge, error) {
	if db.conn == nil {
		return nil, ErrDatabaseClosed
	}
	start := time.Now()
	edges, err := func() ([]models.SimilarityEdge, error) {
		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []models.SimilarityEdge
		for rows.Next() {
			var e models.SimilarityEdge
			if err := rows.Scan(&e.EventA, &e.EventB, &e.Score, &e.UpdatedAt); err != nil {
				return nil, err
			}
			e.UpdatedAt = e.UpdatedAt.UTC()
			out = append(out, e)
		}
		return out, rows.Err()
	}()
	metrics.RecordDBQuery(op, "event_similarity", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return edges, nil
}
