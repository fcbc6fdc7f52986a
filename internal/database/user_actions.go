// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/ewm-stats/internal/metrics"
	"github.com/tomtom215/ewm-stats/internal/models"
)

// RaiseWeight stores action.Weight for (UserID, EventID) unless an equal or
// higher weight is already stored. The timestamp is replaced together with
// the weight. DuckDB transaction conflicts are retried.
func (db *DB) RaiseWeight(ctx context.Context, action models.UserAction) (models.WeightChange, error) {
	if db.conn == nil {
		return models.WeightChange{}, ErrDatabaseClosed
	}

	start := time.Now()
	var change models.WeightChange
	err := db.retryConflicts(ctx, func() error {
		var err error
		change, err = db.raiseWeightTx(ctx, action)
		return err
	})
	metrics.RecordDBQuery("raise_weight", "user_action", time.Since(start), err)
	if err != nil {
		return models.WeightChange{}, fmt.Errorf("raise weight user=%d event=%d: %w", action.UserID, action.EventID, err)
	}
	metrics.RecordWeightUpdate("duckdb", change.Changed)
	return change, nil
}

func (db *DB) raiseWeightTx(ctx context.Context, action models.UserAction) (models.WeightChange, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.WeightChange{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var current float64
	err = tx.QueryRowContext(ctx,
		`SELECT weight FROM user_action WHERE user_id = ? AND event_id = ?`,
		action.UserID, action.EventID).Scan(&current)
	exists := true
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return models.WeightChange{}, err
	}

	change := models.RaiseResult(current, exists, action.Weight)
	if !change.Changed {
		return change, nil
	}

	ts := action.Timestamp.UTC()
	if exists {
		_, err = tx.ExecContext(ctx,
			`UPDATE user_action SET weight = ?, action_time = ? WHERE user_id = ? AND event_id = ?`,
			change.New, ts, action.UserID, action.EventID)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_action (user_id, event_id, weight, action_time) VALUES (?, ?, ?, ?)`,
			action.UserID, action.EventID, change.New, ts)
	}
	if err != nil {
		return models.WeightChange{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.WeightChange{}, err
	}
	return change, nil
}

// RecentEventsByUser returns up to limit event ids the user interacted
// with, most recent first.
func (db *DB) RecentEventsByUser(ctx context.Context, userID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		return nil, nil
	}
	return db.queryIDs(ctx, "recent_events_by_user",
		`SELECT event_id FROM user_action WHERE user_id = ?
		 ORDER BY action_time DESC, event_id DESC LIMIT ?`,
		userID, limit)
}

// EventsByUserExcluding returns every event the user interacted with except
// eventID.
func (db *DB) EventsByUserExcluding(ctx context.Context, userID, eventID int64) ([]int64, error) {
	return db.queryIDs(ctx, "events_by_user_excluding",
		`SELECT event_id FROM user_action WHERE user_id = ? AND event_id <> ? ORDER BY event_id`,
		userID, eventID)
}

// ActionsByEvents returns all user actions on the given events.
func (db *DB) ActionsByEvents(ctx context.Context, eventIDs []int64) ([]models.UserAction, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(eventIDs)
	return db.queryActions(ctx, "actions_by_events",
		`SELECT user_id, event_id, weight, action_time FROM user_action
		 WHERE event_id IN (`+in+`) ORDER BY event_id, user_id`, args...)
}

// ActionsByUser returns the user's actions on the given events.
func (db *DB) ActionsByUser(ctx context.Context, userID int64, eventIDs []int64) ([]models.UserAction, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(eventIDs)
	args = append([]interface{}{userID}, args...)
	return db.queryActions(ctx, "actions_by_user",
		`SELECT user_id, event_id, weight, action_time FROM user_action
		 WHERE user_id = ? AND event_id IN (`+in+`) ORDER BY event_id`, args...)
}

func (db *DB) queryIDs(ctx context.Context, op, query string, args ...interface{}) ([]int64, error) {
	if db.conn == nil {
		return nil, ErrDatabaseClosed
	}
	start := time.Now()
	ids, err := func() ([]int64, error) {
		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, rows.Err()
	}()
	metrics.RecordDBQuery(op, "user_action", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

func (db *DB) queryActions(ctx context.Context, op, query string, args ...interface{}) ([]models.UserAction, error) {
	if db.conn == nil {
		return nil, ErrDatabaseClosed
	}
	start := time.Now()
	actions, err := func() ([]models.UserAction, error) {
		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []models.UserAction
		for rows.Next() {
			var a models.UserAction
			if err := rows.Scan(&a.UserID, &a.EventID, &a.Weight, &a.Timestamp); err != nil {
				return nil, err
			}
			a.Timestamp = a.Timestamp.UTC()
			out = append(out, a)
		}
		return out, rows.Err()
	}()
	metrics.RecordDBQuery(op, "user_action", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return actions, nil
}

// inClause returns "?, ?, ?" and the matching argument slice.
func inClause(ids []int64) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}
