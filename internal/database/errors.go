// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package database

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	// ErrDatabaseClosed is returned by operations on a closed DB.
	ErrDatabaseClosed = errors.New("database is closed")

	// ErrInvalidEdge is returned when an edge is not in canonical order.
	ErrInvalidEdge = errors.New("similarity edge must have event_a < event_b")
)

// isTransactionConflict reports DuckDB optimistic concurrency failures,
// which are safe to retry.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "Conflict on tuple deletion")
}

// retryConflicts runs op until it succeeds, fails with a non-conflict error,
// or exhausts maxConflictRetries. The backoff grows linearly and is cut short
// by ctx.
func (db *DB) retryConflicts(ctx context.Context, op func() error) error {
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil || !isTransactionConflict(err) || attempt >= db.maxConflictRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(db.conflictBackoff * time.Duration(attempt+1)):
		}
	}
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
