// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

// Package gormstore is the PostgreSQL backend of the analyzer's read model.
// It implements the same operations as the DuckDB store on top of GORM, with
// the schema managed by gormigrate. Any GORM dialector works; tests run it
// against in-memory SQLite.
package gormstore
