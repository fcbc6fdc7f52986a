// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/ewm-stats/internal/config"
	"github.com/tomtom215/ewm-stats/internal/database"
	"github.com/tomtom215/ewm-stats/internal/database/gormstore"
	"github.com/tomtom215/ewm-stats/internal/eventprocessor"
	"github.com/tomtom215/ewm-stats/internal/recommend"
)

// statsStore is everything the analyzer needs from persistence.
type statsStore interface {
	recommend.Store
	eventprocessor.ActionWriter
	eventprocessor.EdgeWriter
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ statsStore = (*database.DB)(nil)
	_ statsStore = (*gormstore.Store)(nil)
)

func openStore(cfg *config.DatabaseConfig) (statsStore, error) {
	switch cfg.Driver {
	case config.DriverDuckDB:
		db, err := database.New(cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverPostgres:
		st, err := gormstore.NewPostgres(cfg)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
