// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

//go:build integration

// Package testinfra starts throwaway containers for integration tests.
//
// Tests using it carry the integration build tag and skip themselves when
// Docker is not reachable:
//
//	func TestStoreOnPostgres(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    store, err := gormstore.NewPostgres(&config.DatabaseConfig{PostgresDSN: pg.DSN})
//	    // ...
//	}
package testinfra
