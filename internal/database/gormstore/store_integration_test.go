// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

//go:build integration

package gormstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/ewm-stats/internal/config"
	"github.com/tomtom215/ewm-stats/internal/models"
	"github.com/tomtom215/ewm-stats/internal/testinfra"
)

func TestPostgresStore(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := testinfra.NewPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, pg)

	store, err := NewPostgres(&config.DatabaseConfig{PostgresDSN: pg.DSN, MaxConns: 8})
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	defer store.Close()

	// Concurrent raises on distinct rows; the row lock keeps the stored
	// weight at the maximum offered.
	var wg sync.WaitGroup
	for u := int64(1); u <= 8; u++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			for _, w := range []float64{models.ViewWeight, models.LikeWeight, models.RegisterWeight} {
				if _, err := store.RaiseWeight(ctx, action(user, 100, w, 0)); err != nil {
					t.Errorf("user %d: %v", user, err)
				}
			}
		}(u)
	}
	wg.Wait()

	actions, err := store.ActionsByEvents(ctx, []int64{100})
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 8 {
		t.Fatalf("rows = %d, want 8", len(actions))
	}
	for _, a := range actions {
		if a.Weight != models.LikeWeight {
			t.Errorf("user %d weight = %v", a.UserID, a.Weight)
		}
	}

	// Concurrent first raises of one new pair must insert exactly once.
	var inserts sync.Map
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := []float64{models.ViewWeight, models.RegisterWeight, models.LikeWeight}[i%3]
			change, err := store.RaiseWeight(ctx, action(50, 200, w, 0))
			if err != nil {
				t.Errorf("raise %d: %v", i, err)
				return
			}
			if change.Changed && change.Old == 0 {
				inserts.Store(i, true)
			}
		}(i)
	}
	wg.Wait()
	n := 0
	inserts.Range(func(_, _ any) bool { n++; return true })
	if n != 1 {
		t.Errorf("first-insert results = %d, want 1", n)
	}
	same, err := store.ActionsByUser(ctx, 50, []int64{200})
	if err != nil {
		t.Fatal(err)
	}
	if len(same) != 1 || same[0].Weight != models.LikeWeight {
		t.Errorf("same-pair rows = %+v", same)
	}

	if err := store.UpsertSimilarity(ctx, models.NewSimilarityEdge(100, 1, 0.5, baseTime)); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertSimilarity(ctx, models.NewSimilarityEdge(1, 100, 0.7, baseTime)); err != nil {
		t.Fatal(err)
	}
	edges, err := store.SimilaritiesByEvent(ctx, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].Score != 0.7 {
		t.Errorf("edges = %+v", edges)
	}
}
