// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package gormstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"

	"github.com/tomtom215/ewm-stats/internal/models"
)

// setupTestStore opens an in-memory SQLite store. One connection only, since
// every SQLite :memory: connection is a separate database.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(sqlite.Open(":memory:"), Config{MaxConns: 1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var baseTime = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func action(user, event int64, weight float64, offset time.Duration) models.UserAction {
	return models.UserAction{UserID: user, EventID: event, Weight: weight, Timestamp: baseTime.Add(offset)}
}

func TestOpenIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	// a second migration run over the same connection must be a no-op
	if err := runMigrations(store.db); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestRaiseWeight(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		weight float64
		want   models.WeightChange
	}{
		{"first view", models.ViewWeight, models.WeightChange{Old: 0, New: 0.4, Changed: true}},
		{"like raises", models.LikeWeight, models.WeightChange{Old: 0.4, New: 1.0, Changed: true}},
		{"register ignored", models.RegisterWeight, models.WeightChange{Old: 1.0, New: 1.0}},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.RaiseWeight(ctx, action(7, 70, tt.weight, time.Duration(i)*time.Minute))
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	actions, err := store.ActionsByUser(ctx, 7, []int64{70})
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 1 || actions[0].Weight != 1.0 {
		t.Fatalf("actions = %+v", actions)
	}
	if !actions[0].Timestamp.Equal(baseTime.Add(time.Minute)) {
		t.Errorf("timestamp = %v", actions[0].Timestamp)
	}
}

func TestRaiseWeightConcurrentFirstInsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	weights := []float64{models.ViewWeight, models.RegisterWeight, models.LikeWeight, models.ViewWeight, models.RegisterWeight}
	changes := make([]models.WeightChange, len(weights))
	errs := make([]error, len(weights))

	var wg sync.WaitGroup
	for i, w := range weights {
		wg.Add(1)
		go func(i int, w float64) {
			defer wg.Done()
			changes[i], errs[i] = store.RaiseWeight(ctx, action(3, 30, w, time.Duration(i)*time.Second))
		}(i, w)
	}
	wg.Wait()

	inserts := 0
	for i, err := range errs {
		if err != nil {
			t.Fatalf("raise %d: %v", i, err)
		}
		if changes[i].Changed && changes[i].Old == 0 {
			inserts++
		}
	}
	if inserts != 1 {
		t.Errorf("first-insert results = %d, want 1 (%+v)", inserts, changes)
	}

	actions, err := store.ActionsByUser(ctx, 3, []int64{30})
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 1 || actions[0].Weight != models.LikeWeight {
		t.Fatalf("actions = %+v, want one row at %v", actions, models.LikeWeight)
	}
}

func TestUserActionQueries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, a := range []models.UserAction{
		action(1, 5, models.ViewWeight, 0),
		action(1, 3, models.LikeWeight, time.Hour),
		action(1, 9, models.RegisterWeight, 2*time.Hour),
		action(2, 3, models.ViewWeight, 3*time.Hour),
	} {
		if _, err := store.RaiseWeight(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := store.RecentEventsByUser(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0] != 9 || recent[1] != 3 {
		t.Errorf("RecentEventsByUser = %v, want [9 3]", recent)
	}

	others, err := store.EventsByUserExcluding(ctx, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(others) != 2 || others[0] != 5 || others[1] != 9 {
		t.Errorf("EventsByUserExcluding = %v, want [5 9]", others)
	}

	byEvent, err := store.ActionsByEvents(ctx, []int64{3})
	if err != nil {
		t.Fatal(err)
	}
	if len(byEvent) != 2 || byEvent[0].UserID != 1 || byEvent[1].UserID != 2 {
		t.Errorf("ActionsByEvents = %+v", byEvent)
	}
}

func TestUpsertSimilarity(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	edge := models.NewSimilarityEdge(9, 4, 0.3, baseTime)
	for i := 0; i < 3; i++ {
		if err := store.UpsertSimilarity(ctx, edge); err != nil {
			t.Fatal(err)
		}
	}
	edge.Score = 0.6
	if err := store.UpsertSimilarity(ctx, edge); err != nil {
		t.Fatal(err)
	}

	edges, err := store.SimilaritiesByEvent(ctx, 9, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].EventA != 4 || edges[0].EventB != 9 || edges[0].Score != 0.6 {
		t.Errorf("edges = %+v", edges)
	}

	err = store.UpsertSimilarity(ctx, models.SimilarityEdge{EventA: 2, EventB: 2})
	if !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("self edge: err = %v", err)
	}
}

func TestNewSimilar(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, e := range []models.SimilarityEdge{
		models.NewSimilarityEdge(1, 2, 0.95, baseTime),
		models.NewSimilarityEdge(1, 5, 0.4, baseTime),
		models.NewSimilarityEdge(2, 6, 0.8, baseTime),
		models.NewSimilarityEdge(7, 8, 0.99, baseTime),
	} {
		if err := store.UpsertSimilarity(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	edges, err := store.NewSimilar(ctx, []int64{1, 2}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 2 {
		t.Fatalf("edges = %+v", edges)
	}
	if edges[0].Other(2) != 6 || edges[1].Other(1) != 5 {
		t.Errorf("edges = %+v, want (2,6) then (1,5)", edges)
	}
}
