// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ewm-stats/internal/models"
	"github.com/tomtom215/ewm-stats/internal/similarity"
)

type recordingPublisher struct {
	mu      sync.Mutex
	records []*SimilarityRecord
	actions []*UserActionRecord
	err     error
}

func (p *recordingPublisher) PublishSimilarity(_ context.Context, rec *SimilarityRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.records = append(p.records, rec)
	return nil
}

func (p *recordingPublisher) PublishUserAction(_ context.Context, rec *UserActionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.actions = append(p.actions, rec)
	return nil
}

func like(user, event int64) *UserActionRecord {
	return &UserActionRecord{UserID: user, EventID: event, ActionType: models.ActionLike, Timestamp: testTime}
}

func TestAggregatorPublishesRecomputedPairs(t *testing.T) {
	pub := &recordingPublisher{}
	h := NewAggregatorHandler(similarity.NewEngine(), pub, models.DefaultActionWeights(), zerolog.Nop())
	ctx := context.Background()

	for _, rec := range []*UserActionRecord{like(1, 5), like(1, 2), like(1, 9)} {
		if err := h.Handle(ctx, rec); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}

	// (2,5) after the second action, then (2,9) and (5,9) after the third.
	want := [][2]int64{{2, 5}, {2, 9}, {5, 9}}
	if len(pub.records) != len(want) {
		t.Fatalf("published %d edges, want %d", len(pub.records), len(want))
	}
	for i, w := range want {
		got := pub.records[i]
		if got.EventA != w[0] || got.EventB != w[1] {
			t.Errorf("edge %d = (%d,%d), want %v", i, got.EventA, got.EventB, w)
		}
		if got.Score != 1 {
			t.Errorf("edge %d score = %v, want 1", i, got.Score)
		}
	}

	// Replaying the same action is a no-op.
	if err := h.Handle(ctx, like(1, 9)); err != nil {
		t.Fatal(err)
	}
	if len(pub.records) != len(want) {
		t.Errorf("replay published %d extra edges", len(pub.records)-len(want))
	}
}

func TestAggregatorSwallowsPublishErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	engine := similarity.NewEngine()
	h := NewAggregatorHandler(engine, pub, models.DefaultActionWeights(), zerolog.Nop())

	if err := h.Handle(context.Background(), like(1, 1)); err != nil {
		t.Fatal(err)
	}
	if err := h.Handle(context.Background(), like(1, 2)); err != nil {
		t.Errorf("publish failure surfaced: %v", err)
	}
	if engine.Score(1, 2) != 1 {
		t.Error("model not updated when publishing failed")
	}
}

func TestAggregatorIgnoresForeignRecords(t *testing.T) {
	pub := &recordingPublisher{}
	h := NewAggregatorHandler(similarity.NewEngine(), pub, models.DefaultActionWeights(), zerolog.Nop())
	if err := h.Handle(context.Background(), &SimilarityRecord{EventA: 1, EventB: 2}); err != nil {
		t.Fatal(err)
	}
	if len(pub.records) != 0 {
		t.Error("similarity record produced edges")
	}
}

type fakeStore struct {
	actions []models.UserAction
	edges   []models.SimilarityEdge
	err     error
}

func (s *fakeStore) RaiseWeight(_ context.Context, a models.UserAction) (models.WeightChange, error) {
	if s.err != nil {
		return models.WeightChange{}, s.err
	}
	s.actions = append(s.actions, a)
	return models.WeightChange{New: a.Weight, Changed: true}, nil
}

func (s *fakeStore) UpsertSimilarity(_ context.Context, e models.SimilarityEdge) error {
	if s.err != nil {
		return s.err
	}
	s.edges = append(s.edges, e)
	return nil
}

func TestActionsHandler(t *testing.T) {
	store := &fakeStore{}
	h := NewActionsHandler(store, models.DefaultActionWeights(), zerolog.Nop())

	rec := &UserActionRecord{UserID: 3, EventID: 30, ActionType: models.ActionRegister, Timestamp: testTime}
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if len(store.actions) != 1 {
		t.Fatalf("stored %d actions", len(store.actions))
	}
	got := store.actions[0]
	if got.UserID != 3 || got.EventID != 30 || got.Weight != models.RegisterWeight || !got.Timestamp.Equal(testTime) {
		t.Errorf("stored %+v", got)
	}

	store.err = errors.New("disk full")
	if err := h.Handle(context.Background(), rec); !errors.Is(err, store.err) {
		t.Errorf("err = %v, want store error", err)
	}
}

func TestSimilarityHandler(t *testing.T) {
	store := &fakeStore{}
	h := NewSimilarityHandler(store, zerolog.Nop())

	rec := &SimilarityRecord{EventA: 1, EventB: 4, Score: 0.25, Timestamp: testTime}
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if len(store.edges) != 1 || store.edges[0] != rec.Edge() {
		t.Errorf("stored %+v", store.edges)
	}

	if err := h.Handle(context.Background(), like(1, 1)); err != nil {
		t.Errorf("action record: %v", err)
	}

	store.err = errors.New("locked")
	if err := h.Handle(context.Background(), rec); !errors.Is(err, store.err) {
		t.Errorf("err = %v, want store error", err)
	}
}
