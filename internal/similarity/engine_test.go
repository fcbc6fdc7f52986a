// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package similarity

import (
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/ewm-stats/internal/models"
)

const eps = 1e-9

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestApplyKeepsMaximumWeight(t *testing.T) {
	e := NewEngine()

	change, edges := e.Apply(1, 10, models.ViewWeight)
	if !change.Changed || change.Old != 0 || change.New != models.ViewWeight {
		t.Fatalf("first view: %+v", change)
	}
	if len(edges) != 0 {
		t.Fatalf("single event should not produce edges, got %v", edges)
	}

	change, _ = e.Apply(1, 10, models.LikeWeight)
	if !change.Changed || change.Old != models.ViewWeight || change.New != models.LikeWeight {
		t.Fatalf("like after view: %+v", change)
	}

	change, _ = e.Apply(1, 10, models.RegisterWeight)
	if change.Changed {
		t.Fatalf("lower weight must be ignored: %+v", change)
	}

	if got := e.Weight(1, 10); got != 1.0 {
		t.Errorf("weight = %v, want 1.0 (not 1.4)", got)
	}
	if got := e.Total(10); !almostEqual(got, 1.0) {
		t.Errorf("total = %v, want 1.0", got)
	}
}

func TestMonotonicWeightOverRandomSequences(t *testing.T) {
	weights := []float64{models.ViewWeight, models.RegisterWeight, models.LikeWeight}
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		e := NewEngine()
		maxSeen := 0.0
		for i := 0; i < 20; i++ {
			w := weights[rng.Intn(len(weights))]
			e.Apply(5, 50, w)
			maxSeen = math.Max(maxSeen, w)
			if got := e.Weight(5, 50); got != maxSeen {
				t.Fatalf("round %d step %d: weight %v, want %v", round, i, got, maxSeen)
			}
			if got := e.Total(50); !almostEqual(got, maxSeen) {
				t.Fatalf("round %d step %d: total %v, want %v", round, i, got, maxSeen)
			}
		}
	}
}

func TestSharedUserScore(t *testing.T) {
	e := NewEngine(WithClock(fixedClock()))

	// U2 likes E1 first, so E1's total is already 1.0 when U1 arrives.
	e.Apply(2, 1, models.LikeWeight)
	e.Apply(1, 1, models.LikeWeight)
	_, edges := e.Apply(1, 2, models.LikeWeight)

	if len(edges) != 1 {
		t.Fatalf("edges = %v, want one", edges)
	}
	want := 1.0 / (math.Sqrt(2) * math.Sqrt(1))
	edge := edges[0]
	if edge.EventA != 1 || edge.EventB != 2 {
		t.Errorf("edge not canonical: %+v", edge)
	}
	if !almostEqual(edge.Score, want) {
		t.Errorf("score = %v, want %v", edge.Score, want)
	}
	if !edge.UpdatedAt.Equal(fixedClock()()) {
		t.Errorf("edge time = %v", edge.UpdatedAt)
	}
	if !almostEqual(e.Score(1, 2), want) || !almostEqual(e.Score(2, 1), want) {
		t.Errorf("Score is not symmetric: %v / %v", e.Score(1, 2), e.Score(2, 1))
	}
}

func TestEdgesOnlyFromTheUpdatingUser(t *testing.T) {
	e := NewEngine()

	e.Apply(1, 1, models.LikeWeight)
	_, edges := e.Apply(1, 2, models.LikeWeight)
	if len(edges) != 1 || !almostEqual(edges[0].Score, 1.0) {
		t.Fatalf("edges = %v, want one edge scored 1.0", edges)
	}

	// U2 has no other events, so liking E1 changes E1's total but emits nothing.
	_, edges = e.Apply(2, 1, models.LikeWeight)
	if len(edges) != 0 {
		t.Errorf("expected no edges, got %v", edges)
	}
	if want := 1.0 / math.Sqrt(2); !almostEqual(e.Score(1, 2), want) {
		t.Errorf("current score = %v, want %v", e.Score(1, 2), want)
	}
}

func TestScoreIsOrderIndependent(t *testing.T) {
	forward := NewEngine()
	forward.Apply(2, 1, models.LikeWeight)
	forward.Apply(1, 1, models.LikeWeight)
	_, fwd := forward.Apply(1, 2, models.LikeWeight)

	backward := NewEngine()
	backward.Apply(2, 1, models.LikeWeight)
	backward.Apply(1, 2, models.LikeWeight)
	_, bwd := backward.Apply(1, 1, models.LikeWeight)

	if len(fwd) != 1 || len(bwd) != 1 {
		t.Fatalf("edges: %v / %v", fwd, bwd)
	}
	if fwd[0].EventA != bwd[0].EventA || fwd[0].EventB != bwd[0].EventB {
		t.Errorf("different canonical pairs: %+v / %+v", fwd[0], bwd[0])
	}
	if !almostEqual(fwd[0].Score, bwd[0].Score) {
		t.Errorf("scores differ: %v / %v", fwd[0].Score, bwd[0].Score)
	}
}

func TestIncrementalCoWeight(t *testing.T) {
	e := NewEngine()

	e.Apply(1, 1, models.LikeWeight)
	e.Apply(1, 2, models.ViewWeight)
	if got := e.CoWeight(1, 2); !almostEqual(got, 0.4) {
		t.Fatalf("co-weight = %v, want 0.4", got)
	}

	// Raising E2 from 0.4 to 0.8 adds min(0.8,1)-min(0.4,1).
	_, edges := e.Apply(1, 2, models.RegisterWeight)
	if got := e.CoWeight(2, 1); !almostEqual(got, 0.8) {
		t.Fatalf("co-weight = %v, want 0.8", got)
	}
	want := 0.8 / (math.Sqrt(1.0) * math.Sqrt(0.8))
	if len(edges) != 1 || !almostEqual(edges[0].Score, want) {
		t.Errorf("edges = %v, want score %v", edges, want)
	}
}

// Totals are raw weight sums rather than sums of squares. A true cosine of
// (1.0) and (0.4) for a single shared user would be 1.0.
func TestScoreUsesRawWeightTotals(t *testing.T) {
	e := NewEngine()
	e.Apply(1, 1, models.LikeWeight)
	_, edges := e.Apply(1, 2, models.ViewWeight)

	want := 0.4 / (math.Sqrt(1.0) * math.Sqrt(0.4))
	if len(edges) != 1 || !almostEqual(edges[0].Score, want) {
		t.Fatalf("edges = %v, want score %v", edges, want)
	}
	if almostEqual(edges[0].Score, 1.0) {
		t.Error("score unexpectedly matches a squared-norm cosine")
	}
}

func TestReplayIsNoOp(t *testing.T) {
	e := NewEngine()
	e.Apply(1, 1, models.LikeWeight)
	e.Apply(1, 2, models.RegisterWeight)
	e.Apply(2, 2, models.ViewWeight)

	total1, total2 := e.Total(1), e.Total(2)
	co := e.CoWeight(1, 2)

	for _, replay := range []struct {
		user, event int64
		weight      float64
	}{
		{1, 1, models.LikeWeight},
		{1, 2, models.RegisterWeight},
		{1, 2, models.ViewWeight},
		{2, 2, models.ViewWeight},
	} {
		change, edges := e.Apply(replay.user, replay.event, replay.weight)
		if change.Changed || len(edges) != 0 {
			t.Errorf("replay %+v changed the model: %+v %v", replay, change, edges)
		}
	}

	if e.Total(1) != total1 || e.Total(2) != total2 || e.CoWeight(1, 2) != co {
		t.Error("replay modified totals or co-weights")
	}
}

func TestScoreWithoutSharedUser(t *testing.T) {
	e := NewEngine()
	e.Apply(1, 1, models.LikeWeight)
	e.Apply(2, 2, models.LikeWeight)

	if got := e.Score(1, 2); got != 0 {
		t.Errorf("score = %v, want 0", got)
	}
	if got := e.Score(1, 99); got != 0 {
		t.Errorf("unknown event score = %v, want 0", got)
	}
	if got := e.Score(1, 1); got != 0 {
		t.Errorf("self score = %v, want 0", got)
	}
}

func TestScoresStayInUnitInterval(t *testing.T) {
	weights := []float64{models.ViewWeight, models.RegisterWeight, models.LikeWeight}
	rng := rand.New(rand.NewSource(42))
	e := NewEngine()

	for i := 0; i < 2000; i++ {
		user := int64(rng.Intn(30))
		event := int64(rng.Intn(15))
		_, edges := e.Apply(user, event, weights[rng.Intn(len(weights))])
		for _, edge := range edges {
			if edge.Score < 0 || edge.Score > 1+eps {
				t.Fatalf("score out of range: %+v", edge)
			}
			if edge.EventA >= edge.EventB {
				t.Fatalf("edge not canonical: %+v", edge)
			}
		}
	}
}

func TestConcurrentUpdatesToOneEvent(t *testing.T) {
	e := NewEngine()
	const users = 200

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			e.Apply(user, 1, models.ViewWeight)
			e.Apply(user, 1, models.LikeWeight)
		}(int64(u))
	}
	wg.Wait()

	if got := e.Total(1); !almostEqual(got, users*models.LikeWeight) {
		t.Errorf("total = %v, want %v", got, users*models.LikeWeight)
	}
	if s := e.Stats(); s.Users != users || s.Events != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestConcurrentOverlappingPairs(t *testing.T) {
	e := NewEngine()
	const (
		users  = 40
		events = 6
	)

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(user))
			for _, ev := range rng.Perm(events) {
				e.Apply(user, int64(ev), models.LikeWeight)
			}
		}(int64(u))
	}
	wg.Wait()

	for a := int64(0); a < events; a++ {
		if got := e.Total(a); !almostEqual(got, users) {
			t.Errorf("total(%d) = %v, want %d", a, got, users)
		}
		for b := a + 1; b < events; b++ {
			if got := e.CoWeight(a, b); !almostEqual(got, users) {
				t.Errorf("coWeight(%d,%d) = %v, want %d", a, b, got, users)
			}
			if got := e.Score(a, b); !almostEqual(got, 1) {
				t.Errorf("score(%d,%d) = %v, want 1", a, b, got)
			}
		}
	}
	if got := e.Stats().Pairs; got != events*(events-1)/2 {
		t.Errorf("pairs = %d, want %d", got, events*(events-1)/2)
	}
}
