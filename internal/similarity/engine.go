// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package similarity

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ewm-stats/internal/metrics"
	"github.com/tomtom215/ewm-stats/internal/models"
)

// eventState is the weight vector of one event. coWeights holds the
// accumulators of the pairs in which this event has the smaller id, keyed by
// the larger id, so every accumulator is guarded by the lower event's mutex.
type eventState struct {
	mu        sync.Mutex
	weights   map[int64]float64
	total     float64
	coWeights map[int64]float64
}

type userState struct {
	mu      sync.Mutex
	touched map[int64]struct{}
}

// Engine is the in-memory similarity model. The zero value is not usable;
// call NewEngine.
type Engine struct {
	events *registry[eventState]
	users  *registry[userState]

	pairs atomic.Int64

	now    func() time.Time
	logger zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time stamped on emitted edges.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
//
//nolint:gocritic // zerolog.Logger is a value type
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an empty model.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		events: newRegistry(func() *eventState {
			return &eventState{weights: make(map[int64]float64), coWeights: make(map[int64]float64)}
		}),
		users: newRegistry(func() *userState {
			return &userState{touched: make(map[int64]struct{})}
		}),
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply offers weight for (userID, eventID). When the weight raises the
// stored value, every pair formed with the other events of the same user is
// recomputed and returned as an edge in canonical order. Offering a weight
// that is not above the stored one changes nothing and returns no edges, so
// replaying a record is harmless.
func (e *Engine) Apply(userID, eventID int64, weight float64) (models.WeightChange, []models.SimilarityEdge) {
	user, _ := e.users.get(userID)
	user.mu.Lock()
	defer user.mu.Unlock()

	change := e.raise(userID, eventID, weight)
	metrics.RecordWeightUpdate("memory", change.Changed)
	if !change.Changed {
		return change, nil
	}

	now := e.now()
	edges := make([]models.SimilarityEdge, 0, len(user.touched))
	for other := range user.touched {
		if other == eventID {
			continue
		}
		score := e.updatePair(userID, eventID, other, change)
		edges = append(edges, models.NewSimilarityEdge(eventID, other, score, now))
	}

	// Only after the loop, so the event never pairs with itself.
	user.touched[eventID] = struct{}{}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].EventA != edges[j].EventA {
			return edges[i].EventA < edges[j].EventA
		}
		return edges[i].EventB < edges[j].EventB
	})
	metrics.SimilarityEdgesEmitted.Add(float64(len(edges)))

	e.logger.Trace().
		Int64("user_id", userID).
		Int64("event_id", eventID).
		Float64("old_weight", change.Old).
		Float64("new_weight", change.New).
		Int("edges", len(edges)).
		Msg("weight raised")

	return change, edges
}

// raise updates the event's weight vector and running total under the
// event's own mutex.
func (e *Engine) raise(userID, eventID int64, weight float64) models.WeightChange {
	ev, created := e.events.get(eventID)
	if created {
		metrics.SimilarityEvents.Inc()
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()

	current, exists := ev.weights[userID]
	change := models.RaiseResult(current, exists, weight)
	if change.Changed {
		ev.weights[userID] = change.New
		ev.total += change.New - change.Old
	}
	return change
}

// updatePair recomputes (eventID, other) for one user's weight change and
// returns the new score.
func (e *Engine) updatePair(userID, eventID, other int64, change models.WeightChange) float64 {
	lo, hi := models.CanonicalPair(eventID, other)
	loState, _ := e.events.get(lo)
	hiState, _ := e.events.get(hi)

	loState.mu.Lock()
	defer loState.mu.Unlock()
	hiState.mu.Lock()
	defer hiState.mu.Unlock()

	self, peer := loState, hiState
	if eventID == hi {
		self, peer = hiState, loState
	}

	peerWeight := peer.weights[userID]
	acc, seen := loState.coWeights[hi]
	if peerWeight != 0 {
		acc += math.Min(change.New, peerWeight) - math.Min(change.Old, peerWeight)
		loState.coWeights[hi] = acc
		if !seen {
			e.pairs.Add(1)
			metrics.SimilarityPairs.Inc()
		}
	}
	return ratio(acc, self.total, peer.total)
}

func ratio(coWeight, totalA, totalB float64) float64 {
	denom := math.Sqrt(totalA) * math.Sqrt(totalB)
	if denom == 0 {
		return 0
	}
	return coWeight / denom
}

// Weight returns the stored weight of userID for eventID, 0 if none.
func (e *Engine) Weight(userID, eventID int64) float64 {
	ev, ok := e.events.lookup(eventID)
	if !ok {
		return 0
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return ev.weights[userID]
}

// Total returns the running weight total of eventID.
func (e *Engine) Total(eventID int64) float64 {
	ev, ok := e.events.lookup(eventID)
	if !ok {
		return 0
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return ev.total
}

// CoWeight returns the accumulator of the pair (a, b) in either order.
func (e *Engine) CoWeight(a, b int64) float64 {
	lo, hi := models.CanonicalPair(a, b)
	ev, ok := e.events.lookup(lo)
	if !ok {
		return 0
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return ev.coWeights[hi]
}

// Score computes the current score of (a, b) in either order. Pairs that
// never co-occurred score 0.
func (e *Engine) Score(a, b int64) float64 {
	if a == b {
		return 0
	}
	lo, hi := models.CanonicalPair(a, b)
	loState, ok := e.events.lookup(lo)
	if !ok {
		return 0
	}
	hiState, ok := e.events.lookup(hi)
	if !ok {
		return 0
	}

	loState.mu.Lock()
	defer loState.mu.Unlock()
	hiState.mu.Lock()
	defer hiState.mu.Unlock()
	return ratio(loState.coWeights[hi], loState.total, hiState.total)
}

// Stats is a snapshot of the model size.
type Stats struct {
	Events int64 `json:"events"`
	Users  int64 `json:"users"`
	Pairs  int64 `json:"pairs"`
}

func (e *Engine) Stats() Stats {
	return Stats{Events: e.events.len(), Users: e.users.len(), Pairs: e.pairs.Load()}
}

// RaiseWeight is Apply without the emitted edges. Pair accumulators are
// still maintained.
func (e *Engine) RaiseWeight(userID, eventID int64, weight float64) models.WeightChange {
	change, _ := e.Apply(userID, eventID, weight)
	return change
}
