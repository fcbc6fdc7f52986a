// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package recommend

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/ewm-stats/internal/config"
	"github.com/tomtom215/ewm-stats/internal/models"
)

// Store is the read side of the user action and similarity stores. Both the
// DuckDB and the GORM stores implement it.
type Store interface {
	RecentEventsByUser(ctx context.Context, userID int64, limit int) ([]int64, error)
	EventsByUserExcluding(ctx context.Context, userID, eventID int64) ([]int64, error)
	ActionsByEvents(ctx context.Context, eventIDs []int64) ([]models.UserAction, error)
	ActionsByUser(ctx context.Context, userID int64, eventIDs []int64) ([]models.UserAction, error)
	SimilaritiesByEvent(ctx context.Context, eventID int64, limit int) ([]models.SimilarityEdge, error)
	NewSimilar(ctx context.Context, eventIDs []int64, limit int) ([]models.SimilarityEdge, error)
}

// Engine runs the recommendation queries. It is safe for concurrent use.
type Engine struct {
	store  Store
	cfg    config.RecommendConfig
	logger zerolog.Logger

	// neighbours collapses concurrent top-K lookups of the same candidate
	// across requests.
	neighbours singleflight.Group
}

// NewEngine creates an engine over store. Zero values in cfg fall back to
// the defaults (K=5, 10 results, cap 100, parallelism 8).
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(store Store, cfg config.RecommendConfig, logger zerolog.Logger) *Engine {
	if cfg.Neighbours <= 0 {
		cfg.Neighbours = 5
	}
	if cfg.DefaultResults <= 0 {
		cfg.DefaultResults = 10
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 100
	}
	if cfg.DefaultResults > cfg.MaxResults {
		cfg.DefaultResults = cfg.MaxResults
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 8
	}
	return &Engine{
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("component", "recommend").Logger(),
	}
}

// limit applies the default to non-positive values and clamps to the cap.
func (e *Engine) limit(requested int) int {
	switch {
	case requested <= 0:
		return e.cfg.DefaultResults
	case requested > e.cfg.MaxResults:
		return e.cfg.MaxResults
	default:
		return requested
	}
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, e.cfg.QueryTimeout)
	}
	return context.WithCancel(ctx)
}

// RecommendationsForUser predicts scores for events similar to the user's
// most recent interactions. Results keep the order of the candidate pool,
// which is ranked by edge score.
func (e *Engine) RecommendationsForUser(ctx context.Context, userID int64, maxResults int) ([]models.RecommendedEvent, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	limit := e.limit(maxResults)
	recent, err := e.store.RecentEventsByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events of user %d: %w", userID, err)
	}
	if len(recent) == 0 {
		return []models.RecommendedEvent{}, nil
	}

	pool, err := e.store.NewSimilar(ctx, recent, limit)
	if err != nil {
		return nil, fmt.Errorf("candidate pool of user %d: %w", userID, err)
	}
	candidates := uniqueCandidates(pool, recent)

	results := make([]models.RecommendedEvent, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)
	for i, candidate := range candidates {
		g.Go(func() error {
			score, err := e.predict(gctx, userID, candidate)
			if err != nil {
				return err
			}
			results[i] = models.RecommendedEvent{EventID: candidate, Score: score}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug().
		Int64("user_id", userID).
		Int("recent", len(recent)).
		Int("candidates", len(candidates)).
		Msg("recommendations computed")
	return results, nil
}

// uniqueCandidates returns the endpoint of each edge that is not one of the
// user's events, in first-appearance order.
func uniqueCandidates(pool []models.SimilarityEdge, userEvents []int64) []int64 {
	own := make(map[int64]struct{}, len(userEvents))
	for _, id := range userEvents {
		own[id] = struct{}{}
	}
	seen := make(map[int64]struct{}, len(pool))
	out := make([]int64, 0, len(pool))
	for _, edge := range pool {
		candidate := edge.EventB
		if _, ok := own[edge.EventB]; ok {
			candidate = edge.EventA
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

// predict computes the similarity-weighted average of the user's weights on
// the candidate's top-K neighbours.
func (e *Engine) predict(ctx context.Context, userID, candidate int64) (float64, error) {
	neighbours, err := e.topNeighbours(ctx, candidate)
	if err != nil {
		return 0, err
	}
	if len(neighbours) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(neighbours))
	for i, n := range neighbours {
		ids[i] = n.Other(candidate)
	}
	actions, err := e.store.ActionsByUser(ctx, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("user %d weights on neighbours of %d: %w", userID, candidate, err)
	}
	weights := make(map[int64]float64, len(actions))
	for _, a := range actions {
		weights[a.EventID] = a.Weight
	}

	return weightedAverage(neighbours, weights, candidate), nil
}

func weightedAverage(neighbours []models.SimilarityEdge, weights map[int64]float64, candidate int64) float64 {
	var weighted, simSum float64
	for _, n := range neighbours {
		weighted += weights[n.Other(candidate)] * n.Score
		simSum += n.Score
	}
	if simSum == 0 {
		return 0
	}
	return weighted / simSum
}

// topNeighbours shares one lookup between concurrent requests for the same
// candidate. The shared lookup is detached from the caller that started it
// and bounded by the query timeout; each caller still returns on its own
// cancellation.
func (e *Engine) topNeighbours(ctx context.Context, candidate int64) ([]models.SimilarityEdge, error) {
	key := strconv.FormatInt(candidate, 10)
	ch := e.neighbours.DoChan(key, func() (interface{}, error) {
		lookupCtx, cancel := e.withTimeout(context.WithoutCancel(ctx))
		defer cancel()
		return e.store.SimilaritiesByEvent(lookupCtx, candidate, e.cfg.Neighbours)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("neighbours of %d: %w", candidate, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("neighbours of %d: %w", candidate, res.Err)
		}
		return res.Val.([]models.SimilarityEdge), nil
	}
}

// SimilarEvents returns the events most similar to eventID that userID has
// not interacted with yet, best score first.
func (e *Engine) SimilarEvents(ctx context.Context, eventID, userID int64, maxResults int) ([]models.RecommendedEvent, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	limit := e.limit(maxResults)

	g, gctx := errgroup.WithContext(ctx)
	var (
		edges []models.SimilarityEdge
		seen  []int64
	)
	g.Go(func() error {
		var err error
		edges, err = e.store.SimilaritiesByEvent(gctx, eventID, 0)
		return err
	})
	g.Go(func() error {
		var err error
		seen, err = e.store.EventsByUserExcluding(gctx, userID, eventID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("similar events of %d: %w", eventID, err)
	}

	exclude := make(map[int64]struct{}, len(seen))
	for _, id := range seen {
		exclude[id] = struct{}{}
	}

	out := make([]models.RecommendedEvent, 0, min(limit, len(edges)))
	for _, edge := range edges {
		other := edge.Other(eventID)
		if _, ok := exclude[other]; ok {
			continue
		}
		out = append(out, models.RecommendedEvent{EventID: other, Score: edge.Score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// InteractionTotals sums the stored weights of each requested event. Events
// without interactions are omitted; the rest follow the request order.
func (e *Engine) InteractionTotals(ctx context.Context, eventIDs []int64) ([]models.RecommendedEvent, error) {
	if len(eventIDs) == 0 {
		return []models.RecommendedEvent{}, nil
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	actions, err := e.store.ActionsByEvents(ctx, dedupe(eventIDs))
	if err != nil {
		return nil, fmt.Errorf("interaction totals: %w", err)
	}

	totals := make(map[int64]float64)
	for _, a := range actions {
		totals[a.EventID] += a.Weight
	}

	out := make([]models.RecommendedEvent, 0, len(totals))
	for _, id := range dedupe(eventIDs) {
		if total, ok := totals[id]; ok {
			out = append(out, models.RecommendedEvent{EventID: id, Score: total})
		}
	}

	e.logger.Trace().
		Int("requested", len(eventIDs)).
		Int("found", len(out)).
		Dur("took", time.Since(start)).
		Msg("interaction totals")
	return out, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
