// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/ewm-stats/internal/eventprocessor"
	"github.com/tomtom215/ewm-stats/internal/logging"
	"github.com/tomtom215/ewm-stats/internal/models"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 64 * 1024

// Recommender runs the recommendation queries. *recommend.Engine
// implements it.
type Recommender interface {
	RecommendationsForUser(ctx context.Context, userID int64, maxResults int) ([]models.RecommendedEvent, error)
	SimilarEvents(ctx context.Context, eventID, userID int64, maxResults int) ([]models.RecommendedEvent, error)
	InteractionTotals(ctx context.Context, eventIDs []int64) ([]models.RecommendedEvent, error)
}

// Collector publishes user actions. *eventprocessor.Collector implements it.
type Collector interface {
	Collect(ctx context.Context, rec *eventprocessor.UserActionRecord) error
}

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handler serves the HTTP routes.
type Handler struct {
	recommender Recommender
	collector   Collector
	checks      map[string]ReadinessCheck
	roles       []string
	startTime   time.Time
}

// HandlerOptions wires the optional dependencies of a Handler.
type HandlerOptions struct {
	// Recommender enables the query routes.
	Recommender Recommender
	// Collector enables POST /api/v1/actions.
	Collector Collector
	// Checks are run by the readiness probe, keyed by dependency name.
	Checks map[string]ReadinessCheck
	// Roles are reported by the liveness probe.
	Roles []string
}

// NewHandler creates a handler.
func NewHandler(opts HandlerOptions) *Handler {
	return &Handler{
		recommender: opts.Recommender,
		collector:   opts.Collector,
		checks:      opts.Checks,
		roles:       opts.Roles,
		startTime:   time.Now(),
	}
}

// HealthStatus is the liveness body.
type HealthStatus struct {
	Status string   `json:"status"`
	Roles  []string `json:"roles"`
	Uptime float64  `json:"uptime_seconds"`
}

// ReadinessStatus is the readiness body.
type ReadinessStatus struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// Health reports that the process is alive.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, HealthStatus{
		Status: "healthy",
		Roles:  h.roles,
		Uptime: time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady runs every readiness check. Any failure answers 503.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := ReadinessStatus{Ready: true, Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status.Ready = false
			status.Checks[name] = err.Error()
			logging.Ctx(r.Context()).Warn().Err(err).Str("check", name).Msg("readiness check failed")
			continue
		}
		status.Checks[name] = "ok"
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	respondData(w, r, code, status, start)
}

type recommendationsRequest struct {
	UserID     int64 `json:"userID" validate:"gt=0"`
	MaxResults int64 `json:"max" validate:"gte=0"`
}

// Recommendations serves GET /api/v1/users/{userID}/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req recommendationsRequest
	var apiErr *models.APIError
	if req.UserID, apiErr = parseInt64("userID", chi.URLParam(r, "userID"), 0); apiErr != nil {
		respondAPIError(w, apiErr)
		return
	}
	if req.MaxResults, apiErr = parseInt64("max", r.URL.Query().Get("max"), 0); apiErr != nil {
		respondAPIError(w, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, apiErr)
		return
	}

	results, err := h.recommender.RecommendationsForUser(r.Context(), req.UserID, int(req.MaxResults))
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondData(w, r, http.StatusOK, results, start)
}

type similarEventsRequest struct {
	EventID    int64 `json:"eventID" validate:"gt=0"`
	UserID     int64 `json:"user" validate:"gt=0"`
	MaxResults int64 `json:"max" validate:"gte=0"`
}

// SimilarEvents serves GET /api/v1/events/{eventID}/similar.
func (h *Handler) SimilarEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	var req similarEventsRequest
	var apiErr *models.APIError
	if req.EventID, apiErr = parseInt64("eventID", chi.URLParam(r, "eventID"), 0); apiErr != nil {
		respondAPIError(w, apiErr)
		return
	}
	if req.UserID, apiErr = parseInt64("user", q.Get("user"), 0); apiErr != nil {
		respondAPIError(w, apiErr)
		return
	}
	if req.MaxResults, apiErr = parseInt64("max", q.Get("max"), 0); apiErr != nil {
		respondAPIError(w, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, apiErr)
		return
	}

	results, err := h.recommender.SimilarEvents(r.Context(), req.EventID, req.UserID, int(req.MaxResults))
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondData(w, r, http.StatusOK, results, start)
}

type interactionsRequest struct {
	EventIDs []int64 `json:"ids" validate:"required,min=1,max=1000,dive,gt=0"`
}

// Interactions serves GET /api/v1/events/interactions?ids=.
func (h *Handler) Interactions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ids, apiErr := parseIDList("ids", r.URL.Query().Get("ids"))
	if apiErr != nil {
		respondAPIError(w, apiErr)
		return
	}
	req := interactionsRequest{EventIDs: ids}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, apiErr)
		return
	}

	results, err := h.recommender.InteractionTotals(r.Context(), req.EventIDs)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondData(w, r, http.StatusOK, results, start)
}

// CollectAction serves POST /api/v1/actions. The body is a user action
// record; a missing timestamp is stamped on arrival.
func (h *Handler) CollectAction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var rec eventprocessor.UserActionRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a JSON user action", nil)
		return
	}

	if err := h.collector.Collect(r.Context(), &rec); err != nil {
		if errors.Is(err, eventprocessor.ErrUnexpectedRecord) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		respondError(w, http.StatusServiceUnavailable, "PUBLISH_FAILED", "User action not accepted", err)
		return
	}
	respondData(w, r, http.StatusAccepted, map[string]string{"message_id": rec.MessageID()}, start)
}
