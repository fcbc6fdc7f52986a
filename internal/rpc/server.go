// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package rpc

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tomtom215/ewm-stats/internal/eventprocessor"
	"github.com/tomtom215/ewm-stats/internal/logging"
	"github.com/tomtom215/ewm-stats/internal/models"
	"github.com/tomtom215/ewm-stats/internal/validation"
)

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

// NewServer creates a gRPC server with the recovery, correlation id and
// request logging interceptors installed.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewServer(logger zerolog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	logger = logger.With().Str("component", "grpc").Logger()
	base := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			RecoveryUnaryInterceptor(logger),
			CorrelationUnaryInterceptor(),
			ObserveUnaryInterceptor(logger),
		),
		grpc.ChainStreamInterceptor(
			RecoveryStreamInterceptor(logger),
			CorrelationStreamInterceptor(),
			ObserveStreamInterceptor(logger),
		),
	}
	return grpc.NewServer(append(base, opts...)...)
}

// QueryService serves RecommendationsController from a Recommender.
type QueryService struct {
	engine Recommender
}

// NewQueryService creates the query service.
func NewQueryService(engine Recommender) *QueryService {
	return &QueryService{engine: engine}
}

// Register adds the service to s.
func (q *QueryService) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&RecommendationsServiceDesc, q)
}

func (q *QueryService) GetRecommendationsForUser(req *UserPredictionsRequest, out RecommendedEventSender) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	results, err := q.engine.RecommendationsForUser(out.Context(), req.UserID, req.MaxResults)
	if err != nil {
		return queryStatus(out.Context(), err)
	}
	return sendAll(out, results)
}

func (q *QueryService) GetSimilarEvents(req *SimilarEventsRequest, out RecommendedEventSender) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	results, err := q.engine.SimilarEvents(out.Context(), req.EventID, req.UserID, req.MaxResults)
	if err != nil {
		return queryStatus(out.Context(), err)
	}
	return sendAll(out, results)
}

func (q *QueryService) GetInteractionsCount(req *InteractionsCountRequest, out RecommendedEventSender) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	results, err := q.engine.InteractionTotals(out.Context(), req.EventIDs)
	if err != nil {
		return queryStatus(out.Context(), err)
	}
	return sendAll(out, results)
}

func sendAll(out RecommendedEventSender, results []models.RecommendedEvent) error {
	for _, r := range results {
		if err := out.Send(fromModel(r)); err != nil {
			return err
		}
	}
	return nil
}

func validateRequest(req any) error {
	if verr := validation.ValidateStruct(req); verr != nil {
		return status.Error(codes.InvalidArgument, verr.Error())
	}
	return nil
}

// queryStatus maps an engine failure to a status. Store errors are logged
// here and reported to the caller without detail.
func queryStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "query timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "query cancelled")
	}
	logging.Ctx(ctx).Error().Err(err).Msg("query failed")
	return status.Error(codes.Internal, "query failed")
}

// CollectorService serves UserActionController from a Collector.
type CollectorService struct {
	collector Collector
}

// NewCollectorService creates the collector service.
func NewCollectorService(collector Collector) *CollectorService {
	return &CollectorService{collector: collector}
}

// Register adds the service to s.
func (c *CollectorService) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&UserActionServiceDesc, c)
}

// CollectUserAction validates and publishes one action. Invalid actions
// are InvalidArgument; publish failures are Unavailable so callers may
// retry.
func (c *CollectorService) CollectUserAction(ctx context.Context, req *UserActionRequest) (*Empty, error) {
	rec := &eventprocessor.UserActionRecord{
		UserID:     req.UserID,
		EventID:    req.EventID,
		ActionType: req.ActionType,
		Timestamp:  req.Timestamp,
	}
	if err := c.collector.Collect(ctx, rec); err != nil {
		if errors.Is(err, eventprocessor.ErrUnexpectedRecord) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Unavailable, "user action not accepted")
	}
	return &Empty{}, nil
}
