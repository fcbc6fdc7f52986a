// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/tomtom215/ewm-stats/internal/config"
	"github.com/tomtom215/ewm-stats/internal/logging"
	"github.com/tomtom215/ewm-stats/internal/models"
)

// Client calls the query and collector services.
type Client struct {
	conn   *grpc.ClientConn
	logger zerolog.Logger
	now    func() time.Time
}

// NewClient creates a client for target. The connection is established
// lazily on the first call. opts are appended to the defaults (plaintext,
// JSON codec).
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewClient(target string, logger zerolog.Logger, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create grpc client for %s: %w", target, err)
	}
	return &Client{
		conn:   conn,
		logger: logger.With().Str("component", "stats-client").Str("target", target).Logger(),
		now:    time.Now,
	}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// StatsClient pairs the analyzer and collector clients. When both targets
// are the same address they share one connection.
type StatsClient struct {
	Analyzer  *Client
	Collector *Client
}

// NewStatsClient dials the analyzer and collector targets from cfg.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStatsClient(cfg *config.GRPCConfig, logger zerolog.Logger, opts ...grpc.DialOption) (*StatsClient, error) {
	analyzer, err := NewClient(cfg.AnalyzerTarget, logger, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.CollectorTarget == cfg.AnalyzerTarget {
		return &StatsClient{Analyzer: analyzer, Collector: analyzer}, nil
	}
	collector, err := NewClient(cfg.CollectorTarget, logger, opts...)
	if err != nil {
		_ = analyzer.Close()
		return nil, err
	}
	return &StatsClient{Analyzer: analyzer, Collector: collector}, nil
}

// Close releases both connections.
func (s *StatsClient) Close() error {
	err := s.Analyzer.Close()
	if s.Collector != s.Analyzer {
		err = errors.Join(err, s.Collector.Close())
	}
	return err
}

// RecommendationsForUser returns up to maxResults recommendations, or
// nothing when the call fails.
func (c *Client) RecommendationsForUser(ctx context.Context, userID int64, maxResults int) []models.RecommendedEvent {
	req := &UserPredictionsRequest{UserID: userID, MaxResults: maxResults}
	out, err := c.stream(ctx, 0, GetRecommendationsForUserMethod, req)
	if err != nil {
		c.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to fetch user recommendations")
		return nil
	}
	return out
}

// SimilarEvents returns events similar to eventID that userID has not
// seen, or nothing when the call fails.
func (c *Client) SimilarEvents(ctx context.Context, eventID, userID int64, maxResults int) []models.RecommendedEvent {
	req := &SimilarEventsRequest{EventID: eventID, UserID: userID, MaxResults: maxResults}
	out, err := c.stream(ctx, 1, GetSimilarEventsMethod, req)
	if err != nil {
		c.logger.Error().Err(err).Int64("event_id", eventID).Msg("failed to fetch similar events")
		return nil
	}
	return out
}

// InteractionTotals returns the summed weights of eventIDs, or nothing
// when the call fails.
func (c *Client) InteractionTotals(ctx context.Context, eventIDs []int64) []models.RecommendedEvent {
	out, err := c.stream(ctx, 2, GetInteractionsCountMethod, &InteractionsCountRequest{EventIDs: eventIDs})
	if err != nil {
		c.logger.Error().Err(err).Int("events", len(eventIDs)).Msg("failed to fetch interaction counts")
		return nil
	}
	return out
}

// SendUserAction reports one action to the collector, stamped with the
// current time. Failures are logged and reported through the return value.
func (c *Client) SendUserAction(ctx context.Context, userID, eventID int64, kind models.ActionKind) error {
	req := &UserActionRequest{UserID: userID, EventID: eventID, ActionType: kind, Timestamp: c.now().UTC()}
	err := c.conn.Invoke(outgoing(ctx), CollectUserActionMethod, req, &Empty{})
	if err != nil {
		c.logger.Error().Err(err).
			Int64("user_id", userID).
			Int64("event_id", eventID).
			Msg("failed to transmit user action to collector")
		return err
	}
	c.logger.Debug().Int64("user_id", userID).Int64("event_id", eventID).Msg("user action sent")
	return nil
}

// stream runs one server-streaming call of the query service and drains
// the results.
func (c *Client) stream(ctx context.Context, index int, method string, req any) ([]models.RecommendedEvent, error) {
	ctx, cancel := context.WithCancel(outgoing(ctx))
	defer cancel()

	cs, err := c.conn.NewStream(ctx, &RecommendationsServiceDesc.Streams[index], method)
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(req); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}

	out := []models.RecommendedEvent{}
	for {
		var ev RecommendedEvent
		err := cs.RecvMsg(&ev)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ev.toModel())
	}
}

// outgoing forwards the correlation id of ctx, if any.
func outgoing(ctx context.Context) context.Context {
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		return metadata.AppendToOutgoingContext(ctx, correlationKey, id)
	}
	return ctx
}
