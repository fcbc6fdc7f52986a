// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrNATSServerStopped is returned when the embedded server is no longer
// running while the tree still is.
var ErrNATSServerStopped = errors.New("embedded NATS server stopped")

// NATSServer is satisfied by *eventprocessor.EmbeddedServer.
type NATSServer interface {
	IsRunning() bool
	JetStreamEnabled() bool
	ClientURL() string
}

// EmbeddedNATSService watches the in-process NATS server. The server itself
// is started before the tree and shut down after it, because consumers need
// it for their final acknowledgements; this service surfaces an unexpected
// stop as a supervisor failure event.
type EmbeddedNATSService struct {
	server   NATSServer
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewEmbeddedNATSService checks server every interval (5s if non-positive).
//
//nolint:gocritic // zerolog.Logger is a value type
func NewEmbeddedNATSService(server NATSServer, interval time.Duration, logger zerolog.Logger) *EmbeddedNATSService {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &EmbeddedNATSService{
		server:   server,
		interval: interval,
		logger:   logger.With().Str("service", "embedded-nats").Logger(),
		name:     "embedded-nats",
	}
}

func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	s.logger.Debug().Str("url", s.server.ClientURL()).Msg("watching embedded NATS server")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.check(); err != nil {
				return err
			}
		}
	}
}

func (s *EmbeddedNATSService) check() error {
	if !s.server.IsRunning() {
		s.logger.Error().Msg("embedded NATS server is not running")
		return ErrNATSServerStopped
	}
	if !s.server.JetStreamEnabled() {
		s.logger.Error().Msg("embedded NATS server lost JetStream")
		return ErrNATSServerStopped
	}
	return nil
}

func (s *EmbeddedNATSService) String() string {
	return s.name
}
