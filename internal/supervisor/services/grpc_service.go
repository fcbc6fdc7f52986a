// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package services

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// GRPCServer is the part of *grpc.Server the service drives.
type GRPCServer interface {
	Serve(lis net.Listener) error
	GracefulStop()
	Stop()
}

// GRPCServerService serves the query and collector RPC services. A fresh
// listener is opened on every start so a bind failure is retried by the
// supervisor.
type GRPCServerService struct {
	server          GRPCServer
	addr            string
	shutdownTimeout time.Duration
	listen          func(network, addr string) (net.Listener, error)
	logger          zerolog.Logger
	name            string
}

// NewGRPCServerService wraps server listening on addr. A non-positive
// shutdownTimeout means 10s.
//
//nolint:gocritic // zerolog.Logger is a value type
func NewGRPCServerService(server GRPCServer, addr string, shutdownTimeout time.Duration, logger zerolog.Logger) *GRPCServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &GRPCServerService{
		server:          server,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
		listen:          net.Listen,
		logger:          logger.With().Str("service", "grpc-server").Logger(),
		name:            "grpc-server",
	}
}

// Serve listens and serves until the server fails or ctx is cancelled. On
// cancellation in-flight streams get shutdownTimeout to finish before the
// server is stopped hard.
func (g *GRPCServerService) Serve(ctx context.Context) error {
	lis, err := g.listen("tcp", g.addr)
	if err != nil {
		return fmt.Errorf("grpc listen on %s: %w", g.addr, err)
	}
	g.logger.Info().Str("addr", lis.Addr().String()).Msg("grpc server listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- g.server.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("grpc server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		stopped := make(chan struct{})
		go func() {
			g.server.GracefulStop()
			close(stopped)
		}()

		timer := time.NewTimer(g.shutdownTimeout)
		defer timer.Stop()

		select {
		case <-stopped:
		case <-timer.C:
			g.logger.Warn().Dur("timeout", g.shutdownTimeout).Msg("graceful stop timed out, forcing")
			g.server.Stop()
			<-stopped
		}

		<-errCh
		return ctx.Err()
	}
}

func (g *GRPCServerService) String() string {
	return g.name
}
