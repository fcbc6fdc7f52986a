// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/tomtom215/ewm-stats/internal/api"
	"github.com/tomtom215/ewm-stats/internal/config"
	"github.com/tomtom215/ewm-stats/internal/eventprocessor"
	"github.com/tomtom215/ewm-stats/internal/logging"
	"github.com/tomtom215/ewm-stats/internal/recommend"
	"github.com/tomtom215/ewm-stats/internal/similarity"
	"github.com/tomtom215/ewm-stats/internal/supervisor"
	"github.com/tomtom215/ewm-stats/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("EWM Stats stopped")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // sequential wiring of the enabled roles
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	isCollector := cfg.HasRole(config.RoleCollector)
	isAggregator := cfg.HasRole(config.RoleAggregator)
	isAnalyzer := cfg.HasRole(config.RoleAnalyzer)

	logging.Info().
		Strs("roles", cfg.Roles).
		Str("database", cfg.Database.Driver).
		Bool("embedded_nats", cfg.NATS.EmbeddedServer).
		Msg("Starting EWM Stats")

	checks := make(map[string]api.ReadinessCheck)

	var store statsStore
	if isAnalyzer {
		var err error
		store, err = openStore(&cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing store")
			}
		}()
		checks["database"] = store.Ping
		logging.Info().Str("driver", cfg.Database.Driver).Msg("Store initialized")
	}

	// Closed after the tree has stopped: consumers acknowledge on the way out.
	msg, err := setupMessaging(ctx, &cfg.NATS, isCollector || isAggregator)
	if err != nil {
		return err
	}
	defer msg.close()
	checks["nats"] = msg.checkConnection
	checks["stream"] = msg.checkStream

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(&cfg.Supervisor))
	if err != nil {
		return err
	}
	svcLogger := logging.WithComponent("supervisor")

	if msg.server != nil {
		tree.AddMessagingService(services.NewEmbeddedNATSService(msg.server, 0, svcLogger))
	}

	deps := roleDeps{weights: actionWeights(&cfg.Similarity), store: store}
	if isAggregator {
		deps.engine = similarity.NewEngine(similarity.WithLogger(logging.WithComponent("similarity")))
		deps.publisher = msg.publisher
		tree.AddDataService(services.NewModelReportService(deps.engine, cfg.Similarity.ReportInterval, svcLogger))
	}

	for _, plan := range consumerPlans(cfg, deps) {
		consumer, err := msg.consumer(ctx, plan.cfg, plan.handler)
		if err != nil {
			return err
		}
		tree.AddMessagingService(consumer)
		logging.Info().
			Str("consumer", plan.cfg.Name).
			Str("durable", plan.cfg.Durable).
			Str("subject", plan.cfg.Subject).
			Bool("replay", plan.cfg.ResetOnStart).
			Msg("Consumer added to supervisor tree")
	}

	var fe frontends
	if isAnalyzer {
		fe.recommender = recommend.NewEngine(store, cfg.Recommend, logging.WithComponent("recommend"))
	}
	if isCollector {
		fe.collector = eventprocessor.NewCollector(msg.publisher, logging.WithComponent("collector"))
	}

	if grpcServer := newGRPCServer(fe); grpcServer != nil {
		tree.AddAPIService(services.NewGRPCServerService(grpcServer, cfg.GRPC.ListenAddr, cfg.Server.ShutdownTimeout, svcLogger))
		logging.Info().Str("addr", cfg.GRPC.ListenAddr).Msg("gRPC server service added")
	}

	httpServer := newHTTPServer(cfg, fe, checks)
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout, svcLogger))
	logging.Info().Str("addr", httpServer.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	treeErr := <-errCh
	if errors.Is(treeErr, context.Canceled) {
		treeErr = nil
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	return treeErr
}
