// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package main

import (
	"fmt"
	"net/http"
	"time"

	"google.golang.org/grpc"

	"github.com/tomtom215/ewm-stats/internal/api"
	"github.com/tomtom215/ewm-stats/internal/config"
	"github.com/tomtom215/ewm-stats/internal/logging"
	"github.com/tomtom215/ewm-stats/internal/rpc"
)

// frontends are the query and collect implementations exposed over HTTP and
// gRPC. A nil field disables the matching routes and RPC service.
type frontends struct {
	recommender api.Recommender
	collector   api.Collector
}

// newGRPCServer registers the RPC services for the enabled frontends. It
// returns nil when there is nothing to serve.
func newGRPCServer(f frontends) *grpc.Server {
	if f.recommender == nil && f.collector == nil {
		return nil
	}
	srv := rpc.NewServer(logging.Logger())
	if f.recommender != nil {
		rpc.NewQueryService(f.recommender).Register(srv)
	}
	if f.collector != nil {
		rpc.NewCollectorService(f.collector).Register(srv)
	}
	return srv
}

func newHTTPServer(cfg *config.Config, f frontends, checks map[string]api.ReadinessCheck) *http.Server {
	handler := api.NewHandler(api.HandlerOptions{
		Recommender: f.recommender,
		Collector:   f.collector,
		Checks:      checks,
		Roles:       cfg.Roles,
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Server)))

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
