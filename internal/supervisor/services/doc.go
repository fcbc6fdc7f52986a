// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

/*
Package services adapts EWM Stats components to suture's Serve pattern.

	type Service interface {
	    Serve(ctx context.Context) error
	}

Every wrapper returns ctx.Err() after a requested shutdown and a wrapped error
on failure, so the supervisor can tell the two apart. String names the
service in supervisor logs.

# Available Services

HTTPServerService:
  - Runs *http.Server.ListenAndServe, Shutdown with a timeout on cancel

GRPCServerService:
  - Opens a listener per start, GracefulStop on cancel, Stop after the timeout

EmbeddedNATSService:
  - Watches the in-process NATS server and fails when it stops

ModelReportService:
  - Logs the size of the aggregator's similarity model on an interval

Stream consumers (*eventprocessor.Consumer) implement suture.Service
themselves and are added to the tree directly.
*/
package services
