// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

/*
Package supervisor runs the long-lived services of EWM Stats under a suture v4
tree.

# Overview

Services are grouped into three layers so a failing consumer loop does not
take the query API down with it:

	RootSupervisor ("ewm-stats")
	├── DataSupervisor ("data")
	│   └── ModelReportService (aggregator role)
	├── MessagingSupervisor ("messaging")
	│   ├── EmbeddedNATSService (when the embedded server is enabled)
	│   ├── Consumer "aggregator"
	│   ├── Consumer "analyzer-user-actions"
	│   └── Consumer "analyzer-similarity"
	└── APISupervisor ("api")
	    ├── GRPCServerService
	    └── HTTPServerService

A consumer returning an error (for example a failed store write) is restarted
with backoff and resumes from the last acknowledged message. Restart events
are logged through sutureslog.

# Shutdown

Cancelling the context passed to Serve stops every layer. Each service gets
ShutdownTimeout to return; services that miss it are reported by
UnstoppedServiceReport.

The publisher and the NATS connection are owned by the caller and must be
closed after Serve returns, so the consumers' final acknowledgements still
reach the server.
*/
package supervisor
