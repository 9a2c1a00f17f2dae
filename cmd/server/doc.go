// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package main is the entry point for the rating pipeline daemon.

The daemon predicts and archives LeetCode contest ratings. A dispatcher
ticks once a minute and decides what contest work is due; a NATS
JetStream consumer drains that work into the orchestrator's
crawl-predict-archive sequence; a read-only HTTP API serves the resulting
contest, record, and question data straight from the store.

# Application Architecture

The process implements a layered architecture with Suture v4 process
supervision:

	RootSupervisor ("ratingpipeline")
	├── ScheduleSupervisor ("schedule-layer")
	│   └── Dispatcher (once-a-minute tick loop)
	├── JobsSupervisor ("jobs-layer")
	│   └── JetStream Consumer (drains jobs into the orchestrator)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (contests/records/questions read endpoints)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and a config file
 2. Logging: zerolog with JSON/console output modes
 3. Store: MongoDB-backed contest/record/question collections
 4. Fetcher: shared round-based HTTP client for every crawl
 5. Checkpoint: BadgerDB debounce store surviving process restarts
 6. Job queue: embedded or external NATS JetStream, stream provisioning,
    publisher/consumer construction
 7. Dispatcher: the tick loop, bound to the checkpoint store
 8. Supervisor Tree: Suture v4 process supervision
 9. HTTP Server: Chi router with middleware stack

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest
priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	# Server
	HTTP_PORT=8080               # HTTP server port
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Store
	MONGO_URI=mongodb://localhost:27017
	MONGO_DATABASE=ratingpipeline

	# Job queue
	NATS_URL=nats://localhost:4222
	NATS_EMBEDDED=true           # run NATS in-process instead of dialing out
	NATS_STORE_DIR=/var/lib/ratingpipeline/nats

	# Checkpoint
	CHECKPOINT_PATH=/var/lib/ratingpipeline/checkpoint

	# Rating engine
	RATING_ENGINE=convolution    # convolution or iterative

# Signal Handling

The process handles graceful shutdown on SIGINT and SIGTERM:

 1. Cancels the root context, stopping new dispatch ticks
 2. Stops the dispatcher and waits for in-flight schedule goroutines
 3. Closes the job consumer, publisher, and NATS connection
 4. Waits for in-flight HTTP requests (10s timeout)
 5. Closes the checkpoint database and store connection
 6. Reports any services that failed to stop

# Usage Examples

Development, embedded NATS, local MongoDB:

	export MONGO_URI=mongodb://localhost:27017
	export NATS_EMBEDDED=true
	go run ./cmd/server

Production, external NATS cluster:

	export MONGO_URI=mongodb://ratingpipeline-mongo:27017
	export NATS_URL=nats://ratingpipeline-nats:4222
	export NATS_EMBEDDED=false
	./ratingpipeline

# See Also

  - internal/config: Configuration management
  - internal/supervisor: Process supervision
  - internal/dispatcher: Contest-offset job scheduling
  - internal/jobqueue: NATS JetStream transport
  - internal/pipeline: Crawl-predict-archive orchestration
  - internal/api: HTTP handlers and routing
*/
package main
