// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package services provides suture.Service wrappers for the rating pipeline's
long-running components.

This package adapts each component's own lifecycle pattern (ListenAndServe,
Start/Stop, Run/Close) into suture's context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve

Dispatcher (DispatcherService):
  - Wraps *dispatcher.Dispatcher's Start/Stop lifecycle
  - Drives the contest-offset job scheduling tick loop

Consumer (ConsumerService):
  - Wraps *jobqueue.Consumer's blocking Run/Close lifecycle
  - Drains the NATS JetStream job queue into the Orchestrator

# Lifecycle Patterns

Start/Stop Pattern (DispatcherService):

	func (s *Service) Serve(ctx context.Context) error {
	    if err := s.component.Start(ctx); err != nil {
	        return err
	    }
	    <-ctx.Done()
	    return s.component.Stop()
	}

Run/Close Pattern (ConsumerService):

	func (s *Service) Serve(ctx context.Context) error {
	    err := s.component.Run(ctx) // blocks on ctx
	    closeErr := s.component.Close()
	    ...
	}

ListenAndServe Pattern (HTTPServerService):

	func (s *Service) Serve(ctx context.Context) error {
	    go s.server.ListenAndServe()
	    <-ctx.Done()
	    return s.server.Shutdown(shutdownCtx)
	}

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# Service Identification

All services implement fmt.Stringer for logging:

	func (s *HTTPServerService) String() string {
	    return "http-server"
	}

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/dispatcher: Dispatcher wrapped by DispatcherService
  - internal/jobqueue: Consumer wrapped by ConsumerService
*/
package services
