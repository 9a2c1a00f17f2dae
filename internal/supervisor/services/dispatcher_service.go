// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package services

import (
	"context"
	"fmt"
	"time"
)

// DispatcherRunner matches the internal/dispatcher.Dispatcher lifecycle: Start
// spawns its tick goroutine and returns immediately, Stop blocks until the
// goroutine has exited.
//
// Satisfied by *dispatcher.Dispatcher:
//   - Start(ctx context.Context) error
//   - Stop() error
type DispatcherRunner interface {
	Start(ctx context.Context) error
	Stop() error
}

// DispatcherService wraps a Dispatcher as a supervised service.
//
// It adapts the Start/Stop lifecycle to suture's Serve pattern:
//  1. Calls Start(ctx) to begin the minute-granularity tick loop
//  2. Waits for context cancellation
//  3. Calls Stop() for graceful shutdown
type DispatcherService struct {
	dispatcher      DispatcherRunner
	shutdownTimeout time.Duration
	name            string
}

// NewDispatcherService creates a new Dispatcher service wrapper.
func NewDispatcherService(dispatcher DispatcherRunner) *DispatcherService {
	return &DispatcherService{
		dispatcher:      dispatcher,
		shutdownTimeout: 10 * time.Second,
		name:            "dispatcher",
	}
}

// Serve implements suture.Service.
func (s *DispatcherService) Serve(ctx context.Context) error {
	if err := s.dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("dispatcher start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.dispatcher.Stop(); err != nil {
		return fmt.Errorf("dispatcher stop failed: %w", err)
	}

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *DispatcherService) String() string {
	return s.name
}
