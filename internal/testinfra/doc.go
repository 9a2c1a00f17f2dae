// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to manage Docker containers for integration tests,
// providing realistic testing environments that closely match production.
//
// # MongoDB Container
//
// internal/store's integration tests (//go:build integration) start a real
// MongoDB container via testcontainers-go/modules/mongodb rather than a
// mock, so they exercise the actual driver and query shapes:
//
//	func newTestStore(t *testing.T) *Store {
//	    testinfra.SkipIfNoDocker(t)
//	    container, err := mongodb.Run(ctx, "mongo:7")
//	    ...
//	}
//
// # Benefits Over Mocks
//
// Using real containers provides several advantages:
//   - Tests validate actual query behavior against the real database engine
//   - No mock drift (mocks getting out of sync with the real driver)
//   - Tests run against production-equivalent services
//
// # CI Considerations
//
// These tests require Docker and network access. SkipIfNoDocker lets them
// degrade gracefully in environments without a Docker daemon, and
// testing.Short() lets callers opt out entirely with `go test -short`.
package testinfra
