// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package main is the entry point for the rating pipeline daemon. See
// doc.go for the full architecture and configuration reference.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/lc-predictor/ratingpipeline/internal/api"
	"github.com/lc-predictor/ratingpipeline/internal/checkpoint"
	"github.com/lc-predictor/ratingpipeline/internal/config"
	"github.com/lc-predictor/ratingpipeline/internal/dispatcher"
	"github.com/lc-predictor/ratingpipeline/internal/httpfetch"
	"github.com/lc-predictor/ratingpipeline/internal/jobqueue"
	"github.com/lc-predictor/ratingpipeline/internal/logging"
	"github.com/lc-predictor/ratingpipeline/internal/pipeline"
	"github.com/lc-predictor/ratingpipeline/internal/store"
	"github.com/lc-predictor/ratingpipeline/internal/supervisor"
	"github.com/lc-predictor/ratingpipeline/internal/supervisor/services"
)

//nolint:gocyclo // sequential setup steps, matches the daemon's init order
func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting rating pipeline with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Str("database", cfg.Store.Database).Msg("Store opened")

	fetcher := httpfetch.New("leetcode", httpfetch.Config{
		ConcurrentNum:      cfg.Fetcher.ConcurrentNumDefault,
		RetryNum:           cfg.Fetcher.RetryNum,
		RequestTimeout:     cfg.Fetcher.RequestTimeout,
		WaitUnit:           cfg.Fetcher.WaitUnit,
		UserAgent:          cfg.Fetcher.UserAgent,
		BreakerMaxFailures: cfg.Fetcher.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.Fetcher.BreakerOpenTimeout,
		RateLimitPerSecond: cfg.Fetcher.RateLimitPerSecond,
	})

	orchestrator := pipeline.New(st, fetcher, cfg.Rating, cfg.Contests)

	cpStore, err := checkpoint.Open(cfg.Checkpoint)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open checkpoint store")
	}
	defer func() {
		if err := cpStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing checkpoint store")
		}
	}()

	natsURL, embedded, err := startJobQueueTransport(cfg.NATS)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to start job queue transport")
	}
	if embedded != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := embedded.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
			}
		}()
	}

	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
	)
	if err != nil {
		logging.Fatal().Err(err).Str("url", natsURL).Msg("Failed to connect to NATS")
	}
	defer nc.Close()

	streamMgr, err := jobqueue.NewStreamManager(nc)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create job stream manager")
	}
	if _, err := streamMgr.EnsureStream(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to provision jobs stream")
	}
	logging.Info().Msg("Jobs stream ready")

	wmLogger := logging.NewWatermillLogger()

	publisher, err := jobqueue.NewPublisher(cfg.NATS, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create job publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing job publisher")
		}
	}()

	consumer, err := jobqueue.NewConsumer(cfg.NATS, jobqueue.OrchestratorHandler(orchestrator), wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create job consumer")
	}

	zlogger := logging.Logger()
	disp := dispatcher.New(publisher, cfg.Contests, dispatcher.DefaultOffsets(), zlogger)
	disp.SetCheckpoint(cpStore)

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewDispatcherService(disp))
	logging.Info().Msg("Dispatcher added to supervisor tree")

	tree.AddMessagingService(services.NewConsumerService(consumer))
	logging.Info().Msg("Job consumer added to supervisor tree")

	handler := api.NewHandler(st)
	router := api.NewRouter(handler, nil)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))
	logging.Info().Str("addr", httpServer.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// startJobQueueTransport starts an embedded NATS JetStream server when
// cfg.EmbeddedServer is set, returning the client URL consumers and
// publishers should dial and the server handle to shut down on exit. When
// EmbeddedServer is false, it simply returns cfg.URL and a nil server,
// expecting an externally-managed NATS deployment.
func startJobQueueTransport(cfg config.NATSConfig) (string, *jobqueue.EmbeddedServer, error) {
	if !cfg.EmbeddedServer {
		return cfg.URL, nil, nil
	}

	srv, err := jobqueue.NewEmbeddedServer(cfg)
	if err != nil {
		return "", nil, fmt.Errorf("start embedded NATS server: %w", err)
	}
	logging.Info().Str("url", srv.ClientURL()).Msg("Embedded NATS JetStream server started")
	return srv.ClientURL(), srv, nil
}
