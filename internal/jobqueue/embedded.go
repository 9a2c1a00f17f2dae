package jobqueue

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/lc-predictor/ratingpipeline/internal/config"
)

// defaultEmbeddedHost/Port are used when cfg.URL, after any nats:// or
// tls:// prefix is stripped, doesn't parse as a host:port pair (e.g. it's
// empty, or has no port).
const (
	defaultEmbeddedHost = "127.0.0.1"
	defaultEmbeddedPort = 4222

	embeddedJetStreamMaxMemory = 256 * 1024 * 1024
	embeddedJetStreamMaxStore  = 4 * 1024 * 1024 * 1024
)

// EmbeddedServer runs a single-process NATS JetStream server, letting the
// rating pipeline run without an external NATS deployment. It is started
// when cfg.NATS.EmbeddedServer is true.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer creates and starts an embedded NATS JetStream server
// bound to the host:port parsed out of cfg.URL (falling back to
// 127.0.0.1:4222), persisting stream state under cfg.StoreDir.
func NewEmbeddedServer(cfg config.NATSConfig) (*EmbeddedServer, error) {
	host, port := embeddedHostPort(cfg.URL)

	opts := &server.Options{
		ServerName:         "ratingpipeline-jobs",
		Host:               host,
		Port:               port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: embeddedJetStreamMaxMemory,
		JetStreamMaxStore:  embeddedJetStreamMaxStore,
		DontListen:         false,
		MaxPayload:         8 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready within timeout")
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL consumers and publishers should dial.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Shutdown stops the embedded server and waits for it to finish shutting
// down. ctx is checked once, after the stop is issued: if it is already
// done, Shutdown returns ctx.Err() without waiting.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.server.WaitForShutdown()
		return nil
	}
}

// IsRunning reports whether the embedded server is currently accepting connections.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// embeddedHostPort extracts a host and port from a NATS URL or bare
// host:port string, defaulting whichever half is missing or unparsable.
func embeddedHostPort(url string) (string, int) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(url, "nats://"), "tls://")
	if trimmed == "" {
		return defaultEmbeddedHost, defaultEmbeddedPort
	}

	host, portStr, err := net.SplitHostPort(trimmed)
	if err != nil {
		return defaultEmbeddedHost, defaultEmbeddedPort
	}
	if host == "" {
		host = defaultEmbeddedHost
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		port = defaultEmbeddedPort
	}

	return host, port
}
