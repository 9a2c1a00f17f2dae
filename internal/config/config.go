package config

import (
	"fmt"
	"time"
)

// Config holds all process configuration, loaded from defaults, an optional
// YAML file, and environment variables (in that order of precedence).
type Config struct {
	Store      StoreConfig      `koanf:"store"`
	Fetcher    FetcherConfig    `koanf:"fetcher"`
	Rating     RatingConfig     `koanf:"rating"`
	Contests   ContestsConfig   `koanf:"contests"`
	NATS       NATSConfig       `koanf:"nats"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// StoreConfig configures the MongoDB-backed record store gateway.
type StoreConfig struct {
	URI               string        `koanf:"uri"`
	Database          string        `koanf:"database"`
	ConnectTimeout    time.Duration `koanf:"connect_timeout"`
	OperationTimeout  time.Duration `koanf:"operation_timeout"`
	WriteConcurrency  int           `koanf:"write_concurrency"`
	UpsertConcurrency int           `koanf:"upsert_concurrency"`
}

// FetcherConfig configures the round-based HTTP fetcher.
type FetcherConfig struct {
	ConcurrentNumDefault int           `koanf:"concurrent_num_default"`
	ConcurrentNumCN      int           `koanf:"concurrent_num_cn"`
	RetryNum             int           `koanf:"retry_num"`
	RequestTimeout       time.Duration `koanf:"request_timeout"`
	WaitUnit             time.Duration `koanf:"wait_unit"`
	UserAgent            string        `koanf:"user_agent"`
	BreakerMaxFailures   uint32        `koanf:"breaker_max_failures"`
	BreakerOpenTimeout   time.Duration `koanf:"breaker_open_timeout"`
	RateLimitPerSecond   float64       `koanf:"rate_limit_per_second"`
}

// RatingConfig selects and tunes the rating delta engine.
type RatingConfig struct {
	Engine string `koanf:"engine"` // "convolution" or "iterative"
}

// ContestsConfig carries the reference tuples used to infer contest start
// times and weeks-since offsets for weekly/biweekly dispatch.
type ContestsConfig struct {
	WeeklyRefSlugNumber   int           `koanf:"weekly_ref_slug_number"`
	WeeklyRefTime         time.Time     `koanf:"weekly_ref_time"`
	BiweeklyRefSlugNumber int           `koanf:"biweekly_ref_slug_number"`
	BiweeklyRefTime       time.Time     `koanf:"biweekly_ref_time"`
	RankReconGridMinutes  int           `koanf:"rank_recon_grid_minutes"`
	ReadinessPollInterval time.Duration `koanf:"readiness_poll_interval"`
	ReadinessMaxAttempts  int           `koanf:"readiness_max_attempts"`
}

// NATSConfig configures the embedded NATS JetStream job transport.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	StoreDir       string        `koanf:"store_dir"`
	StreamName     string        `koanf:"stream_name"`
	DurableName    string        `koanf:"durable_name"`
	QueueGroup     string        `koanf:"queue_group"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
	AckWaitTimeout time.Duration `koanf:"ack_wait_timeout"`
}

// CheckpointConfig configures the BadgerDB-backed dispatcher checkpoint store.
type CheckpointConfig struct {
	Path string `koanf:"path"`
}

// ServerConfig configures the read-only HTTP API listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// APIConfig holds pagination and bulk-lookup limits for the read API.
// Validate checks MaxBulkUserCount; the read API's handlers use their own
// fixed page-size and bulk limits and do not read these fields.
type APIConfig struct {
	DefaultPageSize  int `koanf:"default_page_size"`
	MaxPageSize      int `koanf:"max_page_size"`
	MaxBulkUserCount int `koanf:"max_bulk_user_count"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks required fields and value ranges, returning the first
// violation found.
func (c *Config) Validate() error {
	if c.Store.URI == "" {
		return fmt.Errorf("store.uri is required")
	}
	if c.Store.Database == "" {
		return fmt.Errorf("store.database is required")
	}
	if c.Fetcher.ConcurrentNumDefault <= 0 {
		return fmt.Errorf("fetcher.concurrent_num_default must be positive")
	}
	if c.Fetcher.RetryNum <= 0 {
		return fmt.Errorf("fetcher.retry_num must be positive")
	}
	switch c.Rating.Engine {
	case "convolution", "iterative":
	default:
		return fmt.Errorf("rating.engine must be 'convolution' or 'iterative', got %q", c.Rating.Engine)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.API.MaxBulkUserCount <= 0 {
		return fmt.Errorf("api.max_bulk_user_count must be positive")
	}
	return nil
}
