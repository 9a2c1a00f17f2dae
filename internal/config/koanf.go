package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/ratingpipeline/config.yaml",
	"/etc/ratingpipeline/config.yml",
}

// ConfigPathEnvVar overrides the config file path search.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			URI:               "mongodb://127.0.0.1:27017",
			Database:          "lc_predictor",
			ConnectTimeout:    10 * time.Second,
			OperationTimeout:  30 * time.Second,
			WriteConcurrency:  50,
			UpsertConcurrency: 5,
		},
		Fetcher: FetcherConfig{
			ConcurrentNumDefault: 5,
			ConcurrentNumCN:      10,
			RetryNum:             10,
			RequestTimeout:       15 * time.Second,
			WaitUnit:             1 * time.Second,
			UserAgent:            "Mozilla/5.0 (compatible; rating-pipeline/1.0)",
			BreakerMaxFailures:   5,
			BreakerOpenTimeout:   30 * time.Second,
			RateLimitPerSecond:   5,
		},
		Rating: RatingConfig{
			Engine: "convolution",
		},
		Contests: ContestsConfig{
			WeeklyRefSlugNumber:   294,
			WeeklyRefTime:         time.Date(2022, 5, 22, 2, 30, 0, 0, time.UTC),
			BiweeklyRefSlugNumber: 78,
			BiweeklyRefTime:       time.Date(2022, 5, 14, 14, 30, 0, 0, time.UTC),
			RankReconGridMinutes:  1,
			ReadinessPollInterval: 60 * time.Second,
			ReadinessMaxAttempts:  300,
		},
		NATS: NATSConfig{
			Enabled:        true,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/nats/jetstream",
			StreamName:     "PIPELINE_JOBS",
			DurableName:    "pipeline-orchestrator",
			QueueGroup:     "orchestrators",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			AckWaitTimeout: 30 * time.Second,
		},
		Checkpoint: CheckpointConfig{
			Path: "/data/dispatcher/checkpoint",
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		API: APIConfig{
			DefaultPageSize:  20,
			MaxPageSize:      100,
			MaxBulkUserCount: 26,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration from defaults, then an optional YAML
// file, then environment variables, in ascending precedence, and validates
// the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps a lower-cased environment variable name to its koanf path.
var envMappings = map[string]string{
	"mongo_uri":      "store.uri",
	"mongo_database": "store.database",

	"fetcher_concurrent_num":    "fetcher.concurrent_num_default",
	"fetcher_concurrent_num_cn": "fetcher.concurrent_num_cn",
	"fetcher_retry_num":         "fetcher.retry_num",
	"fetcher_user_agent":        "fetcher.user_agent",

	"rating_engine": "rating.engine",

	"nats_enabled":     "nats.enabled",
	"nats_url":         "nats.url",
	"nats_embedded":    "nats.embedded_server",
	"nats_store_dir":   "nats.store_dir",
	"nats_stream_name": "nats.stream_name",

	"checkpoint_path": "checkpoint.path",

	"http_host": "server.host",
	"http_port": "server.port",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names onto koanf config paths;
// unmapped variables are skipped to avoid polluting config from stray env.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// GetKoanfInstance returns a fresh Koanf instance for advanced/testing use.
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}
