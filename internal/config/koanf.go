// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

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

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/ewm-stats/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Roles: []string{RoleCollector, RoleAggregator, RoleAnalyzer},
		NATS: NATSConfig{
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			Host:           "127.0.0.1",
			Port:           4222,
			StoreDir:       "/data/nats/jetstream",
			MaxMemory:      256 << 20,
			MaxStore:       4 << 30,
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,

			StreamName:      "STATS",
			StreamMaxAge:    0,
			DuplicateWindow: 2 * time.Minute,

			UserActionsSubject: "stats.user-actions.v1",
			SimilaritySubject:  "stats.events-similarity.v1",

			AggregatorDurable:         "aggregator",
			AnalyzerActionsDurable:    "analyzer-user-actions",
			AnalyzerSimilarityDurable: "analyzer-similarity",

			FetchBatch:  100,
			FetchWait:   time.Second,
			AckWait:     30 * time.Second,
			CommitEvery: 10,

			ReplayOnStart: true,
		},
		Database: DatabaseConfig{
			Driver:    DriverDuckDB,
			Path:      "/data/ewm-stats.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
			MaxConns:  10,
		},
		Similarity: SimilarityConfig{
			ViewWeight:     0.4,
			RegisterWeight: 0.8,
			LikeWeight:     1.0,
			ReportInterval: time.Minute,
		},
		Recommend: RecommendConfig{
			Neighbours:     5,
			DefaultResults: 10,
			MaxResults:     100,
			Parallelism:    8,
			QueryTimeout:   5 * time.Second,
		},
		GRPC: GRPCConfig{
			ListenAddr:      ":9090",
			AnalyzerTarget:  "127.0.0.1:9090",
			CollectorTarget: "127.0.0.1:9090",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load layers defaults, the config file (if any) and the environment, then
// validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"roles",
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"roles": "roles",

	"nats_url":                  "nats.url",
	"nats_embedded":             "nats.embedded_server",
	"nats_host":                 "nats.host",
	"nats_port":                 "nats.port",
	"nats_store_dir":            "nats.store_dir",
	"nats_max_memory":           "nats.max_memory",
	"nats_max_store":            "nats.max_store",
	"nats_stream_name":          "nats.stream_name",
	"nats_stream_max_age":       "nats.stream_max_age",
	"nats_fetch_batch":          "nats.fetch_batch",
	"nats_fetch_wait":           "nats.fetch_wait",
	"nats_ack_wait":             "nats.ack_wait",
	"nats_commit_every":         "nats.commit_every",
	"nats_replay_on_start":      "nats.replay_on_start",
	"user_actions_subject":      "nats.user_actions_subject",
	"events_similarity_subject": "nats.similarity_subject",

	"database_driver":    "database.driver",
	"duckdb_path":        "database.path",
	"duckdb_max_memory":  "database.max_memory",
	"duckdb_threads":     "database.threads",
	"postgres_dsn":       "database.postgres_dsn",
	"postgres_max_conns": "database.max_conns",

	"weight_view":           "similarity.view_weight",
	"weight_register":       "similarity.register_weight",
	"weight_like":           "similarity.like_weight",
	"model_report_interval": "similarity.report_interval",

	"recommend_neighbours":      "recommend.neighbours",
	"recommend_default_results": "recommend.default_results",
	"recommend_max_results":     "recommend.max_results",
	"recommend_parallelism":     "recommend.parallelism",
	"recommend_query_timeout":   "recommend.query_timeout",

	"grpc_listen_addr":      "grpc.listen_addr",
	"grpc_analyzer_target":  "grpc.analyzer_target",
	"grpc_collector_target": "grpc.collector_target",

	"http_host":         "server.host",
	"http_port":         "server.port",
	"cors_origins":      "server.cors_origins",
	"rate_limit_reqs":   "server.rate_limit_reqs",
	"rate_limit_window": "server.rate_limit_window",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc maps known environment variables onto config paths and
// drops everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
