// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

// Package config loads the service configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import "time"

// Role names accepted in Config.Roles.
const (
	RoleCollector  = "collector"
	RoleAggregator = "aggregator"
	RoleAnalyzer   = "analyzer"
)

// Database drivers accepted in DatabaseConfig.Driver.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// Config is the root configuration.
type Config struct {
	Roles      []string         `koanf:"roles"`
	NATS       NATSConfig       `koanf:"nats"`
	Database   DatabaseConfig   `koanf:"database"`
	Similarity SimilarityConfig `koanf:"similarity"`
	Recommend  RecommendConfig  `koanf:"recommend"`
	GRPC       GRPCConfig       `koanf:"grpc"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// HasRole reports whether role is enabled.
func (c *Config) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// NATSConfig covers the broker connection, the stream and both consumers.
type NATSConfig struct {
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`

	StreamName      string        `koanf:"stream_name"`
	StreamMaxAge    time.Duration `koanf:"stream_max_age"`
	DuplicateWindow time.Duration `koanf:"duplicate_window"`

	UserActionsSubject string `koanf:"user_actions_subject"`
	SimilaritySubject  string `koanf:"similarity_subject"`

	AggregatorDurable         string `koanf:"aggregator_durable"`
	AnalyzerActionsDurable    string `koanf:"analyzer_actions_durable"`
	AnalyzerSimilarityDurable string `koanf:"analyzer_similarity_durable"`

	FetchBatch  int           `koanf:"fetch_batch"`
	FetchWait   time.Duration `koanf:"fetch_wait"`
	AckWait     time.Duration `koanf:"ack_wait"`
	CommitEvery int           `koanf:"commit_every"`

	// ReplayOnStart drops the aggregator's durable consumer at startup so the
	// in-memory similarity model is rebuilt from the start of the stream.
	ReplayOnStart bool `koanf:"replay_on_start"`
}

// DatabaseConfig selects and configures the persisted stores.
type DatabaseConfig struct {
	Driver    string `koanf:"driver"`
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`

	PostgresDSN string `koanf:"postgres_dsn"`
	MaxConns    int    `koanf:"max_conns"`
}

// SimilarityConfig holds the action kind weights.
type SimilarityConfig struct {
	ViewWeight     float64 `koanf:"view_weight"`
	RegisterWeight float64 `koanf:"register_weight"`
	LikeWeight     float64 `koanf:"like_weight"`

	// ReportInterval is how often the aggregator logs the model size.
	ReportInterval time.Duration `koanf:"report_interval"`
}

// RecommendConfig tunes the read path.
type RecommendConfig struct {
	Neighbours     int           `koanf:"neighbours"`
	DefaultResults int           `koanf:"default_results"`
	MaxResults     int           `koanf:"max_results"`
	Parallelism    int           `koanf:"parallelism"`
	QueryTimeout   time.Duration `koanf:"query_timeout"`
}

// GRPCConfig configures the RPC listener and outbound client targets.
type GRPCConfig struct {
	ListenAddr      string `koanf:"listen_addr"`
	AnalyzerTarget  string `koanf:"analyzer_target"`
	CollectorTarget string `koanf:"collector_target"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig mirrors logging.Config for the file/env layers.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig configures restart behaviour of the service tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}
