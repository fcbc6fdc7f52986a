// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/tomtom215/ewm-stats/internal/config"
)

// Default subjects of the STATS stream.
const (
	DefaultUserActionsSubject = "stats.user-actions.v1"
	DefaultSimilaritySubject  = "stats.events-similarity.v1"
)

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// StreamConfig describes the JetStream stream.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	DuplicateWindow time.Duration
	Replicas        int
}

// PublisherConfig configures the Watermill publisher.
type PublisherConfig struct {
	URL                string
	MaxReconnects      int
	ReconnectWait      time.Duration
	ReconnectBuffer    int
	EnableTrackMsgID   bool
	UserActionsSubject string
	SimilaritySubject  string
}

// CircuitBreakerConfig configures the publish circuit breaker.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// ConsumerConfig describes one durable pull consumer and its commit cadence.
type ConsumerConfig struct {
	// Name labels logs and metrics.
	Name    string
	Durable string
	Subject string

	Batch       int
	FetchWait   time.Duration
	AckWait     time.Duration
	CommitEvery int

	// ResetOnStart deletes the durable consumer before binding so the
	// stream is replayed from the first message.
	ResetOnStart bool
}

// Validate checks the consumer settings.
func (c ConsumerConfig) Validate() error {
	switch {
	case c.Durable == "":
		return fmt.Errorf("%w: consumer durable name is required", ErrInvalidConfig)
	case c.Subject == "":
		return fmt.Errorf("%w: consumer %s has no subject", ErrInvalidConfig, c.Durable)
	case c.Batch <= 0:
		return fmt.Errorf("%w: consumer %s batch must be positive", ErrInvalidConfig, c.Durable)
	case c.FetchWait <= 0:
		return fmt.Errorf("%w: consumer %s fetch wait must be positive", ErrInvalidConfig, c.Durable)
	case c.CommitEvery <= 0:
		return fmt.Errorf("%w: consumer %s commit interval must be positive", ErrInvalidConfig, c.Durable)
	}
	return nil
}

// ServerConfigFrom maps the NATS section to embedded server settings.
func ServerConfigFrom(cfg *config.NATSConfig) ServerConfig {
	return ServerConfig{
		Host:              cfg.Host,
		Port:              cfg.Port,
		StoreDir:          cfg.StoreDir,
		JetStreamMaxMem:   cfg.MaxMemory,
		JetStreamMaxStore: cfg.MaxStore,
	}
}

// StreamConfigFrom maps the NATS section to the stream definition.
func StreamConfigFrom(cfg *config.NATSConfig) StreamConfig {
	return StreamConfig{
		Name:            cfg.StreamName,
		Subjects:        []string{cfg.UserActionsSubject, cfg.SimilaritySubject},
		MaxAge:          cfg.StreamMaxAge,
		DuplicateWindow: cfg.DuplicateWindow,
		Replicas:        1,
	}
}

// PublisherConfigFrom maps the NATS section to publisher settings. url
// overrides cfg.URL when non-empty (the embedded server's client URL).
func PublisherConfigFrom(cfg *config.NATSConfig, url string) PublisherConfig {
	if url == "" {
		url = cfg.URL
	}
	return PublisherConfig{
		URL:                url,
		MaxReconnects:      cfg.MaxReconnects,
		ReconnectWait:      cfg.ReconnectWait,
		ReconnectBuffer:    8 * 1024 * 1024,
		EnableTrackMsgID:   true,
		UserActionsSubject: cfg.UserActionsSubject,
		SimilaritySubject:  cfg.SimilaritySubject,
	}
}

// DefaultCircuitBreakerConfig trips after five consecutive failures and
// probes again after 30s.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// ConsumerConfigFrom builds the consumer settings for one durable.
func ConsumerConfigFrom(cfg *config.NATSConfig, name, durable, subject string) ConsumerConfig {
	return ConsumerConfig{
		Name:        name,
		Durable:     durable,
		Subject:     subject,
		Batch:       cfg.FetchBatch,
		FetchWait:   cfg.FetchWait,
		AckWait:     cfg.AckWait,
		CommitEvery: cfg.CommitEvery,
	}
}

// CodecFrom builds the record codec for the configured subjects.
func CodecFrom(cfg *config.NATSConfig) Codec {
	return Codec{UserActionsSubject: cfg.UserActionsSubject, SimilaritySubject: cfg.SimilaritySubject}
}
