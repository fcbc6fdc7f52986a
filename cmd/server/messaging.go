// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/ewm-stats/internal/config"
	"github.com/tomtom215/ewm-stats/internal/eventprocessor"
	"github.com/tomtom215/ewm-stats/internal/logging"
)

var errNATSDisconnected = errors.New("NATS connection is not connected")

// messaging holds the NATS side of the process.
type messaging struct {
	server    *eventprocessor.EmbeddedServer
	conn      *natsgo.Conn
	stream    *eventprocessor.StreamInitializer
	publisher *eventprocessor.Publisher
	codec     eventprocessor.Codec
}

// setupMessaging starts the embedded server if configured, connects, ensures
// the stream and, when withPublisher is set, creates the publisher. On error
// everything created so far is closed.
func setupMessaging(ctx context.Context, cfg *config.NATSConfig, withPublisher bool) (_ *messaging, err error) {
	m := &messaging{codec: eventprocessor.CodecFrom(cfg)}
	defer func() {
		if err != nil {
			m.close()
		}
	}()

	url := cfg.URL
	if cfg.EmbeddedServer {
		m.server, err = eventprocessor.NewEmbeddedServer(eventprocessor.ServerConfigFrom(cfg))
		if err != nil {
			return nil, err
		}
		url = m.server.ClientURL()
		logging.Info().Str("url", url).Str("store_dir", cfg.StoreDir).Msg("Embedded NATS server started")
	} else {
		logging.Info().Str("url", url).Msg("Using external NATS server")
	}

	m.conn, err = eventprocessor.Connect(url, cfg.MaxReconnects, cfg.ReconnectWait, logging.WithComponent("nats"))
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(m.conn)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	m.stream, err = eventprocessor.NewStreamInitializer(js, eventprocessor.StreamConfigFrom(cfg))
	if err != nil {
		return nil, err
	}
	stream, err := m.stream.EnsureStream(ctx)
	if err != nil {
		return nil, err
	}
	info := stream.CachedInfo()
	logging.Info().
		Str("name", info.Config.Name).
		Strs("subjects", info.Config.Subjects).
		Dur("duplicate_window", info.Config.Duplicates).
		Msg("JetStream stream ready")

	if withPublisher {
		wmLogger := watermill.NewSlogLogger(logging.NewSlogLogger())
		m.publisher, err = eventprocessor.NewPublisher(eventprocessor.PublisherConfigFrom(cfg, url), wmLogger)
		if err != nil {
			return nil, err
		}
		breaker := eventprocessor.NewCircuitBreaker(
			eventprocessor.DefaultCircuitBreakerConfig("nats-publisher"),
			logging.WithComponent("circuit-breaker"),
		)
		m.publisher.SetCircuitBreaker(breaker)
		logging.Info().Msg("NATS publisher created")
	}

	return m, nil
}

// consumer binds a durable consumer and wraps it in the ack loop.
func (m *messaging) consumer(ctx context.Context, cfg eventprocessor.ConsumerConfig, handler eventprocessor.Handler) (*eventprocessor.Consumer, error) {
	jc, err := m.stream.BindConsumer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return eventprocessor.NewConsumer(cfg, eventprocessor.NewJetStreamSource(jc), m.codec, handler, logging.WithComponent("consumer"))
}

func (m *messaging) checkConnection(context.Context) error {
	if !m.conn.IsConnected() {
		return errNATSDisconnected
	}
	return nil
}

func (m *messaging) checkStream(ctx context.Context) error {
	if !m.stream.IsHealthy(ctx) {
		return fmt.Errorf("stream %s unavailable", m.stream.Config().Name)
	}
	return nil
}

// close releases everything in reverse order of creation. The publisher is
// closed before the connection so pending publishes can still complete.
func (m *messaging) close() {
	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing publisher")
		}
	}
	if m.conn != nil {
		if err := m.conn.FlushTimeout(5 * time.Second); err != nil {
			logging.Warn().Err(err).Msg("Error flushing NATS connection")
		}
		m.conn.Close()
	}
	if m.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.server.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Embedded NATS server did not stop cleanly")
		}
	}
}
