// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ewm-stats/internal/metrics"
)

// Handler processes one decoded record. A returned error stops the
// consumer without acknowledging the record.
type Handler interface {
	Handle(ctx context.Context, rec Record) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, rec Record) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, rec Record) error { return f(ctx, rec) }

// finalCommitTimeout bounds the synchronous acknowledgement on shutdown.
const finalCommitTimeout = 5 * time.Second

// Consumer is a single-goroutine pull loop over one Source. It implements
// suture.Service.
type Consumer struct {
	cfg     ConsumerConfig
	source  Source
	codec   Codec
	handler Handler
	logger  zerolog.Logger

	// pending holds processed but unacknowledged deliveries. Only the Serve
	// goroutine touches it.
	pending []Delivery

	mu        sync.Mutex
	positions map[string]uint64
}

// NewConsumer creates a consumer loop.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewConsumer(cfg ConsumerConfig, source Source, codec Codec, handler Handler, logger zerolog.Logger) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil || handler == nil {
		return nil, fmt.Errorf("%w: consumer %s needs a source and a handler", ErrInvalidConfig, cfg.Durable)
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Durable
	}
	return &Consumer{
		cfg:       cfg,
		source:    source,
		codec:     codec,
		handler:   handler,
		logger:    logger.With().Str("component", "consumer").Str("consumer", cfg.Name).Logger(),
		positions: make(map[string]uint64),
	}, nil
}

// Serve runs until ctx is cancelled or the handler fails. Processed records
// are always acknowledged before it returns.
func (c *Consumer) Serve(ctx context.Context) error {
	c.logger.Info().Str("subject", c.cfg.Subject).Msg("consumer started")
	defer c.commitSync()

	for {
		if ctx.Err() != nil {
			c.logger.Info().Msg("consumer stopping")
			return ctx.Err()
		}

		batch, err := c.source.Poll(ctx, c.cfg.Batch, c.cfg.FetchWait)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("consumer %s poll: %w", c.cfg.Name, err)
		}

		if err := c.processBatch(ctx, batch); err != nil {
			return err
		}
	}
}

func (c *Consumer) processBatch(ctx context.Context, batch []Delivery) error {
	for i, msg := range batch {
		if ctx.Err() != nil {
			c.nakAll(batch[i:])
			return ctx.Err()
		}

		if err := c.process(ctx, msg); err != nil {
			c.commitAsync()
			c.nakAll(batch[i:])
			return err
		}

		if len(c.pending) >= c.cfg.CommitEvery {
			c.commitAsync()
		}
	}
	c.commitAsync()
	return nil
}

func (c *Consumer) process(ctx context.Context, msg Delivery) error {
	start := time.Now()
	metrics.RecordsConsumed.WithLabelValues(c.cfg.Name).Inc()

	rec, err := c.codec.Decode(msg.Subject(), msg.Data())
	if err != nil {
		c.logger.Warn().Err(err).Str("subject", msg.Subject()).Msg("skipping undecodable record")
		metrics.RecordsSkipped.WithLabelValues(c.cfg.Name).Inc()
		c.track(msg)
		return nil
	}

	if err := c.handler.Handle(ctx, rec); err != nil {
		metrics.RecordsFailed.WithLabelValues(c.cfg.Name).Inc()
		c.logger.Error().Err(err).Str("subject", msg.Subject()).Msg("record handling failed")
		return fmt.Errorf("consumer %s: %w", c.cfg.Name, err)
	}

	c.track(msg)
	metrics.RecordsProcessed.WithLabelValues(c.cfg.Name).Inc()
	metrics.ProcessingDuration.WithLabelValues(c.cfg.Name).Observe(time.Since(start).Seconds())
	return nil
}

// track queues msg for acknowledgement and advances the subject position.
func (c *Consumer) track(msg Delivery) {
	c.pending = append(c.pending, msg)

	meta, err := msg.Metadata()
	if err != nil || meta == nil {
		return
	}
	c.mu.Lock()
	c.positions[msg.Subject()] = meta.Sequence.Stream
	c.mu.Unlock()
}

// commitAsync acknowledges pending deliveries without waiting for the
// server. Failures are logged; the broker redelivers after AckWait.
func (c *Consumer) commitAsync() {
	if len(c.pending) == 0 {
		return
	}
	var firstErr error
	for _, msg := range c.pending {
		if err := msg.Ack(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	metrics.RecordCommit(c.cfg.Name, "async", firstErr)
	if firstErr != nil {
		c.logger.Warn().Err(firstErr).Int("records", len(c.pending)).Msg("async commit failed")
	}
	c.pending = c.pending[:0]
}

// commitSync acknowledges pending deliveries and waits for the server to
// confirm. Used on shutdown.
func (c *Consumer) commitSync() {
	if len(c.pending) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), finalCommitTimeout)
	defer cancel()

	var errs []error
	for _, msg := range c.pending {
		if err := msg.DoubleAck(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	metrics.RecordCommit(c.cfg.Name, "sync", err)
	if err != nil {
		c.logger.Warn().Err(err).Int("failed", len(errs)).Msg("final commit incomplete")
	} else {
		c.logger.Info().Int("records", len(c.pending)).Msg("final commit done")
	}
	c.pending = c.pending[:0]
}

func (c *Consumer) nakAll(msgs []Delivery) {
	for _, msg := range msgs {
		if err := msg.Nak(); err != nil {
			c.logger.Debug().Err(err).Msg("nak failed")
		}
	}
}

// Positions returns the last processed stream sequence per subject.
func (c *Consumer) Positions() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.positions))
	for k, v := range c.positions {
		out[k] = v
	}
	return out
}

// String names the service in supervisor logs.
func (c *Consumer) String() string {
	return "consumer-" + c.cfg.Name
}
