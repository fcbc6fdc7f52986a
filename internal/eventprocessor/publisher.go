// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package eventprocessor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/ewm-stats/internal/metrics"
)

// MetadataKey carries the partition key of a record (user id for actions,
// lower event id for similarity edges).
const MetadataKey = "key"

// Publisher wraps a Watermill publisher with a circuit breaker and the
// record encoders.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[struct{}]
	cfg            PublisherConfig
	mu             sync.RWMutex
	closed         bool
}

// NewPublisher creates a Watermill NATS JetStream publisher. The stream is
// expected to exist already (see StreamInitializer).
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("ewm-stats-publisher"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return NewPublisherFrom(pub, cfg)
}

// NewPublisherFrom wraps an existing Watermill publisher.
func NewPublisherFrom(pub message.Publisher, cfg PublisherConfig) (*Publisher, error) {
	if pub == nil {
		return nil, ErrNilPublisher
	}
	if cfg.UserActionsSubject == "" {
		cfg.UserActionsSubject = DefaultUserActionsSubject
	}
	if cfg.SimilaritySubject == "" {
		cfg.SimilaritySubject = DefaultSimilaritySubject
	}
	return &Publisher{publisher: pub, cfg: cfg}, nil
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[struct{}]) {
	p.circuitBreaker = cb
}

// Publish sends msg to topic through the circuit breaker. The message UUID
// doubles as the Nats-Msg-Id used for duplicate suppression.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg.SetContext(ctx)
	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	var err error
	if p.circuitBreaker != nil {
		_, err = p.circuitBreaker.Execute(func() (struct{}, error) {
			return struct{}{}, p.publisher.Publish(topic, msg)
		})
	} else {
		err = p.publisher.Publish(topic, msg)
	}

	metrics.RecordPublish(topic, err)
	return err
}

// PublishUserAction encodes and publishes a user action keyed by user id.
func (p *Publisher) PublishUserAction(ctx context.Context, rec *UserActionRecord) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	msg := message.NewMessage(rec.MessageID(), data)
	msg.Metadata.Set(MetadataKey, strconv.FormatInt(rec.UserID, 10))
	if err := p.Publish(ctx, p.cfg.UserActionsSubject, msg); err != nil {
		return fmt.Errorf("publish user action %s: %w", msg.UUID, err)
	}
	return nil
}

// PublishSimilarity encodes and publishes a similarity edge keyed by its
// lower event id.
func (p *Publisher) PublishSimilarity(ctx context.Context, rec *SimilarityRecord) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(MetadataKey, strconv.FormatInt(rec.EventA, 10))
	if err := p.Publish(ctx, p.cfg.SimilaritySubject, msg); err != nil {
		return fmt.Errorf("publish similarity (%d, %d): %w", rec.EventA, rec.EventB, err)
	}
	return nil
}

// Close shuts the publisher down. Later publishes return ErrPublisherClosed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
