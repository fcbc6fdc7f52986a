// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package eventprocessor

import (
	"context"
	"errors"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Delivery is one fetched message. jetstream.Msg satisfies it.
type Delivery interface {
	Data() []byte
	Subject() string
	Metadata() (*jetstream.MsgMetadata, error)
	Ack() error
	DoubleAck(ctx context.Context) error
	Nak() error
}

// Source is a pull-based message source.
type Source interface {
	// Poll returns up to max messages, waiting at most wait for the first.
	// An empty result is not an error.
	Poll(ctx context.Context, max int, wait time.Duration) ([]Delivery, error)
}

// JetStreamSource pulls from a durable JetStream consumer.
type JetStreamSource struct {
	consumer jetstream.Consumer
}

// NewJetStreamSource wraps a bound consumer.
func NewJetStreamSource(consumer jetstream.Consumer) *JetStreamSource {
	return &JetStreamSource{consumer: consumer}
}

// Poll fetches one batch. The wait bounds how long a shutdown can be
// delayed by an idle stream.
func (s *JetStreamSource) Poll(ctx context.Context, max int, wait time.Duration) ([]Delivery, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
	}
	if wait <= 0 {
		return nil, ctx.Err()
	}

	batch, err := s.consumer.Fetch(max, jetstream.FetchMaxWait(wait))
	if err != nil {
		return nil, err
	}

	var out []Delivery
	for msg := range batch.Messages() {
		out = append(out, msg)
	}
	if err := batch.Error(); err != nil && !isIdle(err) {
		return out, err
	}
	return out, nil
}

func isIdle(err error) bool {
	return errors.Is(err, natsgo.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
