// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/ewm-stats/internal/metrics"
)

type failingPublisher struct {
	calls int
	err   error
}

func (p *failingPublisher) Publish(string, ...*message.Message) error {
	p.calls++
	return p.err
}

func (p *failingPublisher) Close() error { return nil }

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	const name = "test-publish-breaker"
	inner := &failingPublisher{err: errors.New("no responders")}
	pub, err := NewPublisherFrom(inner, PublisherConfig{})
	if err != nil {
		t.Fatal(err)
	}
	pub.SetCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, zerolog.Nop()))

	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues(name)); got != 0 {
		t.Errorf("initial state gauge = %v", got)
	}

	for i := 0; i < 2; i++ {
		if err := pub.PublishUserAction(context.Background(), like(1, int64(i+1))); !errors.Is(err, inner.err) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}

	err = pub.PublishUserAction(context.Background(), like(1, 3))
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want ErrOpenState", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner publisher called %d times, want 2", inner.calls)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues(name)); got != 2 {
		t.Errorf("state gauge = %v, want 2 (open)", got)
	}
}

func TestStateValue(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		want  float64
	}{
		{gobreaker.StateClosed, 0},
		{gobreaker.StateHalfOpen, 1},
		{gobreaker.StateOpen, 2},
	}
	for _, tt := range tests {
		if got := stateValue(tt.state); got != tt.want {
			t.Errorf("stateValue(%v) = %v, want %v", tt.state, got, tt.want)
		}
	}
}
