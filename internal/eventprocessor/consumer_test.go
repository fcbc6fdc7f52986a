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
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tomtom215/ewm-stats/internal/metrics"
)

type fakeDelivery struct {
	subject string
	data    []byte
	seq     uint64

	mu         sync.Mutex
	acks       int
	doubleAcks int
	naks       int
}

func (d *fakeDelivery) Data() []byte    { return d.data }
func (d *fakeDelivery) Subject() string { return d.subject }

func (d *fakeDelivery) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{Sequence: jetstream.SequencePair{Stream: d.seq}}, nil
}

func (d *fakeDelivery) Ack() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acks++
	return nil
}

func (d *fakeDelivery) DoubleAck(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doubleAcks++
	return nil
}

func (d *fakeDelivery) Nak() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.naks++
	return nil
}

func (d *fakeDelivery) counts() (acks, doubleAcks, naks int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acks, d.doubleAcks, d.naks
}

// fakeSource hands out its batches in order, then cancels the consumer.
type fakeSource struct {
	batches [][]Delivery
	cancel  context.CancelFunc
	polls   int
}

func (s *fakeSource) Poll(ctx context.Context, max int, _ time.Duration) ([]Delivery, error) {
	if s.polls >= len(s.batches) {
		s.cancel()
		return nil, ctx.Err()
	}
	batch := s.batches[s.polls]
	s.polls++
	if len(batch) > max {
		return nil, fmt.Errorf("batch of %d exceeds max %d", len(batch), max)
	}
	return batch, nil
}

func actionDelivery(seq uint64, user, event int64) *fakeDelivery {
	payload := fmt.Sprintf(`{"userId":%d,"eventId":%d,"actionType":"ACTION_VIEW","timestamp":"2026-05-04T12:00:00Z"}`, user, event)
	return &fakeDelivery{subject: DefaultUserActionsSubject, data: []byte(payload), seq: seq}
}

func testConsumerConfig(name string) ConsumerConfig {
	return ConsumerConfig{
		Name:        name,
		Durable:     name,
		Subject:     DefaultUserActionsSubject,
		Batch:       50,
		FetchWait:   10 * time.Millisecond,
		CommitEvery: 10,
	}
}

func runConsumer(t *testing.T, cfg ConsumerConfig, batches [][]Delivery, handler Handler) (*Consumer, error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &fakeSource{batches: batches, cancel: cancel}
	c, err := NewConsumer(cfg, src, DefaultCodec(), handler, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	return c, c.Serve(ctx)
}

func okHandler(seen *[]int64) Handler {
	return HandlerFunc(func(_ context.Context, rec Record) error {
		if seen != nil {
			*seen = append(*seen, rec.(*UserActionRecord).EventID)
		}
		return nil
	})
}

func TestConsumerCommitsEveryInterval(t *testing.T) {
	const name = "test-commit-interval"
	var batch []Delivery
	var msgs []*fakeDelivery
	for i := 1; i <= 25; i++ {
		d := actionDelivery(uint64(i), 1, int64(i))
		msgs = append(msgs, d)
		batch = append(batch, d)
	}

	var seen []int64
	c, err := runConsumer(t, testConsumerConfig(name), [][]Delivery{batch}, okHandler(&seen))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve = %v, want context.Canceled", err)
	}

	if len(seen) != 25 {
		t.Fatalf("handled %d records, want 25", len(seen))
	}
	for i, d := range msgs {
		acks, doubleAcks, naks := d.counts()
		if acks != 1 || doubleAcks != 0 || naks != 0 {
			t.Errorf("msg %d: acks=%d doubleAcks=%d naks=%d", i+1, acks, doubleAcks, naks)
		}
	}

	// 10, 20, then the remaining 5 at the end of the batch.
	if got := testutil.ToFloat64(metrics.Commits.WithLabelValues(name, "async", "success")); got != 3 {
		t.Errorf("async commits = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.RecordsProcessed.WithLabelValues(name)); got != 25 {
		t.Errorf("processed = %v, want 25", got)
	}
	if pos := c.Positions()[DefaultUserActionsSubject]; pos != 25 {
		t.Errorf("position = %d, want 25", pos)
	}
}

func TestConsumerSkipsUndecodableRecords(t *testing.T) {
	const name = "test-skip"
	bad := &fakeDelivery{subject: DefaultUserActionsSubject, data: []byte("{broken"), seq: 2}
	batch := []Delivery{actionDelivery(1, 1, 10), bad, actionDelivery(3, 1, 30)}

	var seen []int64
	c, err := runConsumer(t, testConsumerConfig(name), [][]Delivery{batch}, okHandler(&seen))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve = %v", err)
	}

	if len(seen) != 2 || seen[0] != 10 || seen[1] != 30 {
		t.Errorf("handled %v, want [10 30]", seen)
	}
	if acks, _, naks := bad.counts(); acks != 1 || naks != 0 {
		t.Errorf("skipped record: acks=%d naks=%d, want it acknowledged", acks, naks)
	}
	if got := testutil.ToFloat64(metrics.RecordsSkipped.WithLabelValues(name)); got != 1 {
		t.Errorf("skipped = %v, want 1", got)
	}
	if pos := c.Positions()[DefaultUserActionsSubject]; pos != 3 {
		t.Errorf("position = %d, want 3", pos)
	}
}

func TestConsumerStopsOnHandlerError(t *testing.T) {
	const name = "test-handler-error"
	msgs := []*fakeDelivery{
		actionDelivery(1, 1, 1),
		actionDelivery(2, 1, 2),
		actionDelivery(3, 1, 3),
		actionDelivery(4, 1, 4),
		actionDelivery(5, 1, 5),
	}
	batch := make([]Delivery, len(msgs))
	for i, d := range msgs {
		batch[i] = d
	}
	// A second batch must never be fetched.
	later := actionDelivery(6, 1, 6)

	errStore := errors.New("store unavailable")
	handler := HandlerFunc(func(_ context.Context, rec Record) error {
		if rec.(*UserActionRecord).EventID == 3 {
			return errStore
		}
		return nil
	})

	c, err := runConsumer(t, testConsumerConfig(name), [][]Delivery{batch, {later}}, handler)
	if !errors.Is(err, errStore) {
		t.Fatalf("Serve = %v, want store error", err)
	}

	for i, d := range msgs {
		acks, _, naks := d.counts()
		wantAcked := i < 2
		if wantAcked && (acks != 1 || naks != 0) {
			t.Errorf("msg %d: acks=%d naks=%d, want acknowledged", i+1, acks, naks)
		}
		if !wantAcked && (acks != 0 || naks != 1) {
			t.Errorf("msg %d: acks=%d naks=%d, want redelivery", i+1, acks, naks)
		}
	}
	if acks, doubleAcks, naks := later.counts(); acks+doubleAcks+naks != 0 {
		t.Error("consumer fetched past the failing batch")
	}
	if got := testutil.ToFloat64(metrics.RecordsFailed.WithLabelValues(name)); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
	if pos := c.Positions()[DefaultUserActionsSubject]; pos != 2 {
		t.Errorf("position = %d, want 2", pos)
	}
}

func TestConsumerCommitsSynchronouslyOnShutdown(t *testing.T) {
	const name = "test-shutdown"
	msgs := []*fakeDelivery{actionDelivery(1, 1, 1), actionDelivery(2, 1, 2), actionDelivery(3, 1, 3)}
	batch := []Delivery{msgs[0], msgs[1], msgs[2]}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := HandlerFunc(func(_ context.Context, rec Record) error {
		if rec.(*UserActionRecord).EventID == 2 {
			cancel()
		}
		return nil
	})
	cfg := testConsumerConfig(name)
	cfg.CommitEvery = 100

	c, err := NewConsumer(cfg, &fakeSource{batches: [][]Delivery{batch}, cancel: cancel}, DefaultCodec(), handler, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve = %v", err)
	}

	for i, d := range msgs[:2] {
		acks, doubleAcks, _ := d.counts()
		if acks != 0 || doubleAcks != 1 {
			t.Errorf("msg %d: acks=%d doubleAcks=%d, want one synchronous ack", i+1, acks, doubleAcks)
		}
	}
	if acks, doubleAcks, naks := msgs[2].counts(); acks != 0 || doubleAcks != 0 || naks != 1 {
		t.Errorf("unprocessed msg: acks=%d doubleAcks=%d naks=%d", acks, doubleAcks, naks)
	}
	if got := testutil.ToFloat64(metrics.Commits.WithLabelValues(name, "sync", "success")); got != 1 {
		t.Errorf("sync commits = %v, want 1", got)
	}
}

func TestConsumerPositionsPerSubject(t *testing.T) {
	const name = "test-positions"
	sim := &fakeDelivery{
		subject: DefaultSimilaritySubject,
		data:    []byte(`{"eventA":1,"eventB":2,"score":0.3,"timestamp":"2026-05-04T12:00:00Z"}`),
		seq:     8,
	}
	batch := []Delivery{actionDelivery(4, 1, 1), sim, actionDelivery(9, 2, 1)}

	handler := HandlerFunc(func(context.Context, Record) error { return nil })
	c, err := runConsumer(t, testConsumerConfig(name), [][]Delivery{batch}, handler)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve = %v", err)
	}

	pos := c.Positions()
	if pos[DefaultUserActionsSubject] != 9 || pos[DefaultSimilaritySubject] != 8 {
		t.Errorf("positions = %v", pos)
	}
	if c.String() != "consumer-"+name {
		t.Errorf("String() = %q", c.String())
	}
}

func TestNewConsumerValidates(t *testing.T) {
	handler := HandlerFunc(func(context.Context, Record) error { return nil })
	src := &fakeSource{}

	tests := []struct {
		name   string
		mutate func(*ConsumerConfig)
	}{
		{"no durable", func(c *ConsumerConfig) { c.Durable = "" }},
		{"no subject", func(c *ConsumerConfig) { c.Subject = "" }},
		{"zero batch", func(c *ConsumerConfig) { c.Batch = 0 }},
		{"zero wait", func(c *ConsumerConfig) { c.FetchWait = 0 }},
		{"zero commit interval", func(c *ConsumerConfig) { c.CommitEvery = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConsumerConfig("validate")
			tt.mutate(&cfg)
			if _, err := NewConsumer(cfg, src, DefaultCodec(), handler, zerolog.Nop()); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}

	if _, err := NewConsumer(testConsumerConfig("validate"), nil, DefaultCodec(), handler, zerolog.Nop()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil source: err = %v", err)
	}
}
