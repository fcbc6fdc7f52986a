// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

// sampleCount reads the observation count of one histogram series.
func sampleCount(t *testing.T, vec *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	obs, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	var m dto.Metric
	if err := obs.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestRecordDBQuery(t *testing.T) {
	longErr := errors.New(strings.Repeat("x", 80))
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("upsert", "event_similarity", strings.Repeat("x", 50)))
	observed := sampleCount(t, DBQueryDuration, "upsert", "event_similarity")

	RecordDBQuery("upsert", "event_similarity", 3*time.Millisecond, nil)
	RecordDBQuery("upsert", "event_similarity", 3*time.Millisecond, longErr)

	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("upsert", "event_similarity", strings.Repeat("x", 50)))
	if after-before != 1 {
		t.Errorf("truncated error label incremented by %v, want 1", after-before)
	}
	if got := sampleCount(t, DBQueryDuration, "upsert", "event_similarity") - observed; got != 2 {
		t.Errorf("duration samples = %d, want 2", got)
	}
}

func TestRecordPublish(t *testing.T) {
	subject := "test.record-publish"
	RecordPublish(subject, nil)
	RecordPublish(subject, nil)
	RecordPublish(subject, errors.New("nats: timeout"))

	if got := testutil.ToFloat64(RecordsPublished.WithLabelValues(subject)); got != 2 {
		t.Errorf("published = %v, want 2", got)
	}
	if got := testutil.ToFloat64(RecordsPublishFailed.WithLabelValues(subject)); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
}

func TestRecordCommit(t *testing.T) {
	RecordCommit("test-consumer", "async", nil)
	RecordCommit("test-consumer", "sync", errors.New("ack timeout"))

	if got := testutil.ToFloat64(Commits.WithLabelValues("test-consumer", "async", "success")); got != 1 {
		t.Errorf("async success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(Commits.WithLabelValues("test-consumer", "sync", "failure")); got != 1 {
		t.Errorf("sync failure = %v, want 1", got)
	}
}

func TestRecordWeightUpdate(t *testing.T) {
	RecordWeightUpdate("test-store", true)
	RecordWeightUpdate("test-store", false)
	RecordWeightUpdate("test-store", false)

	if got := testutil.ToFloat64(WeightUpdates.WithLabelValues("test-store", "raised")); got != 1 {
		t.Errorf("raised = %v, want 1", got)
	}
	if got := testutil.ToFloat64(WeightUpdates.WithLabelValues("test-store", "ignored")); got != 2 {
		t.Errorf("ignored = %v, want 2", got)
	}
}

func TestRecordQuery(t *testing.T) {
	RecordQuery("grpc", "TestMethod", "OK", 10*time.Millisecond)
	if got := testutil.ToFloat64(QueryRequests.WithLabelValues("grpc", "TestMethod", "OK")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
	if got := sampleCount(t, QueryDuration, "grpc", "TestMethod"); got != 1 {
		t.Errorf("duration samples = %d, want 1", got)
	}
}
