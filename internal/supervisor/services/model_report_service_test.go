// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ewm-stats/internal/models"
	"github.com/tomtom215/ewm-stats/internal/similarity"
)

// syncBuffer lets the test read log output written by the service goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestModelReportServiceReportsEngineStats(t *testing.T) {
	engine := similarity.NewEngine()
	engine.Apply(1, 10, models.LikeWeight)
	engine.Apply(1, 11, models.LikeWeight)

	var out syncBuffer
	logger := zerolog.New(&out).Level(zerolog.InfoLevel)
	svc := NewModelReportService(engine, 10*time.Millisecond, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Serve = %v", err)
	}

	logs := out.String()
	for _, want := range []string{`"events":2`, `"users":1`, `"pairs":1`, `"final":true`} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %s:\n%s", want, logs)
		}
	}
}

func TestModelReportServiceLogsGrowthAtInfo(t *testing.T) {
	engine := similarity.NewEngine()
	var out syncBuffer
	svc := NewModelReportService(engine, time.Hour, zerolog.New(&out).Level(zerolog.InfoLevel))

	svc.report(false)
	before := strings.Count(out.String(), "similarity model")
	if before != 0 {
		t.Fatalf("unchanged empty model logged at info: %s", out.String())
	}

	engine.Apply(3, 30, models.ViewWeight)
	if got := svc.report(false); got.Events != 1 {
		t.Errorf("stats = %+v", got)
	}
	if strings.Count(out.String(), "similarity model") != 1 {
		t.Errorf("growth not logged at info: %s", out.String())
	}
	if svc.String() != "model-report" {
		t.Errorf("String() = %q", svc.String())
	}
}
