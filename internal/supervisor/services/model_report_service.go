// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ewm-stats/internal/similarity"
)

// ModelStatsSource is satisfied by *similarity.Engine.
type ModelStatsSource interface {
	Stats() similarity.Stats
}

// ModelReportService periodically logs the size of the in-memory similarity
// model held by the aggregator.
type ModelReportService struct {
	source   ModelStatsSource
	interval time.Duration
	logger   zerolog.Logger
	name     string

	last similarity.Stats
}

// NewModelReportService reports every interval (1m if non-positive).
//
//nolint:gocritic // zerolog.Logger is a value type
func NewModelReportService(source ModelStatsSource, interval time.Duration, logger zerolog.Logger) *ModelReportService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ModelReportService{
		source:   source,
		interval: interval,
		logger:   logger.With().Str("service", "model-report").Logger(),
		name:     "model-report",
	}
}

func (s *ModelReportService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.report(true)
			return ctx.Err()
		case <-ticker.C:
			s.report(false)
		}
	}
}

// report logs at info when the model grew since the last report, debug
// otherwise. final always logs at info.
func (s *ModelReportService) report(final bool) similarity.Stats {
	stats := s.source.Stats()
	ev := s.logger.Debug()
	if final || stats != s.last {
		ev = s.logger.Info()
	}
	ev.Int64("events", stats.Events).
		Int64("users", stats.Users).
		Int64("pairs", stats.Pairs).
		Bool("final", final).
		Msg("similarity model")
	s.last = stats
	return stats
}

func (s *ModelReportService) String() string {
	return s.name
}
