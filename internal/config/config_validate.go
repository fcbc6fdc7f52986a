// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRoles is returned when no role is enabled.
var ErrNoRoles = errors.New("at least one role is required")

// Validate checks the configuration for values that would make startup fail
// later in a less obvious place.
func (c *Config) Validate() error {
	if err := c.validateRoles(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateSimilarity(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	return c.validateServer()
}

func (c *Config) validateRoles() error {
	if len(c.Roles) == 0 {
		return ErrNoRoles
	}
	for _, r := range c.Roles {
		switch r {
		case RoleCollector, RoleAggregator, RoleAnalyzer:
		default:
			return fmt.Errorf("unknown role %q (want %s, %s or %s)", r, RoleCollector, RoleAggregator, RoleAnalyzer)
		}
	}
	return nil
}

func (c *Config) validateNATS() error {
	n := &c.NATS
	if !n.EmbeddedServer && n.URL == "" {
		return fmt.Errorf("NATS_URL is required when the embedded server is disabled")
	}
	if n.StreamName == "" {
		return fmt.Errorf("NATS_STREAM_NAME must not be empty")
	}
	if n.UserActionsSubject == "" || n.SimilaritySubject == "" {
		return fmt.Errorf("stream subjects must not be empty")
	}
	if n.UserActionsSubject == n.SimilaritySubject {
		return fmt.Errorf("user action and similarity subjects must differ, both are %q", n.UserActionsSubject)
	}
	if n.FetchBatch <= 0 {
		return fmt.Errorf("NATS_FETCH_BATCH must be positive, got %d", n.FetchBatch)
	}
	if n.FetchWait <= 0 {
		return fmt.Errorf("NATS_FETCH_WAIT must be positive, got %s", n.FetchWait)
	}
	if n.CommitEvery <= 0 {
		return fmt.Errorf("NATS_COMMIT_EVERY must be positive, got %d", n.CommitEvery)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if !c.HasRole(RoleAnalyzer) {
		return nil
	}
	switch strings.ToLower(c.Database.Driver) {
	case DriverDuckDB:
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required for the duckdb driver")
		}
	case DriverPostgres:
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	return nil
}

func (c *Config) validateSimilarity() error {
	s := c.Similarity
	for name, w := range map[string]float64{"view": s.ViewWeight, "register": s.RegisterWeight, "like": s.LikeWeight} {
		if w <= 0 || w > 1 {
			return fmt.Errorf("%s weight must be in (0,1], got %v", name, w)
		}
	}
	if !(s.ViewWeight < s.RegisterWeight && s.RegisterWeight < s.LikeWeight) {
		return fmt.Errorf("action weights must increase view < register < like")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	if r.Neighbours <= 0 {
		return fmt.Errorf("RECOMMEND_NEIGHBOURS must be positive, got %d", r.Neighbours)
	}
	if r.DefaultResults <= 0 || r.MaxResults < r.DefaultResults {
		return fmt.Errorf("recommend results: default %d must be positive and not above max %d", r.DefaultResults, r.MaxResults)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}
