// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/tomtom215/ewm-stats/internal/config"
	"github.com/tomtom215/ewm-stats/internal/metrics"
	"github.com/tomtom215/ewm-stats/internal/models"
)

// ErrInvalidEdge is returned when an edge is not in canonical order.
var ErrInvalidEdge = errors.New("similarity edge must have event_a < event_b")

// Store is the GORM-backed read model.
type Store struct {
	db    *gorm.DB
	sqlDB *sql.DB
	name  string
}

// Config holds pool and logging settings.
type Config struct {
	MaxConns int             // default 10
	LogLevel logger.LogLevel // logger.Silent unless debugging
}

// NewPostgres opens the PostgreSQL store described by cfg and migrates it.
func NewPostgres(cfg *config.DatabaseConfig) (*Store, error) {
	return Open(postgres.Open(cfg.PostgresDSN), Config{MaxConns: cfg.MaxConns, LogLevel: logger.Silent})
}

// Open opens a store on any GORM dialector and runs the migrations.
func Open(dialector gorm.Dialector, cfg Config) (*Store, error) {
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:      logger.Default.LogMode(cfg.LogLevel),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm %s: %w", dialector.Name(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(max(1, maxConns/2))
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s: %w", dialector.Name(), err)
	}
	if err := runMigrations(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, sqlDB: sqlDB, name: dialector.Name()}, nil
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

func (s *Store) observe(op, table string, start time.Time, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = nil
	}
	metrics.RecordDBQuery(op, table, time.Since(start), err)
}

// RaiseWeight stores action.Weight for (UserID, EventID) unless an equal or
// higher weight is already stored. A first weight is inserted with ON
// CONFLICT DO NOTHING; when the row already exists it is locked and re-read
// before the conditional raise, so concurrent first raises of one pair
// cannot both insert.
func (s *Store) RaiseWeight(ctx context.Context, action models.UserAction) (models.WeightChange, error) {
	start := time.Now()
	var change models.WeightChange
	ts := action.Timestamp.UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "event_id"}},
			DoNothing: true,
		}).Create(&UserAction{
			UserID:     action.UserID,
			EventID:    action.EventID,
			Weight:     action.Weight,
			ActionTime: ts,
		})
		if insert.Error != nil {
			return insert.Error
		}
		if insert.RowsAffected == 1 {
			change = models.RaiseResult(0, false, action.Weight)
			return nil
		}

		var row UserAction
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND event_id = ?", action.UserID, action.EventID).
			Take(&row).Error
		if err != nil {
			return err
		}

		change = models.RaiseResult(row.Weight, true, action.Weight)
		if !change.Changed {
			return nil
		}
		return tx.Model(&UserAction{}).
			Where("id = ?", row.ID).
			Updates(map[string]interface{}{"weight": change.New, "action_time": ts}).Error
	})
	s.observe("raise_weight", "user_action", start, err)
	if err != nil {
		return models.WeightChange{}, fmt.Errorf("raise weight user=%d event=%d: %w", action.UserID, action.EventID, err)
	}
	metrics.RecordWeightUpdate(s.name, change.Changed)
	return change, nil
}

// RecentEventsByUser returns up to limit event ids the user interacted
// with, most recent first.
func (s *Store) RecentEventsByUser(ctx context.Context, userID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		return nil, nil
	}
	start := time.Now()
	var ids []int64
	err := s.db.WithContext(ctx).Model(&UserAction{}).
		Where("user_id = ?", userID).
		Order("action_time DESC").Order("event_id DESC").
		Limit(limit).
		Pluck("event_id", &ids).Error
	s.observe("recent_events_by_user", "user_action", start, err)
	if err != nil {
		return nil, fmt.Errorf("recent events by user: %w", err)
	}
	return ids, nil
}

// EventsByUserExcluding returns every event the user interacted with except
// eventID.
func (s *Store) EventsByUserExcluding(ctx context.Context, userID, eventID int64) ([]int64, error) {
	start := time.Now()
	var ids []int64
	err := s.db.WithContext(ctx).Model(&UserAction{}).
		Where("user_id = ? AND event_id <> ?", userID, eventID).
		Order("event_id").
		Pluck("event_id", &ids).Error
	s.observe("events_by_user_excluding", "user_action", start, err)
	if err != nil {
		return nil, fmt.Errorf("events by user excluding: %w", err)
	}
	return ids, nil
}

// ActionsByEvents returns all user actions on the given events.
func (s *Store) ActionsByEvents(ctx context.Context, eventIDs []int64) ([]models.UserAction, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	return s.findActions(ctx, "actions_by_events",
		s.db.Where("event_id IN ?", eventIDs).Order("event_id").Order("user_id"))
}

// ActionsByUser returns the user's actions on the given events.
func (s *Store) ActionsByUser(ctx context.Context, userID int64, eventIDs []int64) ([]models.UserAction, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	return s.findActions(ctx, "actions_by_user",
		s.db.Where("user_id = ? AND event_id IN ?", userID, eventIDs).Order("event_id"))
}

func (s *Store) findActions(ctx context.Context, op string, q *gorm.DB) ([]models.UserAction, error) {
	start := time.Now()
	var rows []UserAction
	err := q.WithContext(ctx).Find(&rows).Error
	s.observe(op, "user_action", start, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]models.UserAction, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// UpsertSimilarity inserts the edge or overwrites the score of the existing
// row for the same pair.
func (s *Store) UpsertSimilarity(ctx context.Context, edge models.SimilarityEdge) error {
	if edge.EventA >= edge.EventB {
		return fmt.Errorf("%w: (%d, %d)", ErrInvalidEdge, edge.EventA, edge.EventB)
	}
	updatedAt := edge.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	start := time.Now()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_a"}, {Name: "event_b"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
	}).Create(&EventSimilarity{
		EventA:    edge.EventA,
		EventB:    edge.EventB,
		Score:     edge.Score,
		UpdatedAt: updatedAt.UTC(),
	}).Error
	s.observe("upsert", "event_similarity", start, err)
	if err != nil {
		return fmt.Errorf("upsert similarity (%d, %d): %w", edge.EventA, edge.EventB, err)
	}
	return nil
}

// SimilaritiesByEvent returns the edges touching eventID, best score first.
// limit <= 0 returns all of them.
func (s *Store) SimilaritiesByEvent(ctx context.Context, eventID int64, limit int) ([]models.SimilarityEdge, error) {
	q := s.db.Where("event_a = ? OR event_b = ?", eventID, eventID)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return s.findEdges(ctx, "similarities_by_event", q)
}

// NewSimilar returns edges with exactly one endpoint in eventIDs, best score
// first, at most limit rows.
func (s *Store) NewSimilar(ctx context.Context, eventIDs []int64, limit int) ([]models.SimilarityEdge, error) {
	if len(eventIDs) == 0 || limit <= 0 {
		return nil, nil
	}
	q := s.db.
		Where("(event_a IN ? OR event_b IN ?) AND NOT (event_a IN ? AND event_b IN ?)",
			eventIDs, eventIDs, eventIDs, eventIDs).
		Limit(limit)
	return s.findEdges(ctx, "new_similar", q)
}

func (s *Store) findEdges(ctx context.Context, op string, q *gorm.DB) ([]models.SimilarityEdge, error) {
	start := time.Now()
	var rows []EventSimilarity
	err := q.WithContext(ctx).
		Order("score DESC").Order("event_a").Order("event_b").
		Find(&rows).Error
	s.observe(op, "event_similarity", start, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]models.SimilarityEdge, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
