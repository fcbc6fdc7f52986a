// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package gormstore

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "001_user_action",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&UserAction{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("user_action")
			},
		},
		{
			ID: "002_event_similarity",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&EventSimilarity{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("event_similarity")
			},
		},
	}
}

func runMigrations(db *gorm.DB) error {
	return gormigrate.New(db, gormigrate.DefaultOptions, migrations()).Migrate()
}
