package db

import (
	"github.com/zonehub/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Task{},
		&domain.Zone{},
		&domain.NetworkLink{},
		&domain.Artifact{},
		&domain.Dataset{},
	)
	if err != nil {
		return err
	}

	return createCustomIndexes(db)
}

func createCustomIndexes(db *gorm.DB) error {
	// Dispatch order scan: pending tasks by (priority desc, created_at asc)
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tasks_dispatch
		ON tasks (priority DESC, created_at ASC)
		WHERE status = 'pending'
	`).Error; err != nil {
		return err
	}

	// One artifact per location
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_artifacts_location
		ON artifacts (dataset, filename)
		WHERE deleted_at IS NULL
	`).Error; err != nil {
		return err
	}

	return nil
}
