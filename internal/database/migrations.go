package database

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/nexushq/nexus/internal/models"
)

// SchemaVersion is bumped whenever AutoMigrate gains a model or index.
const SchemaVersion = 1

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Task{},
		&models.Meeting{},
		&models.Feedback{},
		&models.Notification{},
		&models.SystemSetting{},
	)
}

// SeedData records the schema version applied by this build.
func SeedData(db *gorm.DB) error {
	return UpsertSystemSetting(context.Background(), db, SchemaVersionSetting, strconv.Itoa(SchemaVersion))
}
