package database

import (
	"gorm.io/gorm"

	"github.com/tourze/row-permission/models"
)

// AutoMigrate creates or updates the database schema for all models,
// including the unique index over (entity_class, entity_id, user_id) that
// guarantees one permission record per user and entity instance.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.RowPermission{},
		&models.CacheEntry{},
	)
}
