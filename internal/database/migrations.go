package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/promptgallery/internal/models"
)

// AutoMigrate creates or updates the cache table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.CacheEntry{})
}
