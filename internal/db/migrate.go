package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/wpietrzak/kadrio/internal/models"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Session{},
		&models.Turn{},
	}
}

// AutoMigrate creates or updates all tables. Every column in the target
// schema is declared with a default, so stores never have to probe for
// optional columns on a migrated database.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
