package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/flipnotify/backend/config"
	"github.com/flipnotify/backend/internal/models"
)

// RunMigrations creates or updates the schema for all application models.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.AdminUser{},
		&models.Preference{},
		&models.ProductPreference{},
	)
}

// SeedAdminUser creates the configured admin account when it does not exist
// yet. The password is only applied on first creation; changing the
// environment variable later does not rotate an existing account.
func SeedAdminUser(db *gorm.DB, cfg *config.Config) error {
	var existing models.AdminUser
	err := db.Where("username = ?", cfg.AdminUsername).First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	admin := models.AdminUser{Username: cfg.AdminUsername}
	if err := admin.SetPassword(cfg.AdminPassword); err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Printf("Admin user %q created", cfg.AdminUsername)
	return nil
}
