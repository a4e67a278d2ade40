package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/flipnotify/backend/config"
	"github.com/flipnotify/backend/internal/models"
)

func TestSeedAdminUser(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db))

	cfg := &config.Config{AdminUsername: "admin", AdminPassword: "s3cret"}
	require.NoError(t, SeedAdminUser(db, cfg))

	var admin models.AdminUser
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.True(t, admin.CheckPassword("s3cret"))

	// Seeding again must not rotate the existing password.
	cfg.AdminPassword = "changed"
	require.NoError(t, SeedAdminUser(db, cfg))

	var count int64
	require.NoError(t, db.Model(&models.AdminUser{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.True(t, admin.CheckPassword("s3cret"))
}

func TestNewRedisClientRequiresURL(t *testing.T) {
	_, err := NewRedisClient(&config.Config{})
	assert.Error(t, err)
}
