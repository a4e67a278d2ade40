package testhelpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipnotify/backend/internal/models"
)

func TestDatabaseSetup(t *testing.T) {
	db := SetupTestDatabase(t)
	require.NotNil(t, db)

	pref := &models.Preference{
		UniqueUserID:     "telegram_1",
		Location:         "Brisbane",
		NotificationMode: models.ModeNearGoodDeal,
		ActivationStatus: true,
		Products: []models.ProductPreference{
			{ProductName: "iPhone 13", MaxPrice: 400, IsPreferred: true},
		},
	}
	require.NoError(t, db.Create(pref).Error)
	assert.NotZero(t, pref.ID)
	assert.NotEmpty(t, pref.EditToken)

	var loaded models.Preference
	require.NoError(t, db.Preload("Products").First(&loaded, pref.ID).Error)
	assert.Equal(t, "Brisbane", loaded.Location)
	require.Len(t, loaded.Products, 1)
	assert.Equal(t, "iPhone 13", loaded.Products[0].ProductName)

	admin := &models.AdminUser{Username: "admin"}
	require.NoError(t, admin.SetPassword("s3cret"))
	require.NoError(t, db.Create(admin).Error)
	assert.NotZero(t, admin.ID)
}
