package service

import (
	"archive/zip"
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/flipnotify/backend/internal/models"
)

// makeBundle builds an in-memory ZIP with the given file contents.
func makeBundle(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const usersCSVHeader = "unique_userid,user_id,user_name,location,activation_status,expiry_date,fixed_lat,fixed_lon,password,mode_only_preferred,non_good_deals,good_deals,near_good_deals\n"

func loadByUID(t *testing.T, db *gorm.DB, uid string) *models.Preference {
	t.Helper()
	var pref models.Preference
	require.NoError(t, db.Preload("Products").Where("unique_userid = ?", uid).First(&pref).Error)
	return &pref
}

func TestImportUnsupportedExtension(t *testing.T) {
	im := NewImporter(setupDB(t), models.DefaultCatalog())

	_, err := im.Import("data.txt", []byte("whatever"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImportBundleRejectsBadVersion(t *testing.T) {
	im := NewImporter(setupDB(t), models.DefaultCatalog())

	data := makeBundle(t, map[string]string{
		"manifest.txt": "format: flipnotify-export\nversion: 99\n",
		"users.csv":    usersCSVHeader,
	})
	_, err := im.Import("export.zip", data)
	assert.ErrorIs(t, err, ErrBadBundleVersion)
}

func TestImportBundleRequiresUsersCSV(t *testing.T) {
	im := NewImporter(setupDB(t), models.DefaultCatalog())

	data := makeBundle(t, map[string]string{"readme.txt": "hello"})
	_, err := im.Import("export.zip", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users.csv")
}

func TestImportCreatesUserWithProducts(t *testing.T) {
	db := setupDB(t)
	im := NewImporter(db, models.DefaultCatalog())

	data := makeBundle(t, map[string]string{
		"users.csv": usersCSVHeader +
			"telegram_777,777,Jane Doe,Brisbane,1,2026-06-30,-27.47,153.02,,1,0,0,1\n",
		"products.csv": "unique_userid,name,min_price,max_price,preferred\n" +
			"telegram_777,iPhone 15 Pro,100,720,1\n" +
			"telegram_777,iPhone 13,100,380,0\n",
	})

	result, err := im.Import("export.zip", data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Errors)

	pref := loadByUID(t, db, "telegram_777")
	assert.Equal(t, "Brisbane", pref.Location)
	assert.Equal(t, models.ModeNearGoodDeal, pref.NotificationMode)
	assert.Equal(t, "777", pref.UserID)
	assert.Equal(t, "Jane Doe", pref.UserName)
	assert.True(t, pref.ActivationStatus)
	require.NotNil(t, pref.ExpiryDate)
	assert.Equal(t, "2026-06-30", pref.ExpiryDate.Format("2006-01-02"))
	assert.Equal(t, "-27.47", pref.FixedLat)
	require.Len(t, pref.Products, 2)
	assert.Equal(t, 720, pref.Products[0].MaxPrice)
	assert.True(t, pref.Products[0].IsPreferred)
	assert.False(t, pref.Products[1].IsPreferred)
	assert.NotEmpty(t, pref.EditToken)
}

func TestImportSecondPassUpdatesInPlace(t *testing.T) {
	db := setupDB(t)
	im := NewImporter(db, models.DefaultCatalog())

	data := makeBundle(t, map[string]string{
		"users.csv": usersCSVHeader +
			"telegram_777,777,Jane Doe,Brisbane,1,,,,,1,0,0,0\n",
		"products.csv": "unique_userid,name,min_price,max_price,preferred\n" +
			"telegram_777,iPhone 15 Pro,100,720,1\n",
	})

	first, err := im.Import("export.zip", data)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Added)

	second, err := im.Import("export.zip", data)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 1, second.Updated)
	assert.Equal(t, 0, second.Errors)

	var count int64
	require.NoError(t, db.Model(&models.Preference{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	pref := loadByUID(t, db, "telegram_777")
	assert.Len(t, pref.Products, 1)
}

func TestImportSkipsSentinelAndEmptyRows(t *testing.T) {
	db := setupDB(t)
	im := NewImporter(db, models.DefaultCatalog())

	data := makeBundle(t, map[string]string{
		"users.csv": usersCSVHeader +
			"--- fill in below ---,,,,,,,,,,,,\n" +
			",,,Nowhere,,,,,,,,,\n",
	})

	result, err := im.Import("export.zip", data)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Errors)

	var count int64
	require.NoError(t, db.Model(&models.Preference{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestImportMissingLocationCountsAsError(t *testing.T) {
	im := NewImporter(setupDB(t), models.DefaultCatalog())

	data := makeBundle(t, map[string]string{
		"users.csv": usersCSVHeader +
			"telegram_1,1,A,,1,,,,,1,0,0,0\n" +
			"telegram_2,2,B,Brisbane,1,,,,,1,0,0,0\n",
	})

	result, err := im.Import("export.zip", data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Errors)
	require.NotEmpty(t, result.Log)
	assert.Contains(t, strings.Join(result.Log, "\n"), "location")
}

func TestImportUnknownProductSkipped(t *testing.T) {
	db := setupDB(t)
	im := NewImporter(db, models.DefaultCatalog())

	data := makeBundle(t, map[string]string{
		"users.csv": usersCSVHeader +
			"telegram_9,9,C,Brisbane,1,,,,,1,0,0,0\n",
		"products.csv": "unique_userid,name,min_price,max_price,preferred\n" +
			"telegram_9,Galaxy S24,100,500,1\n" +
			"telegram_9,iPhone 13,100,380,1\n",
	})

	result, err := im.Import("export.zip", data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 0, result.Errors, "unknown product names are skipped, never fatal")
	assert.Contains(t, strings.Join(result.Log, "\n"), "Galaxy S24")

	pref := loadByUID(t, db, "telegram_9")
	require.Len(t, pref.Products, 1)
	assert.Equal(t, "iPhone 13", pref.Products[0].ProductName)
}

func TestImportUnparseablePriceUsesDefault(t *testing.T) {
	db := setupDB(t)
	catalog := models.DefaultCatalog()
	im := NewImporter(db, catalog)

	data := makeBundle(t, map[string]string{
		"users.csv": usersCSVHeader +
			"telegram_9,9,C,Brisbane,1,,,,,1,0,0,0\n",
		"products.csv": "unique_userid,name,min_price,max_price,preferred\n" +
			"telegram_9,iPhone 13,100,cheap,0\n",
	})

	result, err := im.Import("export.zip", data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)

	pref := loadByUID(t, db, "telegram_9")
	require.Len(t, pref.Products, 1)
	assert.Equal(t, catalog.DefaultPrice("iPhone 13"), pref.Products[0].MaxPrice)
	assert.True(t, pref.Products[0].IsPreferred, "fallback rows default to preferred")
}

func TestImportWithoutProductsBackfillsCatalog(t *testing.T) {
	db := setupDB(t)
	catalog := models.DefaultCatalog()
	im := NewImporter(db, catalog)

	data := makeBundle(t, map[string]string{
		"users.csv": usersCSVHeader +
			"telegram_5,5,D,Brisbane,1,,,,,0,1,0,0\n",
	})

	result, err := im.Import("export.zip", data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)

	pref := loadByUID(t, db, "telegram_5")
	assert.Equal(t, models.ModeAll, pref.NotificationMode)
	require.Len(t, pref.Products, len(catalog.Models()))
	for _, p := range pref.Products {
		assert.Equal(t, catalog.DefaultPrice(p.ProductName), p.MaxPrice)
		assert.True(t, p.IsPreferred)
	}
}

func TestImportFallbackLookupBackfillsUniqueUserID(t *testing.T) {
	db := setupDB(t)
	catalog := models.DefaultCatalog()
	svc := NewPreferenceService(db, catalog)
	im := NewImporter(db, catalog)

	// A form submission has no unique_userid; its export row derives one.
	pref, err := svc.Create(validInput())
	require.NoError(t, err)
	uid := "user_" + strconv.Itoa(int(pref.ID))

	data := makeBundle(t, map[string]string{
		"users.csv": usersCSVHeader +
			uid + ",,,Springfield,1,,,,,1,0,0,0\n",
	})

	result, err := im.Import("export.zip", data)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 1, result.Updated)

	got, err := svc.GetByID(pref.ID)
	require.NoError(t, err)
	assert.Equal(t, "Springfield", got.Location)
	assert.Equal(t, uid, got.UniqueUserID, "fallback match stores the identifier for the next import")
	assert.Equal(t, models.ModeOnlyPreferred, got.NotificationMode)
}

func TestImportUnmatchedFlagsFallBackToAll(t *testing.T) {
	db := setupDB(t)
	im := NewImporter(db, models.DefaultCatalog())

	data := makeBundle(t, map[string]string{
		"users.csv": usersCSVHeader +
			"telegram_8,8,E,Brisbane,1,,,,,0,0,1,0\n",
	})

	_, err := im.Import("export.zip", data)
	require.NoError(t, err)

	pref := loadByUID(t, db, "telegram_8")
	assert.Equal(t, models.ModeAll, pref.NotificationMode)
}

func TestImportToleratesExpiryDateLayouts(t *testing.T) {
	db := setupDB(t)
	im := NewImporter(db, models.DefaultCatalog())

	data := makeBundle(t, map[string]string{
		"users.csv": usersCSVHeader +
			"telegram_1,1,A,Brisbane,1,2026/06/30,,,,1,0,0,0\n" +
			"telegram_2,2,B,Brisbane,0,30/06/2026,,,,1,0,0,0\n" +
			"telegram_3,3,C,Brisbane,1,someday,,,,1,0,0,0\n",
	})

	result, err := im.Import("export.zip", data)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Added)
	assert.Equal(t, 0, result.Errors)

	one := loadByUID(t, db, "telegram_1")
	require.NotNil(t, one.ExpiryDate)
	assert.Equal(t, "2026-06-30", one.ExpiryDate.Format("2006-01-02"))

	two := loadByUID(t, db, "telegram_2")
	require.NotNil(t, two.ExpiryDate)
	assert.Equal(t, "2026-06-30", two.ExpiryDate.Format("2006-01-02"))
	assert.False(t, two.ActivationStatus)

	// Unparseable dates are logged and left unset, not fatal.
	three := loadByUID(t, db, "telegram_3")
	assert.Nil(t, three.ExpiryDate)
	assert.Contains(t, strings.Join(result.Log, "\n"), "someday")
}

func TestImportFlatCSVInlineProducts(t *testing.T) {
	db := setupDB(t)
	im := NewImporter(db, models.DefaultCatalog())

	csvData := "\uFEFFunique_userid,user_id,user_name,location,activation_status,expiry_date,fixed_lat,fixed_lon,password,products,keywords,excluded_words,resellers,mode_only_preferred,non_good_deals,good_deals,near_good_deals\n" +
		`telegram_4,4,F,Brisbane,1,,,,,"iPhone 15 Pro:100:720:1;iPhone 13:100:380:0",,,,1,0,1,1` + "\n"

	result, err := im.Import("users.csv", []byte(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 0, result.Errors)

	pref := loadByUID(t, db, "telegram_4")
	assert.Equal(t, models.ModeGoodDeal, pref.NotificationMode)
	require.Len(t, pref.Products, 2)
	assert.Equal(t, "iPhone 15 Pro", pref.Products[0].ProductName)
	assert.Equal(t, 720, pref.Products[0].MaxPrice)
	assert.True(t, pref.Products[0].IsPreferred)
	assert.Equal(t, 380, pref.Products[1].MaxPrice)
	assert.False(t, pref.Products[1].IsPreferred)
}

func TestImportTwoRowScenario(t *testing.T) {
	db := setupDB(t)
	im := NewImporter(db, models.DefaultCatalog())

	data := makeBundle(t, map[string]string{
		"users.csv": usersCSVHeader +
			"user_7,,,Springfield,1,,,,,1,0,0,0\n" +
			"user_8,,,,1,,,,,1,0,0,0\n",
	})

	result, err := im.Import("export.zip", data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 1, result.Errors)

	pref := loadByUID(t, db, "user_7")
	assert.Equal(t, "Springfield", pref.Location)

	var count int64
	require.NoError(t, db.Model(&models.Preference{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "the errored row must roll back entirely")
}
