package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/flipnotify/backend/internal/models"
	"github.com/flipnotify/backend/internal/service"
)

const (
	testSecretKey = "test-secret-key"
	testJWTSecret = "test-jwt-secret"
	testBaseURL   = "http://localhost:8080"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	svc    *service.PreferenceService
	auth   *service.AuthService
	signer *service.LinkSigner
}

// setupTestEnv wires the full handler stack against an in-memory database.
// Rate limiting is left out; it needs Redis.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.AdminUser{},
		&models.Preference{},
		&models.ProductPreference{},
	))

	catalog := models.DefaultCatalog()
	svc := service.NewPreferenceService(db, catalog)
	auth := service.NewAuthService(db, testJWTSecret)
	signer := service.NewLinkSigner(testSecretKey)
	exporter := service.NewExporter(catalog)
	importer := service.NewImporter(db, catalog)

	router := gin.New()
	router.GET("/access-denied", AccessDenied)

	v1 := router.Group("/api/v1")
	NewPreferenceHandler(svc, catalog, testBaseURL, nil).RegisterRoutes(v1)
	NewTelegramHandler(svc, catalog, signer).RegisterRoutes(v1)
	NewAdminHandler(svc, auth, exporter, importer, testBaseURL, 10).RegisterRoutes(v1)

	return &testEnv{router: router, db: db, svc: svc, auth: auth, signer: signer}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func validRequest() PreferenceRequest {
	return PreferenceRequest{
		Location:         "Brisbane",
		Suburb:           "West End",
		NotificationMode: models.ModeNearGoodDeal,
		Products: []ProductRequest{
			{Name: "iPhone 15 Pro", MaxPrice: 750, IsPreferred: true},
			{Name: "iPhone 13", MaxPrice: 400},
		},
	}
}
