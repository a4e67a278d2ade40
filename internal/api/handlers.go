package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flipnotify/backend/config"
	"github.com/flipnotify/backend/internal/database"
	"github.com/flipnotify/backend/internal/middleware"
	"github.com/flipnotify/backend/internal/models"
	"github.com/flipnotify/backend/internal/service"
)

// HealthCheck returns the health status of the API
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Flipnotify API is running",
	})
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config) {
	// Health check endpoint (no auth required)
	router.GET("/health", HealthCheck)
	router.GET("/api/health", HealthCheck)

	// Failed signed-link verifications redirect here
	router.GET(middleware.AccessDeniedPath, AccessDenied)

	catalog := models.DefaultCatalog()
	prefService := service.NewPreferenceService(db, catalog)
	authService := service.NewAuthService(db, cfg.JWTSecret)
	signer := service.NewLinkSigner(cfg.SecretKey)
	exporter := service.NewExporter(catalog)
	importer := service.NewImporter(db, catalog)

	// Rate limiting is best effort; without Redis submissions are unlimited
	var submissionLimiter *middleware.RateLimiter
	if redisClient, err := database.NewRedisClient(cfg); err != nil {
		log.Printf("Warning: rate limiting disabled: %v", err)
	} else {
		submissionLimiter = middleware.NewSubmissionRateLimiter(redisClient)
	}

	prefHandler := NewPreferenceHandler(prefService, catalog, cfg.WebAppURL, submissionLimiter)
	telegramHandler := NewTelegramHandler(prefService, catalog, signer)
	adminHandler := NewAdminHandler(prefService, authService, exporter, importer, cfg.WebAppURL, cfg.ResponsesPerPage)

	v1 := router.Group("/api/v1")
	prefHandler.RegisterRoutes(v1)
	telegramHandler.RegisterRoutes(v1)
	adminHandler.RegisterRoutes(v1)
}
