package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flipnotify/backend/internal/middleware"
	"github.com/flipnotify/backend/internal/models"
	"github.com/flipnotify/backend/internal/service"
)

// TelegramHandler serves the signed-link variant of the form. Every route is
// behind the signed-link check; nothing here uses sessions.
type TelegramHandler struct {
	svc     *service.PreferenceService
	catalog *models.Catalog
	signer  *service.LinkSigner
}

func NewTelegramHandler(svc *service.PreferenceService, catalog *models.Catalog, signer *service.LinkSigner) *TelegramHandler {
	return &TelegramHandler{svc: svc, catalog: catalog, signer: signer}
}

func (h *TelegramHandler) RegisterRoutes(router *gin.RouterGroup) {
	telegram := router.Group("/telegram")
	telegram.Use(middleware.TelegramAuth(h.signer))
	{
		telegram.GET("/form", h.GetForm)
		telegram.POST("/preferences", h.SavePreferences)
	}
}

func telegramIdentity(c *gin.Context) (string, string) {
	return c.GetString(middleware.TelegramUserIDKey), c.GetString(middleware.TelegramUserNameKey)
}

// GetForm returns the Telegram user's stored preference, or catalog defaults
// when they have none yet.
func (h *TelegramHandler) GetForm(c *gin.Context) {
	userID, userName := telegramIdentity(c)

	pref, err := h.svc.GetTelegram(userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch preference"})
			return
		}

		// First visit: hand back the full catalog at default prices.
		defaults := make([]service.ProductInput, 0, len(h.catalog.Models()))
		for _, name := range h.catalog.Models() {
			defaults = append(defaults, service.ProductInput{
				Name:        name,
				MaxPrice:    h.catalog.DefaultPrice(name),
				IsPreferred: true,
			})
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id":   userID,
			"user_name": userName,
			"existing":  false,
			"defaults": gin.H{
				"notification_mode": models.ModeNearGoodDeal,
				"products":          defaults,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    userID,
		"user_name":  userName,
		"existing":   true,
		"preference": pref,
	})
}

// SavePreferences creates or updates the preference bound to the verified
// Telegram identity.
func (h *TelegramHandler) SavePreferences(c *gin.Context) {
	userID, userName := telegramIdentity(c)

	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pref, err := h.svc.UpsertTelegram(userID, userName, toInput(&req))
	if err != nil {
		status := http.StatusInternalServerError
		if isValidationError(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"preference": pref})
}

// AccessDenied is where failed signed-link verifications land.
func AccessDenied(c *gin.Context) {
	reason := c.Query("reason")
	if reason == "" {
		reason = service.DenyReasonUnauthorized
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "access denied", "reason": reason})
}
