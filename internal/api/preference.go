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

// PreferenceHandler serves the public form endpoints: catalog, submission and
// edit-token self service.
type PreferenceHandler struct {
	svc     *service.PreferenceService
	catalog *models.Catalog
	baseURL string
	limiter *middleware.RateLimiter
}

func NewPreferenceHandler(svc *service.PreferenceService, catalog *models.Catalog, baseURL string, limiter *middleware.RateLimiter) *PreferenceHandler {
	return &PreferenceHandler{
		svc:     svc,
		catalog: catalog,
		baseURL: baseURL,
		limiter: limiter,
	}
}

func (h *PreferenceHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/catalog", h.GetCatalog)

	prefs := router.Group("/preferences")
	{
		if h.limiter != nil {
			prefs.POST("", h.limiter.RateLimitMiddleware(), h.Submit)
		} else {
			prefs.POST("", h.Submit)
		}
		prefs.GET("/:token", h.GetByToken)
		prefs.PUT("/:token", h.UpdateByToken)
	}
}

// GetCatalog returns the fixed model list with default prices, in catalog
// order, for form rendering.
func (h *PreferenceHandler) GetCatalog(c *gin.Context) {
	type entry struct {
		Name         string `json:"name"`
		DefaultPrice int    `json:"default_price"`
	}
	entries := make([]entry, 0, len(h.catalog.Models()))
	for _, name := range h.catalog.Models() {
		entries = append(entries, entry{Name: name, DefaultPrice: h.catalog.DefaultPrice(name)})
	}
	c.JSON(http.StatusOK, gin.H{
		"models":             entries,
		"notification_modes": models.NotificationModes,
	})
}

func toInput(req *PreferenceRequest) *service.PreferenceInput {
	input := &service.PreferenceInput{
		Location:         req.Location,
		Suburb:           req.Suburb,
		NotificationMode: req.NotificationMode,
	}
	for _, p := range req.Products {
		input.Products = append(input.Products, service.ProductInput{
			Name:        p.Name,
			MaxPrice:    p.MaxPrice,
			IsPreferred: p.IsPreferred,
		})
	}
	return input
}

func (h *PreferenceHandler) editURL(token string) string {
	return h.baseURL + "/edit/" + token
}

// Submit stores a new preference and returns the edit token the user needs
// for later changes.
func (h *PreferenceHandler) Submit(c *gin.Context) {
	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pref, err := h.svc.Create(toInput(&req))
	if err != nil {
		status := http.StatusBadRequest
		if !isValidationError(err) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"preference": pref,
		"edit_token": pref.EditToken,
		"edit_url":   h.editURL(pref.EditToken),
	})
}

// GetByToken returns the preference owning the edit token, for form prefill.
func (h *PreferenceHandler) GetByToken(c *gin.Context) {
	pref, err := h.svc.GetByToken(c.Param("token"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "preference not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch preference"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"preference": pref, "edit_url": h.editURL(pref.EditToken)})
}

// UpdateByToken updates the preference owning the edit token, replacing its
// product set.
func (h *PreferenceHandler) UpdateByToken(c *gin.Context) {
	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pref, err := h.svc.UpdateByToken(c.Param("token"), toInput(&req))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "preference not found"})
		case isValidationError(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update preference"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"preference": pref, "edit_url": h.editURL(pref.EditToken)})
}

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrLocationRequired) ||
		errors.Is(err, service.ErrUnknownMode) ||
		errors.Is(err, service.ErrUnknownProduct) ||
		errors.Is(err, service.ErrNegativePrice)
}
