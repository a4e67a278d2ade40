package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flipnotify/backend/internal/middleware"
	"github.com/flipnotify/backend/internal/service"
)

// AdminHandler serves the operator endpoints: listing, export, import.
type AdminHandler struct {
	svc      *service.PreferenceService
	auth     *service.AuthService
	exporter *service.Exporter
	importer *service.Importer
	baseURL  string
	perPage  int
}

func NewAdminHandler(svc *service.PreferenceService, auth *service.AuthService, exporter *service.Exporter, importer *service.Importer, baseURL string, perPage int) *AdminHandler {
	return &AdminHandler{
		svc:      svc,
		auth:     auth,
		exporter: exporter,
		importer: importer,
		baseURL:  baseURL,
		perPage:  perPage,
	}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	admin.POST("/login", h.Login)

	protected := admin.Group("")
	protected.Use(middleware.AdminAuth(h.auth))
	{
		protected.GET("/dashboard", h.Dashboard)
		protected.GET("/responses", h.ListResponses)
		protected.GET("/responses/:id", h.ViewResponse)
		protected.DELETE("/responses/:id", h.DeleteResponse)
		protected.GET("/responses/:id/export", h.ExportResponse)
		protected.GET("/export", h.ExportBundle)
		protected.GET("/export/csv", h.ExportCSV)
		protected.GET("/export/xlsx", h.ExportWorkbook)
		protected.POST("/import", h.Import)
	}
}

// Login exchanges admin credentials for a bearer token.
func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token})
}

// Dashboard returns aggregate submission statistics.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.svc.Dashboard()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListResponses returns a filtered, paginated listing.
func (h *AdminHandler) ListResponses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(h.perPage)))

	prefs, total, err := h.svc.List(service.PreferenceFilter{
		Location:         c.Query("location"),
		NotificationMode: c.Query("notification_mode"),
		Page:             page,
		PerPage:          perPage,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch responses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"responses": prefs,
		"total":     total,
		"page":      page,
		"per_page":  perPage,
	})
}

func (h *AdminHandler) preferenceByParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// ViewResponse returns one preference with the shareable edit URL.
func (h *AdminHandler) ViewResponse(c *gin.Context) {
	id, ok := h.preferenceByParam(c)
	if !ok {
		return
	}

	pref, err := h.svc.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "response not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch response"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"preference": pref,
		"edit_url":   h.baseURL + "/edit/" + pref.EditToken,
	})
}

// DeleteResponse removes one preference and its products.
func (h *AdminHandler) DeleteResponse(c *gin.Context) {
	id, ok := h.preferenceByParam(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "response not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete response"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "response deleted"})
}

func sendAttachment(c *gin.Context, data []byte, filename, contentType string) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

// ExportBundle streams the canonical ZIP bundle of all preferences.
func (h *AdminHandler) ExportBundle(c *gin.Context) {
	prefs, err := h.svc.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch preferences"})
		return
	}

	data, filename, err := h.exporter.ExportBundle(prefs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build export"})
		return
	}
	sendAttachment(c, data, filename, "application/zip")
}

// ExportCSV streams the single-file fallback export.
func (h *AdminHandler) ExportCSV(c *gin.Context) {
	prefs, err := h.svc.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch preferences"})
		return
	}

	data, filename, err := h.exporter.ExportFlatCSV(prefs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build export"})
		return
	}
	sendAttachment(c, data, filename, "text/csv")
}

// ExportWorkbook streams the XLSX export.
func (h *AdminHandler) ExportWorkbook(c *gin.Context) {
	prefs, err := h.svc.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch preferences"})
		return
	}

	data, filename, err := h.exporter.ExportWorkbook(prefs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build export"})
		return
	}
	sendAttachment(c, data, filename, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

// ExportResponse streams the CSV of a single preference.
func (h *AdminHandler) ExportResponse(c *gin.Context) {
	id, ok := h.preferenceByParam(c)
	if !ok {
		return
	}

	pref, err := h.svc.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "response not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch response"})
		return
	}

	data, filename, err := h.exporter.ExportSingleCSV(pref)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build export"})
		return
	}
	sendAttachment(c, data, filename, "text/csv")
}

// Import consumes an uploaded export file and reconciles it against the
// store. Row-level problems are reported in the counts, not as a failure.
func (h *AdminHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot open uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}

	result, err := h.importer.Import(fileHeader.Filename, data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
