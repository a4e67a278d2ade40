package server

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flipnotify/backend/config"
	"github.com/flipnotify/backend/internal/api"
	"github.com/flipnotify/backend/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	cfg    *config.Config
	db     *gorm.DB
}

// New creates a new server instance
func New(cfg *config.Config, db *gorm.DB) *Server {
	router := gin.Default()

	// Add CORS middleware; the webapp URL is always an allowed origin
	router.Use(middleware.CORS([]string{strings.TrimRight(cfg.WebAppURL, "/")}))

	// Register routes
	api.RegisterRoutes(router, db, cfg)

	return &Server{
		router: router,
		cfg:    cfg,
		db:     db,
	}
}

// Start starts the server and blocks until it stops
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:    s.cfg.ServerHost + ":" + s.cfg.ServerPort,
		Handler: s.router,
	}

	log.Printf("Listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}
