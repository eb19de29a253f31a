// Package http provides the HTTP adapter over the application services.
// It translates requests into service calls and never touches the status
// machine's persistence directly.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/merchantflow/onboarding/internal/webhook"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	webhook    *webhook.Handler
	logger     Logger
}

// NewServer creates a new HTTP server with the given handlers
func NewServer(config ServerConfig, handlers *Handlers, webhookHandler *webhook.Handler, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		handlers: handlers,
		webhook:  webhookHandler,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handlers.HealthCheck)

	// Staff-facing API
	api := s.router.Group("/api")
	{
		api.POST("/applications", s.handlers.CreateApplication)
		api.GET("/applications", s.handlers.ListApplications)
		api.GET("/applications/:id", s.handlers.GetApplication)
		api.DELETE("/applications/:id", s.handlers.DeleteApplication)

		api.POST("/applications/:id/transition", s.handlers.Transition)
		api.GET("/applications/:id/history", s.handlers.GetHistory)
		api.GET("/applications/:id/activity", s.handlers.GetActivity)
		api.POST("/applications/:id/additional-info", s.handlers.SetAdditionalInfo)

		api.GET("/applications/:id/documents", s.handlers.ListDocuments)
		api.POST("/applications/:id/documents", s.handlers.UploadDocument)
		api.DELETE("/documents/:id", s.handlers.DeleteDocument)
		api.GET("/applications/:id/additional-documents", s.handlers.ListAdditionalDocuments)
		api.POST("/applications/:id/additional-documents", s.handlers.RequestAdditionalDocument)
		api.DELETE("/additional-documents/:id", s.handlers.RemoveAdditionalDocument)

		api.POST("/applications/:id/contract", s.handlers.SendContract)
		api.POST("/reports/pipeline", s.handlers.ExportPipelineReport)
	}

	// Merchant portal API
	portal := s.router.Group("/portal")
	{
		portal.POST("/applications/:id/confirm-fees", s.handlers.ConfirmFees)
		portal.POST("/applications/:id/documents", s.handlers.UploadDocument)
		portal.GET("/applications/:id/status", s.handlers.GetPortalStatus)
	}

	// Provider webhook
	if s.webhook != nil {
		s.router.POST("/webhooks/esign", s.webhook.Handle)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
