package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/luispater/webdriverkit/internal/driver"
	"github.com/luispater/webdriverkit/internal/runner"
	log "github.com/sirupsen/logrus"
)

// Server represents the API server
type Server struct {
	engine   *gin.Engine
	server   *http.Server
	queue    *RequestQueue
	handlers *APIHandlers
}

// ServerConfig contains configuration for the API server
type ServerConfig struct {
	Port  string
	Debug bool
	// QueueSize bounds pending runs; zero means 100.
	QueueSize int
	// RunTimeout bounds how long a request waits for its run; zero means 5 minutes.
	RunTimeout time.Duration
}

// NewServer creates a new API server instance
func NewServer(config *ServerConfig, d *driver.Driver, r *runner.RunnerManager) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	queue := NewRequestQueue(NewScenarioProcessor(d, r), config.QueueSize)
	handlers := NewAPIHandlers(queue, d, r, config.RunTimeout)

	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	s := &Server{
		engine:   engine,
		queue:    queue,
		handlers: handlers,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    ":" + config.Port,
		Handler: engine,
	}
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	v1 := s.engine.Group("/v1")
	{
		v1.GET("/screenshot", s.handlers.TakeScreenshot)
		v1.GET("/scenarios", s.handlers.ListScenarios)
		v1.POST("/scenarios/:name", s.handlers.RunScenario)
	}

	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "WebDriverKit Scenario API Server",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /v1/screenshot",
				"GET /v1/scenarios",
				"POST /v1/scenarios/:name",
			},
		})
	})
}

// Handler exposes the routes without a listener.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// StartQueue starts the run worker; Start calls it.
func (s *Server) StartQueue() error {
	if err := s.queue.Start(); err != nil {
		return fmt.Errorf("failed to start request queue: %w", err)
	}
	return nil
}

// Start starts the run worker and blocks serving HTTP
func (s *Server) Start() error {
	if err := s.StartQueue(); err != nil {
		return err
	}

	log.Infof("Starting API server on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the API server
func (s *Server) Stop(ctx context.Context) error {
	log.Debug("Stopping API server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	if err := s.queue.Stop(); err != nil {
		log.Debugf("Error stopping request queue: %v", err)
	}

	log.Debug("API server stopped")
	return nil
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
