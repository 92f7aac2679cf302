package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"birthprev/adapters/excel"
	"birthprev/app"
	"birthprev/internal"
	"birthprev/internal/monitoring"
)

// Server exposes the estimation service as a JSON API
type Server struct {
	router  *gin.Engine
	http    *http.Server
	service *app.EstimationService
	reader  *excel.DataReader
	metrics *monitoring.Metrics
	logger  *internal.Logger
	config  Config
}

// NewServer creates the API server. metrics may be nil.
func NewServer(config Config, service *app.EstimationService, metrics *monitoring.Metrics, logger *internal.Logger) *Server {
	defaults := DefaultConfig()
	if config.Port == "" {
		config.Port = defaults.Port
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}

	s := &Server{
		router:  gin.New(),
		service: service,
		reader:  excel.NewDataReader(excel.DefaultReaderConfig(), logger),
		metrics: metrics,
		logger:  logger,
		config:  config,
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.http = &http.Server{
		Addr:              ":" + config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
	s.router.Use(s.limitBody())
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	v1.POST("/estimate", s.handleEstimate)
	v1.POST("/estimate/csv", s.handleEstimateCSV)

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// Handler exposes the engine, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves the API and blocks until the server stops
func (s *Server) Start() error {
	s.logger.Info("starting birth prevalence API on :%s", s.config.Port)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("%s %s -> %d in %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
