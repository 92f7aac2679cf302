package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"birthprev/adapters/excel"
	"birthprev/app"
	"birthprev/internal"
	"birthprev/internal/monitoring"
)

//go:embed templates/*.html static/*
var embeddedFiles embed.FS

// App represents the UI application
type App struct {
	router    *chi.Mux
	server    *http.Server
	service   *app.EstimationService
	reader    *excel.DataReader
	writer    *excel.ResultWriter
	metrics   *monitoring.Metrics
	logger    *internal.Logger
	templates *template.Template
	config    Config
}

// Config holds UI application configuration
type Config struct {
	Port           string
	MaxUploadBytes int64
}

// NewApp creates a new UI application. metrics may be nil, which disables
// the /metrics endpoint.
func NewApp(config Config, service *app.EstimationService, metrics *monitoring.Metrics, logger *internal.Logger) (*App, error) {
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 10 << 20
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}

	funcMap := template.FuncMap{
		"num": formatNumber,
		"pct": func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
		"add": func(a, b int) int { return a + b },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a := &App{
		router:    chi.NewRouter(),
		service:   service,
		reader:    excel.NewDataReader(excel.DefaultReaderConfig(), logger),
		writer:    excel.NewResultWriter(excel.WriterConfig{}),
		metrics:   metrics,
		logger:    logger,
		templates: templates,
		config:    config,
	}

	a.setupMiddleware()
	a.setupRoutes()
	a.server = &http.Server{
		Addr:              ":" + config.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))

	staticFS := http.FileServer(http.FS(embeddedFiles))
	a.router.Handle("/static/*", staticFS)
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Post("/estimate", a.handleEstimate)
	a.router.Post("/download", a.handleDownload)
	a.router.Get("/healthz", a.handleHealthz)

	if a.metrics != nil {
		a.router.Handle("/metrics", a.metrics.Handler())
	}
}

// Handler exposes the router, for tests and for embedding.
func (a *App) Handler() http.Handler {
	return a.router
}

// Start starts the HTTP server and blocks until it stops
func (a *App) Start() error {
	a.logger.Info("starting birth prevalence UI on http://localhost:%s", a.config.Port)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *App) renderTemplate(w http.ResponseWriter, status int, templateName string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := a.templates.ExecuteTemplate(w, templateName, data); err != nil {
		a.logger.Error("template %s: %v", templateName, err)
	}
}
