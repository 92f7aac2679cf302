package container

import (
	"fmt"

	"birthprev/adapters/api"
	"birthprev/adapters/excel"
	"birthprev/adapters/stats/stages"
	"birthprev/app"
	"birthprev/internal"
	"birthprev/internal/config"
	"birthprev/internal/monitoring"
	"birthprev/ui"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Metrics is nil when METRICS_ENABLED is false.
	Metrics *monitoring.Metrics

	Service *app.EstimationService
}

// New wires the estimation service and its ambient dependencies from cfg
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: cfg.Logger(),
	}
	if cfg.Metrics.Enabled {
		c.Metrics = monitoring.NewMetrics()
	}

	c.Service = app.NewEstimationService(
		stages.DefaultStages(),
		app.EstimateOptions{Distribution: cfg.Distribution(), Policy: cfg.DegeneratePolicy()},
		c.Logger,
		c.Metrics,
	)
	return c, nil
}

// Batch returns a batch runner over the given reader and writer options
func (c *Container) Batch(reader excel.ReaderConfig, writer excel.WriterConfig) *app.BatchService {
	return app.NewBatchService(
		c.Service,
		excel.NewDataReader(reader, c.Logger),
		excel.NewResultWriter(writer),
		c.Config.Batch.Concurrency,
		c.Logger,
		c.Metrics,
	)
}

// UIApp builds the web UI on the configured port
func (c *Container) UIApp() (*ui.App, error) {
	return ui.NewApp(ui.Config{
		Port:           c.Config.Server.Port,
		MaxUploadBytes: c.Config.Upload.MaxBytes,
	}, c.Service, c.Metrics, c.Logger)
}

// APIServer builds the JSON API on the configured API port
func (c *Container) APIServer() *api.Server {
	cfg := api.DefaultConfig()
	cfg.Port = c.Config.Server.APIPort
	cfg.Mode = c.Config.Server.GinMode
	cfg.MaxUploadBytes = c.Config.Upload.MaxBytes
	return api.NewServer(cfg, c.Service, c.Metrics, c.Logger)
}

// Close flushes buffered log output
func (c *Container) Close() {
	c.Logger.Sync()
}
