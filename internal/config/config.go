package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"birthprev/domain/study"
	"birthprev/internal"
	"birthprev/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig
	Estimation EstimationConfig
	Logging    LogConfig
	Batch      BatchConfig
	Upload     UploadConfig
	Metrics    MetricsConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `envconfig:"PORT" default:"8080"`
	APIPort string `envconfig:"API_PORT" default:"8081"`
	GinMode string `envconfig:"GIN_MODE" default:"release"`
}

// EstimationConfig holds pipeline defaults; requests may override both.
type EstimationConfig struct {
	Distribution     string `envconfig:"DISTRIBUTION" default:"poisson"`
	DegeneratePolicy string `envconfig:"DEGENERATE_POLICY" default:"error"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"INFO"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// BatchConfig bounds concurrent batch runs
type BatchConfig struct {
	Concurrency int64 `envconfig:"BATCH_CONCURRENCY" default:"4"`
}

// UploadConfig limits request bodies for the UI and API
type UploadConfig struct {
	MaxBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
}

// MetricsConfig toggles the prometheus endpoint
type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to process environment")
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return cfg, nil
}

// LoadWithDotenv loads the given .env files (default ".env") into the
// environment before Load. A missing file is not an error.
func LoadWithDotenv(files ...string) (*Config, bool, error) {
	loaded := godotenv.Load(files...) == nil
	cfg, err := Load()
	return cfg, loaded, err
}

// Distribution returns the parsed default distribution.
func (c *Config) Distribution() study.Distribution {
	d, _ := study.ParseDistribution(c.Estimation.Distribution)
	return d
}

// DegeneratePolicy returns the parsed default degenerate policy.
func (c *Config) DegeneratePolicy() study.DegeneratePolicy {
	p, _ := study.ParseDegeneratePolicy(c.Estimation.DegeneratePolicy)
	return p
}

// Logger builds the application logger from the logging settings.
func (c *Config) Logger() *internal.Logger {
	level := internal.ParseLogLevel(c.Logging.Level)
	if c.Logging.Development {
		return internal.NewDevelopmentLogger(level)
	}
	return internal.NewLogger(level)
}

func validateConfig(config *Config) error {
	if _, err := study.ParseDistribution(config.Estimation.Distribution); err != nil {
		return errors.ConfigInvalid("DISTRIBUTION must be poisson or normal")
	}
	if _, err := study.ParseDegeneratePolicy(config.Estimation.DegeneratePolicy); err != nil {
		return errors.ConfigInvalid("DEGENERATE_POLICY must be error or exclude")
	}
	if config.Batch.Concurrency <= 0 {
		return errors.ConfigInvalid("BATCH_CONCURRENCY must be positive")
	}
	if config.Upload.MaxBytes <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_BYTES must be positive")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}
