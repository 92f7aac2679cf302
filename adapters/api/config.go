package api

import "time"

// Config holds configuration for the JSON API server
type Config struct {
	Port           string        `json:"port"`
	Mode           string        `json:"mode"` // gin mode: debug, release or test
	MaxUploadBytes int64         `json:"max_upload_bytes"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultConfig returns the API defaults
func DefaultConfig() Config {
	return Config{
		Port:           "8081",
		Mode:           "release",
		MaxUploadBytes: 10 << 20,
		RequestTimeout: 30 * time.Second,
	}
}
