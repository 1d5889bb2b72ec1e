package web

import (
	"time"

	"github.com/sepa-leadgen/internal/config"
)

// Config represents the web server configuration
type Config struct {
	Server   ServerConfig
	Features FeatureConfig
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int
	Host            string
	ShutdownTimeout time.Duration
}

// FeatureConfig contains feature toggles
type FeatureConfig struct {
	ExportEnabled bool
}

// ConfigFromSettings maps the validated runtime settings onto the server.
func ConfigFromSettings(s config.WebSettings) *Config {
	c := DefaultConfig()
	c.Server.Host = s.Host
	c.Server.Port = s.Port
	c.Features.ExportEnabled = s.ExportEnabled
	return c
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ShutdownTimeout: 30 * time.Second,
		},
		Features: FeatureConfig{
			ExportEnabled: true,
		},
	}
}
