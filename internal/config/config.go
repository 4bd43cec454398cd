// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a dotenv file, an optional YAML file and COGDIAG_* env vars on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"time"
)

// Denominator values accepted by Config.Denominator.
const (
	DenominatorAll    = "all"
	DenominatorScored = "scored"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CatalogPath points at a YAML test catalog. Empty means the built-in one.
	CatalogPath string `koanf:"catalog_path"`

	// PDFFontPath is a UTF-8 TrueType font for PDF reports. Empty means
	// transliterated text in a core font.
	PDFFontPath string `koanf:"pdf_font_path"`

	// CORSAllowedOrigins lists origins allowed to call the API from a browser.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// MaxBodyBytes caps request bodies of POST endpoints.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// Denominator selects how averages treat tests with a zero maximum:
	// "all" divides by the full battery, "scored" by the tests actually summed.
	Denominator string `koanf:"denominator"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MetricsRefreshInterval sets how often system gauges are refreshed.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		CORSAllowedOrigins:     []string{"*"},
		MaxBodyBytes:           1 << 20,
		Denominator:            DenominatorAll,
		ShutdownTimeout:        10 * time.Second,
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive, got %d", ErrInvalidConfig, c.MaxBodyBytes)
	case c.Denominator != DenominatorAll && c.Denominator != DenominatorScored:
		return fmt.Errorf("%w: denominator must be %q or %q, got %q",
			ErrInvalidConfig, DenominatorAll, DenominatorScored, c.Denominator)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
