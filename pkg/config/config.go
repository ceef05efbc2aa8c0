// Package config provides the unified configuration system for wpbridge.
// It defines a single Config structure covering the WordPress endpoint,
// retrieval performance, timeouts, asset downloading, and observability,
// so every component reads its settings from the same place.
//
// Example usage:
//
//	cfg := config.Default()
//	cfg.WordPress.BaseURL = "https://example.com"
//	cfg.Assets.DownloadPostImages = true
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the single configuration structure used across wpbridge.
type Config struct {
	// WordPress identifies the remote content API
	WordPress WordPressConfig `yaml:"wordpress" json:"wordpress"`

	// Performance settings control paginated retrieval
	Performance PerformanceConfig `yaml:"performance" json:"performance"`

	// Timeouts define transport timeout durations
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Assets controls image downloading and content splitting
	Assets AssetConfig `yaml:"assets" json:"assets"`

	// Observability settings for logging, metrics and tracing
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// WordPressConfig identifies the remote API and how entity names are derived.
type WordPressConfig struct {
	// BaseURL is the site root, e.g. https://example.com (required)
	BaseURL string `yaml:"base_url" json:"base_url"`
	// APIPrefix is the REST API path prefix, default /wp-json
	APIPrefix string `yaml:"api_prefix" json:"api_prefix"`
	// TypePrefix is prepended to every canonical entity type name
	TypePrefix string `yaml:"type_prefix" json:"type_prefix"`
	// Routes overrides the display route template per raw type name
	Routes map[string]string `yaml:"routes" json:"routes"`
}

// PerformanceConfig contains paginated retrieval settings.
type PerformanceConfig struct {
	// PageSize is the per_page query value, clamped to 1-100
	PageSize int `yaml:"page_size" json:"page_size"`
	// MaxConcurrentPages caps page fetches in flight for one collection
	MaxConcurrentPages int `yaml:"max_concurrent_pages" json:"max_concurrent_pages"`
}

// TimeoutConfig contains transport timeout settings.
type TimeoutConfig struct {
	// Request timeout for one HTTP round trip
	Request time.Duration `yaml:"request" json:"request"`
	// Connection timeout for establishing connections
	Connection time.Duration `yaml:"connection" json:"connection"`
	// Idle timeout before closing inactive connections
	Idle time.Duration `yaml:"idle" json:"idle"`
}

// AssetConfig controls the image download pipeline and post-body splitting.
type AssetConfig struct {
	// DownloadDir is the persistent destination for downloaded images
	DownloadDir string `yaml:"download_dir" json:"download_dir"`
	// StagingDir holds in-flight temporary files, safe to purge between runs
	StagingDir string `yaml:"staging_dir" json:"staging_dir"`
	// SplitPostContent splits post bodies into ordered html/image fragments
	SplitPostContent bool `yaml:"split_post_content" json:"split_post_content"`
	// DownloadPostImages downloads inline images found in post bodies
	DownloadPostImages bool `yaml:"download_post_images" json:"download_post_images"`
	// DownloadFeaturedImages downloads each record's embedded featured media
	DownloadFeaturedImages bool `yaml:"download_featured_images" json:"download_featured_images"`
	// DownloadACFImages downloads images referenced inside custom field groups
	DownloadACFImages bool `yaml:"download_acf_images" json:"download_acf_images"`
}

// ObservabilityConfig contains monitoring settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// EnableMetrics activates the Prometheus registry
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates the OpenTelemetry tracer
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
}

// Default returns a Config with production-ready defaults. The WordPress
// base URL has no sensible default and must be set by the caller.
func Default() *Config {
	return &Config{
		WordPress: WordPressConfig{
			APIPrefix:  "/wp-json",
			TypePrefix: "Wordpress",
			Routes:     make(map[string]string),
		},
		Performance: PerformanceConfig{
			PageSize:           100,
			MaxConcurrentPages: 10,
		},
		Timeouts: TimeoutConfig{
			Request:    30 * time.Second,
			Connection: 10 * time.Second,
			Idle:       90 * time.Second,
		},
		Assets: AssetConfig{
			DownloadDir: "images",
			StagingDir:  ".wpbridge-staging",
		},
		Observability: ObservabilityConfig{
			LogLevel:      "info",
			EnableMetrics: true,
			EnableTracing: false,
		},
	}
}

// Validate validates the configuration for correctness.
// It checks required fields and ensures values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.WordPress.BaseURL == "" {
		return fmt.Errorf("wordpress.base_url is required")
	}
	if !strings.HasPrefix(c.WordPress.BaseURL, "http://") && !strings.HasPrefix(c.WordPress.BaseURL, "https://") {
		return fmt.Errorf("wordpress.base_url must start with http:// or https://")
	}
	if c.WordPress.TypePrefix == "" {
		return fmt.Errorf("wordpress.type_prefix is required")
	}
	if c.Performance.PageSize < 1 || c.Performance.PageSize > 100 {
		return fmt.Errorf("performance.page_size must be between 1 and 100")
	}
	if c.Performance.MaxConcurrentPages <= 0 {
		return fmt.Errorf("performance.max_concurrent_pages must be positive")
	}
	if c.Assets.DownloadDir == "" {
		return fmt.Errorf("assets.download_dir is required")
	}
	if c.Assets.StagingDir == "" {
		return fmt.Errorf("assets.staging_dir is required")
	}
	return nil
}

// DownloadsEnabled reports whether any image download flag is set.
func (a *AssetConfig) DownloadsEnabled() bool {
	return a.DownloadPostImages || a.DownloadFeaturedImages || a.DownloadACFImages
}
