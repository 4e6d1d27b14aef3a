package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	RendererChrome = "chrome"
	RendererStatic = "static"

	AssetPolicyAbort  = "abort"
	AssetPolicyInline = "inline"

	// MaxWorkers keeps concurrent renders low enough not to trip upstream rate limiting.
	MaxWorkers = 4
)

type Config struct {
	// SitemapURL maps to SITEMAP_URL.
	SitemapURL string `envconfig:"SITEMAP_URL" default:"https://www.vulnhub.com/sitemap.xml"`

	// EntryPrefix and SeriesPrefix classify sitemap URLs. Only entries are crawled.
	EntryPrefix  string `envconfig:"ENTRY_PREFIX" default:"https://www.vulnhub.com/entry/"`
	SeriesPrefix string `envconfig:"SERIES_PREFIX" default:"https://www.vulnhub.com/series/"`

	OutputDir  string `envconfig:"OUTPUT_DIR" default:"output"`
	ItemsDir   string `envconfig:"ITEMS_DIR" default:"output/items"`
	LedgerPath string `envconfig:"LEDGER_PATH" default:"db_visited.json"`

	// LedgerDSN switches the visited ledger from the JSON file to Postgres.
	LedgerDSN string `envconfig:"LEDGER_DSN"`

	// Renderer is "chrome" (headless browser) or "static" (plain HTTP + HTML parser).
	Renderer string `envconfig:"RENDERER" default:"chrome"`
	// ChromePath overrides where the Chrome binary is looked up.
	ChromePath string `envconfig:"CHROME_PATH"`

	Workers     int           `envconfig:"WORKERS" default:"1"`
	RateLimit   time.Duration `envconfig:"RATE_LIMIT" default:"2s"`
	PageTimeout time.Duration `envconfig:"PAGE_TIMEOUT" default:"60s"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	UserAgent   string        `envconfig:"USER_AGENT" default:"vulnhub-crawler/1.0"`

	// AssetFailurePolicy decides what happens when one screenshot cannot be fetched:
	// "abort" drops the whole item so it is retried next run, "inline" keeps the
	// item and records the failure next to the missing image.
	AssetFailurePolicy string `envconfig:"ASSET_FAILURE_POLICY" default:"abort"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
}

// Load processes environment variables and populates the Config struct.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			log.Printf("Warning: .env file found but could not be loaded: %v", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the crawler cannot act on.
func (c *Config) Validate() error {
	switch c.Renderer {
	case RendererChrome, RendererStatic:
	default:
		return fmt.Errorf("unknown renderer %q", c.Renderer)
	}

	switch c.AssetFailurePolicy {
	case AssetPolicyAbort, AssetPolicyInline:
	default:
		return fmt.Errorf("unknown asset failure policy %q", c.AssetFailurePolicy)
	}

	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d, got %d", MaxWorkers, c.Workers)
	}
	if c.SitemapURL == "" {
		return fmt.Errorf("sitemap URL is required")
	}
	if c.EntryPrefix == "" {
		return fmt.Errorf("entry prefix is required")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.PageTimeout <= 0 {
		return fmt.Errorf("page timeout must be positive")
	}
	return nil
}
