package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.vulnhub.com/sitemap.xml", cfg.SitemapURL)
	assert.Equal(t, "https://www.vulnhub.com/entry/", cfg.EntryPrefix)
	assert.Equal(t, "output/items", cfg.ItemsDir)
	assert.Equal(t, "db_visited.json", cfg.LedgerPath)
	assert.Equal(t, RendererChrome, cfg.Renderer)
	assert.Equal(t, AssetPolicyAbort, cfg.AssetFailurePolicy)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 2*time.Second, cfg.RateLimit)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WORKERS", "3")
	t.Setenv("RENDERER", "static")
	t.Setenv("RATE_LIMIT", "500ms")
	t.Setenv("ASSET_FAILURE_POLICY", "inline")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, RendererStatic, cfg.Renderer)
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimit)
	assert.Equal(t, AssetPolicyInline, cfg.AssetFailurePolicy)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			SitemapURL:         "https://example.com/sitemap.xml",
			EntryPrefix:        "https://example.com/entry/",
			Renderer:           RendererStatic,
			AssetFailurePolicy: AssetPolicyAbort,
			Workers:            1,
			PageTimeout:        time.Second,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown renderer", func(c *Config) { c.Renderer = "firefox" }},
		{"unknown policy", func(c *Config) { c.AssetFailurePolicy = "skip" }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"too many workers", func(c *Config) { c.Workers = MaxWorkers + 1 }},
		{"missing sitemap", func(c *Config) { c.SitemapURL = "" }},
		{"missing entry prefix", func(c *Config) { c.EntryPrefix = "" }},
		{"zero page timeout", func(c *Config) { c.PageTimeout = 0 }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
