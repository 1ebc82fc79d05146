package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/documenter-search/mcp-server/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
data_dir: /tmp/docsearch
base_url: https://example.org/Package.jl
cache_ttl: 24h
max_results: 5
transport: http
http:
  addr: 127.0.0.1:9000
  rate_limit: 5
sources:
  - version: v0.1.0
    url: https://example.org/Package.jl/v0.1.0/search_index.js
  - version: previews/PR40
    url: https://example.org/Package.jl/previews/PR40/search_index.js
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/docsearch", cfg.DataDir)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 5, cfg.MaxResults)
	assert.Equal(t, config.TransportHTTP, cfg.Transport)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, 5.0, cfg.HTTP.RateLimit)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "previews/PR40", cfg.Sources[1].Version)
}

func TestLoad_DefaultSource(t *testing.T) {
	path := writeConfig(t, "base_url: https://example.org/Package.jl/\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "stable", cfg.Sources[0].Version)
	assert.Equal(t, "https://example.org/Package.jl/stable/search_index.js", cfg.Sources[0].URL)
	assert.Equal(t, config.TransportStdio, cfg.Transport)
	assert.Equal(t, 10, cfg.MaxResults)
	assert.Equal(t, 7*24*time.Hour, cfg.CacheTTL)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "max_results: 5\n")
	t.Setenv("DOCSEARCH_MAX_RESULTS", "7")
	t.Setenv("DOCSEARCH_HTTP_ADDR", ":9999")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxResults)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			DataDir:    "/tmp/x",
			CacheTTL:   time.Hour,
			MaxResults: 10,
			Transport:  config.TransportStdio,
			HTTP:       config.HTTPConfig{Addr: ":8085", RateLimit: 1},
			Sources:    []config.Source{{Version: "stable", URL: "https://example.org/stable/search_index.js"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "unknown transport", mutate: func(c *config.Config) { c.Transport = "grpc" }},
		{name: "zero max results", mutate: func(c *config.Config) { c.MaxResults = 0 }},
		{name: "negative ttl", mutate: func(c *config.Config) { c.CacheTTL = -time.Second }},
		{name: "no sources", mutate: func(c *config.Config) { c.Sources = nil }},
		{name: "duplicate version", mutate: func(c *config.Config) { c.Sources = append(c.Sources, c.Sources[0]) }},
		{name: "escaping version", mutate: func(c *config.Config) { c.Sources[0].Version = "../etc" }},
		{name: "missing url", mutate: func(c *config.Config) { c.Sources[0].URL = "" }},
		{name: "http without rate limit", mutate: func(c *config.Config) {
			c.Transport = config.TransportHTTP
			c.HTTP.RateLimit = 0
		}},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
