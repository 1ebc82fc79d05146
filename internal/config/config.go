package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment override (DOCSEARCH_DATA_DIR, ...).
	EnvPrefix = "DOCSEARCH"

	// DefaultBaseURL is the documentation site the default source points at.
	DefaultBaseURL = "https://gdalle.github.io/ImplicitDifferentiation.jl"

	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds the server configuration
type Config struct {
	DataDir    string        `mapstructure:"data_dir"`
	BaseURL    string        `mapstructure:"base_url"`
	Sources    []Source      `mapstructure:"sources"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	MaxResults int           `mapstructure:"max_results"`
	Transport  string        `mapstructure:"transport"`
	HTTP       HTTPConfig    `mapstructure:"http"`
}

// Source is one documentation build whose search index is served
type Source struct {
	Version string `mapstructure:"version"` // e.g. "stable", "v0.1.0", "previews/PR40"
	URL     string `mapstructure:"url"`     // URL of the build's search_index.js
}

// HTTPConfig contains the HTTP transport settings
type HTTPConfig struct {
	Addr      string  `mapstructure:"addr"`
	RateLimit float64 `mapstructure:"rate_limit"` // requests per second
}

// Load reads configuration from path (or the default search paths when path
// is empty) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".documenter-mcp"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = []Source{DefaultSource(cfg.BaseURL)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("cache_ttl", 7*24*time.Hour)
	v.SetDefault("max_results", 10)
	v.SetDefault("transport", TransportStdio)
	v.SetDefault("http.addr", ":8085")
	v.SetDefault("http.rate_limit", 20.0)
}

// DefaultSource points at the stable build of the site at baseURL
func DefaultSource(baseURL string) Source {
	return Source{
		Version: "stable",
		URL:     strings.TrimSuffix(baseURL, "/") + "/stable/search_index.js",
	}
}

// defaultDataDir prefers ~/.documenter-mcp and falls back to ./data
func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".documenter-mcp")
	}
	return filepath.Join(".", "data")
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("config: data_dir must not be empty")
	}
	if c.Transport != TransportStdio && c.Transport != TransportHTTP {
		return fmt.Errorf("config: unknown transport %q (want %q or %q)", c.Transport, TransportStdio, TransportHTTP)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("config: max_results must be positive, got %d", c.MaxResults)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("config: cache_ttl must be positive, got %v", c.CacheTTL)
	}
	if c.Transport == TransportHTTP {
		if c.HTTP.Addr == "" {
			return errors.New("config: http.addr must not be empty")
		}
		if c.HTTP.RateLimit <= 0 {
			return fmt.Errorf("config: http.rate_limit must be positive, got %v", c.HTTP.RateLimit)
		}
	}

	if len(c.Sources) == 0 {
		return errors.New("config: at least one source is required")
	}
	seen := make(map[string]bool)
	for i, src := range c.Sources {
		if src.Version == "" {
			return fmt.Errorf("config: sources[%d] has no version", i)
		}
		if strings.Contains(src.Version, "..") || filepath.IsAbs(src.Version) {
			return fmt.Errorf("config: sources[%d] version %q is not a relative name", i, src.Version)
		}
		if src.URL == "" {
			return fmt.Errorf("config: sources[%d] (%s) has no url", i, src.Version)
		}
		if seen[src.Version] {
			return fmt.Errorf("config: duplicate source version %q", src.Version)
		}
		seen[src.Version] = true
	}
	return nil
}
