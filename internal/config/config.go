// Package config holds the process configuration: logging, which builtin
// servers are enabled, websearch upstream settings, and tool permissions.
package config

import (
	"maps"
	"slices"
	"time"
)

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultSearchBaseURL   = "${BUILTINMCP_SEARCH_URL:http://127.0.0.1:8088/search}"
	DefaultSearchAPIKey    = "${BUILTINMCP_SEARCH_API_KEY:dev-local-key}"
	DefaultSearchKeyHeader = "X-API-Key"
	DefaultSearchTimeout   = 20 * time.Second
	DefaultImageTimeout    = 10 * time.Second
	DefaultMaxResults      = 8
	DefaultMaxImages       = 5
	DefaultMaxImageBytes   = 2 << 20

	// MaxResultsLimit and MaxImagesLimit are the hard caps advertised in the
	// websearch tool schema.
	MaxResultsLimit = 20
	MaxImagesLimit  = 5
)

// Config is the root configuration document.
type Config struct {
	Logging     Logging            `toml:"logging"     yaml:"logging"`
	Servers     map[string]*Server `toml:"servers"     yaml:"servers"`
	WebSearch   WebSearch          `toml:"websearch"   yaml:"websearch"`
	Permissions map[string]string  `toml:"permissions" yaml:"permissions"`
}

// Logging configures the process log handler. CLI flags override it.
type Logging struct {
	Level  string `toml:"level"  yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Server is the per-server entry under [servers.<name>].
type Server struct {
	Enabled *bool `toml:"enabled" yaml:"enabled"`
}

// IsEnabled reports whether the server is enabled. A missing entry or a
// missing flag means enabled.
func (s *Server) IsEnabled() bool {
	return s == nil || s.Enabled == nil || *s.Enabled
}

// WebSearch configures the search upstream and the image fan-out.
type WebSearch struct {
	BaseURL       string            `toml:"base_url"        yaml:"base_url"        env_interpolation:"yes"`
	APIKey        string            `toml:"api_key"         yaml:"api_key"         env_interpolation:"yes"`
	APIKeyHeader  string            `toml:"api_key_header"  yaml:"api_key_header"`
	Timeout       Duration          `toml:"timeout"         yaml:"timeout"`
	ImageTimeout  Duration          `toml:"image_timeout"   yaml:"image_timeout"`
	MaxResults    int               `toml:"max_results"     yaml:"max_results"`
	MaxImages     int               `toml:"max_images"      yaml:"max_images"`
	MaxImageBytes int64             `toml:"max_image_bytes" yaml:"max_image_bytes"`
	Headers       map[string]string `toml:"headers"         yaml:"headers"         env_interpolation:"yes"`
}

// NewDefault returns the configuration used when no file is given.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Servers == nil {
		c.Servers = map[string]*Server{}
	}
	if c.Permissions == nil {
		c.Permissions = map[string]string{}
	}

	ws := &c.WebSearch
	if ws.BaseURL == "" {
		ws.BaseURL = DefaultSearchBaseURL
	}
	if ws.APIKey == "" {
		ws.APIKey = DefaultSearchAPIKey
	}
	if ws.APIKeyHeader == "" {
		ws.APIKeyHeader = DefaultSearchKeyHeader
	}
	if ws.Timeout == 0 {
		ws.Timeout = FromDuration(DefaultSearchTimeout)
	}
	if ws.ImageTimeout == 0 {
		ws.ImageTimeout = FromDuration(DefaultImageTimeout)
	}
	if ws.MaxResults == 0 {
		ws.MaxResults = DefaultMaxResults
	}
	if ws.MaxImages == 0 {
		ws.MaxImages = DefaultMaxImages
	}
	if ws.MaxImageBytes == 0 {
		ws.MaxImageBytes = DefaultMaxImageBytes
	}
}

// ServerEnabled reports whether the named server may be started.
func (c *Config) ServerEnabled(name string) bool {
	return c.Servers[name].IsEnabled()
}

// ServerNames returns the configured server names, sorted.
func (c *Config) ServerNames() []string {
	return slices.Sorted(maps.Keys(c.Servers))
}
