// Package config loads the site configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shopkit/pagebuilder"
)

// Config represents the page builder configuration for one site.
type Config struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`

	Server   ServerConfig       `yaml:"server"`
	Store    StoreConfig        `yaml:"store"`
	Theme    *pagebuilder.Theme `yaml:"theme,omitempty"`
	Features FeaturesConfig     `yaml:"features"`
	API      *APIConfig         `yaml:"api,omitempty"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Driver is "sqlite", "postgres", or "memory" (default: sqlite).
	Driver string `yaml:"driver"`
	// Path is the sqlite database file, relative to the site directory.
	Path string `yaml:"path,omitempty"`
	// DSN is the postgres connection string. Supports env var expansion
	// (e.g. "${DATABASE_URL}").
	DSN string `yaml:"dsn,omitempty"`
	// Table overrides the state table name.
	Table string `yaml:"table,omitempty"`
}

// FeaturesConfig holds feature flags.
type FeaturesConfig struct {
	HotReload bool `yaml:"hot_reload"`
}

// APIConfig holds editor API configuration.
type APIConfig struct {
	CORS      *CORSConfig      `yaml:"cors,omitempty"`
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
	Auth      *AuthConfig      `yaml:"auth,omitempty"`
}

// AuthConfig holds authentication configuration for the editor API.
type AuthConfig struct {
	// APIKey is the required API key. Supports environment variable
	// expansion (e.g. "${EDITOR_API_KEY}").
	APIKey string `yaml:"api_key,omitempty"`
	// HeaderName is the HTTP header carrying the key (default: "X-API-Key").
	// "Authorization" additionally accepts the Bearer form.
	HeaderName string `yaml:"header_name,omitempty"`
}

// CORSConfig holds allowed origins for the editor API.
type CORSConfig struct {
	Origins []string `yaml:"origins,omitempty"`
}

// RateLimitConfig holds rate limiting configuration for the editor API.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`
}

// GetDriver returns the configured store driver (default: "sqlite").
func (c StoreConfig) GetDriver() string {
	if c.Driver == "" {
		return "sqlite"
	}
	return c.Driver
}

// GetDSN returns the postgres DSN with environment variable expansion.
func (c StoreConfig) GetDSN() string {
	if c.DSN == "" {
		return ""
	}
	return os.ExpandEnv(c.DSN)
}

// GetCORSOrigins returns the configured CORS origins, or nil.
func (c *APIConfig) GetCORSOrigins() []string {
	if c == nil || c.CORS == nil {
		return nil
	}
	return c.CORS.Origins
}

// GetRateLimitRPS returns the rate limit in requests per second (default: 10).
func (c *APIConfig) GetRateLimitRPS() float64 {
	if c == nil || c.RateLimit == nil || c.RateLimit.RequestsPerSecond <= 0 {
		return 10
	}
	return c.RateLimit.RequestsPerSecond
}

// GetRateLimitBurst returns the burst size (default: 20).
func (c *APIConfig) GetRateLimitBurst() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.Burst <= 0 {
		return 20
	}
	return c.RateLimit.Burst
}

// IsAuthEnabled returns true if API authentication is configured.
func (c *APIConfig) IsAuthEnabled() bool {
	if c == nil || c.Auth == nil {
		return false
	}
	return c.Auth.GetAPIKey() != ""
}

// GetAPIKey returns the configured API key with environment variable
// expansion.
func (c *AuthConfig) GetAPIKey() string {
	if c == nil || c.APIKey == "" {
		return ""
	}
	return os.ExpandEnv(c.APIKey)
}

// GetHeaderName returns the auth header name (default: "X-API-Key").
func (c *AuthConfig) GetHeaderName() string {
	if c == nil || c.HeaderName == "" {
		return "X-API-Key"
	}
	return c.HeaderName
}

// EffectiveTheme merges the configured theme over the built-in default, with
// the site title and description filling store name and description when the
// theme leaves them empty.
func (c *Config) EffectiveTheme() pagebuilder.Theme {
	theme := pagebuilder.DefaultTheme()
	if c.Theme != nil {
		overlayTheme(&theme, *c.Theme)
	}
	if c.Title != "" && (c.Theme == nil || c.Theme.StoreName == "") {
		theme.StoreName = c.Title
	}
	if c.Description != "" && (c.Theme == nil || c.Theme.StoreDescription == "") {
		theme.StoreDescription = c.Description
	}
	return theme
}

// overlayTheme copies every non-empty field of src over dst.
func overlayTheme(dst *pagebuilder.Theme, src pagebuilder.Theme) {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&dst.BrandColor, src.BrandColor)
	set(&dst.AccentColor, src.AccentColor)
	set(&dst.SecondaryColor, src.SecondaryColor)
	set(&dst.PriceColor, src.PriceColor)
	set(&dst.HeadingFont, src.HeadingFont)
	set(&dst.BodyFont, src.BodyFont)
	set(&dst.HeadingColor, src.HeadingColor)
	set(&dst.BodyColor, src.BodyColor)
	set(&dst.HeaderBackground, src.HeaderBackground)
	set(&dst.HeaderText, src.HeaderText)
	set(&dst.FooterBackground, src.FooterBackground)
	set(&dst.FooterText, src.FooterText)
	set(&dst.StoreName, src.StoreName)
	set(&dst.StoreDescription, src.StoreDescription)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Title:       "My Store",
		Description: "Welcome to my store",
		Server: ServerConfig{
			Port:  3000,
			Host:  "localhost",
			Debug: false,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "./pagebuilder.db",
		},
		Features: FeaturesConfig{
			HotReload: true,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// default configuration.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// LoadFromDir looks for pagebuilder.yaml, then shop.yaml, in the given
// directory. If neither exists, returns the default configuration.
func LoadFromDir(dir string) (*Config, error) {
	primary := filepath.Join(dir, "pagebuilder.yaml")
	if _, err := os.Stat(primary); err == nil {
		return Load(primary)
	}

	return Load(filepath.Join(dir, "shop.yaml"))
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
