// Package config handles application configuration
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

const (
	// EnvPublicID and EnvSecretKey name the credential environment variables.
	EnvPublicID  = "SUITEDASH_PUBLIC_ID"
	EnvSecretKey = "SUITEDASH_SECRET_KEY"

	appName = "suitedash"
)

// APIConfig holds upstream connection settings
type APIConfig struct {
	BaseURL  string `yaml:"base_url" validate:"required,url"`
	Timeout  string `yaml:"timeout"`
	PublicID string `yaml:"public_id"`
}

// CacheConfig holds response cache settings
type CacheConfig struct {
	Path string `yaml:"path"`
	TTL  string `yaml:"ttl"`
}

// PaginationConfig holds list paging settings
type PaginationConfig struct {
	PageSize  int            `yaml:"page_size" validate:"gte=0,lte=100"`
	Overrides map[string]int `yaml:"overrides" validate:"dive,keys,oneof=contacts projects files tasks,endkeys,gt=0,lte=100"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

// ReportingConfig holds error reporting settings
type ReportingConfig struct {
	HoneybadgerAPIKey string `yaml:"honeybadger_api_key"`
	Env               string `yaml:"env"`
}

// MetricsConfig holds metrics export settings
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Config represents the application configuration
type Config struct {
	API          APIConfig        `yaml:"api"`
	Cache        CacheConfig      `yaml:"cache"`
	Pagination   PaginationConfig `yaml:"pagination"`
	Logging      LoggingConfig    `yaml:"logging"`
	OutputFormat string           `yaml:"output_format" validate:"oneof=text json"`
	Reporting    ReportingConfig  `yaml:"reporting"`
	Metrics      MetricsConfig    `yaml:"metrics"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://app.suitedash.com/secure-api",
			Timeout: "15s",
		},
		Cache: CacheConfig{
			Path: filepath.Join(GetDataDir(), "cache.db"),
			TTL:  "10m",
		},
		Pagination:   PaginationConfig{PageSize: 20},
		Logging:      LoggingConfig{Level: "info"},
		OutputFormat: "text",
		Reporting:    ReportingConfig{Env: "production"},
	}
}

// Load loads configuration from the specified path, or the default XDG path if empty.
// If the config file doesn't exist, it creates one from the sample.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(GetConfigDir(), "config.yaml")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and fills unset fields with defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	if c.API.Timeout == "" {
		c.API.Timeout = def.API.Timeout
	}
	if c.Cache.Path == "" {
		c.Cache.Path = def.Cache.Path
	}
	c.Cache.Path = ExpandPath(c.Cache.Path)
	c.Metrics.Textfile = ExpandPath(c.Metrics.Textfile)
	if c.Cache.TTL == "" {
		c.Cache.TTL = def.Cache.TTL
	}
	if c.Pagination.PageSize == 0 {
		c.Pagination.PageSize = def.Pagination.PageSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.OutputFormat == "" {
		c.OutputFormat = def.OutputFormat
	}
	if c.Reporting.Env == "" {
		c.Reporting.Env = def.Reporting.Env
	}
}

// save writes the sample configuration to the specified path
func (c *Config) save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: %v (failed %q)", yamlPath(fe.Namespace()), fe.Value(), fe.Tag())
		}
		return err
	}

	if _, err := parsePositiveDuration(c.API.Timeout); err != nil {
		return fmt.Errorf("invalid duration for api.timeout: %q", c.API.Timeout)
	}
	if _, err := parsePositiveDuration(c.Cache.TTL); err != nil {
		return fmt.Errorf("invalid duration for cache.ttl: %q", c.Cache.TTL)
	}
	return nil
}

// yamlPath turns a validator namespace ("Config.API.BaseURL") into a config key.
func yamlPath(ns string) string {
	replacer := strings.NewReplacer(
		"Config.", "",
		"API", "api",
		"BaseURL", "base_url",
		"Pagination", "pagination",
		"PageSize", "page_size",
		"Overrides", "overrides",
		"Logging", "logging",
		"Level", "level",
		"OutputFormat", "output_format",
	)
	return replacer.Replace(ns)
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return d, nil
}

// ApplyFlags applies CLI flag overrides to the configuration
func (c *Config) ApplyFlags(outputFormat string) {
	if outputFormat != "" {
		c.OutputFormat = outputFormat
	}
}

// GetTimeout returns the request timeout, 15s when unset or invalid.
func (c *Config) GetTimeout() time.Duration {
	d, err := parsePositiveDuration(c.API.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// GetCacheTTL returns the cache TTL, 10 minutes when unset or invalid.
func (c *Config) GetCacheTTL() time.Duration {
	d, err := parsePositiveDuration(c.Cache.TTL)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// PageSizeFor returns the page size for a resource, honoring overrides.
func (c *Config) PageSizeFor(resource string) int {
	if n, ok := c.Pagination.Overrides[resource]; ok && n > 0 {
		return n
	}
	if c.Pagination.PageSize > 0 {
		return c.Pagination.PageSize
	}
	return 20
}

// GetDatabasePath returns the path to the SQLite cache database
func (c *Config) GetDatabasePath() string {
	return c.Cache.Path
}

// LoadEnv loads KEY=value pairs from the given .env files into the process
// environment. Missing files are skipped and variables already set win.
// With no arguments, ".env" in the working directory and the config
// directory are tried.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env", filepath.Join(GetConfigDir(), ".env")}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// getXDGDir returns a directory path following the XDG base directory layout.
// envVar is the XDG environment variable (e.g., "XDG_CONFIG_HOME").
// fallbackPath is the relative path from home (e.g., ".config").
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, appName)
	}
	return filepath.Join(home, fallbackPath, appName)
}

// GetConfigDir returns the configuration directory following the XDG base directory layout
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns the data directory following the XDG base directory layout
func GetDataDir() string {
	return getXDGDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
