package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the framegen pipeline
type Config struct {
	// Frame search and download settings
	Search SearchConfig `yaml:"search" json:"search"`

	// Fetcher output settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Gallery persistence settings
	Gallery GalleryConfig `yaml:"gallery" json:"gallery"`

	// HTTP server and generation proxy settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SearchConfig holds the external frame index endpoints and query settings
type SearchConfig struct {
	APIEndpoint    string        `yaml:"api_endpoint" json:"api_endpoint"`
	ImageEndpoint  string        `yaml:"image_endpoint" json:"image_endpoint"`
	Phrases        []string      `yaml:"phrases" json:"phrases"`
	Delay          time.Duration `yaml:"delay" json:"delay"`
	MaxPerSearch   int           `yaml:"max_per_search" json:"max_per_search"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// DownloadConfig holds fetcher output configuration
type DownloadConfig struct {
	OutputDir     string `yaml:"output_dir" json:"output_dir"`
	RetryAttempts int    `yaml:"retry_attempts" json:"retry_attempts"`
}

// GalleryConfig holds gallery persistence configuration
type GalleryConfig struct {
	Directory      string `yaml:"directory" json:"directory"`
	MaxItems       int    `yaml:"max_items" json:"max_items"`
	MaxRequestSize int64  `yaml:"max_request_size" json:"max_request_size"`
}

// ServerConfig holds HTTP front and generation proxy configuration
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port"`
	StaticDir       string        `yaml:"static_dir" json:"static_dir"`
	BackendEndpoint string        `yaml:"backend_endpoint" json:"backend_endpoint"`
	ProxyTimeout    time.Duration `yaml:"proxy_timeout" json:"proxy_timeout"`
	MaxProxyBody    int64         `yaml:"max_proxy_body" json:"max_proxy_body"`
	MaxDeleteBody   int64         `yaml:"max_delete_body" json:"max_delete_body"`

	// GenerateRateLimit caps /api/generate requests per minute; 0 disables
	// the throttle. The backend serializes GPU work, so a modest cap keeps
	// a misbehaving client from queueing minutes of generations.
	GenerateRateLimit int `yaml:"generate_rate_limit" json:"generate_rate_limit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			APIEndpoint:    "https://frinkiac.com/api/search",
			ImageEndpoint:  "https://frinkiac.com/img",
			Delay:          100 * time.Millisecond,
			MaxPerSearch:   0, // 0 means no limit
			RequestTimeout: 10 * time.Second,
		},
		Download: DownloadConfig{
			OutputDir:     "./data/frames",
			RetryAttempts: 3,
		},
		Gallery: GalleryConfig{
			Directory:      "./gallery",
			MaxItems:       50,
			MaxRequestSize: 10 * 1024 * 1024,
		},
		Server: ServerConfig{
			Port:            8080,
			StaticDir:       "./web",
			BackendEndpoint: "http://localhost:8000/generate",
			ProxyTimeout:    120 * time.Second,
			MaxProxyBody:    10000,
			MaxDeleteBody:   1024,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then the config file,
// then environment variables, then command line flags.
func Load(path string, flags map[string]interface{}) (*Config, error) {
	// Load .env if present; missing file is fine
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}
	cfg.LoadFromEnv()
	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".framegen.yaml",
		".framegen.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "framegen", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".framegen.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// LoadFromEnv loads configuration from environment variables.
// Z_IMAGE_ENDPOINT and PORT keep their historical names; everything else
// is namespaced under FRAMEGEN_.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("FRAMEGEN_SEARCH_ENDPOINT"); v != "" {
		c.Search.APIEndpoint = v
	}
	if v := os.Getenv("FRAMEGEN_IMAGE_ENDPOINT"); v != "" {
		c.Search.ImageEndpoint = v
	}
	if v := os.Getenv("FRAMEGEN_OUTPUT_DIR"); v != "" {
		c.Download.OutputDir = v
	}
	if v := os.Getenv("FRAMEGEN_GALLERY_DIR"); v != "" {
		c.Gallery.Directory = v
	}
	if v := os.Getenv("FRAMEGEN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("Z_IMAGE_ENDPOINT"); v != "" {
		c.Server.BackendEndpoint = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if flags == nil {
		return
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Download.OutputDir = v
	}
	if v, ok := flags["delay"].(time.Duration); ok && v > 0 {
		c.Search.Delay = v
	}
	if v, ok := flags["max-per-search"].(int); ok && v > 0 {
		c.Search.MaxPerSearch = v
	}
	if v, ok := flags["gallery-dir"].(string); ok && v != "" {
		c.Gallery.Directory = v
	}
	if v, ok := flags["port"].(int); ok && v > 0 {
		c.Server.Port = v
	}
	if v, ok := flags["backend"].(string); ok && v != "" {
		c.Server.BackendEndpoint = v
	}
	if v, ok := flags["static-dir"].(string); ok && v != "" {
		c.Server.StaticDir = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Search.APIEndpoint == "" {
		errs = append(errs, errors.New("search API endpoint is required"))
	}
	if c.Search.ImageEndpoint == "" {
		errs = append(errs, errors.New("image endpoint is required"))
	}
	if c.Search.Delay < 0 {
		errs = append(errs, errors.New("search delay cannot be negative"))
	}
	if c.Search.MaxPerSearch < 0 {
		errs = append(errs, errors.New("max per search cannot be negative"))
	}

	if c.Download.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Download.RetryAttempts < 0 {
		errs = append(errs, errors.New("retry attempts cannot be negative"))
	}

	if c.Gallery.Directory == "" {
		errs = append(errs, errors.New("gallery directory is required"))
	}
	if c.Gallery.MaxItems <= 0 {
		errs = append(errs, errors.New("gallery max items must be positive"))
	}
	if c.Gallery.MaxRequestSize <= 0 {
		errs = append(errs, errors.New("gallery max request size must be positive"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server port must be between 1 and 65535"))
	}
	if c.Server.BackendEndpoint == "" {
		errs = append(errs, errors.New("backend endpoint is required"))
	}
	if c.Server.ProxyTimeout <= 0 {
		errs = append(errs, errors.New("proxy timeout must be positive"))
	}
	if c.Server.MaxProxyBody <= 0 {
		errs = append(errs, errors.New("max proxy body must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
