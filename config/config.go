package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for docsearch.
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	ContextChars    int    `yaml:"context_chars" validate:"gte=0,ltefield=MaxContextChars"`
	MaxContextChars int    `yaml:"max_context_chars" validate:"gte=0"`
	TermSeparator   string `yaml:"term_separator" validate:"required"`
}

// ServerConfig holds HTTP server and upload intake configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	UploadDir       string        `yaml:"upload_dir" validate:"required"`
	MaxFileSize     int64         `yaml:"max_file_size" validate:"gt=0"`
	MaxFiles        int           `yaml:"max_files" validate:"gt=0"`
	Accept          []string      `yaml:"accept"`
	RateLimit       float64       `yaml:"rate_limit" validate:"gte=0"` // requests per second on POST /search, 0 = unlimited
	RateBurst       int           `yaml:"rate_burst" validate:"gte=0"`
	JanitorSchedule string        `yaml:"janitor_schedule"` // cron spec, empty disables the janitor
	ScratchMaxAge   time.Duration `yaml:"scratch_max_age" validate:"gte=0"`
}

// StoreConfig holds report store configuration.
type StoreConfig struct {
	Path        string        `yaml:"path"`
	Backend     string        `yaml:"backend" validate:"oneof=bolt memory"`
	SessionTTL  time.Duration `yaml:"session_ttl" validate:"gte=0"`
	MaxSessions int           `yaml:"max_sessions" validate:"gte=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			ContextChars:    240,
			MaxContextChars: 1000,
			TermSeparator:   ";",
		},
		Server: ServerConfig{
			Addr:            ":3000",
			UploadDir:       "uploads",
			MaxFileSize:     128 << 20,
			MaxFiles:        200,
			Accept:          []string{"*"},
			RateLimit:       2,
			RateBurst:       5,
			JanitorSchedule: "@every 10m",
			ScratchMaxAge:   time.Hour,
		},
		Store: StoreConfig{
			Path:        filepath.Join(".docsearch", "sessions.db"),
			Backend:     "bolt",
			SessionTTL:  24 * time.Hour,
			MaxSessions: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docsearch.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docsearch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docsearch", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Validate checks field constraints and the accept patterns.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	for _, p := range c.Server.Accept {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("server.accept: malformed pattern %q", p)
		}
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ClampContext bounds a requested context width to [0, MaxContextChars].
// Negative values mean "use the default".
func (s SearchConfig) ClampContext(n int) int {
	if n < 0 {
		n = s.ContextChars
	}
	if n > s.MaxContextChars {
		return s.MaxContextChars
	}
	return n
}

// StorePath resolves the store path against dir when it is relative.
func (c *Config) StorePath(dir string) string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(dir, c.Store.Path)
}

// EnsureStoreDir ensures the directory holding the store file exists.
func (c *Config) EnsureStoreDir(dir string) error {
	return os.MkdirAll(filepath.Dir(c.StorePath(dir)), 0755)
}
