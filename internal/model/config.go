package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// APIConfig holds the settings for the remote mail backend.
type APIConfig struct {
	// BaseURL is the root URL of the backend, e.g. http://localhost:8000.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds each HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// MaxRetries is how often a rate-limited (429) request is retried.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// RatePerSec and Burst throttle outgoing requests client side.
	RatePerSec float64 `mapstructure:"rate_per_sec" yaml:"rate_per_sec"`
	Burst      int     `mapstructure:"burst" yaml:"burst"`
}

// ViewConfig holds list and notification behaviour.
type ViewConfig struct {
	PageSize         int    `mapstructure:"page_size" yaml:"page_size"`
	ReconcileDelayMS int    `mapstructure:"reconcile_delay_ms" yaml:"reconcile_delay_ms"`
	StatusTTLMS      int    `mapstructure:"status_ttl_ms" yaml:"status_ttl_ms"`
	DefaultCategory  string `mapstructure:"default_category" yaml:"default_category"`
}

// LogConfig controls the log file. The terminal belongs to the UI, so logs
// never go to stdout.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// StoreConfig locates the local session database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// AuthConfig holds Google sign-in settings.
type AuthConfig struct {
	// ClientSecretPath points to the OAuth client JSON downloaded from the
	// Google Cloud console.
	ClientSecretPath string `mapstructure:"client_secret_path" yaml:"client_secret_path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API        APIConfig   `mapstructure:"api" yaml:"api"`
	View       ViewConfig  `mapstructure:"view" yaml:"view"`
	Categories []Category  `mapstructure:"categories" yaml:"categories"`
	Log        LogConfig   `mapstructure:"log" yaml:"log"`
	Store      StoreConfig `mapstructure:"store" yaml:"store"`
	Auth       AuthConfig  `mapstructure:"auth" yaml:"auth"`
}

// EnvPrefix prefixes environment overrides, e.g. MAILTERM_API_BASE_URL.
const EnvPrefix = "MAILTERM"

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true,
	"warn": true, "warning": true, "error": true, "fatal": true, "panic": true,
}

// ConfigDir returns ~/.config/mailterm.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailterm")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailterm/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:8000",
			TimeoutSec: 30,
			MaxRetries: 3,
			RatePerSec: 10,
			Burst:      5,
		},
		View: ViewConfig{
			PageSize:         50,
			ReconcileDelayMS: 3000,
			StatusTTLMS:      3000,
			DefaultCategory:  string(AllView),
		},
		Categories: DefaultCategories(),
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "mailterm.log"),
		},
		Store: StoreConfig{
			Path: filepath.Join(dir, "mailterm.db"),
		},
		Auth: AuthConfig{
			ClientSecretPath: filepath.Join(dir, "client_secret.json"),
		},
	}
}

func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout_sec", d.API.TimeoutSec)
	v.SetDefault("api.max_retries", d.API.MaxRetries)
	v.SetDefault("api.rate_per_sec", d.API.RatePerSec)
	v.SetDefault("api.burst", d.API.Burst)
	v.SetDefault("view.page_size", d.View.PageSize)
	v.SetDefault("view.reconcile_delay_ms", d.View.ReconcileDelayMS)
	v.SetDefault("view.status_ttl_ms", d.View.StatusTTLMS)
	v.SetDefault("view.default_category", d.View.DefaultCategory)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("auth.client_secret_path", d.Auth.ClientSecretPath)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A .env file in the working directory and MAILTERM_* environment variables
// override file values. If the file does not exist, defaults are used.
func LoadConfig(path string) (*AppConfig, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	defaults := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, defaults)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	// Slices are decoded element-wise into an existing value, so start the
	// category list empty and fall back afterwards.
	cfg := defaults
	cfg.Categories = nil
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges that would otherwise surface as confusing
// runtime behaviour.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if c.API.TimeoutSec < 0 || c.API.MaxRetries < 0 || c.API.Burst < 0 || c.API.RatePerSec < 0 {
		return fmt.Errorf("api limits must not be negative")
	}
	if c.View.PageSize < 1 {
		return fmt.Errorf("view.page_size must be at least 1, got %d", c.View.PageSize)
	}
	if c.View.ReconcileDelayMS < 0 || c.View.StatusTTLMS < 0 {
		return fmt.Errorf("view delays must not be negative")
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	for i, cat := range c.Categories {
		if strings.TrimSpace(string(cat.Value)) == "" {
			return fmt.Errorf("categories[%d] has an empty value", i)
		}
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("view", cfg.View)
	v.Set("categories", cfg.Categories)
	v.Set("log", cfg.Log)
	v.Set("store", cfg.Store)
	v.Set("auth", cfg.Auth)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
