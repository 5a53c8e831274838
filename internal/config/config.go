package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Klaviyo  KlaviyoConfig  `yaml:"klaviyo"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Export   ExportConfig   `yaml:"export"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Notify   NotifyConfig   `yaml:"notify"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// KlaviyoConfig holds Klaviyo API configuration. The API key itself is
// caller-supplied per request and never configured here.
type KlaviyoConfig struct {
	BaseURL        string `yaml:"base_url"`
	Revision       string `yaml:"revision"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c KlaviyoConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AnalysisConfig holds pacing for the segment analysis pipeline
type AnalysisConfig struct {
	DefaultWindowDays   int  `yaml:"default_window_days"`
	CreationPauseMillis int  `yaml:"creation_pause_millis"`
	InitialWaitSeconds  int  `yaml:"initial_wait_seconds"`
	PollIntervalSeconds int  `yaml:"poll_interval_seconds"`
	MaxPolls            int  `yaml:"max_polls"`
	KeepTotalSegment    bool `yaml:"keep_total_segment"`
}

// CreationPause returns the inter-request pause as a duration
func (c AnalysisConfig) CreationPause() time.Duration {
	return time.Duration(c.CreationPauseMillis) * time.Millisecond
}

// InitialWait returns the materialization wait as a duration
func (c AnalysisConfig) InitialWait() time.Duration {
	return time.Duration(c.InitialWaitSeconds) * time.Second
}

// PollInterval returns the readiness poll interval as a duration
func (c AnalysisConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ExportConfig holds CSV export limits
type ExportConfig struct {
	PageSize int `yaml:"page_size"`
	MaxRows  int `yaml:"max_rows"`
}

// PricingConfig points at an optional tier table override
type PricingConfig struct {
	TablePath string `yaml:"table_path"`
}

// NotifyConfig holds the summary webhook settings
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// CacheConfig selects the segment cache backend. An empty RedisURL keeps
// the in-process store.
type CacheConfig struct {
	RedisURL string `yaml:"redis_url"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Klaviyo.TimeoutSeconds == 0 {
		cfg.Klaviyo.TimeoutSeconds = 60
	}
	if cfg.Analysis.DefaultWindowDays == 0 {
		cfg.Analysis.DefaultWindowDays = 90
	}
	if cfg.Analysis.CreationPauseMillis == 0 {
		cfg.Analysis.CreationPauseMillis = 1000
	}
	if cfg.Analysis.InitialWaitSeconds == 0 {
		cfg.Analysis.InitialWaitSeconds = 15
	}
	if cfg.Analysis.PollIntervalSeconds == 0 {
		cfg.Analysis.PollIntervalSeconds = 5
	}
	if cfg.Analysis.MaxPolls == 0 {
		cfg.Analysis.MaxPolls = 6
	}
	if cfg.Export.PageSize == 0 {
		cfg.Export.PageSize = 100
	}
	if cfg.Export.MaxRows == 0 {
		cfg.Export.MaxRows = 5000
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if baseURL := os.Getenv("KLAVIYO_BASE_URL"); baseURL != "" {
		cfg.Klaviyo.BaseURL = baseURL
	}
	if revision := os.Getenv("KLAVIYO_REVISION"); revision != "" {
		cfg.Klaviyo.Revision = revision
	}
	if webhookURL := os.Getenv("NOTIFY_WEBHOOK_URL"); webhookURL != "" {
		cfg.Notify.WebhookURL = webhookURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Cache.RedisURL = redisURL
	}
	if tablePath := os.Getenv("PRICING_TABLE_PATH"); tablePath != "" {
		cfg.Pricing.TablePath = tablePath
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	return cfg, nil
}
