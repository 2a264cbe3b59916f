package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Bedrock   BedrockConfig
	Optimizer OptimizerConfig
	Cache     CacheConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	Version        string   `mapstructure:"version"`
}

// BedrockConfig holds the model client configuration
type BedrockConfig struct {
	Region            string  `mapstructure:"region"`
	ModelID           string  `mapstructure:"model_id"`
	MaxTokens         int32   `mapstructure:"max_tokens"`
	Temperature       float32 `mapstructure:"temperature"`
	TopP              float32 `mapstructure:"top_p"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// OptimizerConfig holds batching, retry and pricing configuration
type OptimizerConfig struct {
	Mode           string        `mapstructure:"mode"` // "per_item" or "whole_list"
	ChunkSize      int           `mapstructure:"chunk_size"`
	Concurrency    int           `mapstructure:"concurrency"`
	ChunkDelay     time.Duration `mapstructure:"chunk_delay"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxJitter time.Duration `mapstructure:"retry_max_jitter"`
	Markup         float64       `mapstructure:"markup"`
	CurrencySymbol string        `mapstructure:"currency_symbol"`
}

// CacheConfig holds offer cache configuration
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// StoreConfig holds persisted slot store configuration
type StoreConfig struct {
	Type       string `mapstructure:"type"` // "file", "s3" or "sqlite"
	Dir        string `mapstructure:"dir"`
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3Prefix   string `mapstructure:"s3_prefix"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
	Burst int `mapstructure:"burst"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/smartshop/")

	// SMARTSHOP_OPTIMIZER_CHUNK_SIZE -> optimizer.chunk_size
	v.SetEnvPrefix("SMARTSHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.version", "1.0.0")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "eu-west-1")
	v.SetDefault("bedrock.model_id", "eu.anthropic.claude-3-7-sonnet-20250219-v1:0")
	v.SetDefault("bedrock.max_tokens", 4096)
	v.SetDefault("bedrock.temperature", 0.2)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.requests_per_second", 1.0)
	v.SetDefault("bedrock.burst", 2)

	// Optimizer defaults
	v.SetDefault("optimizer.mode", "per_item")
	v.SetDefault("optimizer.chunk_size", 2)
	v.SetDefault("optimizer.concurrency", 2)
	v.SetDefault("optimizer.chunk_delay", "1s")
	v.SetDefault("optimizer.max_attempts", 3)
	v.SetDefault("optimizer.retry_base_delay", "2s")
	v.SetDefault("optimizer.retry_max_jitter", "1s")
	v.SetDefault("optimizer.markup", 1.3)
	v.SetDefault("optimizer.currency_symbol", "€")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "6h")

	// Store defaults
	v.SetDefault("store.type", "file")
	v.SetDefault("store.dir", "data")
	v.SetDefault("store.s3_bucket", "")
	v.SetDefault("store.s3_prefix", "smartshop")
	v.SetDefault("store.sqlite_path", "data/smartshop.db")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
	v.SetDefault("ratelimit.burst", 20)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "smartshop-backend")
	v.SetDefault("telemetry.service_version", "1.0.0")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Bedrock.ModelID == "" {
		return fmt.Errorf("bedrock model id is required (set SMARTSHOP_BEDROCK_MODEL_ID)")
	}

	switch config.Optimizer.Mode {
	case "per_item", "whole_list":
	default:
		return fmt.Errorf("optimizer mode must be 'per_item' or 'whole_list', got: %s", config.Optimizer.Mode)
	}

	if config.Optimizer.ChunkSize < 1 {
		return fmt.Errorf("optimizer chunk size must be at least 1, got: %d", config.Optimizer.ChunkSize)
	}

	if config.Optimizer.MaxAttempts < 1 {
		return fmt.Errorf("optimizer max attempts must be at least 1, got: %d", config.Optimizer.MaxAttempts)
	}

	if config.Optimizer.Markup <= 0 {
		return fmt.Errorf("optimizer markup must be positive, got: %v", config.Optimizer.Markup)
	}

	switch config.Store.Type {
	case "file", "s3", "sqlite":
	default:
		return fmt.Errorf("store type must be 'file', 's3' or 'sqlite', got: %s", config.Store.Type)
	}

	if config.Store.Type == "s3" && config.Store.S3Bucket == "" {
		return fmt.Errorf("S3 bucket is required when store type is 's3'")
	}

	if config.Store.Type == "sqlite" && config.Store.SQLitePath == "" {
		return fmt.Errorf("SQLite path is required when store type is 'sqlite'")
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("rate limit per IP cannot be negative, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
