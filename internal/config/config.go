// Package config loads service configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wardenworks/imgwarden/internal/guard"
	"github.com/wardenworks/imgwarden/internal/transform"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Vision     VisionConfig     `mapstructure:"vision"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Push       PushConfig       `mapstructure:"push"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type VisionConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ModerationConfig struct {
	QuarantineBucket string        `mapstructure:"quarantine_bucket"`
	MaxEventAge      time.Duration `mapstructure:"max_event_age"`
	BlurRadius       string        `mapstructure:"blur_radius"`
	ConvertPath      string        `mapstructure:"convert_path"`
	ScratchDir       string        `mapstructure:"scratch_dir"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type RedisConfig struct {
	URL               string        `mapstructure:"url"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type OpenSearchConfig struct {
	URL           string `mapstructure:"url"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	Index         string `mapstructure:"index"`
}

type PushConfig struct {
	Secret   string `mapstructure:"secret"`
	Audience string `mapstructure:"audience"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults. Every key gets one, including the empty-valued ones:
	// AutomaticEnv only surfaces keys viper already knows about, so a key
	// without a default would be invisible when set via environment only.
	v.SetDefault("server.port", 8089)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("vision.url", "http://localhost:9091")
	v.SetDefault("vision.timeout", "30s")
	v.SetDefault("storage.url", "http://localhost:9092")
	v.SetDefault("storage.timeout", "60s")
	v.SetDefault("moderation.quarantine_bucket", "")
	v.SetDefault("moderation.max_event_age", guard.DefaultMaxEventAge.String())
	v.SetDefault("moderation.blur_radius", transform.DefaultBlurRadius)
	v.SetDefault("moderation.convert_path", "convert")
	v.SetDefault("moderation.scratch_dir", "")
	v.SetDefault("database.url", "")
	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.rate_limit_enabled", false)
	v.SetDefault("redis.rate_limit_requests", 1000)
	v.SetDefault("redis.rate_limit_window", "1m")
	v.SetDefault("opensearch.url", "")
	v.SetDefault("opensearch.username", "admin")
	v.SetDefault("opensearch.password", "")
	v.SetDefault("opensearch.tls_skip_verify", true)
	v.SetDefault("opensearch.index", "imgwarden-audit")
	v.SetDefault("push.secret", "")
	v.SetDefault("push.audience", "imgwarden")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/imgwarden")
	}

	// Environment variables override
	v.SetEnvPrefix("IMGWARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings that have no safe default.
func (c *Config) Validate() error {
	if c.Moderation.QuarantineBucket == "" {
		return fmt.Errorf("moderation.quarantine_bucket is required")
	}
	if c.Moderation.MaxEventAge <= 0 {
		return fmt.Errorf("moderation.max_event_age must be positive")
	}
	return nil
}
