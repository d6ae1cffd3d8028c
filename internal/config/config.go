// Package config loads coursekit settings from an optional YAML file and
// COURSEKIT_* environment variables.
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

// EnvPrefix is prepended to every environment variable, e.g.
// COURSEKIT_REMOTE_DRIVER for remote.driver.
const EnvPrefix = "COURSEKIT"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration.
type Config struct {
	Env     string  `mapstructure:"env"`     // development or production
	DBPath  string  `mapstructure:"db_path"` // SQLite file; empty means the XDG default
	Profile Profile `mapstructure:"profile"`
	Remote  Remote  `mapstructure:"remote"`
	Storage Storage `mapstructure:"storage"`
	Log     Log     `mapstructure:"log"`
}

// Profile identifies the learner on this device.
type Profile struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// Remote selects the certificate document store.
type Remote struct {
	Driver          string        `mapstructure:"driver"` // sqlite, memory or postgres
	DatabaseURL     string        `mapstructure:"database_url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// Storage selects where certificate artifacts are uploaded.
type Storage struct {
	Type           string `mapstructure:"type"` // local or minio
	LocalPath      string `mapstructure:"local_path"`
	PublicBaseURL  string `mapstructure:"public_base_url"`
	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`
}

// Log configures the zap logger.
type Log struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // rotated JSON log; empty disables
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// IsDevelopment reports whether development behavior (debug logging,
// panics on contract violations) is enabled.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("db_path", "")

	v.SetDefault("profile.id", defaultProfileID())
	v.SetDefault("profile.name", "Learner")

	v.SetDefault("remote.driver", "sqlite")
	v.SetDefault("remote.database_url", "")
	v.SetDefault("remote.max_connections", 4)
	v.SetDefault("remote.max_conn_lifetime", "30m")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.minio_endpoint", "")
	v.SetDefault("storage.minio_access_key", "")
	v.SetDefault("storage.minio_secret_key", "")
	v.SetDefault("storage.minio_bucket", "coursekit")
	v.SetDefault("storage.minio_use_ssl", false)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)
}

// Load reads configuration. When path is empty, config.yaml is looked up
// in the working directory and in $XDG_CONFIG_HOME/coursekit; a missing
// file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "coursekit"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "production":
	default:
		return fmt.Errorf("%w: env must be development or production, got %q", ErrInvalidConfig, c.Env)
	}

	switch c.Remote.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Remote.DatabaseURL == "" {
			return fmt.Errorf("%w: remote.database_url is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown remote.driver %q", ErrInvalidConfig, c.Remote.Driver)
	}

	switch c.Storage.Type {
	case "local":
	case "minio":
		if c.Storage.MinioEndpoint == "" || c.Storage.MinioBucket == "" {
			return fmt.Errorf("%w: storage.minio_endpoint and storage.minio_bucket are required for minio", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage.type %q", ErrInvalidConfig, c.Storage.Type)
	}

	if c.Profile.ID == "" {
		return fmt.Errorf("%w: profile.id is empty", ErrInvalidConfig)
	}
	return nil
}

func defaultProfileID() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "local"
}
