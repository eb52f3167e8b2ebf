// Package config loads and validates the full service configuration from
// file, environment and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/geobim/geobim/internal/logger"
	"github.com/geobim/geobim/pkg/api"
	"github.com/geobim/geobim/pkg/api/handlers"
	"github.com/geobim/geobim/pkg/api/middleware"
	"github.com/geobim/geobim/pkg/broker/celery"
	"github.com/geobim/geobim/pkg/cache"
	"github.com/geobim/geobim/pkg/catalog/store"
	"github.com/geobim/geobim/pkg/metrics"
	"github.com/geobim/geobim/pkg/storage/s3"
)

// EnvPrefix is the environment variable prefix; GEOBIM_SERVER_PORT=9000
// overrides server.port.
const EnvPrefix = "GEOBIM"

// Config is the full service configuration.
//
// Sources, in order of precedence:
//  1. Environment variables (GEOBIM_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior.
	Logging logger.Config `mapstructure:"logging" yaml:"logging"`

	// Server configures the HTTP API server.
	Server api.Config `mapstructure:"server" yaml:"server"`

	// Database configures the catalogue store (PostgreSQL/PostGIS, or
	// SQLite for tests).
	Database store.Config `mapstructure:"database" yaml:"database"`

	// Storage configures the S3-compatible object store.
	Storage s3.Config `mapstructure:"storage" yaml:"storage"`

	// Upload configures the upload orchestration policies.
	Upload handlers.UploadConfig `mapstructure:"upload" yaml:"upload"`

	// Broker configures the Redis task broker.
	Broker celery.Config `mapstructure:"broker" yaml:"broker"`

	// Cache configures the advisory catalogue query cache.
	Cache cache.Config `mapstructure:"cache" yaml:"cache"`

	// RateLimit configures the per-IP request budgets.
	RateLimit middleware.RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`

	// CORS configures the JSON API cross-origin policy.
	CORS api.CORSConfig `mapstructure:"cors" yaml:"cors"`

	// Metrics configures the Prometheus endpoint.
	Metrics metrics.Config `mapstructure:"metrics" yaml:"metrics"`
}

// Load reads configuration from configPath (or the default location when
// empty), applies environment overrides and defaults, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !found {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration as YAML with owner-only permissions; the
// storage section can contain credentials.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook converts strings like "30s" and raw numbers
// (nanoseconds) to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/geobim, falling back to ~/.config
// or the current directory.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "geobim")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "geobim")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
