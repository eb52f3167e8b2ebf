package config

import (
	"strings"
)

// GetDefaultConfig returns a configuration with every default applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every unset field with its default. Explicit values
// are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(cfg)
	cfg.Server.ApplyDefaults()
	cfg.Database.ApplyDefaults()
	cfg.Storage.ApplyDefaults()
	cfg.Upload.ApplyDefaults()
	cfg.Broker.ApplyDefaults()
	cfg.Cache.ApplyDefaults()
	cfg.RateLimit.ApplyDefaults()
	cfg.CORS.ApplyDefaults()
	cfg.Metrics.ApplyDefaults()
}

func applyLoggingDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}
