package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/geobim/geobim/pkg/catalog/store"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

const validConfig = `
server:
  env: prod
  port: 9090
  trusted_proxy: true
database:
  url: postgres://geobim:secret@db:5432/geobim
storage:
  endpoint: http://localhost:9000
  bucket: geobim-models
  access_key_id: minio
  secret_access_key: minio123
  force_path_style: true
upload:
  max_file_size_mb: 250
  single_file_mode: false
broker:
  host: redis
  port: 6380
cache:
  enabled: true
  ttl: 120s
cors:
  origins:
    - https://globe.example.com
logging:
  level: debug
`

func TestLoad_FromFile(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, validConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Server.IsProduction() {
		t.Error("Expected production environment")
	}
	if !cfg.Server.TrustedProxy {
		t.Error("Expected trusted proxy enabled")
	}
	if cfg.Database.Type != store.DatabaseTypePostgres {
		t.Errorf("Expected postgres inferred from URL, got %s", cfg.Database.Type)
	}
	if cfg.Storage.Bucket != "geobim-models" {
		t.Errorf("Unexpected bucket %q", cfg.Storage.Bucket)
	}
	if cfg.Upload.MaxFileSizeMB != 250 {
		t.Errorf("Expected 250 MB limit, got %d", cfg.Upload.MaxFileSizeMB)
	}
	if cfg.Upload.SingleFileMode == nil || *cfg.Upload.SingleFileMode {
		t.Error("Expected single_file_mode disabled")
	}
	if cfg.Broker.Port != 6380 {
		t.Errorf("Expected broker port 6380, got %d", cfg.Broker.Port)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 120*time.Second {
		t.Errorf("Unexpected cache config: %+v", cfg.Cache)
	}
	if len(cfg.CORS.Origins) != 1 || cfg.CORS.Origins[0] != "https://globe.example.com" {
		t.Errorf("Unexpected CORS origins: %v", cfg.CORS.Origins)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to DEBUG, got %s", cfg.Logging.Level)
	}
}

func TestLoad_DefaultsFillMissingValues(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
database:
  url: postgres://geobim@db/geobim
storage:
  bucket: geobim-models
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected 10s shutdown timeout, got %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Upload.MaxFileSizeMB != 100 {
		t.Errorf("Expected default 100 MB limit, got %d", cfg.Upload.MaxFileSizeMB)
	}
	if cfg.Upload.SingleFileMode == nil || !*cfg.Upload.SingleFileMode {
		t.Error("Expected single_file_mode on by default")
	}
	if cfg.Storage.PresignExpiry != 900*time.Second {
		t.Errorf("Expected 900s presign expiry, got %s", cfg.Storage.PresignExpiry)
	}
	if cfg.Broker.Host != "localhost" || cfg.Broker.Port != 6379 {
		t.Errorf("Unexpected broker defaults: %+v", cfg.Broker)
	}
	if cfg.Cache.Enabled {
		t.Error("Expected cache disabled by default")
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected INFO default, got %s", cfg.Logging.Level)
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default config, got port %d", cfg.Server.Port)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"bad environment",
			"server:\n  env: staging\nstorage:\n  bucket: b\n",
		},
		{
			"bad port",
			"server:\n  port: 99999\nstorage:\n  bucket: b\n",
		},
		{
			"bad log level",
			"logging:\n  level: verbose\nstorage:\n  bucket: b\n",
		},
		{
			"postgres without url",
			"database:\n  type: postgres\nstorage:\n  bucket: b\n",
		},
		{
			"missing bucket",
			"server:\n  port: 8081\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfigFile(t, tt.content)); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.Bucket = "geobim-models"
	cfg.Database.URL = "postgres://geobim@db/geobim"
	cfg.Database.Type = store.DatabaseTypePostgres

	path := filepath.Join(t.TempDir(), "saved", "config.yaml")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Saved file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %o", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load of saved config failed: %v", err)
	}
	if loaded.Storage.Bucket != "geobim-models" {
		t.Errorf("Round trip lost the bucket: %q", loaded.Storage.Bucket)
	}
}
