package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/geobim/geobim/internal/logger"
	"github.com/geobim/geobim/pkg/api"
	"github.com/geobim/geobim/pkg/api/handlers"
	"github.com/geobim/geobim/pkg/broker/celery"
	"github.com/geobim/geobim/pkg/cache"
	"github.com/geobim/geobim/pkg/catalog/store"
	"github.com/geobim/geobim/pkg/config"
	"github.com/geobim/geobim/pkg/metrics"
	"github.com/geobim/geobim/pkg/storage/s3"
)

// sweepInterval is how often pending uploads older than the presign TTL
// are marked deleted and their objects removed.
const sweepInterval = 5 * time.Minute

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the GeoBIM server",
	Long: `Start the GeoBIM server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/geobim/config.yaml.

Examples:
  # Start with the default config
  geobim start

  # Start with a custom config file
  geobim start --config /etc/geobim/config.yaml

  # Start with environment variable overrides
  GEOBIM_LOGGING_LEVEL=DEBUG geobim start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Configuration loaded",
		"source", getConfigSource(GetConfigFile()),
		"env", cfg.Server.Env)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.Serve(&cfg.Metrics)
		go func() {
			logger.Info("Metrics server listening", "address", cfg.Metrics.Address)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", logger.KeyError, err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	db, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open catalogue store: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Catalogue store ready", "type", cfg.Database.Type)

	storage, err := s3.New(ctx, &cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}
	logger.Info("Object storage ready", logger.KeyBucket, cfg.Storage.Bucket)

	broker, err := celery.New(&cfg.Broker)
	if err != nil {
		return fmt.Errorf("failed to initialize task broker: %w", err)
	}
	defer func() { _ = broker.Close() }()

	var queryCache *cache.QueryCache
	if cfg.Cache.Enabled {
		queryCache = cache.New(broker.Redis(), &cfg.Cache)
		logger.Info("Query cache enabled", "ttl", cfg.Cache.TTL)
	}

	httpMetrics := metrics.NewHTTPMetrics()
	ingestion := metrics.NewIngestionMetrics()

	h := api.Handlers{
		CSRF:      handlers.NewCSRFHandler(cfg.Server.IsProduction()),
		Health:    handlers.NewHealthHandler(db, broker),
		Upload:    handlers.NewUploadHandler(db, storage, broker, cfg.Upload, ingestion),
		Buildings: handlers.NewBuildingsHandler(db, storage, queryCache, ingestion),
		Models:    handlers.NewModelsHandler(storage),
	}

	router := api.NewRouter(api.RouterConfig{
		Server:    cfg.Server,
		CORS:      cfg.CORS,
		RateLimit: cfg.RateLimit,
		HTTP:      httpMetrics,
	}, h)

	go sweepLoop(ctx, db, storage, ingestion, cfg.Storage.PresignExpiry)

	server := api.NewServer(cfg.Server, router)
	logger.Info("Server is running. Press Ctrl+C to stop.", "port", server.Port())

	if err := server.Start(ctx); err != nil {
		logger.Error("Server error", logger.KeyError, err)
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// sweepLoop periodically expires pending uploads whose presign TTL has
// passed and removes their objects from storage.
func sweepLoop(ctx context.Context, db *store.Store, storage *s3.Store, ingestion *metrics.IngestionMetrics, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		keys, err := db.SweepAbandonedUploads(ctx, ttl)
		if err != nil {
			logger.Warn("Abandoned upload sweep failed", logger.KeyError, err)
			continue
		}
		if len(keys) == 0 {
			continue
		}

		for _, key := range keys {
			if err := storage.Delete(ctx, key); err != nil {
				logger.Warn("Failed to delete swept object", logger.KeyS3Key, key, logger.KeyError, err)
			}
		}
		ingestion.RecordSweptUploads(len(keys))
		logger.Info("Swept abandoned uploads", logger.KeyCount, len(keys))
	}
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	return config.GetDefaultConfigPath()
}
