package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geobim/geobim/internal/logger"
	"github.com/geobim/geobim/pkg/catalog/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations for the catalogue database.

This command applies pending schema migrations to the configured database
(PostgreSQL/PostGIS or SQLite). Run it after upgrading when schema changes
have been made; the start command also migrates on boot.

Examples:
  # Run migrations with the default config
  geobim migrate

  # Run migrations with a custom config
  geobim migrate --config /etc/geobim/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info("Running database migrations", "type", cfg.Database.Type)

	db, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (database type: %s)\n", cfg.Database.Type)
	return nil
}
