package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/peakbase/core"
	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/internal/store"
)

// storeCmd focused on store management.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the experiment store",
	Long: `Manage the database that holds experiments and channels.

Supported backends: SQLite (default), MySQL, PostgreSQL, or Memory

Subcommands:
  status  - Show counts and connection info
  clear   - Remove all experiments and channels
  migrate - Run schema migrations

Examples:
  # Check store status
  peakbase store status

  # Use PostgreSQL (set connection string via env variable)
  PEAKBASE_STORE_BACKEND=postgresql PEAKBASE_STORE_DB_CONNECT="host=localhost dbname=peakbase" peakbase store status`,
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store statistics and connection info",
	Long: `Display the backend, schema version, experiment and channel counts,
how many channels carry a baseline and when anything last changed.`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExecutor(core.ExecuteStoreStatus, "Failed to get store status")
	},
}

// storeClearCmd clears the store.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all experiments and channels",
	Long: `Delete every experiment and channel from the configured backend.
The schema is kept.

Examples:
  # Clear the default SQLite store
  peakbase store clear`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExecutor(core.ExecuteStoreClear, "Failed to clear store")
	},
}

// storeMigrateCmd runs database migrations for the store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the store.

Opening the store always migrates to the latest version. Use this command
to inspect the outcome or to move to a specific version.

Examples:
  # Migrate to latest version (default)
  peakbase store migrate

  # Migrate to specific version
  peakbase store migrate --target-version 2

  # Rollback to initial state
  peakbase store migrate --target-version 0`,
	Args:    cobra.NoArgs,
	PreRunE: configSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := store.Migrate(os.Stdout, cfg.StoreBackend, cfg.StoreDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
