// Package cmd defines the command-line interface for peakbase.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/schema"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(channelCmd)
	rootCmd.AddCommand(experimentCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the channel subcommands to the parent channel command
	channelCmd.AddCommand(channelShowCmd)
	channelCmd.AddCommand(channelEditCmd)

	// Add the experiment subcommands to the parent experiment command
	experimentCmd.AddCommand(experimentImportCmd)
	experimentCmd.AddCommand(experimentListCmd)
	experimentCmd.AddCommand(experimentShowCmd)
	experimentCmd.AddCommand(experimentDeleteCmd)
	experimentCmd.AddCommand(experimentRecomputeCmd)
	experimentCmd.AddCommand(experimentExportCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path or s3://bucket/key to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("interpolation", string(schema.LinearInterpolation), "Default baseline interpolation: linear")
	rootCmd.PersistentFlags().String("integration", string(schema.TrapezoidalIntegration), "Default integration rule: trapezoidal or simpson")
	rootCmd.PersistentFlags().String("store-backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql or memory")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Database connection string (sqlite path, or e.g. user:pass@tcp(host:port)/dbname for mysql)")
	rootCmd.PersistentFlags().String("s3-region", "", "Region for s3:// output targets")
	rootCmd.PersistentFlags().String("s3-endpoint", "", "Endpoint override for S3-compatible object stores")
	rootCmd.PersistentFlags().Bool("s3-path-style", false, "Use path-style addressing for s3:// output targets")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored values in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug details to stderr")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all persistent flags of channelCmd to Viper
	channelCmd.PersistentFlags().Int("points", contract.DefaultPoints, "Downsample series to this many points (0 = full resolution)")
	if err := viper.BindPFlags(channelCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding channel flags", err)
	}

	// Edit selections are per invocation and stay out of Viper
	channelEditCmd.Flags().String("baseline", "", "Comma-separated baseline anchors, e.g. '0,12.5,40' (empty clears)")
	channelEditCmd.Flags().String("integrals", "", "Comma-separated start:end[:sample] pairs, e.g. '2:5:A,8:9' (empty clears)")
	channelEditCmd.Flags().String("from-file", "", "Read the edit as JSON from a file ('-' for stdin)")

	experimentImportCmd.Flags().String("id", "", "Experiment id (default: generated)")
	experimentImportCmd.Flags().String("name", "", "Experiment name")
	experimentImportCmd.Flags().String("date", "", "Measurement date (RFC3339 or YYYY-MM-DD)")
	experimentImportCmd.Flags().String("description", "", "Free-form description")
	experimentImportCmd.Flags().String("instrument-model", "", "Instrument model")
	experimentImportCmd.Flags().String("data-source", "", "Data source")
	experimentImportCmd.Flags().String("device-filename", "", "File name on the acquisition device")
	experimentImportCmd.Flags().String("project-id", "", "Owning project id")
	experimentImportCmd.Flags().String("init-e", "", "Initial potential")
	experimentImportCmd.Flags().String("sample-interval", "", "Sample interval (default: derived from the time column)")
	experimentImportCmd.Flags().String("run-time", "", "Run time")
	experimentImportCmd.Flags().String("quiet-time", "", "Quiet time")
	experimentImportCmd.Flags().String("sensitivity", "", "Sensitivity")

	experimentExportCmd.Flags().String("kind", string(schema.RawExport), "Export kind: raw or filtered or summary")

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}

	// Bind all flags of mcpCmd to Viper
	mcpCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	if err := viper.BindPFlags(mcpCmd.Flags()); err != nil {
		contract.LogFatal("Error binding mcp flags", err)
	}
}
