package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/peakbase/schema"
)

// Default values for configuration.
const (
	DefaultPrecision = 3
	MaxPrecision     = 6
	DefaultPoints    = 0
	MaxPoints        = 1_000_000
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for peakbase commands.
// This struct remains the "final, validated" config.
type Config struct {
	Workers    int
	Precision  int
	Output     schema.OutputMode
	OutputFile string // local path or s3://bucket/key
	Width      int    // Terminal width override (0 = auto-detect)
	Points     int    // Downsample target for channel views (0 = full resolution)

	Interpolation schema.InterpolationMethod
	Integration   schema.IntegrationMethod

	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	S3Region    string
	S3Endpoint  string
	S3PathStyle bool

	MetricsAddr string
	Verbose     bool
	UseColors   bool // Enable colored values in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	OutputFile     string `mapstructure:"output-file"`
	Workers        int    `mapstructure:"workers"`
	Precision      int    `mapstructure:"precision"`
	Output         string `mapstructure:"output"`
	Width          int    `mapstructure:"width"`
	StoreBackend   string `mapstructure:"store-backend"`
	StoreDBConnect string `mapstructure:"store-db-connect"`
	Color          string `mapstructure:"color"`
	Verbose        bool   `mapstructure:"verbose"`

	// --- Numeric methods ---
	Interpolation string `mapstructure:"interpolation"`
	Integration   string `mapstructure:"integration"`

	// --- Fields from channelCmd.PersistentFlags() ---
	Points int `mapstructure:"points"`

	// --- Remote output ---
	S3Region    string `mapstructure:"s3-region"`
	S3Endpoint  string `mapstructure:"s3-endpoint"`
	S3PathStyle bool   `mapstructure:"s3-path-style"`

	// --- Fields from mcpCmd.Flags() ---
	MetricsAddr string `mapstructure:"metrics-addr"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processMethods(cfg, input); err != nil {
		return err
	}
	if err := validateStoreConfig(cfg, input); err != nil {
		return err
	}
	return processOutputTarget(cfg, input)
}

// ProcessProfilingConfig enables profiling when a file prefix is given.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) {
	profilePrefix = strings.TrimSpace(profilePrefix)
	profile.Enabled = profilePrefix != ""
	profile.Prefix = profilePrefix
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.MemoryBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the scalar fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Width = input.Width
	cfg.Verbose = input.Verbose
	cfg.MetricsAddr = strings.TrimSpace(input.MetricsAddr)

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	if input.Points < 0 || input.Points > MaxPoints {
		return fmt.Errorf("points must be between 0 and %d (received %d)", MaxPoints, input.Points)
	}
	cfg.Points = input.Points

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	return nil
}

// processMethods resolves the default interpolation and integration methods.
func processMethods(cfg *Config, input *ConfigRawInput) error {
	interp, err := schema.ParseInterpolationMethod(input.Interpolation)
	if err != nil {
		return err
	}
	cfg.Interpolation = interp

	integ, err := schema.ParseIntegrationMethod(input.Integration)
	if err != nil {
		return err
	}
	cfg.Integration = integ
	return nil
}

// validateStoreConfig validates the store backend and its connection string.
func validateStoreConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(input.StoreBackend))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, memory", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	return ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect)
}

// processOutputTarget validates the output file, including s3:// targets.
func processOutputTarget(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = strings.TrimSpace(input.OutputFile)
	cfg.S3Region = input.S3Region
	cfg.S3Endpoint = input.S3Endpoint
	cfg.S3PathStyle = input.S3PathStyle

	if !IsRemoteTarget(cfg.OutputFile) {
		if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
			return fmt.Errorf("parquet output requires --output-file")
		}
		return nil
	}
	if _, _, err := ParseS3Target(cfg.OutputFile); err != nil {
		return err
	}
	return nil
}

// IsRemoteTarget reports whether an output file names an object store location.
func IsRemoteTarget(target string) bool {
	return strings.HasPrefix(target, S3Scheme)
}

// S3Scheme prefixes object store output targets.
const S3Scheme = "s3://"

// ParseS3Target splits "s3://bucket/key" into its bucket and key.
func ParseS3Target(target string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(target, S3Scheme)
	if !ok {
		return "", "", fmt.Errorf("output target %q is not an s3:// location", target)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("output target %q must be s3://bucket/key", target)
	}
	return bucket, key, nil
}

// GetDBFilePath returns the path to the default SQLite DB file.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".peakbase.db"
	}
	return filepath.Join(homeDir, ".peakbase.db")
}
