package schema

import (
	"fmt"
	"strings"
)

// Custom string types for type safety.
type (
	// InterpolationMethod represents the curve used to join baseline anchors.
	InterpolationMethod string

	// IntegrationMethod represents the numeric rule used for peak areas.
	IntegrationMethod string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for channel storage.
	DatabaseBackend string

	// ExportKind represents one of the experiment-level tabular exports.
	ExportKind string
)

// MatchTolerance is the absolute distance under which a chosen x-value is
// considered equal to a sampled time value.
const MatchTolerance = 1e-6

// DefaultSampleName is used for integral pairs submitted without a name.
const DefaultSampleName = "undefined"

// All interpolation methods supported.
const (
	LinearInterpolation InterpolationMethod = "linear" // default
)

// All integration methods supported.
const (
	TrapezoidalIntegration IntegrationMethod = "trapezoidal" // default
	// SimpsonIntegration is accepted for compatibility and computes the
	// trapezoidal rule. True Simpson's rule is not implemented.
	SimpsonIntegration IntegrationMethod = "simpson"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All storage backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	MemoryBackend     DatabaseBackend = "memory"
)

// All experiment exports supported.
const (
	RawExport      ExportKind = "raw"
	FilteredExport ExportKind = "filtered"
	SummaryExport  ExportKind = "summary"
)

// ValidInterpolationMethods lists all valid interpolation methods.
var ValidInterpolationMethods = map[InterpolationMethod]struct{}{
	LinearInterpolation: {},
}

// ValidIntegrationMethods lists all valid integration methods.
var ValidIntegrationMethods = map[IntegrationMethod]struct{}{
	TrapezoidalIntegration: {},
	SimpsonIntegration:     {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid storage backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	MemoryBackend:     {},
}

// ValidExportKinds lists all valid experiment exports.
var ValidExportKinds = map[ExportKind]struct{}{
	RawExport:      {},
	FilteredExport: {},
	SummaryExport:  {},
}

// ParseInterpolationMethod resolves a user-supplied name. The empty string
// selects the default.
func ParseInterpolationMethod(s string) (InterpolationMethod, error) {
	m := InterpolationMethod(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return LinearInterpolation, nil
	}
	if _, ok := ValidInterpolationMethods[m]; !ok {
		return "", &MethodError{Kind: "interpolation", Method: s}
	}
	return m, nil
}

// ParseIntegrationMethod resolves a user-supplied name. The empty string
// selects the default and "trapz" is accepted as shorthand.
func ParseIntegrationMethod(s string) (IntegrationMethod, error) {
	m := IntegrationMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return TrapezoidalIntegration, nil
	case "trapz":
		return TrapezoidalIntegration, nil
	}
	if _, ok := ValidIntegrationMethods[m]; !ok {
		return "", &MethodError{Kind: "integration", Method: s}
	}
	return m, nil
}

// ParseExportKind resolves an export name.
func ParseExportKind(s string) (ExportKind, error) {
	k := ExportKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := ValidExportKinds[k]; !ok {
		return "", fmt.Errorf("invalid export '%s'. must be raw, filtered, summary", s)
	}
	return k, nil
}
