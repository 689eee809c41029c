package contract

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Fill status label constants.
const (
	FilledValue  = "Filled"  // baseline computed with at least one value
	PartialValue = "Partial" // some channels of an experiment filled
	EmptyValue   = "Empty"   // nothing computed yet
)

// Color variables for console output.
var (
	PositiveColor = color.New(color.FgGreen)            // positive areas
	NegativeColor = color.New(color.FgRed)              // negative areas
	FilledColor   = color.New(color.FgGreen, color.Bold) // fully processed
	PartialColor  = color.New(color.FgYellow)            // partially processed
	EmptyColor    = color.New(color.FgCyan)              // informational, nothing computed
)

// GetFillLabel returns a plain label describing how many of total channels carry baselines.
// This is the core logic used for CSV, JSON, and table printing.
func GetFillLabel(filled, total int) string {
	switch {
	case total > 0 && filled >= total:
		return FilledValue
	case filled > 0:
		return PartialValue
	default:
		return EmptyValue
	}
}

// GetColorFillLabel returns a colored fill label for console output (table).
func GetColorFillLabel(filled, total int) string {
	text := GetFillLabel(filled, total)
	switch text {
	case FilledValue:
		return FilledColor.Sprint(text)
	case PartialValue:
		return PartialColor.Sprint(text)
	default:
		return EmptyColor.Sprint(text)
	}
}

// ColorArea renders an already formatted area, colored by its sign.
func ColorArea(area float64, formatted string) string {
	switch {
	case area > 0:
		return PositiveColor.Sprint(formatted)
	case area < 0:
		return NegativeColor.Sprint(formatted)
	default:
		return formatted
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It returns os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// TruncateName truncates a label to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for "..." and at least one character.
func TruncateName(name string, maxWidth int) string {
	runes := []rune(name)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return name
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
