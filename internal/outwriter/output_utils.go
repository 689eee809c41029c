package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/huangsam/peakbase/internal/contract"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"
)

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writeRows(csvWriter); err != nil {
		return err
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// createFormatters creates the common formatter closures used across multiple output types.
func createFormatters(precision int) (fmtFloat func(float64) string, intFmt string) {
	intFmt = "%d"
	fmtFloat = func(v float64) string {
		return strconv.FormatFloat(v, 'f', precision, 64)
	}
	return fmtFloat, intFmt
}

// formatTime renders an optional timestamp for tables.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(contract.DateTimeFormat)
}

// renderTable writes a right-aligned table with the given header and rows.
func renderTable(w io.Writer, header []string, data [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(header)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// terminalWidth returns the configured width, the detected terminal width, or 80.
func terminalWidth(cfg *contract.Config) int {
	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detectedWidth
}

// GetMaxTableNameWidth calculates the maximum width for channel and
// experiment names in table output based on terminal width.
func GetMaxTableNameWidth(cfg *contract.Config) int {
	// Reserve space for the fixed numeric columns, borders and padding
	available := terminalWidth(cfg) - 70
	if available < 12 {
		return 12
	}
	if available > 48 {
		return 48
	}
	return available
}

// sparkBlocks are the eight block glyphs used by sparkline.
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline renders ys as a row of block glyphs scaled between their minimum and maximum.
func sparkline(ys []float64) string {
	if len(ys) == 0 {
		return ""
	}
	lo, hi := ys[0], ys[0]
	for _, y := range ys {
		lo, hi = min(lo, y), max(hi, y)
	}
	out := make([]rune, len(ys))
	for i, y := range ys {
		level := 0
		if hi > lo {
			level = int((y - lo) / (hi - lo) * float64(len(sparkBlocks)-1))
		}
		level = max(0, min(level, len(sparkBlocks)-1))
		out[i] = sparkBlocks[level]
	}
	return string(out)
}

// colorArea colors a formatted area by sign when colors are enabled.
func colorArea(area float64, formatted string, useColors bool) string {
	if useColors {
		return contract.ColorArea(area, formatted)
	}
	return formatted
}

// fillLabel describes how many channels carry baselines, colored when enabled.
func fillLabel(filled, total int, useColors bool) string {
	if useColors {
		return contract.GetColorFillLabel(filled, total)
	}
	return contract.GetFillLabel(filled, total)
}
