package schema

import (
	"strconv"
	"strings"
)

// FormatFloat renders a float with the shortest representation that round-trips,
// without exponent notation ("10", "0.25", "-4.5").
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SampleNameOrDefault returns name, or DefaultSampleName when it is empty.
func SampleNameOrDefault(name string) string {
	if name == "" {
		return DefaultSampleName
	}
	return name
}

// ColumnName builds the filtered-export column key for a channel sample:
// lowercased "<channel>_<sample>" with spaces replaced by underscores.
func ColumnName(channelName, sampleName string) string {
	col := channelName + "_" + SampleNameOrDefault(sampleName)
	return strings.ReplaceAll(strings.ToLower(col), " ", "_")
}
