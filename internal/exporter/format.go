package exporter

import (
	"math"
	"strconv"
	"strings"
)

// formatFloat writes the shortest representation that reads back to f.
// Whole numbers keep a trailing ".0" and very large or small magnitudes use
// exponent notation, so the output matches what pandas writes.
func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// formatOptional formats a possibly missing value; missing is an empty field
func formatOptional(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return ""
	}
	return formatFloat(*v)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}
