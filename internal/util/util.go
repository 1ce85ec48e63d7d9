// Package util provides small helpers shared across packages.
package util

import (
	"math"
	"strings"
)

// SafeFileName replaces characters that are unsafe in file names with
// underscores. An empty result becomes "session".
func SafeFileName(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', ':', '/', '\\', '*', '?', '"', '<', '>', '|':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "session"
	}
	return b.String()
}

// Round rounds f to the given number of decimal places.
func Round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}

// Round3 rounds each component of v to three decimals.
func Round3(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = Round(f, 3)
	}
	return out
}
