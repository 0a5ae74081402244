// Package util provides small helpers shared by the parser and the awareness engine.
package util

import (
	"math"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArgs trims and unescapes every command argument in place.
func CleanArgs(args []string) []string {
	for i, v := range args {
		args[i] = FixEscapeQuotes(TrimQuotes(strings.TrimSpace(v)))
	}
	return args
}

// BoundedFraction maps value into [0, 1] relative to bound.
func BoundedFraction(value, bound float64) float64 {
	if bound <= 0 {
		return 1
	}
	return math.Max(0, math.Min(value, bound)) / bound
}

// From0UpToMax scales maxValue by a skill ratio in [0, 1].
func From0UpToMax(maxValue int, ratio float64) int {
	return int(float64(maxValue) * Clamp(ratio, 0, 1))
}

// From1UpToMax is like From0UpToMax but never drops below 1.
func From1UpToMax(maxValue int, ratio float64) int {
	if maxValue <= 1 {
		return 1
	}
	return 1 + int(float64(maxValue-1)*Clamp(ratio, 0, 1))
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
