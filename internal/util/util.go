// Package util provides common helpers shared across teammap packages.
package util

import "math"

// FirstMatch evaluates strategies in order and returns the first value that
// reports ok. It returns the zero value and false when every strategy fails.
// A strategy reports ok=false when it could not produce a value.
func FirstMatch[T any](strategies ...func() (T, bool)) (T, bool) {
	for _, s := range strategies {
		if s == nil {
			continue
		}
		if v, ok := s(); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// FirstNonEmpty returns the first non-empty string, or "".
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
