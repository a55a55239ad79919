package security

import "math"

// defaultResultLimit is used when the caller supplies no usable limit.
const defaultResultLimit = 10

// SanitizeLimit clamps a caller-requested result limit. Non-numeric (NaN/Inf)
// or non-positive input maps to the default of 10; otherwise the value is
// floored and capped at max.
func SanitizeLimit(requested float64, max int) int {
	if max < 1 {
		max = defaultResultLimit
	}
	if math.IsNaN(requested) || math.IsInf(requested, 0) || requested < 1 {
		return defaultResultLimit
	}
	n := int(math.Floor(requested))
	if n > max {
		return max
	}
	return n
}
