package errors

import (
	"math"
)

// ValidatePositive checks that an integer parameter is strictly positive.
func ValidatePositive(name string, v int) error {
	if v <= 0 {
		return New(ErrCodeInvalidConfiguration, "%s must be positive, got %d", name, v)
	}
	return nil
}

// ValidateNonNegative checks that an integer parameter is zero or greater.
func ValidateNonNegative(name string, v int) error {
	if v < 0 {
		return New(ErrCodeInvalidConfiguration, "%s must not be negative, got %d", name, v)
	}
	return nil
}

// ValidateRange checks that lo <= v <= hi.
func ValidateRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return New(ErrCodeInvalidConfiguration, "%s must be in [%d, %d], got %d", name, lo, hi, v)
	}
	return nil
}

// ValidateFinite checks that a real-valued parameter is neither NaN nor infinite.
func ValidateFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidConfiguration, "%s must be finite, got %v", name, v)
	}
	return nil
}

// ValidateWeights checks a weight vector for use as an unnormalized
// categorical distribution. Every entry must be finite and non-negative, and
// at least one must be positive.
func ValidateWeights(name string, weights []float64) error {
	if len(weights) == 0 {
		return New(ErrCodeInvalidConfiguration, "%s must not be empty", name)
	}
	positive := false
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return New(ErrCodeInvalidConfiguration, "%s[%d] must be finite and non-negative, got %v", name, i, w)
		}
		if w > 0 {
			positive = true
		}
	}
	if !positive {
		return New(ErrCodeInvalidConfiguration, "%s has no positive entry", name)
	}
	return nil
}
