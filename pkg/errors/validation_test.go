package errors

import (
	"math"
	"testing"
)

func TestValidateIntegers(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"positive ok", ValidatePositive("gen_len", 1), false},
		{"positive zero", ValidatePositive("gen_len", 0), true},
		{"positive negative", ValidatePositive("gen_len", -3), true},
		{"non-negative zero", ValidateNonNegative("min_parents", 0), false},
		{"non-negative negative", ValidateNonNegative("min_parents", -1), true},
		{"range inside", ValidateRange("min_traits", 2, 0, 5), false},
		{"range lower bound", ValidateRange("min_traits", 0, 0, 5), false},
		{"range upper bound", ValidateRange("min_traits", 5, 0, 5), false},
		{"range above", ValidateRange("min_traits", 6, 0, 5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", tt.err, tt.wantErr)
			}
			if tt.err != nil && !Is(tt.err, ErrCodeInvalidConfiguration) {
				t.Errorf("code = %v, want %v", GetCode(tt.err), ErrCodeInvalidConfiguration)
			}
		})
	}
}

func TestValidateFinite(t *testing.T) {
	if err := ValidateFinite("age_exp", 1.45); err != nil {
		t.Errorf("ValidateFinite(1.45) = %v", err)
	}
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := ValidateFinite("age_exp", v); err == nil {
			t.Errorf("ValidateFinite(%v) = nil, want error", v)
		}
	}
}

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights []float64
		wantErr bool
	}{
		{"valid", []float64{1, 0, 2.5}, false},
		{"empty", nil, true},
		{"all zero", []float64{0, 0}, true},
		{"negative", []float64{1, -1}, true},
		{"nan", []float64{1, math.NaN()}, true},
		{"inf", []float64{math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeights("keyword_weights", tt.weights)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWeights(%v) error = %v, wantErr %v", tt.weights, err, tt.wantErr)
			}
		})
	}
}
