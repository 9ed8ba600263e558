// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		name    string
		want    WindowFunc
		wantErr bool
	}{
		{"Hann", Hann, false},
		{"hanning", Hann, false},
		{"", Hann, false},
		{"BLACKMAN", Blackman, false},
		{"blackmannuttall", BlackmanNuttall, false},
		{"bartletthann", BartlettHann, false},
		{" hamming ", Hamming, false},
		{"lanczos", Lanczos, false},
		{"nuttall", Nuttall, false},
		{"triangle", Hann, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindowFunc(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWindowFunc(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseWindowFunc(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestWindowCoefficients(t *testing.T) {
	coeffs := windowCoefficients(1025, Hann)
	if math.Abs(coeffs[0]) > 1e-9 || math.Abs(coeffs[1024]) > 1e-9 {
		t.Errorf("Hann endpoints = %v, %v, want 0", coeffs[0], coeffs[1024])
	}
	if math.Abs(coeffs[512]-1) > 1e-9 {
		t.Errorf("Hann centre = %v, want 1", coeffs[512])
	}

	// Unknown values fall back to Hann.
	fallback := windowCoefficients(1025, WindowFunc(99))
	for i := range coeffs {
		if coeffs[i] != fallback[i] {
			t.Fatalf("fallback differs from Hann at %d", i)
		}
	}
}
