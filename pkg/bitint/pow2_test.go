// SPDX-License-Identifier: MIT
package bitint

import (
	"fmt"
	"testing"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{-10, 1},
		{0, 1},
		{1, 1},
		{8, 8},
		{10, 16},
		{1000, 1024},
		{1025, 2048},
		{44100, 65536},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.n, tt.expected), func(t *testing.T) {
			if got := NextPowerOfTwo(tt.n); got != tt.expected {
				t.Errorf("NextPowerOfTwo(%d) = %d, expected %d", tt.n, got, tt.expected)
			}
		})
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected bool
	}{
		{-2, false},
		{0, false},
		{1, true},
		{8, true},
		{10, false},
		{1000, false},
		{1 << 20, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%t", tt.n, tt.expected), func(t *testing.T) {
			if got := IsPowerOfTwo(tt.n); got != tt.expected {
				t.Errorf("IsPowerOfTwo(%d) = %v, expected %v", tt.n, got, tt.expected)
			}
		})
	}
}

func BenchmarkNextPowerOfTwo(b *testing.B) {
	var i int
	b.ReportAllocs()
	for b.Loop() {
		NextPowerOfTwo(i % 10000)
		i++
	}
}
