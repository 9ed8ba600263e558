// SPDX-License-Identifier: MIT

/*
Package bitint holds the power-of-two helpers used to size FFT buffers
and validate frame lengths. Both functions are allocation free and safe
to call from the analysis goroutine.

	fftSize := bitint.NextPowerOfTwo(len(frame)) // 1000 -> 1024
	ok := bitint.IsPowerOfTwo(cfg.Audio.FramesPerBuffer)

NextPowerOfTwo subtracts one before taking the bit length so an exact
power of two maps onto itself (8-1 = 0b0111, Len = 3, 1<<3 = 8).
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Non-positive
// sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
