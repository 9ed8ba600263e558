// SPDX-License-Identifier: MIT
package choreo

import (
	"gonum.org/v1/gonum/stat"
)

const historySize = 32

// history is a fixed ring of the most recent samples.
type history struct {
	buf  [historySize]float64
	head int // Index of the oldest sample.
	n    int
}

func (h *history) push(v float64) {
	if h.n < historySize {
		h.buf[(h.head+h.n)%historySize] = v
		h.n++
		return
	}
	h.buf[h.head] = v
	h.head = (h.head + 1) % historySize
}

func (h *history) len() int { return h.n }

// tail copies the newest k samples, oldest first, into dst[:k].
func (h *history) tail(k int, dst []float64) []float64 {
	k = min(k, h.n)
	out := dst[:k]
	for i := range k {
		out[i] = h.buf[(h.head+h.n-k+i)%historySize]
	}
	return out
}

func (h *history) reset() { h.head, h.n = 0, 0 }

// energy tracks per-beat loudness at three horizons plus band and onset
// smoothing used by the section detectors.
type energy struct {
	fast, med, long float64
	fastHist        history

	highEMA, bassEMA   float64
	highHist, bassHist history
	highAvg, bassAvg   float64

	onsetEMA float64

	scratch [historySize]float64
}

// update folds one beat into every layer. Band and onset layers only move
// on positive readings so missing features do not drag them down.
func (e *energy) update(rms, high, bass, onset float64) {
	if e.fast == 0 {
		e.fast, e.med, e.long = rms, rms, rms
	} else {
		e.fast = 0.55*e.fast + 0.45*rms
		e.med = 0.90*e.med + 0.10*rms
		e.long = 0.97*e.long + 0.03*rms
	}
	e.fastHist.push(e.fast)

	if high > 0 {
		e.highEMA = 0.8*e.highEMA + 0.2*high
		e.highHist.push(e.highEMA)
	}
	if bass > 0 {
		e.bassEMA = 0.8*e.bassEMA + 0.2*bass
		e.bassHist.push(e.bassEMA)
	}
	e.highAvg = e.mean(&e.highHist)
	e.bassAvg = e.mean(&e.bassHist)

	if onset > 0 {
		e.onsetEMA = 0.7*e.onsetEMA + 0.3*onset
	}
}

func (e *energy) mean(h *history) float64 {
	if h.len() == 0 {
		return 0
	}
	return stat.Mean(h.tail(h.len(), e.scratch[:]), nil)
}

// recent returns the newest k fast-EMA samples, oldest first. The slice
// aliases scratch space and is only valid until the next call.
func (e *energy) recent(k int) []float64 {
	return e.fastHist.tail(k, e.scratch[:])
}

// slope is the per-beat change across the newest k fast-EMA samples, or 0
// with fewer than k samples.
func (e *energy) slope(k int) float64 {
	if e.fastHist.len() < k || k < 2 {
		return 0
	}
	h := e.recent(k)
	return (h[k-1] - h[0]) / float64(k-1)
}

func (e *energy) reset() {
	*e = energy{}
}
