// SPDX-License-Identifier: MIT
package analysis

import "time"

// BeatEvent is produced once per accepted onset. It is a value and is
// never mutated after emission.
type BeatEvent struct {
	Timestamp     time.Duration // Stream time of the onset.
	BPM           float64       // Locked tempo, 0 while unknown.
	RMS           float64       // Smoothed input level.
	Bass          float64
	Mid           float64
	High          float64
	OnsetStrength float64 // 0..1, frame level relative to the decaying peak.
}

// BeatConsumer receives beats synchronously on the analysis goroutine.
// Implementations must not block.
type BeatConsumer interface {
	OnBeat(ev BeatEvent)
}

// BeatConsumerFunc adapts a function to BeatConsumer.
type BeatConsumerFunc func(ev BeatEvent)

func (f BeatConsumerFunc) OnBeat(ev BeatEvent) { f(ev) }

const peakDecay = 0.95

// BeatEmitter assembles BeatEvents and tracks the decaying peak used for
// onset strength.
type BeatEmitter struct {
	consumer BeatConsumer
	peak     float64
}

// NewBeatEmitter creates an emitter. A nil consumer is allowed; Emit then
// only returns the event.
func NewBeatEmitter(consumer BeatConsumer) *BeatEmitter {
	return &BeatEmitter{consumer: consumer}
}

// Emit builds the event for an accepted onset and hands it to the consumer.
func (e *BeatEmitter) Emit(at time.Duration, bpm float64, fa FrameAnalysis) BeatEvent {
	e.peak = max(peakDecay*e.peak, fa.RMS)

	var strength float64
	if e.peak > 0 {
		strength = min(1, fa.RMS/e.peak)
	}

	ev := BeatEvent{
		Timestamp:     at,
		BPM:           bpm,
		RMS:           fa.RMSEMA,
		Bass:          fa.Features.Bass,
		Mid:           fa.Features.Mid,
		High:          fa.Features.High,
		OnsetStrength: strength,
	}
	if e.consumer != nil {
		e.consumer.OnBeat(ev)
	}
	return ev
}

// Reset forgets the peak.
func (e *BeatEmitter) Reset() { e.peak = 0 }
