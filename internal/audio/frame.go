// SPDX-License-Identifier: MIT
package audio

import (
	"sync/atomic"
	"time"
)

// Frame is one fixed-length block of mono samples. Time is the stream time
// of its first sample, derived from the source's sample counter.
type Frame struct {
	Samples    []float32
	SampleRate float64
	Time       time.Duration
}

// Source produces frames into a queue from its own goroutine or callback.
type Source interface {
	Start(q *FrameQueue) error
	Stop() error
}

// FrameQueue is the bounded hand-off between the capture side and the
// analysis goroutine. Push never blocks: when the queue is full the oldest
// frame is discarded. There must be a single consumer.
type FrameQueue struct {
	frames  chan Frame
	free    chan []float32
	dropped atomic.Uint64
	timer   *time.Timer // Consumer-owned.
}

// NewFrameQueue returns a queue holding at most capacity frames.
func NewFrameQueue(capacity int) *FrameQueue {
	capacity = max(1, capacity)
	t := time.NewTimer(time.Hour)
	t.Stop()
	return &FrameQueue{
		frames: make(chan Frame, capacity),
		free:   make(chan []float32, capacity+2),
		timer:  t,
	}
}

// Buffer returns a sample slice of length n, reusing a released one when
// possible.
func (q *FrameQueue) Buffer(n int) []float32 {
	select {
	case b := <-q.free:
		if cap(b) >= n {
			return b[:n]
		}
	default:
	}
	return make([]float32, n)
}

// Release hands a frame's samples back for reuse. The frame must not be
// used afterwards.
func (q *FrameQueue) Release(f Frame) {
	if f.Samples == nil {
		return
	}
	select {
	case q.free <- f.Samples[:0]:
	default:
	}
}

// Push enqueues f, evicting the oldest frame if the queue is full.
func (q *FrameQueue) Push(f Frame) {
	for {
		select {
		case q.frames <- f:
			return
		default:
		}
		select {
		case old := <-q.frames:
			q.dropped.Add(1)
			q.Release(old)
		default:
		}
	}
}

// PushWait enqueues f, waiting for space instead of dropping. It gives up
// and returns false when done is closed. Offline sources use it.
func (q *FrameQueue) PushWait(f Frame, done <-chan struct{}) bool {
	select {
	case q.frames <- f:
		return true
	case <-done:
		return false
	}
}

// Pop waits up to timeout for the next frame.
func (q *FrameQueue) Pop(timeout time.Duration) (Frame, bool) {
	select {
	case f := <-q.frames:
		return f, true
	default:
	}
	q.timer.Reset(timeout)
	defer q.timer.Stop()
	select {
	case f := <-q.frames:
		return f, true
	case <-q.timer.C:
		return Frame{}, false
	}
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int { return len(q.frames) }

// Cap returns the queue capacity.
func (q *FrameQueue) Cap() int { return cap(q.frames) }

// Dropped returns how many frames were evicted by Push.
func (q *FrameQueue) Dropped() uint64 { return q.dropped.Load() }

// Downmix averages interleaved samples into dst, one value per frame.
func Downmix(dst, interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return append(dst[:0], interleaved...)
	}
	n := len(interleaved) / channels
	dst = dst[:0]
	scale := 1 / float32(channels)
	for i := range n {
		var sum float32
		for _, s := range interleaved[i*channels : (i+1)*channels] {
			sum += s
		}
		dst = append(dst, sum*scale)
	}
	return dst
}
