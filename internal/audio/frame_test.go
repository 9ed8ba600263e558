// SPDX-License-Identifier: MIT
package audio

import (
	"slices"
	"testing"
	"time"
)

func frameAt(q *FrameQueue, i int) Frame {
	buf := q.Buffer(4)
	for j := range buf {
		buf[j] = float32(i)
	}
	return Frame{Samples: buf, SampleRate: 48000, Time: time.Duration(i) * time.Millisecond}
}

func TestFrameQueueDropsOldest(t *testing.T) {
	t.Parallel()
	q := NewFrameQueue(3)
	for i := range 5 {
		q.Push(frameAt(q, i))
	}
	if q.Len() != 3 || q.Dropped() != 2 {
		t.Fatalf("Len %d Dropped %d, want 3 and 2", q.Len(), q.Dropped())
	}
	for want := 2; want < 5; want++ {
		f, ok := q.Pop(time.Millisecond)
		if !ok {
			t.Fatalf("Pop %d timed out", want)
		}
		if f.Time != time.Duration(want)*time.Millisecond || f.Samples[0] != float32(want) {
			t.Errorf("got frame %v, want %d", f.Time, want)
		}
	}
}

func TestFrameQueuePopTimeout(t *testing.T) {
	t.Parallel()
	q := NewFrameQueue(1)
	start := time.Now()
	if _, ok := q.Pop(20 * time.Millisecond); ok {
		t.Fatal("Pop on an empty queue returned a frame")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Pop returned after %s", elapsed)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push(frameAt(q, 7))
	}()
	if f, ok := q.Pop(2 * time.Second); !ok || f.Samples[0] != 7 {
		t.Errorf("Pop = %v, %t", f.Samples, ok)
	}
}

func TestFrameQueuePushWait(t *testing.T) {
	t.Parallel()
	q := NewFrameQueue(1)
	done := make(chan struct{})
	if !q.PushWait(frameAt(q, 1), done) {
		t.Fatal("PushWait into an empty queue failed")
	}

	result := make(chan bool)
	go func() { result <- q.PushWait(frameAt(q, 2), done) }()
	select {
	case <-result:
		t.Fatal("PushWait did not wait for space")
	case <-time.After(20 * time.Millisecond):
	}
	close(done)
	if <-result {
		t.Error("PushWait should give up once done is closed")
	}
	if q.Dropped() != 0 {
		t.Errorf("PushWait dropped %d frames", q.Dropped())
	}
}

func TestFrameQueueReusesBuffers(t *testing.T) {
	q := NewFrameQueue(2)
	f := frameAt(q, 1)
	q.Push(f)
	got, _ := q.Pop(time.Millisecond)
	q.Release(got)
	if again := q.Buffer(4); &again[0] != &f.Samples[0] {
		t.Error("released buffer was not reused")
	}
	if short := q.Buffer(2); len(short) != 2 {
		t.Errorf("Buffer(2) has length %d", len(short))
	}

	allocs := testing.AllocsPerRun(100, func() {
		buf := q.Buffer(4)
		q.Push(Frame{Samples: buf})
		f, _ := q.Pop(time.Millisecond)
		q.Release(f)
	})
	if allocs != 0 {
		t.Errorf("steady-state push/pop allocates %.1f times", allocs)
	}
}

func TestDownmix(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		in       []float32
		channels int
		want     []float32
	}{
		{"mono copies", []float32{0.1, 0.2}, 1, []float32{0.1, 0.2}},
		{"stereo averages", []float32{1, 0, 0.5, 0.5, -1, 1}, 2, []float32{0.5, 0.5, 0}},
		{"partial frame ignored", []float32{1, 1, 1}, 2, []float32{1}},
		{"zero channels treated as mono", []float32{0.3}, 0, []float32{0.3}},
	}
	for _, tt := range tests {
		got := Downmix(make([]float32, 8), tt.in, tt.channels)
		if !slices.Equal(got, tt.want) {
			t.Errorf("%s: Downmix = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSampleTime(t *testing.T) {
	t.Parallel()
	if got := SampleTime(48000, 48000); got != time.Second {
		t.Errorf("SampleTime(48000) = %s", got)
	}
	if got := SampleTime(512, 48000); got != 10666666*time.Nanosecond {
		t.Errorf("SampleTime(512) = %s", got)
	}
}

func BenchmarkFrameQueue(b *testing.B) {
	q := NewFrameQueue(8)
	for b.Loop() {
		q.Push(Frame{Samples: q.Buffer(512)})
		f, _ := q.Pop(time.Millisecond)
		q.Release(f)
	}
}
