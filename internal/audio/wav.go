// SPDX-License-Identifier: MIT
package audio

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	applog "lightdesk/internal/log"
)

// WAVSource replays a PCM WAV file through a FrameQueue. In realtime mode
// frames are paced at the file's sample rate and pushed like live capture;
// otherwise they are pushed as fast as the consumer takes them and none are
// dropped.
type WAVSource struct {
	path      string
	file      *os.File
	decoder   *wav.Decoder
	frameSize int
	realtime  bool

	sampleRate float64
	channels   int
	scale      float32

	stop      chan struct{}
	done      chan struct{}
	started   atomic.Bool
	closeOnce sync.Once
	frames    uint64
}

var _ Source = (*WAVSource)(nil)

// OpenWAV opens path and validates its header.
func OpenWAV(path string, frameSize int, realtime bool) (*WAVSource, error) {
	if frameSize <= 0 {
		return nil, errors.Errorf("audio: invalid frame size %d", frameSize)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "audio: open wav")
	}
	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		file.Close()
		return nil, errors.Errorf("audio: %s is not a valid WAV file", path)
	}
	if err := dec.FwdToPCM(); err != nil {
		file.Close()
		return nil, errors.Wrap(err, "audio: seek to PCM data")
	}
	if dec.BitDepth == 0 || dec.NumChans == 0 {
		file.Close()
		return nil, errors.Errorf("audio: %s has no usable format", path)
	}
	return &WAVSource{
		path:       path,
		file:       file,
		decoder:    dec,
		frameSize:  frameSize,
		realtime:   realtime,
		sampleRate: float64(dec.SampleRate),
		channels:   int(dec.NumChans),
		scale:      1 / float32(int64(1)<<(dec.BitDepth-1)),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// SampleRate returns the file's sample rate.
func (w *WAVSource) SampleRate() float64 { return w.sampleRate }

// Channels returns the file's channel count.
func (w *WAVSource) Channels() int { return w.channels }

// Done is closed once the file is exhausted or the source is stopped.
func (w *WAVSource) Done() <-chan struct{} { return w.done }

// Start begins replay on a new goroutine.
func (w *WAVSource) Start(q *FrameQueue) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("audio: wav source already started")
	}
	go w.run(q)
	return nil
}

func (w *WAVSource) run(q *FrameQueue) {
	defer close(w.done)
	applog.Infof("WAVSource: Replaying %s (%d ch, %.0f Hz, realtime=%t)", w.path, w.channels, w.sampleRate, w.realtime)

	ib := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: w.channels, SampleRate: int(w.sampleRate)},
		Data:   make([]int, w.frameSize*w.channels),
	}
	interleaved := make([]float32, 0, len(ib.Data))
	period := SampleTime(uint64(w.frameSize), w.sampleRate)
	start := time.Now()
	var samples uint64

	for {
		n, err := w.decoder.PCMBuffer(ib)
		if err != nil {
			applog.Errorf("WAVSource: Decode error: %v", err)
			return
		}
		if n < len(ib.Data) {
			// Short tail: not a full frame.
			applog.Infof("WAVSource: End of %s after %d frames", w.path, w.frames)
			return
		}

		interleaved = interleaved[:0]
		for _, v := range ib.Data[:n] {
			interleaved = append(interleaved, float32(v)*w.scale)
		}
		f := Frame{
			Samples:    Downmix(q.Buffer(w.frameSize), interleaved, w.channels),
			SampleRate: w.sampleRate,
			Time:       SampleTime(samples, w.sampleRate),
		}
		samples += uint64(w.frameSize)
		w.frames++

		if w.realtime {
			select {
			case <-time.After(time.Until(start.Add(period * time.Duration(w.frames-1)))):
			case <-w.stop:
				return
			}
			q.Push(f)
			continue
		}
		if !q.PushWait(f, w.stop) {
			return
		}
	}
}

// Stop ends replay, waits for the goroutine and closes the file.
func (w *WAVSource) Stop() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stop)
		if w.started.Swap(true) {
			<-w.done
		} else {
			close(w.done)
		}
		err = errors.Wrap(w.file.Close(), "audio: close wav")
	})
	return err
}
