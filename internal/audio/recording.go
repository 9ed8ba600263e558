// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	applog "lightdesk/internal/log"
)

const (
	recorderQueueSize = 64
	wavFormatPCM      = 1
)

// RecordingFileName names a capture file after its start time.
func RecordingFileName(t time.Time) string {
	return "lightdesk_rec_" + t.Format("20060102_150405") + ".wav"
}

// Recorder writes the raw captured input to a PCM WAV file. Write is called
// from the capture callback and never blocks; encoding happens on the
// recorder's own goroutine.
type Recorder struct {
	path     string
	file     *os.File
	encoder  *wav.Encoder
	channels int
	scale    float64

	queue chan []float32
	free  chan []float32
	wg    sync.WaitGroup

	closeOnce sync.Once
	closed    atomic.Bool
	dropped   atomic.Uint64
	written   atomic.Uint64
	err       error // Set by the writer goroutine, read after wg.Wait.
}

// NewRecorder creates dir if needed and starts a recording there.
func NewRecorder(dir string, sampleRate float64, channels, bitDepth int) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "audio: create recording dir %s", dir)
	}
	return CreateRecorder(filepath.Join(dir, RecordingFileName(time.Now())), sampleRate, channels, bitDepth)
}

// CreateRecorder records into path. bitDepth must be 16, 24 or 32.
func CreateRecorder(path string, sampleRate float64, channels, bitDepth int) (*Recorder, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, errors.Errorf("audio: unsupported bit depth %d", bitDepth)
	}
	if channels < 1 || sampleRate <= 0 {
		return nil, errors.Errorf("audio: invalid recording format (%d ch @ %.0f Hz)", channels, sampleRate)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "audio: create recording")
	}

	r := &Recorder{
		path:     path,
		file:     file,
		encoder:  wav.NewEncoder(file, int(sampleRate), bitDepth, channels, wavFormatPCM),
		channels: channels,
		scale:    float64(int64(1)<<(bitDepth-1) - 1),
		queue:    make(chan []float32, recorderQueueSize),
		free:     make(chan []float32, recorderQueueSize),
	}

	r.wg.Add(1)
	go r.run(int(sampleRate))
	applog.Infof("Recorder: Writing %d-bit %d ch to %s", bitDepth, channels, path)
	return r, nil
}

// Path returns the file being written.
func (r *Recorder) Path() string { return r.path }

// Dropped returns how many blocks were lost to a full queue.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Written returns how many samples (all channels) reached the encoder.
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Write queues a copy of interleaved samples. It is safe to call from the
// capture callback.
func (r *Recorder) Write(interleaved []float32) {
	if r.closed.Load() {
		return
	}
	var buf []float32
	select {
	case buf = <-r.free:
	default:
	}
	buf = append(buf[:0], interleaved...)
	select {
	case r.queue <- buf:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) run(sampleRate int) {
	defer r.wg.Done()
	ib := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: r.channels, SampleRate: sampleRate},
		SourceBitDepth: int(r.encoder.BitDepth),
	}
	for block := range r.queue {
		if r.err != nil {
			continue
		}
		ib.Data = ib.Data[:0]
		for _, s := range block {
			ib.Data = append(ib.Data, r.quantize(s))
		}
		if err := r.encoder.Write(ib); err != nil {
			r.err = errors.Wrap(err, "audio: encode recording")
			applog.Errorf("Recorder: %v", r.err)
		} else {
			r.written.Add(uint64(len(block)))
		}
		select {
		case r.free <- block:
		default:
		}
	}
}

func (r *Recorder) quantize(s float32) int {
	v := math.Round(float64(s) * r.scale)
	return int(min(max(v, -r.scale), r.scale))
}

// Close flushes queued blocks, finalizes the WAV header and closes the file.
// Write must not be running concurrently with Close.
func (r *Recorder) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.queue)
		r.wg.Wait()
		err = r.err
		if cerr := r.encoder.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "audio: finalize recording")
		}
		if cerr := r.file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "audio: close recording")
		}
		applog.Infof("Recorder: Closed %s (%d samples, dropped %d blocks)", r.path, r.Written(), r.Dropped())
	})
	return err
}
