// SPDX-License-Identifier: MIT

/*
Package audio captures and replays the input signal for the analysis
goroutine:
- PortAudio capture with a callback that never blocks
- a bounded drop-oldest FrameQueue between capture and analysis
- WAV recording of the raw input on its own goroutine
- WAV replay through the same queue for offline runs

Thread Safety:
- The capture callback only touches pre-allocated state and atomics
- Frame buffers are recycled through the queue's free list
*/
package audio

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"

	applog "lightdesk/internal/log"
)

// CaptureConfig selects and shapes the input stream.
type CaptureConfig struct {
	DeviceID        int
	SampleRate      float64
	FramesPerBuffer int
	Channels        int
	LowLatency      bool
}

// Capture streams a PortAudio input device into a FrameQueue. Multi-channel
// input is averaged to mono.
type Capture struct {
	cfg     CaptureConfig
	device  *portaudio.DeviceInfo
	latency time.Duration
	stream  *portaudio.Stream
	queue   *FrameQueue

	samples  atomic.Uint64 // Mono samples delivered so far.
	recorder atomic.Pointer[Recorder]
}

var _ Source = (*Capture)(nil)

// NewCapture resolves the input device. PortAudio must be initialized.
func NewCapture(cfg CaptureConfig) (*Capture, error) {
	if cfg.FramesPerBuffer <= 0 || cfg.SampleRate <= 0 {
		return nil, errors.Errorf("audio: invalid capture shape (%d frames @ %.0f Hz)", cfg.FramesPerBuffer, cfg.SampleRate)
	}
	cfg.Channels = max(1, cfg.Channels)

	device, err := InputDevice(cfg.DeviceID)
	if err != nil {
		return nil, err
	}
	if device.MaxInputChannels < cfg.Channels {
		return nil, errors.Wrapf(ErrNoInputDevice, "%q has %d input channels, need %d",
			device.Name, device.MaxInputChannels, cfg.Channels)
	}

	c := &Capture{cfg: cfg, device: device}
	if cfg.LowLatency {
		c.latency = device.DefaultLowInputLatency
	} else {
		c.latency = device.DefaultHighInputLatency
	}
	return c, nil
}

// DeviceName returns the name of the opened device.
func (c *Capture) DeviceName() string { return c.device.Name }

// SetRecorder taps the raw interleaved input into r. nil stops the tap.
func (c *Capture) SetRecorder(r *Recorder) { c.recorder.Store(r) }

// Start opens and starts the stream. On error nothing is left running.
func (c *Capture) Start(q *FrameQueue) error {
	if c.stream != nil {
		return errors.New("audio: capture already started")
	}
	c.queue = q
	c.samples.Store(0)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   c.device,
			Channels: c.cfg.Channels,
			Latency:  c.latency,
		},
		FramesPerBuffer: c.cfg.FramesPerBuffer,
		SampleRate:      c.cfg.SampleRate,
	}
	stream, err := portaudio.OpenStream(params, c.process)
	if err != nil {
		return errors.Wrapf(err, "audio: open stream on %q", c.device.Name)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return errors.Wrapf(err, "audio: start stream on %q", c.device.Name)
	}
	c.stream = stream
	applog.Infof("Audio: Capturing from %q (%d ch, %.0f Hz, %d frames, latency %s)",
		c.device.Name, c.cfg.Channels, c.cfg.SampleRate, c.cfg.FramesPerBuffer, c.latency)
	return nil
}

// Stop stops and releases the stream.
func (c *Capture) Stop() error {
	if c.stream == nil {
		return nil
	}
	stream := c.stream
	c.stream = nil
	if err := stream.Stop(); err != nil {
		stream.Close()
		return errors.Wrap(err, "audio: stop stream")
	}
	return errors.Wrap(stream.Close(), "audio: close stream")
}

// process is the PortAudio callback. It must not block.
func (c *Capture) process(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if r := c.recorder.Load(); r != nil {
		r.Write(in)
	}

	buf := c.queue.Buffer(len(in) / c.cfg.Channels)
	mono := Downmix(buf, in, c.cfg.Channels)
	start := c.samples.Add(uint64(len(mono))) - uint64(len(mono))
	c.queue.Push(Frame{
		Samples:    mono,
		SampleRate: c.cfg.SampleRate,
		Time:       SampleTime(start, c.cfg.SampleRate),
	})
}

// SampleTime converts a sample index into stream time.
func SampleTime(n uint64, rate float64) time.Duration {
	return time.Duration(float64(n) / rate * float64(time.Second))
}
