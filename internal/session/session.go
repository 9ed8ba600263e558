// SPDX-License-Identifier: MIT

/*
Package session runs the two-goroutine pipeline:
- the audio source (capture callback or WAV replay) pushes frames
- one analysis goroutine pops frames and drives analysis and choreography

The analysis goroutine owns the pipeline and the engine. Control commands
are closures that it applies between frames, so neither needs a lock.
*/
package session

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"lightdesk/internal/analysis"
	"lightdesk/internal/audio"
	"lightdesk/internal/choreo"
	"lightdesk/internal/lighting"
	applog "lightdesk/internal/log"
)

const (
	DefaultQueueCapacity = 8
	DefaultPollTimeout   = 250 * time.Millisecond
	commandQueueSize     = 32
)

// ErrRunning is returned by operations that need a stopped session.
var ErrRunning = errors.New("session: already running")

// Config shapes a Session.
type Config struct {
	Analysis      analysis.PipelineConfig
	Choreo        choreo.Options
	QueueCapacity int           // Frames buffered between source and analysis.
	PollTimeout   time.Duration // How long the analysis goroutine waits for a frame.
}

// Status is the state shown to control surfaces.
type Status struct {
	choreo.State
	Running       bool    `json:"running"`
	BPM           float64 `json:"bpm"`
	Frames        uint64  `json:"frames"`
	Beats         uint64  `json:"beats"`
	DroppedFrames uint64  `json:"dropped_frames"`
}

// Controls is the surface remote controllers drive. Every method is safe
// to call from any goroutine.
type Controls interface {
	Start() error
	Stop() error
	SetStyle(s choreo.Style)
	SetPalette(name string) error
	SetSensitivity(v float64) error
	SetColors(base, alt lighting.Color)
	ForceBuild()
	ForceDrop()
	SetManualTier(t choreo.Tier)
	ClearManualTier()
	EnablePreset(p choreo.Preset)
	DisablePreset()
	Reset()
	State() Status
}

// Session connects a Source to the analysis pipeline and the choreography
// engine.
type Session struct {
	cfg      Config
	source   audio.Source
	queue    *audio.FrameQueue
	pipeline *analysis.Pipeline
	engine   *choreo.Engine

	mu      sync.Mutex // Serializes Start, Stop and idle commands.
	running atomic.Bool
	cmds    chan func()
	stop    chan struct{}
	done    chan struct{}

	state  atomic.Pointer[choreo.State]
	frames atomic.Uint64
	beats  atomic.Uint64
	bpm    atomic.Uint64 // math.Float64bits
}

var _ Controls = (*Session)(nil)

// New builds the pipeline and engine. Lighting commands go to sink.
func New(source audio.Source, sink lighting.Sink, cfg Config) (*Session, error) {
	if source == nil {
		return nil, errors.New("session: nil source")
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}

	s := &Session{
		cfg:    cfg,
		source: source,
		queue:  audio.NewFrameQueue(cfg.QueueCapacity),
		engine: choreo.New(sink, cfg.Choreo),
		cmds:   make(chan func(), commandQueueSize),
	}
	p, err := analysis.NewPipeline(cfg.Analysis, analysis.BeatConsumerFunc(s.onBeat))
	if err != nil {
		return nil, errors.Wrap(err, "session: build analysis pipeline")
	}
	p.OnSilenceReset(func(at time.Duration) {
		s.engine.Reset()
		s.bpm.Store(0)
		s.publish()
		applog.Infof("Session: Silence at %.1fs, music context reset", at.Seconds())
	})
	s.pipeline = p
	s.publish()
	return s, nil
}

// Start starts the source and the analysis goroutine. If the source fails
// nothing is left running.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return ErrRunning
	}
	if err := s.source.Start(s.queue); err != nil {
		return errors.Wrap(err, "session: start source")
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.running.Store(true)
	go s.run(s.stop, s.done)
	applog.Infof("Session: Started")
	return nil
}

// Stop stops the source, waits for the analysis goroutine to finish its
// current frame and exit, then discards queued frames.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return nil
	}

	err := s.source.Stop()
	close(s.stop)
	<-s.done
	s.running.Store(false)

	for {
		f, ok := s.queue.Pop(0)
		if !ok {
			break
		}
		s.queue.Release(f)
	}
	s.applyPending()
	applog.Infof("Session: Stopped (%d frames, %d beats, %d dropped)",
		s.frames.Load(), s.beats.Load(), s.queue.Dropped())
	return errors.Wrap(err, "session: stop source")
}

// Running reports whether the analysis goroutine is active.
func (s *Session) Running() bool { return s.running.Load() }

// Pending returns the number of frames waiting for analysis.
func (s *Session) Pending() int { return s.queue.Len() }

func (s *Session) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	applog.Debugf("Session: Analysis goroutine started")
	for {
		select {
		case <-stop:
			return
		default:
		}
		s.applyPending()

		f, ok := s.queue.Pop(s.cfg.PollTimeout)
		if !ok {
			continue
		}
		s.pipeline.Process(f.Samples, f.Time)
		s.queue.Release(f)
		s.frames.Add(1)
	}
}

// onBeat runs on the analysis goroutine for every accepted onset.
func (s *Session) onBeat(ev analysis.BeatEvent) {
	s.engine.OnBeat(ev)
	s.beats.Add(1)
	s.bpm.Store(math.Float64bits(ev.BPM))
	s.publish()
}

func (s *Session) publish() {
	st := s.engine.Snapshot()
	s.state.Store(&st)
}

func (s *Session) applyPending() {
	for {
		select {
		case fn := <-s.cmds:
			fn()
			s.publish()
		default:
			return
		}
	}
}

// do applies fn on the analysis goroutine, or immediately when stopped.
// The lock keeps the goroutine alive until fn is queued.
func (s *Session) do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		fn()
		s.publish()
		return
	}
	s.cmds <- fn
}

func (s *Session) SetStyle(st choreo.Style) {
	s.do(func() { s.engine.SetStyle(st) })
	applog.Infof("Session: Style %s", st)
}

// SetPalette validates name before queuing the switch.
func (s *Session) SetPalette(name string) error {
	if _, ok := choreo.LookupPalette(name); !ok {
		return errors.Errorf("unknown palette %q", name)
	}
	s.do(func() { _ = s.engine.SetPalette(name) })
	applog.Infof("Session: Palette %s", name)
	return nil
}

// SetSensitivity validates v before queuing the change.
func (s *Session) SetSensitivity(v float64) error {
	if math.IsNaN(v) || v < choreo.MinSensitivity || v > choreo.MaxSensitivity {
		return errors.Errorf("sensitivity %.2f outside [%.2f, %.2f]", v, choreo.MinSensitivity, choreo.MaxSensitivity)
	}
	s.do(func() { _ = s.engine.SetSensitivity(v) })
	return nil
}

func (s *Session) SetColors(base, alt lighting.Color) {
	s.do(func() { s.engine.SetColors(base, alt) })
}

func (s *Session) ForceBuild() {
	s.do(s.engine.ForceBuild)
	applog.Infof("Session: Forced BUILD")
}

func (s *Session) ForceDrop() {
	s.do(s.engine.ForceDrop)
	applog.Infof("Session: Forced DROP")
}

func (s *Session) SetManualTier(t choreo.Tier) {
	s.do(func() { s.engine.SetManualTier(t) })
}

func (s *Session) ClearManualTier() { s.do(s.engine.ClearManualTier) }

func (s *Session) EnablePreset(p choreo.Preset) {
	s.do(func() { s.engine.EnablePreset(p) })
	applog.Infof("Session: Preset %s", p)
}

func (s *Session) DisablePreset() { s.do(s.engine.DisablePreset) }

// Reset clears the analysis state and the music context.
func (s *Session) Reset() {
	s.do(func() {
		s.pipeline.Reset()
		s.engine.Reset()
		s.bpm.Store(0)
	})
}

// State returns the latest published snapshot.
func (s *Session) State() Status {
	return Status{
		State:         *s.state.Load(),
		Running:       s.running.Load(),
		BPM:           math.Float64frombits(s.bpm.Load()),
		Frames:        s.frames.Load(),
		Beats:         s.beats.Load(),
		DroppedFrames: s.queue.Dropped(),
	}
}
