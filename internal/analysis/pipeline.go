// SPDX-License-Identifier: MIT
package analysis

import (
	"time"

	"lightdesk/internal/log"
)

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	FrameSize        int
	SampleRate       float64
	Window           WindowFunc
	Onset            OnsetMethod
	Refractory       time.Duration
	SilenceThreshold float64       // Frame RMS treated as silence.
	SilenceReset     time.Duration // Silence longer than this resets all state.
}

// Pipeline chains analyzer, onset detector, tempo estimator and emitter
// for one frame at a time. It also runs the silence watchdog that treats
// a long quiet stretch as a track boundary.
type Pipeline struct {
	cfg      PipelineConfig
	analyzer *SpectralAnalyzer
	detector OnsetDetector
	tempo    *TempoEstimator
	emitter  *BeatEmitter

	quiet      bool
	quietSince time.Duration
	tripped    bool
	onSilence  func(at time.Duration)

	frames uint64
	beats  uint64
}

// NewPipeline builds the per-frame chain. Beats are delivered to consumer.
func NewPipeline(cfg PipelineConfig, consumer BeatConsumer) (*Pipeline, error) {
	analyzer, err := NewSpectralAnalyzer(cfg.FrameSize, cfg.SampleRate, cfg.Window)
	if err != nil {
		return nil, err
	}

	log.Infof("Analysis: pipeline ready (frame %d @ %.0f Hz, onset %v, refractory %s)",
		cfg.FrameSize, cfg.SampleRate, cfg.Onset, cfg.Refractory)

	return &Pipeline{
		cfg:      cfg,
		analyzer: analyzer,
		detector: NewOnsetDetector(cfg.Onset),
		tempo:    NewTempoEstimator(cfg.Refractory),
		emitter:  NewBeatEmitter(consumer),
	}, nil
}

// OnSilenceReset registers a hook called after the watchdog reset the
// pipeline. It runs on the analysis goroutine.
func (p *Pipeline) OnSilenceReset(fn func(at time.Duration)) {
	p.onSilence = fn
}

// Process runs one frame captured at stream time at. It returns the beat
// event and true when an onset was accepted.
func (p *Pipeline) Process(samples []float32, at time.Duration) (BeatEvent, bool) {
	p.frames++
	fa := p.analyzer.Analyze(samples)

	if p.watchSilence(fa.RMS, at) {
		return BeatEvent{}, false
	}

	if !p.detector.Detect(fa) {
		return BeatEvent{}, false
	}
	if !p.tempo.Register(at) {
		return BeatEvent{}, false
	}

	p.beats++
	ev := p.emitter.Emit(at, p.tempo.BPM(), fa)
	if log.Enabled(log.LevelDebug) {
		log.Debugf("Analysis: beat #%d t=%.3fs bpm=%.1f rms=%.3f bass=%.3f mid=%.3f high=%.3f strength=%.2f",
			p.beats, at.Seconds(), ev.BPM, ev.RMS, ev.Bass, ev.Mid, ev.High, ev.OnsetStrength)
	}
	return ev, true
}

// watchSilence reports true when this frame completed a silent stretch
// long enough to reset the pipeline. The reset fires once per stretch.
func (p *Pipeline) watchSilence(rms float64, at time.Duration) bool {
	if rms >= p.cfg.SilenceThreshold {
		p.quiet = false
		p.tripped = false
		return false
	}
	if !p.quiet {
		p.quiet = true
		p.quietSince = at
		return false
	}
	if p.tripped || at-p.quietSince <= p.cfg.SilenceReset {
		return false
	}

	p.tripped = true
	log.Infof("Analysis: %.1fs of silence, resetting tempo and spectral state", (at - p.quietSince).Seconds())
	p.resetChain()
	if p.onSilence != nil {
		p.onSilence(at)
	}
	return true
}

// Reset returns analyzer, detector, tempo estimator, emitter and the
// silence watchdog to their freshly constructed state.
func (p *Pipeline) Reset() {
	p.resetChain()
	p.quiet = false
	p.quietSince = 0
	p.tripped = false
}

func (p *Pipeline) resetChain() {
	p.analyzer.Reset()
	p.detector.Reset()
	p.tempo.Reset()
	p.emitter.Reset()
}

// BPM returns the locked tempo or 0.
func (p *Pipeline) BPM() float64 { return p.tempo.BPM() }

// Features returns the analyzer's smoothed features.
func (p *Pipeline) Features() Features { return p.analyzer.Features() }

// Stats returns the number of frames processed and beats emitted.
func (p *Pipeline) Stats() (frames, beats uint64) { return p.frames, p.beats }
