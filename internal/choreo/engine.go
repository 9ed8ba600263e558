// SPDX-License-Identifier: MIT

// Package choreo turns beat events into lighting commands. It tracks the
// beat grid and energy at several horizons, classifies the musical section
// and runs one effect at a time from that section's catalogue.
package choreo

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"lightdesk/internal/analysis"
	"lightdesk/internal/diag"
	"lightdesk/internal/lighting"
	applog "lightdesk/internal/log"
)

// Sensitivity bounds accepted by SetSensitivity.
const (
	MinSensitivity = 0.05
	MaxSensitivity = 10.0
)

// Options configures a new Engine.
type Options struct {
	Style       Style
	Palette     string
	Sensitivity float64
	Seed        uint64 // 0 picks a time-based seed.
	BaseColor   lighting.Color
	AltColor    lighting.Color
	Calibration Calibration // Zero value selects DefaultCalibration.
	Diagnostics diag.Sink   // Optional.
}

// DefaultOptions returns House style on the ND palette.
func DefaultOptions() Options {
	return Options{
		Style:       StyleHouse,
		Palette:     DefaultPalette,
		Sensitivity: 1,
		BaseColor:   lighting.White,
		AltColor:    lighting.Color{R: 12, G: 36, B: 150},
		Calibration: DefaultCalibration(),
	}
}

// State is a read-only snapshot of the engine for control surfaces.
type State struct {
	Beat        int     `json:"beat"`
	Section     string  `json:"section"`
	Effect      string  `json:"effect"`
	Tier        string  `json:"tier"`
	ManualTier  string  `json:"manual_tier,omitempty"`
	Style       string  `json:"style"`
	Palette     string  `json:"palette"`
	Sensitivity float64 `json:"sensitivity"`
	Preset      string  `json:"preset,omitempty"`
	Cooldown    int     `json:"cooldown"`
	EMAFast     float64 `json:"ema_fast"`
	EMAMed      float64 `json:"ema_med"`
	EMALong     float64 `json:"ema_long"`
}

// Engine is the section-aware choreography state machine. It is not safe
// for concurrent use; the analysis goroutine owns it and control commands
// are marshalled onto that goroutine.
type Engine struct {
	sink  lighting.Sink
	diag  diag.Sink
	cal   Calibration
	seed  uint64
	rng   *rand.Rand
	style Style

	palette     Palette
	sensitivity float64
	base, alt   lighting.Color

	manualTier   Tier
	hasManual    bool
	preset       Preset
	presetActive bool

	// Music context, cleared by Reset.
	grid     Grid
	energy   energy
	tier     tierState
	section  Section
	dwell    int
	effect   Effect
	elapsed  int
	duration int
	index    int
	inVendor bool
	cooldown int
	flags    detections
}

var _ analysis.BeatConsumer = (*Engine)(nil)

// New builds an engine that drives sink. Unknown palettes fall back to the
// default palette and a non-positive sensitivity to 1.
func New(sink lighting.Sink, opts Options) *Engine {
	if sink == nil {
		sink = lighting.Fanout(nil)
	}
	pal, ok := LookupPalette(opts.Palette)
	if !ok {
		if opts.Palette != "" {
			applog.Warnf("Choreo: unknown palette '%s', using %s", opts.Palette, DefaultPalette)
		}
		pal, _ = LookupPalette(DefaultPalette)
	}
	if opts.Sensitivity <= 0 || math.IsNaN(opts.Sensitivity) {
		opts.Sensitivity = 1
	}
	if opts.Calibration == (Calibration{}) {
		opts.Calibration = DefaultCalibration()
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = diag.Discard
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	e := &Engine{
		sink:        sink,
		diag:        opts.Diagnostics,
		cal:         opts.Calibration,
		seed:        seed,
		style:       opts.Style,
		palette:     pal,
		sensitivity: min(MaxSensitivity, max(MinSensitivity, opts.Sensitivity)),
		base:        opts.BaseColor,
		alt:         opts.AltColor,
	}
	e.resetContext()
	applog.Debugf("Choreo: engine ready (style %s, palette %s, seed %d)", e.style, e.palette.Name, seed)
	return e
}

func (e *Engine) resetContext() {
	e.rng = rand.New(rand.NewPCG(e.seed, e.seed^0x9e3779b97f4a7c15))
	e.grid = NewGrid()
	e.energy.reset()
	e.tier = tierState{}
	e.section = Verse
	e.dwell = 0
	e.effect = ColorWash
	e.elapsed = 0
	e.duration = effectDuration(Verse, e.grid.BarLen)
	e.index = 0
	e.inVendor = false
	e.cooldown = 0
	e.flags = detections{}
}

// Reset clears the music context (grid, energy, tier, section, effect and
// cooldown) so the engine behaves exactly as freshly built. Style, palette,
// sensitivity, colours, manual tier and preset are kept.
func (e *Engine) Reset() {
	e.resetContext()
	applog.Infof("Choreo: music context reset")
}

// OnBeat advances the engine by one beat. It never fails.
func (e *Engine) OnBeat(ev analysis.BeatEvent) {
	bpm := finite(ev.BPM)
	rms := finite(ev.RMS)
	high := finite(ev.High)
	bass := finite(ev.Bass)
	onset := finite(ev.OnsetStrength)

	barPos, downbeat, phrase := e.grid.Tick()

	e.energy.update(rms, high, bass, onset)
	if e.cooldown > 0 {
		e.cooldown--
	}
	e.flags = detections{
		drop:      e.cal.detectDrop(&e.energy, e.grid.Beat),
		build:     e.cal.detectBuild(&e.energy, e.sensitivity),
		breakdown: e.cal.detectBreakdown(&e.energy, e.sensitivity),
	}
	e.updateTier()

	if e.presetActive {
		e.runPreset(bpm, downbeat)
	} else {
		e.updateSection()
		if phrase {
			e.phraseAccent()
		}
		e.execute(bpm, onset, barPos, downbeat, phrase)
	}

	e.record(ev, bpm, rms, bass, high, barPos, phrase)
}

func (e *Engine) updateTier() {
	if e.hasManual {
		e.tier.force(e.manualTier)
		return
	}
	e.tier.update(e.cal.rawTier(e.energy.fast, e.energy.med, e.sensitivity), e.cal.TierHold)
}

func (e *Engine) updateSection() {
	next := e.cal.nextSection(e.section, e.dwell, sectionInputs{
		drop:      e.flags.drop,
		build:     e.flags.build,
		cooldown:  e.cooldown,
		tier:      e.tier.tier,
		tierBeats: e.tier.beats,
		slope:     e.energy.slope(sectionSlopeLen),
	})
	if next == e.section {
		e.dwell++
		return
	}
	e.transition(next)
	if next == Drop {
		e.cooldown = e.cal.DropCooldown
	}
}

func (e *Engine) transition(s Section) {
	applog.Debugf("Choreo: beat %d %s -> %s", e.grid.Beat, e.section, s)
	e.section = s
	e.dwell = 0
	e.pickEffect(s)
}

// pickEffect draws a weighted, style-boosted effect for s, avoiding the
// current effect unless it is the only choice.
func (e *Engine) pickEffect(s Section) {
	list := catalogue[s]
	var (
		choices [maxCatalogue]Effect
		weights [maxCatalogue]float64
		n       int
		total   float64
	)
	for _, w := range list {
		if w.effect == e.effect && len(list) > 1 {
			continue
		}
		choices[n] = w.effect
		weights[n] = w.weight * e.style.boost(w.effect)
		total += weights[n]
		n++
	}

	pick := choices[n-1]
	r := e.rng.Float64() * total
	for i := range n {
		if r < weights[i] {
			pick = choices[i]
			break
		}
		r -= weights[i]
	}

	e.effect = pick
	e.elapsed = 0
	e.duration = effectDuration(s, e.grid.BarLen)
	e.index++
	e.inVendor = false
}

func (e *Engine) phraseAccent() {
	switch e.section {
	case Chorus:
		e.sink.FlashWhite(180 * time.Millisecond)
		e.index++
	case Verse:
		e.index++
	case Build:
		p := min(1.0, float64(e.elapsed)/float64(max(1, e.duration)))
		e.sink.FlashWhite(ms(80 + 120*p))
	}
}

func (e *Engine) execute(bpm, onset float64, barPos int, downbeat, phrase bool) {
	ctx := effectContext{
		beat:     e.grid.Beat,
		barPos:   barPos,
		barLen:   e.grid.BarLen,
		elapsed:  e.elapsed,
		duration: e.duration,
		downbeat: downbeat,
		phrase:   phrase,
		onset:    onset,
		bpm:      bpm,
		palette:  e.palette,
		index:    e.index,
		inVendor: e.inVendor,
	}
	res := effectTable[e.effect](&ctx, e.sink)
	if res.advance {
		e.index++
	}
	e.inVendor = res.vendor

	e.elapsed++
	if e.elapsed >= e.duration {
		e.pickEffect(e.section)
	}
}

func (e *Engine) record(ev analysis.BeatEvent, bpm, rms, bass, high float64, barPos int, phrase bool) {
	e.diag.Record(diag.Record{
		Timestamp: ev.Timestamp,
		Beat:      e.grid.Beat,
		BPM:       bpm,
		RMS:       rms,
		Bass:      bass,
		Mid:       finite(ev.Mid),
		High:      high,
		EMAFast:   e.energy.fast,
		EMAMed:    e.energy.med,
		EMALong:   e.energy.long,
		Tier:      e.tier.tier.String(),
		Program:   e.Program(),
		BarPos:    barPos,
		Phrase:    phrase,
		Drop:      e.flags.drop,
		Build:     e.flags.build,
		Breakdown: e.flags.breakdown,
	})
}

// Program is the "SECTION/EFFECT" label of the running effect.
func (e *Engine) Program() string {
	return e.section.String() + "/" + e.effect.String()
}

// Section returns the current section.
func (e *Engine) Section() Section { return e.section }

// Effect returns the running effect.
func (e *Engine) Effect() Effect { return e.effect }

// Tier returns the current (possibly manual) energy tier.
func (e *Engine) Tier() Tier { return e.tier.tier }

// Snapshot captures the engine state for display.
func (e *Engine) Snapshot() State {
	st := State{
		Beat:        e.grid.Beat,
		Section:     e.section.String(),
		Effect:      e.effect.String(),
		Tier:        e.tier.tier.String(),
		Style:       e.style.String(),
		Palette:     e.palette.Name,
		Sensitivity: e.sensitivity,
		Cooldown:    e.cooldown,
		EMAFast:     e.energy.fast,
		EMAMed:      e.energy.med,
		EMALong:     e.energy.long,
	}
	if e.hasManual {
		st.ManualTier = e.manualTier.String()
	}
	if e.presetActive {
		st.Preset = e.preset.String()
	}
	return st
}

// SetStyle changes the effect selection bias from the next draw on.
func (e *Engine) SetStyle(s Style) {
	if s >= styleCount {
		return
	}
	e.style = s
}

// SetPalette switches palette and restarts its index.
func (e *Engine) SetPalette(name string) error {
	p, ok := LookupPalette(name)
	if !ok {
		return fmt.Errorf("unknown palette: '%s'", name)
	}
	e.palette = p
	e.index = 0
	return nil
}

// SetSensitivity scales the energy floors. Larger is more sensitive.
func (e *Engine) SetSensitivity(v float64) error {
	if math.IsNaN(v) || v < MinSensitivity || v > MaxSensitivity {
		return fmt.Errorf("sensitivity %.2f outside [%.2f, %.2f]", v, MinSensitivity, MaxSensitivity)
	}
	e.sensitivity = v
	return nil
}

// SetColors sets the base and alternate colours used by presets.
func (e *Engine) SetColors(base, alt lighting.Color) {
	e.base, e.alt = base, alt
}

// SetManualTier pins the energy tier until ClearManualTier.
func (e *Engine) SetManualTier(t Tier) {
	if t > TierHigh {
		return
	}
	e.manualTier = t
	e.hasManual = true
}

// ClearManualTier returns the tier to automatic classification.
func (e *Engine) ClearManualTier() {
	e.hasManual = false
}

// EnablePreset replaces the state machine with p until DisablePreset.
func (e *Engine) EnablePreset(p Preset) {
	if _, ok := presetNames[p]; !ok {
		return
	}
	e.preset = p
	e.presetActive = true
}

// DisablePreset hands control back to the state machine.
func (e *Engine) DisablePreset() {
	e.presetActive = false
	e.preset = 0
}

// ForceBuild enters BUILD immediately.
func (e *Engine) ForceBuild() {
	e.transition(Build)
}

// ForceDrop enters DROP immediately and starts the drop cooldown.
func (e *Engine) ForceDrop() {
	e.transition(Drop)
	e.cooldown = e.cal.DropCooldown
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
