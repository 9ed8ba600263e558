// SPDX-License-Identifier: MIT

// Package diag carries the per-beat diagnostic record out of the engine.
// Sinks are passive: a failing sink never affects beat processing.
package diag

import (
	"strconv"
	"sync"
	"time"
)

// Record is one processed beat as seen by the choreography engine.
type Record struct {
	Timestamp time.Duration `json:"timestamp"` // Stream time of the beat.
	Beat      int           `json:"beat"`
	BPM       float64       `json:"bpm"`
	RMS       float64       `json:"rms"`
	Bass      float64       `json:"bass"`
	Mid       float64       `json:"mid"`
	High      float64       `json:"high"`
	EMAFast   float64       `json:"ema_fast"`
	EMAMed    float64       `json:"ema_med"`
	EMALong   float64       `json:"ema_long"`
	Tier      string        `json:"energy_tier"`
	Program   string        `json:"program"` // SECTION/EFFECT
	BarPos    int           `json:"bar_pos"`
	Phrase    bool          `json:"phrase_boundary"`
	Drop      bool          `json:"drop_detected"`
	Build     bool          `json:"build_detected"`
	Breakdown bool          `json:"breakdown_detected"`
}

// Header is the CSV column order written by CSVSink.
var Header = []string{
	"timestamp", "beat_num", "bpm", "rms", "bass", "mid", "high",
	"ema_fast", "ema_med", "ema_long", "energy_tier", "program",
	"bar_pos", "phrase_boundary", "drop_detected", "build_detected", "breakdown_detected",
}

// AppendFields appends the record's CSV fields to dst in Header order.
func (r Record) AppendFields(dst []string) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	return append(dst,
		f(r.Timestamp.Seconds()),
		strconv.Itoa(r.Beat),
		f(r.BPM), f(r.RMS), f(r.Bass), f(r.Mid), f(r.High),
		f(r.EMAFast), f(r.EMAMed), f(r.EMALong),
		r.Tier, r.Program,
		strconv.Itoa(r.BarPos),
		strconv.FormatBool(r.Phrase),
		strconv.FormatBool(r.Drop),
		strconv.FormatBool(r.Build),
		strconv.FormatBool(r.Breakdown),
	)
}

// Sink receives one Record per processed beat. Record must not block and
// must swallow its own failures.
type Sink interface {
	Record(r Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Record)

func (f SinkFunc) Record(r Record) { f(r) }

// Fanout forwards each record to every sink in order.
type Fanout []Sink

var _ Sink = Fanout(nil)

func (f Fanout) Record(r Record) {
	for _, s := range f {
		s.Record(r)
	}
}

// Discard drops every record.
var Discard Sink = SinkFunc(func(Record) {})

// Memory keeps records in memory. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	records []Record
}

var _ Sink = (*Memory)(nil)

func (m *Memory) Record(r Record) {
	m.mu.Lock()
	m.records = append(m.records, r)
	m.mu.Unlock()
}

// Records returns a copy of everything recorded so far.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}
