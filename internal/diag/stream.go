// SPDX-License-Identifier: MIT
package diag

import (
	"lightdesk/internal/transport"
	"lightdesk/internal/transport/udp"
)

// TransportSink streams records as "beat" messages.
type TransportSink struct {
	t transport.Transport
}

var _ Sink = (*TransportSink)(nil)

func NewTransportSink(t transport.Transport) *TransportSink {
	return &TransportSink{t: t}
}

func (s *TransportSink) Record(r Record) {
	// Transports drop rather than block; errors only mean it is closed.
	_ = s.t.Send(transport.Message{Type: transport.TypeBeat, Data: r})
}

// UDPFields names the float32 values of a beat packet, in order. Tier is
// 0/1/2 for LOW/MED/HIGH; Flags packs phrase, drop, build and breakdown
// into bits 0-3.
var UDPFields = []string{
	"timestamp", "beat", "bpm", "rms", "bass", "mid", "high",
	"ema_fast", "ema_med", "ema_long", "tier", "bar_pos", "flags",
}

// Packet flag bits.
const (
	FlagPhrase = 1 << iota
	FlagDrop
	FlagBuild
	FlagBreakdown
)

// Publisher is the part of udp.Publisher a UDPSink needs.
type Publisher interface {
	Publish(values []float32)
}

var _ Publisher = (*udp.Publisher)(nil)

// UDPSink packs records into binary beat packets.
type UDPSink struct {
	pub Publisher
	buf []float32
}

var _ Sink = (*UDPSink)(nil)

func NewUDPSink(pub Publisher) *UDPSink {
	return &UDPSink{pub: pub, buf: make([]float32, 0, len(UDPFields))}
}

func (s *UDPSink) Record(r Record) {
	s.buf = AppendValues(s.buf[:0], r)
	s.pub.Publish(s.buf)
}

// AppendValues appends r in UDPFields order.
func AppendValues(dst []float32, r Record) []float32 {
	var flags int
	for bit, on := range [...]bool{r.Phrase, r.Drop, r.Build, r.Breakdown} {
		if on {
			flags |= 1 << bit
		}
	}
	return append(dst,
		float32(r.Timestamp.Seconds()),
		float32(r.Beat),
		float32(r.BPM), float32(r.RMS),
		float32(r.Bass), float32(r.Mid), float32(r.High),
		float32(r.EMAFast), float32(r.EMAMed), float32(r.EMALong),
		tierValue(r.Tier),
		float32(r.BarPos),
		float32(flags),
	)
}

func tierValue(tier string) float32 {
	switch tier {
	case "MED":
		return 1
	case "HIGH":
		return 2
	default:
		return 0
	}
}
