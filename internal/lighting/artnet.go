// SPDX-License-Identifier: MIT
package lighting

import (
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	applog "lightdesk/internal/log"
	"lightdesk/internal/transport/udp"
)

// Art-Net constants for ArtDMX output.
const (
	ArtNetPort      = 6454
	UniverseSize    = 512
	artDMXHeaderLen = 18
	artNetVersion   = 14
	opArtDMX        = 0x5000
)

// Channel layout of one fixture, relative to its start address.
const (
	chRed = iota
	chGreen
	chBlue
	chProgram // Built-in animation; 0 = static colour.
	chSpeed
	chDimmer
	FixtureChannels
)

// ArtNetDriver renders commands into a DMX universe holding two six-channel
// fixtures and sends the whole universe as an ArtDMX packet after each one.
type ArtNetDriver struct {
	sender   udp.PacketSender
	universe uint16
	addrA    int // Zero-based channel offsets.
	addrB    int
	dmx      [UniverseSize]byte
	seq      uint8
	packet   []byte
	closer   func() error
}

var _ Driver = (*ArtNetDriver)(nil)

// OpenArtNet dials target ("host" or "host:port") and returns a driver for
// fixtures at the 1-based DMX addresses a and b.
func OpenArtNet(target string, universe, a, b int) (*ArtNetDriver, error) {
	s, err := udp.NewUDPSender(withDefaultPort(target))
	if err != nil {
		return nil, errors.Wrap(err, "lighting: art-net")
	}
	d, err := NewArtNetDriver(s, universe, a, b)
	if err != nil {
		s.Close()
		return nil, err
	}
	d.closer = s.Close
	applog.Infof("Lighting: Art-Net to %s universe %d (A@%d, B@%d)", s.Target(), universe, a, b)
	return d, nil
}

func withDefaultPort(target string) string {
	if _, _, err := net.SplitHostPort(target); err == nil {
		return target
	}
	return net.JoinHostPort(strings.Trim(target, "[]"), strconv.Itoa(ArtNetPort))
}

// NewArtNetDriver validates the addressing and wraps sender.
func NewArtNetDriver(sender udp.PacketSender, universe, a, b int) (*ArtNetDriver, error) {
	if universe < 0 || universe > 0x7FFF {
		return nil, errors.Errorf("lighting: art-net universe %d out of range", universe)
	}
	for _, addr := range []int{a, b} {
		if addr < 1 || addr+FixtureChannels-1 > UniverseSize {
			return nil, errors.Errorf("lighting: DMX address %d does not fit a %d-channel fixture", addr, FixtureChannels)
		}
	}
	if a < b+FixtureChannels && b < a+FixtureChannels {
		return nil, errors.Errorf("lighting: fixtures at %d and %d overlap", a, b)
	}
	return &ArtNetDriver{
		sender:   sender,
		universe: uint16(universe),
		addrA:    a - 1,
		addrB:    b - 1,
		seq:      1,
		packet:   make([]byte, 0, artDMXHeaderLen+UniverseSize),
	}, nil
}

func (d *ArtNetDriver) Name() string { return "artnet" }

// Apply updates the fixture channels cmd addresses and sends the universe.
func (d *ArtNetDriver) Apply(cmd Command) error {
	switch cmd.Target {
	case TargetA:
		if err := d.render(d.addrA, cmd); err != nil {
			return err
		}
	case TargetB:
		if err := d.render(d.addrB, cmd); err != nil {
			return err
		}
	default:
		if err := d.render(d.addrA, cmd); err != nil {
			return err
		}
		d.render(d.addrB, cmd)
	}
	return d.flush()
}

func (d *ArtNetDriver) render(base int, cmd Command) error {
	ch := d.dmx[base : base+FixtureChannels]
	switch cmd.Kind {
	case CmdColor:
		ch[chRed], ch[chGreen], ch[chBlue] = cmd.Color.R, cmd.Color.G, cmd.Color.B
		ch[chProgram], ch[chSpeed], ch[chDimmer] = 0, 0, 255
	case CmdFlash:
		ch[chRed], ch[chGreen], ch[chBlue] = 255, 255, 255
		ch[chProgram], ch[chSpeed], ch[chDimmer] = 0, 0, 255
	case CmdAnimation:
		if !cmd.Mode.Valid() {
			return errors.Errorf("lighting: animation id 0x%02X out of range", uint8(cmd.Mode))
		}
		ch[chProgram], ch[chSpeed], ch[chDimmer] = byte(cmd.Mode), cmd.Speed, 255
	case CmdPower:
		if cmd.On {
			ch[chDimmer] = 255
		} else {
			ch[chDimmer] = 0
		}
	default:
		return errors.Errorf("lighting: cannot render %s", cmd.Kind)
	}
	return nil
}

// Universe returns a copy of the current DMX channel values.
func (d *ArtNetDriver) Universe() [UniverseSize]byte { return d.dmx }

func (d *ArtNetDriver) flush() error {
	d.packet = AppendArtDMX(d.packet[:0], d.seq, d.universe, d.dmx[:])
	// Sequence 0 means "not sequenced" to receivers.
	d.seq++
	if d.seq == 0 {
		d.seq = 1
	}
	return d.sender.Send(d.packet)
}

// AppendArtDMX appends an ArtDMX packet carrying data for universe.
func AppendArtDMX(dst []byte, seq uint8, universe uint16, data []byte) []byte {
	dst = append(dst, "Art-Net\x00"...)
	dst = append(dst,
		byte(opArtDMX&0xFF), byte(opArtDMX>>8), // OpCode, little endian
		0, artNetVersion,
		seq, 0,
		byte(universe&0xFF), byte((universe>>8)&0x7F),
		byte(len(data)>>8), byte(len(data)),
	)
	return append(dst, data...)
}

func (d *ArtNetDriver) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}
