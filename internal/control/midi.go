// SPDX-License-Identifier: MIT
package control

import (
	"math"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"lightdesk/internal/choreo"
	applog "lightdesk/internal/log"
	"lightdesk/internal/session"
)

// Pad layout. Notes 36..47 are the bottom two rows of a 4x4 pad grid on
// most controllers.
const (
	NoteForceBuild   = 36
	NoteForceDrop    = 37
	NoteTierLow      = 38
	NoteTierMed      = 39
	NoteTierHigh     = 40
	NoteTierAuto     = 41
	NotePresetFirst  = 42 // Presets in choreo.Presets order.
	NotePresetOff    = 46
	NoteReset        = 47
	CCSensitivity    = 1 // Mod wheel.
	minCCSensitivity = 0.25
	maxCCSensitivity = 4.0
)

// MIDISurface maps pads and the mod wheel of a MIDI controller onto the
// session controls.
type MIDISurface struct {
	ctl session.Controls

	mu   sync.Mutex
	drv  *rtmididrv.Driver
	in   drivers.In
	stop func()
}

// NewMIDISurface returns a surface that is fed through Handle.
func NewMIDISurface(ctl session.Controls) *MIDISurface {
	return &MIDISurface{ctl: ctl}
}

// OpenMIDI connects to the first input port whose name contains port
// (case-insensitive) and starts listening.
func OpenMIDI(port string, ctl session.Controls) (*MIDISurface, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, errors.Wrap(err, "control: open MIDI driver")
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, errors.Wrap(err, "control: list MIDI inputs")
	}

	var found drivers.In
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(port)) {
			found = in
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, errors.Errorf("control: no MIDI input matching %q", port)
	}
	if err := found.Open(); err != nil {
		drv.Close()
		return nil, errors.Wrapf(err, "control: open MIDI input %q", found.String())
	}

	m := &MIDISurface{ctl: ctl, drv: drv, in: found}
	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		m.Handle(msg)
	}, midi.HandleError(func(err error) {
		applog.Warnf("MIDI: Listener error on %q: %v", found.String(), err)
	}))
	if err != nil {
		found.Close()
		drv.Close()
		return nil, errors.Wrapf(err, "control: listen on %q", found.String())
	}
	m.stop = stop
	applog.Infof("MIDI: Listening on %q", found.String())
	return m, nil
}

// MIDIInputs lists the available MIDI input port names.
func MIDIInputs() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, errors.Wrap(err, "control: open MIDI driver")
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return nil, errors.Wrap(err, "control: list MIDI inputs")
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names, nil
}

// Handle applies one MIDI message. Unmapped messages are ignored.
func (m *MIDISurface) Handle(msg midi.Message) {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		m.pad(key)
	case msg.GetControlChange(&ch, &cc, &val):
		if cc == CCSensitivity {
			if err := m.ctl.SetSensitivity(CCToSensitivity(val)); err != nil {
				applog.Warnf("MIDI: %v", err)
			}
		}
	}
}

func (m *MIDISurface) pad(key uint8) {
	presets := choreo.Presets()
	switch {
	case key == NoteForceBuild:
		m.ctl.ForceBuild()
	case key == NoteForceDrop:
		m.ctl.ForceDrop()
	case key == NoteTierLow:
		m.ctl.SetManualTier(choreo.TierLow)
	case key == NoteTierMed:
		m.ctl.SetManualTier(choreo.TierMed)
	case key == NoteTierHigh:
		m.ctl.SetManualTier(choreo.TierHigh)
	case key == NoteTierAuto:
		m.ctl.ClearManualTier()
	case key >= NotePresetFirst && int(key) < NotePresetFirst+len(presets):
		m.ctl.EnablePreset(presets[key-NotePresetFirst])
	case key == NotePresetOff:
		m.ctl.DisablePreset()
	case key == NoteReset:
		m.ctl.Reset()
	default:
		applog.Debugf("MIDI: Unmapped pad %d", key)
	}
}

// CCToSensitivity maps a 7-bit controller value onto the sensitivity range
// exponentially, so the centre position is close to 1.
func CCToSensitivity(v uint8) float64 {
	t := float64(min(v, 127)) / 127
	return minCCSensitivity * math.Pow(maxCCSensitivity/minCCSensitivity, t)
}

// Close stops listening and releases the driver.
func (m *MIDISurface) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		m.stop()
		m.stop = nil
	}
	var err error
	if m.in != nil {
		err = m.in.Close()
		m.in = nil
	}
	if m.drv != nil {
		m.drv.Close()
		m.drv = nil
	}
	return errors.Wrap(err, "control: close MIDI input")
}
