// SPDX-License-Identifier: MIT
package lighting

import (
	"io"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	applog "lightdesk/internal/log"
)

// SerialDriver writes vendor frames to one serial link per fixture, for
// controllers bridged from BLE to a UART. Port B is optional; without it B
// commands are discarded and TargetAll reaches A only.
type SerialDriver struct {
	a, b io.WriteCloser
	buf  []byte
}

var _ Driver = (*SerialDriver)(nil)

// OpenSerial opens portA and, if named, portB at baud.
func OpenSerial(portA, portB string, baud int) (*SerialDriver, error) {
	if portA == "" {
		return nil, errors.New("lighting: serial port A not configured")
	}
	mode := &serial.Mode{BaudRate: baud}
	a, err := serial.Open(portA, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "lighting: open serial port %s", portA)
	}
	var b io.WriteCloser
	if portB != "" {
		pb, err := serial.Open(portB, mode)
		if err != nil {
			a.Close()
			return nil, errors.Wrapf(err, "lighting: open serial port %s", portB)
		}
		b = pb
	}
	applog.Infof("Lighting: Serial A=%s B=%s at %d baud", portA, portB, baud)
	return NewSerialDriver(a, b), nil
}

// NewSerialDriver wraps already open links. b may be nil.
func NewSerialDriver(a, b io.WriteCloser) *SerialDriver {
	return &SerialDriver{a: a, b: b, buf: make([]byte, 0, ColorFrameLen)}
}

// ListSerialPorts returns the serial devices the OS reports.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "lighting: list serial ports")
	}
	return ports, nil
}

func (d *SerialDriver) Name() string { return "serial" }

func (d *SerialDriver) Apply(cmd Command) error {
	frame, err := EncodeCommand(d.buf[:0], cmd)
	if err != nil {
		return err
	}
	d.buf = frame
	switch cmd.Target {
	case TargetA:
		return write(d.a, "A", frame)
	case TargetB:
		if d.b == nil {
			return nil
		}
		return write(d.b, "B", frame)
	default:
		errA := write(d.a, "A", frame)
		if d.b == nil {
			return errA
		}
		if errB := write(d.b, "B", frame); errA == nil {
			return errB
		}
		return errA
	}
}

func write(w io.Writer, side string, frame []byte) error {
	if _, err := w.Write(frame); err != nil {
		return errors.Wrapf(err, "lighting: write to fixture %s", side)
	}
	return nil
}

func (d *SerialDriver) Close() error {
	err := d.a.Close()
	if d.b != nil {
		if errB := d.b.Close(); err == nil {
			err = errB
		}
	}
	return errors.Wrap(err, "lighting: close serial")
}
