// SPDX-License-Identifier: MIT
package lighting

import (
	"github.com/pkg/errors"
)

// Vendor controller frame bytes (FFE9 / 56-AA family).
//
//	colour:    56 R G B W F0 AA
//	animation: BB <mode> <speed> 44
//	power:     CC 23|24 33
const (
	colorHeader  = 0x56
	colorMarker  = 0xF0
	colorTrailer = 0xAA
	modeHeader   = 0xBB
	modeTrailer  = 0x44
	powerHeader  = 0xCC
	powerOn      = 0x23
	powerOff     = 0x24
	powerTrailer = 0x33

	ColorFrameLen = 7
	ModeFrameLen  = 4
	PowerFrameLen = 3
)

// ErrBadFrame is returned by DecodeFrame for bytes that are not a vendor frame.
var ErrBadFrame = errors.New("lighting: malformed vendor frame")

// AppendColorFrame appends a static colour frame. The warm-white channel is
// always zero.
func AppendColorFrame(dst []byte, c Color) []byte {
	return append(dst, colorHeader, c.R, c.G, c.B, 0x00, colorMarker, colorTrailer)
}

// AppendModeFrame appends an animation frame. Smaller speed is faster.
func AppendModeFrame(dst []byte, m Mode, speed uint8) []byte {
	return append(dst, modeHeader, byte(m), speed, modeTrailer)
}

// AppendPowerFrame appends a power on/off frame.
func AppendPowerFrame(dst []byte, on bool) []byte {
	state := byte(powerOff)
	if on {
		state = powerOn
	}
	return append(dst, powerHeader, state, powerTrailer)
}

// EncodeCommand renders cmd as the frame a controller understands. A flash
// is encoded as a white colour frame; the revert is a separate command.
func EncodeCommand(dst []byte, cmd Command) ([]byte, error) {
	switch cmd.Kind {
	case CmdColor:
		return AppendColorFrame(dst, cmd.Color), nil
	case CmdFlash:
		return AppendColorFrame(dst, White), nil
	case CmdAnimation:
		if !cmd.Mode.Valid() {
			return dst, errors.Errorf("lighting: animation id 0x%02X out of range", uint8(cmd.Mode))
		}
		return AppendModeFrame(dst, cmd.Mode, cmd.Speed), nil
	case CmdPower:
		return AppendPowerFrame(dst, cmd.On), nil
	default:
		return dst, errors.Errorf("lighting: cannot encode %s", cmd.Kind)
	}
}

// DecodeFrame parses one vendor frame from the start of b and reports how
// many bytes it used. The returned command targets TargetAll.
func DecodeFrame(b []byte) (Command, int, error) {
	if len(b) == 0 {
		return Command{}, 0, ErrBadFrame
	}
	switch b[0] {
	case colorHeader:
		if len(b) < ColorFrameLen || b[5] != colorMarker || b[6] != colorTrailer {
			return Command{}, 0, errors.Wrap(ErrBadFrame, "colour")
		}
		return Command{Kind: CmdColor, Color: Color{b[1], b[2], b[3]}}, ColorFrameLen, nil
	case modeHeader:
		if len(b) < ModeFrameLen || b[3] != modeTrailer {
			return Command{}, 0, errors.Wrap(ErrBadFrame, "animation")
		}
		return Command{Kind: CmdAnimation, Mode: Mode(b[1]), Speed: b[2]}, ModeFrameLen, nil
	case powerHeader:
		if len(b) < PowerFrameLen || b[2] != powerTrailer || (b[1] != powerOn && b[1] != powerOff) {
			return Command{}, 0, errors.Wrap(ErrBadFrame, "power")
		}
		return Command{Kind: CmdPower, On: b[1] == powerOn}, PowerFrameLen, nil
	default:
		return Command{}, 0, errors.Wrapf(ErrBadFrame, "unknown header 0x%02X", b[0])
	}
}
