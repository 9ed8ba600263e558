// SPDX-License-Identifier: MIT
package lighting

import (
	"fmt"
	"sync"
	"time"
)

// Target addresses one or both fixtures.
type Target uint8

const (
	TargetAll Target = iota
	TargetA
	TargetB
)

func (t Target) String() string {
	switch t {
	case TargetAll:
		return "all"
	case TargetA:
		return "A"
	case TargetB:
		return "B"
	default:
		return fmt.Sprintf("Target(%d)", uint8(t))
	}
}

// Sink receives lighting commands from the choreography engine. Calls are
// made from the analysis goroutine and must return without blocking on I/O.
type Sink interface {
	SetColor(target Target, c Color)
	SetAnimation(target Target, mode Mode, speed uint8)
	// FlashWhite sets full white on every fixture and reverts to the last
	// static colour after d unless another command supersedes the flash.
	FlashWhite(d time.Duration)
}

// CommandKind tags a Command.
type CommandKind uint8

const (
	CmdColor CommandKind = iota + 1
	CmdAnimation
	CmdFlash
	CmdPower
)

func (k CommandKind) String() string {
	switch k {
	case CmdColor:
		return "color"
	case CmdAnimation:
		return "animation"
	case CmdFlash:
		return "flash"
	case CmdPower:
		return "power"
	default:
		return fmt.Sprintf("CommandKind(%d)", uint8(k))
	}
}

// Command is one sink call captured as a value. It is what the async sink
// queues and what the preview and recorder observe.
type Command struct {
	Kind   CommandKind   `json:"kind"`
	Target Target        `json:"target"`
	Color  Color         `json:"color"`
	Mode   Mode          `json:"mode,omitempty"`
	Speed  uint8         `json:"speed,omitempty"`
	Flash  time.Duration `json:"flash,omitempty"`
	On     bool          `json:"on,omitempty"`
}

func (c Command) String() string {
	switch c.Kind {
	case CmdColor:
		return fmt.Sprintf("color %s %s", c.Target, c.Color)
	case CmdAnimation:
		return fmt.Sprintf("animation %s %s speed=%d", c.Target, c.Mode, c.Speed)
	case CmdFlash:
		return fmt.Sprintf("flash %s", c.Flash)
	case CmdPower:
		return fmt.Sprintf("power %s on=%t", c.Target, c.On)
	default:
		return c.Kind.String()
	}
}

// Apply replays c on s.
func (c Command) Apply(s Sink) {
	switch c.Kind {
	case CmdColor:
		s.SetColor(c.Target, c.Color)
	case CmdAnimation:
		s.SetAnimation(c.Target, c.Mode, c.Speed)
	case CmdFlash:
		s.FlashWhite(c.Flash)
	}
}

// Fanout forwards every call to each wrapped sink in order.
type Fanout []Sink

var _ Sink = Fanout(nil)

func (f Fanout) SetColor(target Target, c Color) {
	for _, s := range f {
		s.SetColor(target, c)
	}
}

func (f Fanout) SetAnimation(target Target, mode Mode, speed uint8) {
	for _, s := range f {
		s.SetAnimation(target, mode, speed)
	}
}

func (f Fanout) FlashWhite(d time.Duration) {
	for _, s := range f {
		s.FlashWhite(d)
	}
}

// Recorder is a synchronous Sink that keeps every call. It is safe for
// concurrent use.
type Recorder struct {
	mu   sync.Mutex
	cmds []Command
}

var _ Sink = (*Recorder)(nil)

func (r *Recorder) SetColor(target Target, c Color) {
	r.add(Command{Kind: CmdColor, Target: target, Color: c})
}

func (r *Recorder) SetAnimation(target Target, mode Mode, speed uint8) {
	r.add(Command{Kind: CmdAnimation, Target: target, Mode: mode, Speed: speed})
}

func (r *Recorder) FlashWhite(d time.Duration) {
	r.add(Command{Kind: CmdFlash, Target: TargetAll, Color: White, Flash: d})
}

func (r *Recorder) add(c Command) {
	r.mu.Lock()
	r.cmds = append(r.cmds, c)
	r.mu.Unlock()
}

// Commands returns a copy of the recorded calls.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

// Take returns the recorded calls and clears the recorder.
func (r *Recorder) Take() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.cmds
	r.cmds = nil
	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cmds)
}
