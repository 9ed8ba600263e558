// SPDX-License-Identifier: MIT
package lighting

import (
	"testing"
	"time"

	"lightdesk/internal/transport"
)

type fakeTransport struct{ sent []any }

func (f *fakeTransport) Send(data any) error {
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func TestTransportDriver(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{}
	d := NewTransportDriver("preview", ft)
	if d.Name() != "preview" {
		t.Errorf("Name() = %q", d.Name())
	}

	cmd := Command{Kind: CmdFlash, Target: TargetAll, Color: White, Flash: 70 * time.Millisecond}
	if err := d.Apply(cmd); err != nil {
		t.Fatal(err)
	}
	msg, ok := ft.sent[0].(transport.Message)
	if !ok || msg.Type != transport.TypeLighting || msg.Data != cmd {
		t.Errorf("sent %#v", ft.sent[0])
	}
}

func TestFanoutAndApply(t *testing.T) {
	t.Parallel()
	var r1, r2 Recorder
	f := Fanout{&r1, &r2}
	cmds := []Command{
		{Kind: CmdColor, Target: TargetA, Color: RGB(1, 2, 3)},
		{Kind: CmdAnimation, Target: TargetB, Mode: ModeJumpRGB, Speed: 10},
		{Kind: CmdFlash, Target: TargetAll, Color: White, Flash: time.Second},
	}
	for _, c := range cmds {
		c.Apply(f)
	}
	for i, r := range []*Recorder{&r1, &r2} {
		got := r.Take()
		if len(got) != len(cmds) {
			t.Fatalf("recorder %d: %d commands", i, len(got))
		}
		for j := range cmds {
			if got[j] != cmds[j] {
				t.Errorf("recorder %d cmd %d: %v, want %v", i, j, got[j], cmds[j])
			}
		}
		if r.Len() != 0 {
			t.Errorf("recorder %d not cleared by Take", i)
		}
	}
}
