// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   LogLevel
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{" INFO ", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"Warn", LevelWarn, true},
		{"error", LevelError, true},
		{"fatal", LevelFatal, true},
		{"chatty", LevelInfo, false},
		{"", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLevel(%q) = %s, %t; want %s, %t", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
	if LogLevel(42).String() != "UNKNOWN" {
		t.Error("out of range level should be UNKNOWN")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})

	SetLevel(LevelWarn)
	Debugf("Beat: %d", 1)
	Infof("Session: %s", "started")
	Warnf("Queue: dropped %d", 3)
	if out := buf.String(); strings.Contains(out, "Beat") || strings.Contains(out, "Session") {
		t.Errorf("messages below WARN leaked:\n%s", out)
	}
	if !strings.Contains(buf.String(), "Queue: dropped 3") {
		t.Errorf("warning missing:\n%s", buf.String())
	}

	buf.Reset()
	SetLevel(LevelDebug)
	if !Enabled(LevelDebug) {
		t.Fatal("debug not enabled")
	}
	With("artnet").Debug("sent", "seq", 7)
	out := buf.String()
	if !strings.Contains(out, "component=artnet") || !strings.Contains(out, "seq=7") {
		t.Errorf("structured record missing attributes:\n%s", out)
	}
}
