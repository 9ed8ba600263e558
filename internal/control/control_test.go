// SPDX-License-Identifier: MIT
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"gitlab.com/gomidi/midi/v2"

	"lightdesk/internal/choreo"
	"lightdesk/internal/lighting"
	"lightdesk/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeControls records every call as a short string.
type fakeControls struct {
	mu       sync.Mutex
	calls    []string
	startErr error
}

var _ session.Controls = (*fakeControls)(nil)

func (f *fakeControls) log(format string, args ...any) {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

func (f *fakeControls) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeControls) Start() error {
	f.log("start")
	return f.startErr
}
func (f *fakeControls) Stop() error                 { f.log("stop"); return nil }
func (f *fakeControls) SetStyle(s choreo.Style)     { f.log("style %s", s) }
func (f *fakeControls) ForceBuild()                 { f.log("build") }
func (f *fakeControls) ForceDrop()                  { f.log("drop") }
func (f *fakeControls) SetManualTier(t choreo.Tier) { f.log("tier %s", t) }
func (f *fakeControls) ClearManualTier()            { f.log("tier auto") }
func (f *fakeControls) EnablePreset(p choreo.Preset) {
	f.log("preset %s", p)
}
func (f *fakeControls) DisablePreset() { f.log("preset off") }
func (f *fakeControls) Reset()         { f.log("reset") }
func (f *fakeControls) SetColors(base, alt lighting.Color) {
	f.log("colors %s %s", base, alt)
}

func (f *fakeControls) SetPalette(name string) error {
	if _, ok := choreo.LookupPalette(name); !ok {
		return errors.New("unknown palette")
	}
	f.log("palette %s", name)
	return nil
}

func (f *fakeControls) SetSensitivity(v float64) error {
	if v <= 0 {
		return errors.New("bad sensitivity")
	}
	f.log("sensitivity %.2f", v)
	return nil
}

func (f *fakeControls) State() session.Status {
	return session.Status{State: choreo.State{Beat: 7, Section: "CHORUS"}, Running: true, BPM: 124}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHTTPCommands(t *testing.T) {
	t.Parallel()
	tests := []struct {
		method, path, body string
		wantCode           int
		wantCall           string
	}{
		{"POST", "/api/force/build", "", http.StatusAccepted, "build"},
		{"POST", "/api/force/drop", "", http.StatusAccepted, "drop"},
		{"POST", "/api/reset", "", http.StatusAccepted, "reset"},
		{"PUT", "/api/style", `{"style":"hip hop"}`, http.StatusAccepted, "style Hip-Hop"},
		{"PUT", "/api/style", `{"style":"polka"}`, http.StatusBadRequest, ""},
		{"PUT", "/api/style", `{}`, http.StatusBadRequest, ""},
		{"PUT", "/api/palette", `{"palette":"fire"}`, http.StatusAccepted, "palette fire"},
		{"PUT", "/api/palette", `{"palette":"sepia"}`, http.StatusBadRequest, ""},
		{"PUT", "/api/sensitivity", `{"sensitivity":1.5}`, http.StatusAccepted, "sensitivity 1.50"},
		{"PUT", "/api/sensitivity", `{"sensitivity":0}`, http.StatusBadRequest, ""},
		{"PUT", "/api/sensitivity", `{}`, http.StatusBadRequest, ""},
		{"PUT", "/api/tier", `{"tier":"high"}`, http.StatusAccepted, "tier HIGH"},
		{"PUT", "/api/tier", `{"tier":"loud"}`, http.StatusBadRequest, ""},
		{"DELETE", "/api/tier", "", http.StatusAccepted, "tier auto"},
		{"PUT", "/api/preset", `{"preset":"white-flash"}`, http.StatusAccepted, "preset Beat: White Flash"},
		{"DELETE", "/api/preset", "", http.StatusAccepted, "preset off"},
		{"PUT", "/api/colors", `{"base":{"r":255,"g":0,"b":0},"alt":{"r":0,"g":0,"b":255}}`, http.StatusAccepted, "colors #ff0000 #0000ff"},
		{"PUT", "/api/colors", `{"base":{"r":300,"g":0,"b":0},"alt":{"r":0,"g":0,"b":0}}`, http.StatusBadRequest, ""},
		{"PUT", "/api/colors", `not json`, http.StatusBadRequest, ""},
		{"POST", "/api/stop", "", http.StatusOK, "stop"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path+" "+tt.body, func(t *testing.T) {
			t.Parallel()
			ctl := &fakeControls{}
			w := do(t, NewHTTPServer(ctl, nil).Handler(), tt.method, tt.path, tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status %d, want %d: %s", w.Code, tt.wantCode, w.Body)
			}
			calls := ctl.Calls()
			if tt.wantCall == "" {
				if len(calls) != 0 {
					t.Errorf("unexpected calls %v", calls)
				}
				return
			}
			if len(calls) != 1 || calls[0] != tt.wantCall {
				t.Errorf("calls %v, want [%s]", calls, tt.wantCall)
			}
		})
	}
}

func TestHTTPState(t *testing.T) {
	t.Parallel()
	w := do(t, NewHTTPServer(&fakeControls{}, nil).Handler(), "GET", "/api/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["beat"] != 7.0 || got["section"] != "CHORUS" || got["running"] != true || got["bpm"] != 124.0 {
		t.Errorf("state = %v", got)
	}
}

func TestHTTPStart(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"already running", session.ErrRunning, http.StatusOK},
		{"device failure", errors.New("no device"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		ctl := &fakeControls{startErr: tt.err}
		if w := do(t, NewHTTPServer(ctl, nil).Handler(), "POST", "/api/start", ""); w.Code != tt.want {
			t.Errorf("%s: status %d, want %d", tt.name, w.Code, tt.want)
		}
	}
}

func TestHTTPLists(t *testing.T) {
	t.Parallel()
	h := NewHTTPServer(&fakeControls{}, nil).Handler()
	for path, want := range map[string]int{
		"/api/styles":   4,
		"/api/palettes": 7,
		"/api/presets":  4,
		"/api/modes":    len(lighting.Modes()),
	} {
		w := do(t, h, "GET", path, "")
		var items []any
		if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil || len(items) != want {
			t.Errorf("%s: %d items (%v), want %d", path, len(items), err, want)
		}
	}
}

func TestHTTPWebSocketMount(t *testing.T) {
	t.Parallel()
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	if w := do(t, NewHTTPServer(&fakeControls{}, ws).Handler(), "GET", "/ws", ""); w.Code != http.StatusTeapot {
		t.Errorf("/ws status %d", w.Code)
	}
	if w := do(t, NewHTTPServer(&fakeControls{}, nil).Handler(), "GET", "/ws", ""); w.Code != http.StatusNotFound {
		t.Errorf("/ws without hub status %d", w.Code)
	}
}

func TestHTTPListen(t *testing.T) {
	t.Parallel()
	h := NewHTTPServer(&fakeControls{}, nil)
	if err := h.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := NewHTTPServer(&fakeControls{}, nil).Listen("256.0.0.1:1"); err == nil {
		t.Error("expected listen error")
	}
}

func TestMIDIPads(t *testing.T) {
	t.Parallel()
	tests := []struct {
		msg  midi.Message
		want []string
	}{
		{midi.NoteOn(0, NoteForceBuild, 100), []string{"build"}},
		{midi.NoteOn(9, NoteForceDrop, 1), []string{"drop"}},
		{midi.NoteOn(0, NoteTierLow, 90), []string{"tier LOW"}},
		{midi.NoteOn(0, NoteTierMed, 90), []string{"tier MED"}},
		{midi.NoteOn(0, NoteTierHigh, 90), []string{"tier HIGH"}},
		{midi.NoteOn(0, NoteTierAuto, 90), []string{"tier auto"}},
		{midi.NoteOn(0, NotePresetFirst, 90), []string{"preset Beat: White Flash"}},
		{midi.NoteOn(0, NotePresetFirst+3, 90), []string{"preset Beat: Downbeat Rainbow"}},
		{midi.NoteOn(0, NotePresetOff, 90), []string{"preset off"}},
		{midi.NoteOn(0, NoteReset, 90), []string{"reset"}},
		{midi.NoteOn(0, NoteForceBuild, 0), nil}, // Velocity 0 is a note off.
		{midi.NoteOff(0, NoteForceBuild), nil},
		{midi.NoteOn(0, 60, 90), nil},
		{midi.ControlChange(0, 7, 64), nil},
		{midi.ControlChange(0, CCSensitivity, 127), []string{"sensitivity 4.00"}},
	}
	for _, tt := range tests {
		ctl := &fakeControls{}
		NewMIDISurface(ctl).Handle(tt.msg)
		if got := ctl.Calls(); !slices.Equal(got, tt.want) {
			t.Errorf("%s: calls %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestCCToSensitivity(t *testing.T) {
	t.Parallel()
	tests := map[uint8]float64{0: 0.25, 127: 4, 255: 4}
	for v, want := range tests {
		if got := CCToSensitivity(v); math.Abs(got-want) > 1e-9 {
			t.Errorf("CCToSensitivity(%d) = %v, want %v", v, got, want)
		}
	}
	if mid := CCToSensitivity(64); math.Abs(mid-1) > 0.05 {
		t.Errorf("CCToSensitivity(64) = %v, want about 1", mid)
	}
}

func TestMIDISurfaceCloseWithoutDevice(t *testing.T) {
	t.Parallel()
	if err := NewMIDISurface(&fakeControls{}).Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
