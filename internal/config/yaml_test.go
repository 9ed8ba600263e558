// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Audio.QueueCapacity != DefaultQueueCapacity {
		t.Errorf("queue capacity = %d, want %d", cfg.Audio.QueueCapacity, DefaultQueueCapacity)
	}
	if cfg.Analysis.Refractory != DefaultRefractory {
		t.Errorf("refractory = %s, want %s", cfg.Analysis.Refractory, DefaultRefractory)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_FileValues(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
audio:
  sample_rate: 48000
  frames_per_buffer: 512
analysis:
  onset: flux
  refractory: 300ms
choreography:
  style: EDM
  palette: Neon
  sensitivity: 1.5
lighting:
  artnet:
    target: 10.0.0.50:6454
    address_a: 1
    address_b: 7
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.FramesPerBuffer != 512 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Analysis.Onset != "flux" || cfg.Analysis.Refractory != 300*time.Millisecond {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Choreography.Style != "EDM" || cfg.Choreography.Palette != "Neon" {
		t.Errorf("choreography = %+v", cfg.Choreography)
	}
	// Untouched sections keep their defaults.
	if cfg.Audio.QueueCapacity != DefaultQueueCapacity {
		t.Errorf("queue capacity lost default: %d", cfg.Audio.QueueCapacity)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		substr string
	}{
		{"frames not power of two", func(c *Config) { c.Audio.FramesPerBuffer = 1000 }, "frames_per_buffer"},
		{"sample rate too low", func(c *Config) { c.Audio.SampleRate = 100 }, "sample_rate"},
		{"queue capacity zero", func(c *Config) { c.Audio.QueueCapacity = 0 }, "queue_capacity"},
		{"poll timeout too long", func(c *Config) { c.Audio.PollTimeout = time.Second }, "poll_timeout"},
		{"unknown window", func(c *Config) { c.Analysis.Window = "triangle" }, "analysis.window"},
		{"unknown onset", func(c *Config) { c.Analysis.Onset = "magic" }, "analysis.onset"},
		{"unknown style", func(c *Config) { c.Choreography.Style = "Polka" }, "choreography.style"},
		{"unknown palette", func(c *Config) { c.Choreography.Palette = "Beige" }, "choreography.palette"},
		{"sensitivity", func(c *Config) { c.Choreography.Sensitivity = 0 }, "sensitivity"},
		{"colour range", func(c *Config) { c.Choreography.BaseColor = [3]int{256, 0, 0} }, "colours"},
		{"artnet address", func(c *Config) { c.Lighting.ArtNet.Target, c.Lighting.ArtNet.AddressB = "10.0.0.5", 510 }, "artnet addresses"},
		{"udp target without port", func(c *Config) { c.Diagnostics.UDPTarget = "10.0.0.5" }, "udp_target"},
		{"bit depth", func(c *Config) { c.Recording.BitDepth = 8 }, "bit_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.substr)
			}
		})
	}

	if err := NewConfig().Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENV_STYLE", "Chill")
	t.Setenv("ENV_SENSITIVITY", "2.5")
	t.Setenv("ENV_ARTNET_TARGET", "127.0.0.1:6454")
	t.Setenv("ENV_POLL_TIMEOUT", "100ms")

	path := writeTempConfig(t, "choreography:\n  style: EDM\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Choreography.Style != "Chill" {
		t.Errorf("style = %q, want env override Chill", cfg.Choreography.Style)
	}
	if cfg.Choreography.Sensitivity != 2.5 {
		t.Errorf("sensitivity = %v, want 2.5", cfg.Choreography.Sensitivity)
	}
	if cfg.Lighting.ArtNet.Target != "127.0.0.1:6454" {
		t.Errorf("artnet target = %q", cfg.Lighting.ArtNet.Target)
	}
	if cfg.Audio.PollTimeout != 100*time.Millisecond {
		t.Errorf("poll timeout = %s", cfg.Audio.PollTimeout)
	}
}

func TestSessionConfig(t *testing.T) {
	t.Parallel()
	cfg := NewConfig()
	cfg.Analysis.Onset = "flux"
	cfg.Choreography.Style = "Chill"
	cfg.Choreography.AltColor = [3]int{1, 2, 300}

	sc, err := cfg.SessionConfig(0)
	if err != nil {
		t.Fatalf("SessionConfig: %v", err)
	}
	if sc.Analysis.SampleRate != DefaultSampleRate || sc.Analysis.FrameSize != DefaultFramesPerBuffer {
		t.Errorf("analysis = %+v", sc.Analysis)
	}
	if sc.Analysis.Onset.String() != "flux" || sc.Choreo.Style.String() != "Chill" {
		t.Errorf("onset %s style %s", sc.Analysis.Onset, sc.Choreo.Style)
	}
	if c := sc.Choreo.AltColor; c.R != 1 || c.G != 2 || c.B != 255 {
		t.Errorf("alt colour %v not clamped", c)
	}
	if sc.QueueCapacity != DefaultQueueCapacity || sc.PollTimeout != DefaultPollTimeout {
		t.Errorf("queue %d poll %s", sc.QueueCapacity, sc.PollTimeout)
	}

	if sc, _ := cfg.SessionConfig(22050); sc.Analysis.SampleRate != 22050 {
		t.Errorf("replay rate ignored: %v", sc.Analysis.SampleRate)
	}

	cfg.Analysis.Window = "triangle"
	if _, err := cfg.SessionConfig(0); err == nil {
		t.Error("expected error for unknown window")
	}

	cc := cfg.CaptureConfig()
	if cc.DeviceID != DefaultDeviceID || cc.Channels != DefaultChannels {
		t.Errorf("capture = %+v", cc)
	}
}
