// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"lightdesk/internal/analysis"
	"lightdesk/internal/choreo"
	"lightdesk/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// defaultCandidates are searched in order when LoadConfig is given an empty path.
var defaultCandidates = []string{
	"lightdesk.yaml",
	"config.yaml",
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations. If no file is found, it uses built-in defaults. After
// loading defaults or from file, it applies environment variable overrides and
// validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		for _, candidate := range defaultCandidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FramesPerBuffer) || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be a power of two <= %d, got %d", MaxBufferFrames, c.Audio.FramesPerBuffer)
	}
	if c.Audio.InputChannels < 1 {
		return fmt.Errorf("audio.input_channels must be positive, got %d", c.Audio.InputChannels)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice)
	}
	if c.Audio.QueueCapacity < 1 || c.Audio.QueueCapacity > MaxQueueCapacity {
		return fmt.Errorf("audio.queue_capacity must be in [1, %d], got %d", MaxQueueCapacity, c.Audio.QueueCapacity)
	}
	if c.Audio.PollTimeout <= 0 || c.Audio.PollTimeout > DefaultPollTimeout {
		return fmt.Errorf("audio.poll_timeout must be in (0, %s], got %s", DefaultPollTimeout, c.Audio.PollTimeout)
	}

	if _, err := analysis.ParseWindowFunc(c.Analysis.Window); err != nil {
		return fmt.Errorf("analysis.window: %w", err)
	}
	if _, err := analysis.ParseOnsetMethod(c.Analysis.Onset); err != nil {
		return fmt.Errorf("analysis.onset: %w", err)
	}
	if c.Analysis.Refractory < 0 {
		return fmt.Errorf("analysis.refractory must not be negative")
	}

	if _, err := choreo.ParseStyle(c.Choreography.Style); err != nil {
		return fmt.Errorf("choreography.style: %w", err)
	}
	if _, ok := choreo.LookupPalette(c.Choreography.Palette); !ok {
		return fmt.Errorf("choreography.palette: unknown palette %q", c.Choreography.Palette)
	}
	if c.Choreography.Sensitivity < MinSensitivity || c.Choreography.Sensitivity > MaxSensitivity {
		return fmt.Errorf("choreography.sensitivity must be in [%.2f, %.2f], got %.2f",
			MinSensitivity, MaxSensitivity, c.Choreography.Sensitivity)
	}
	for _, rgb := range [][3]int{c.Choreography.BaseColor, c.Choreography.AltColor} {
		for _, v := range rgb {
			if v < 0 || v > 255 {
				return fmt.Errorf("choreography colours must be within 0..255, got %v", rgb)
			}
		}
	}

	if c.Lighting.ArtNet.Target != "" {
		for _, addr := range []int{c.Lighting.ArtNet.AddressA, c.Lighting.ArtNet.AddressB} {
			if addr < 1 || addr > 512-5 {
				return fmt.Errorf("lighting.artnet addresses must be in [1, 507], got %d", addr)
			}
		}
	}
	if c.Diagnostics.UDPTarget != "" && !strings.Contains(c.Diagnostics.UDPTarget, ":") {
		return fmt.Errorf("diagnostics.udp_target '%s' appears invalid (missing port?)", c.Diagnostics.UDPTarget)
	}
	if c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
		return fmt.Errorf("recording.bit_depth must be 16 or 24, got %d", c.Recording.BitDepth)
	}

	return nil
}

// applyEnvOverrides applies ENV_* variables on top of the file/default values.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok && val != "" {
		cfg.LogLevel = val
	}

	// ENV_STYLE, ENV_PALETTE, ENV_SENSITIVITY
	// These are specific to the choreography engine.
	if val, ok := os.LookupEnv("ENV_STYLE"); ok && val != "" {
		cfg.Choreography.Style = val
	}
	if val, ok := os.LookupEnv("ENV_PALETTE"); ok && val != "" {
		cfg.Choreography.Palette = val
	}
	if val, ok := os.LookupEnv("ENV_SENSITIVITY"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Choreography.Sensitivity = fVal
		}
	}

	// ENV_ARTNET_TARGET
	if val, ok := os.LookupEnv("ENV_ARTNET_TARGET"); ok {
		cfg.Lighting.ArtNet.Target = val
	}
	// ENV_POLL_TIMEOUT
	if val, ok := os.LookupEnv("ENV_POLL_TIMEOUT"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Audio.PollTimeout = dur
		}
	}
}
