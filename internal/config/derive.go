// SPDX-License-Identifier: MIT
package config

import (
	"fmt"

	"lightdesk/internal/analysis"
	"lightdesk/internal/audio"
	"lightdesk/internal/choreo"
	"lightdesk/internal/lighting"
	"lightdesk/internal/session"
)

// CaptureConfig returns the live input settings.
func (c *Config) CaptureConfig() audio.CaptureConfig {
	return audio.CaptureConfig{
		DeviceID:        c.Audio.InputDevice,
		SampleRate:      c.Audio.SampleRate,
		FramesPerBuffer: c.Audio.FramesPerBuffer,
		Channels:        c.Audio.InputChannels,
		LowLatency:      c.Audio.LowLatency,
	}
}

// SessionConfig translates the validated file settings into the runtime
// configuration. sampleRate overrides audio.sample_rate when positive, so a
// replayed file is analysed at its own rate.
func (c *Config) SessionConfig(sampleRate float64) (session.Config, error) {
	if sampleRate <= 0 {
		sampleRate = c.Audio.SampleRate
	}
	window, err := analysis.ParseWindowFunc(c.Analysis.Window)
	if err != nil {
		return session.Config{}, fmt.Errorf("analysis.window: %w", err)
	}
	onset, err := analysis.ParseOnsetMethod(c.Analysis.Onset)
	if err != nil {
		return session.Config{}, fmt.Errorf("analysis.onset: %w", err)
	}
	style, err := choreo.ParseStyle(c.Choreography.Style)
	if err != nil {
		return session.Config{}, fmt.Errorf("choreography.style: %w", err)
	}

	return session.Config{
		Analysis: analysis.PipelineConfig{
			FrameSize:        c.Audio.FramesPerBuffer,
			SampleRate:       sampleRate,
			Window:           window,
			Onset:            onset,
			Refractory:       c.Analysis.Refractory,
			SilenceThreshold: c.Analysis.SilenceThreshold,
			SilenceReset:     c.Analysis.SilenceReset,
		},
		Choreo: choreo.Options{
			Style:       style,
			Palette:     c.Choreography.Palette,
			Sensitivity: c.Choreography.Sensitivity,
			Seed:        c.Choreography.Seed,
			BaseColor:   toColor(c.Choreography.BaseColor),
			AltColor:    toColor(c.Choreography.AltColor),
		},
		QueueCapacity: c.Audio.QueueCapacity,
		PollTimeout:   c.Audio.PollTimeout,
	}, nil
}

func toColor(rgb [3]int) lighting.Color {
	clamp := func(v int) uint8 { return uint8(min(255, max(0, v))) }
	return lighting.RGB(clamp(rgb[0]), clamp(rgb[1]), clamp(rgb[2]))
}
