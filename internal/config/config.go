// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the lighting engine.
const (
	// Audio capture defaults
	DefaultDeviceID        = MinDeviceID // System default input device
	DefaultChannels        = 1           // Mono capture
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 1024        // ~23ms hop at 44.1kHz
	DefaultLowLatency      = false       // Standard latency mode
	DefaultQueueCapacity   = 8           // Frames buffered between capture and analysis
	DefaultPollTimeout     = 250 * time.Millisecond

	// Analysis defaults
	DefaultWindow           = "Hann"
	DefaultOnsetMethod      = "auto"
	DefaultRefractory       = 250 * time.Millisecond
	DefaultSilenceThreshold = 0.02
	DefaultSilenceReset     = 1600 * time.Millisecond

	// Choreography defaults
	DefaultStyle       = "House"
	DefaultPalette     = "ND"
	DefaultSensitivity = 1.0

	// Lighting / transport defaults
	DefaultSerialBaud      = 9600
	DefaultArtNetUniverse  = 0
	DefaultArtNetAddressA  = 1
	DefaultArtNetAddressB  = 9
	DefaultWebSocketAddr   = ":8080"
	DefaultHTTPControlAddr = ""

	// Recording defaults
	DefaultRecordInputStream = false
	DefaultOutputDir         = "./recordings"
	DefaultBitDepth          = 16

	// Hardware and processing limits
	MinDeviceID      = -1     // -1 represents system default device
	MinSampleRate    = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate    = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames  = 8192   // Maximum frames per buffer (power of 2)
	MaxSensitivity   = 4.0
	MinSensitivity   = 0.25
	MaxQueueCapacity = 256
)

// Config represents the main application configuration structure, loaded from YAML
// and then overridden by environment variables and command line flags.
type Config struct {
	Debug    bool   `yaml:"debug"`     // Enable debug mode (verbose logging).
	LogLevel string `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").

	Audio        AudioConfig        `yaml:"audio"`
	Analysis     AnalysisConfig     `yaml:"analysis"`
	Choreography ChoreographyConfig `yaml:"choreography"`
	Lighting     LightingConfig     `yaml:"lighting"`
	Diagnostics  DiagnosticsConfig  `yaml:"diagnostics"`
	Control      ControlConfig      `yaml:"control"`
	Recording    RecordingConfig    `yaml:"recording"`
	Transport    TransportConfig    `yaml:"transport"`
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	InputDevice     int           `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	SampleRate      float64       `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int           `yaml:"frames_per_buffer"` // Frames per analysis hop (power of two).
	InputChannels   int           `yaml:"input_channels"`    // Channels captured before mono downmix.
	LowLatency      bool          `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	QueueCapacity   int           `yaml:"queue_capacity"`    // Bounded queue size between capture and analysis.
	PollTimeout     time.Duration `yaml:"poll_timeout"`      // Analysis loop queue poll timeout.
}

// AnalysisConfig tunes the beat detection pipeline.
type AnalysisConfig struct {
	Window           string        `yaml:"window"`            // FFT window function name.
	Onset            string        `yaml:"onset"`             // Onset strategy: auto, hfc or flux.
	Refractory       time.Duration `yaml:"refractory"`        // Minimum spacing between accepted beats.
	SilenceThreshold float64       `yaml:"silence_threshold"` // RMS below which the input counts as silent.
	SilenceReset     time.Duration `yaml:"silence_reset"`     // Silence duration treated as a track boundary.
}

// ChoreographyConfig holds the initial engine settings.
type ChoreographyConfig struct {
	Style       string  `yaml:"style"`       // House, EDM, Hip-Hop or Chill.
	Palette     string  `yaml:"palette"`     // Palette name.
	Sensitivity float64 `yaml:"sensitivity"` // Energy threshold multiplier.
	Seed        uint64  `yaml:"seed"`        // Effect selection seed (0 = time based).
	BaseColor   [3]int  `yaml:"base_color"`  // Preset base colour.
	AltColor    [3]int  `yaml:"alt_color"`   // Preset alternate colour.
}

// LightingConfig selects the lighting transports. Any combination may be enabled.
type LightingConfig struct {
	DryRun bool         `yaml:"dry_run"` // Log lighting commands instead of sending them.
	Serial SerialConfig `yaml:"serial"`
	ArtNet ArtNetConfig `yaml:"artnet"`
	// Preview mirrors lighting commands to websocket clients.
	Preview bool `yaml:"preview"`
}

// SerialConfig addresses LED controllers attached over a serial bridge.
type SerialConfig struct {
	PortA string `yaml:"port_a"` // Serial device for light A (empty = disabled).
	PortB string `yaml:"port_b"` // Serial device for light B (empty = A only).
	Baud  int    `yaml:"baud"`
}

// ArtNetConfig addresses two RGB fixtures on one DMX universe.
type ArtNetConfig struct {
	Target   string `yaml:"target"`    // host:port of the Art-Net node (empty = disabled).
	Universe int    `yaml:"universe"`  // DMX universe.
	AddressA int    `yaml:"address_a"` // 1-based DMX start address of fixture A.
	AddressB int    `yaml:"address_b"` // 1-based DMX start address of fixture B.
}

// DiagnosticsConfig controls the per-beat diagnostic record outputs.
type DiagnosticsConfig struct {
	CSV       bool   `yaml:"csv"`        // Write a timestamped CSV file.
	CSVDir    string `yaml:"csv_dir"`    // Directory for CSV files (empty = home directory).
	UDPTarget string `yaml:"udp_target"` // host:port for binary beat packets (empty = disabled).
	WebSocket bool   `yaml:"websocket"`  // Stream records to websocket clients.
}

// ControlConfig enables the remote control surfaces.
type ControlConfig struct {
	HTTPAddr string `yaml:"http_addr"` // Listen address for the REST control API (empty = disabled).
	MIDIPort string `yaml:"midi_port"` // Substring of the MIDI input port name (empty = disabled).
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record the captured input to a WAV file.
	OutputDir string `yaml:"output_dir"` // Directory to save recorded audio files.
	BitDepth  int    `yaml:"bit_depth"`  // Bit depth for recorded audio (16 or 24).
}

// TransportConfig holds settings shared by the network transports.
type TransportConfig struct {
	WebSocketAddr string `yaml:"websocket_addr"` // Listen address for the websocket hub.
}

// NewConfig creates a new Config instance with default values.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultChannels,
			LowLatency:      DefaultLowLatency,
			QueueCapacity:   DefaultQueueCapacity,
			PollTimeout:     DefaultPollTimeout,
		},
		Analysis: AnalysisConfig{
			Window:           DefaultWindow,
			Onset:            DefaultOnsetMethod,
			Refractory:       DefaultRefractory,
			SilenceThreshold: DefaultSilenceThreshold,
			SilenceReset:     DefaultSilenceReset,
		},
		Choreography: ChoreographyConfig{
			Style:       DefaultStyle,
			Palette:     DefaultPalette,
			Sensitivity: DefaultSensitivity,
			BaseColor:   [3]int{255, 255, 255},
			AltColor:    [3]int{12, 36, 150},
		},
		Lighting: LightingConfig{
			Serial: SerialConfig{Baud: DefaultSerialBaud},
			ArtNet: ArtNetConfig{
				Universe: DefaultArtNetUniverse,
				AddressA: DefaultArtNetAddressA,
				AddressB: DefaultArtNetAddressB,
			},
		},
		Control: ControlConfig{HTTPAddr: DefaultHTTPControlAddr},
		Recording: RecordingConfig{
			Enabled:   DefaultRecordInputStream,
			OutputDir: DefaultOutputDir,
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{WebSocketAddr: DefaultWebSocketAddr},
	}
}
