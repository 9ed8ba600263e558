// SPDX-License-Identifier: MIT

// Package cmd implements the lightdesk command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"lightdesk/internal/audio"
	"lightdesk/internal/build"
	"lightdesk/internal/config"
	"lightdesk/internal/control"
	"lightdesk/internal/lighting"
	applog "lightdesk/internal/log"
	"lightdesk/internal/session"
	"lightdesk/internal/transport"
	"lightdesk/internal/tui"
)

// app carries the state shared by all commands.
type app struct {
	configPath string
	logLevel   string
	debug      bool
	cfg        *config.Config
	out        io.Writer
}

// overrides are the command line values that win over the config file
// when their flag is set.
type overrides struct {
	device      int
	sampleRate  float64
	frames      int
	channels    int
	lowLatency  bool
	style       string
	palette     string
	sensitivity float64
	seed        uint64
	record      bool
	dryRun      bool
	serialA     string
	serialB     string
	artnet      string
	preview     bool
	httpAddr    string
	midiPort    string
	csv         bool
	udpTarget   string
	wsStream    bool
}

// Execute runs the command line against os.Args.
func Execute() error {
	return NewRootCommand(os.Stdout).Execute()
}

// NewRootCommand assembles the command tree.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}
	info := build.GetBuildFlags()

	root := &cobra.Command{
		Use:           "lightdesk",
		Short:         "Audio-reactive lighting choreography",
		Version:       info.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: a.loadConfig,
	}
	root.SetOut(out)
	root.SetHelpCommand(&cobra.Command{Hidden: true})

	root.PersistentFlags().StringVarP(&a.configPath, "config", "f", "",
		"Path to a YAML config file (default: ./lightdesk.yaml or ./config.yaml if present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn or error")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false,
		"Debug logging, including every detected beat")

	var o overrides
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the lights from a live audio input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.apply(cmd, &o); err != nil {
				return err
			}
			return a.runLive(cmd.Context())
		},
	}
	bindAudioFlags(runCmd, &o)
	bindEngineFlags(runCmd, &o)
	root.AddCommand(runCmd)

	var realtime bool
	replayCmd := &cobra.Command{
		Use:   "replay FILE.wav",
		Short: "Run a WAV file through the whole pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.apply(cmd, &o); err != nil {
				return err
			}
			return a.replay(cmd.Context(), args[0], realtime)
		},
	}
	replayCmd.Flags().BoolVar(&realtime, "realtime", false,
		"Pace frames at the file's sample rate instead of as fast as possible")
	replayCmd.Flags().IntVarP(&o.frames, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Samples per analysis frame")
	bindEngineFlags(replayCmd, &o)
	root.AddCommand(replayCmd)

	var pick bool
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio inputs, serial ports and MIDI inputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.devices(pick)
		},
	}
	devicesCmd.Flags().BoolVar(&pick, "pick", false, "Choose an input device interactively")
	root.AddCommand(devicesCmd)

	root.AddCommand(&cobra.Command{
		Use:   "modes",
		Short: "List the controller's built-in animation modes",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, m := range lighting.Modes() {
				fmt.Fprintf(a.out, "0x%02X  %s\n", uint8(m), m)
			}
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.out, info)
		},
	})
	return root
}

func bindAudioFlags(cmd *cobra.Command, o *overrides) {
	f := cmd.Flags()
	f.IntVarP(&o.device, "device", "d", config.DefaultDeviceID,
		"Input device ID, -1 for the system default. See 'devices'.")
	f.Float64VarP(&o.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	f.IntVarP(&o.frames, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Samples per analysis frame (power of two)")
	f.IntVarP(&o.channels, "channels", "c", config.DefaultChannels,
		"Input channels, averaged to mono")
	f.BoolVarP(&o.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use the device's low input latency")
	f.BoolVarP(&o.record, "record", "r", config.DefaultRecordInputStream,
		"Record the input to a WAV file in recording.output_dir")
}

func bindEngineFlags(cmd *cobra.Command, o *overrides) {
	f := cmd.Flags()
	f.StringVar(&o.style, "style", config.DefaultStyle, "House, EDM, Hip-Hop or Chill")
	f.StringVar(&o.palette, "palette", config.DefaultPalette, "Colour palette")
	f.Float64Var(&o.sensitivity, "sensitivity", config.DefaultSensitivity, "Energy threshold multiplier")
	f.Uint64Var(&o.seed, "seed", 0, "Effect selection seed, 0 for time based")
	f.BoolVar(&o.dryRun, "dry-run", false, "Log lighting commands instead of sending them")
	f.StringVar(&o.serialA, "serial-a", "", "Serial port of light A")
	f.StringVar(&o.serialB, "serial-b", "", "Serial port of light B")
	f.StringVar(&o.artnet, "artnet", "", "Art-Net node address (host[:port])")
	f.BoolVar(&o.preview, "preview", false, "Mirror lighting commands to websocket clients")
	f.StringVar(&o.httpAddr, "http", config.DefaultHTTPControlAddr, "Listen address of the REST control API")
	f.StringVar(&o.midiPort, "midi", "", "MIDI input port name (substring)")
	f.BoolVar(&o.csv, "csv", false, "Write per-beat diagnostics to a CSV file")
	f.StringVar(&o.udpTarget, "udp", "", "Send per-beat diagnostics as UDP packets to host:port")
	f.BoolVar(&o.wsStream, "ws", false, "Stream per-beat diagnostics to websocket clients")
}

func (a *app) loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if a.debug {
		cfg.Debug = true
	}

	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		applog.Warnf("Config: Unknown log level '%s', using INFO", cfg.LogLevel)
	}
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	a.cfg = cfg
	return nil
}

// apply copies the flags that were set on cmd into the config and
// validates the result.
func (a *app) apply(cmd *cobra.Command, o *overrides) error {
	c := a.cfg
	set := cmd.Flags().Changed
	if set("device") {
		c.Audio.InputDevice = o.device
	}
	if set("sample-rate") {
		c.Audio.SampleRate = o.sampleRate
	}
	if set("frames-per-buffer") {
		c.Audio.FramesPerBuffer = o.frames
	}
	if set("channels") {
		c.Audio.InputChannels = o.channels
	}
	if set("low-latency") {
		c.Audio.LowLatency = o.lowLatency
	}
	if set("record") {
		c.Recording.Enabled = o.record
	}
	if set("style") {
		c.Choreography.Style = o.style
	}
	if set("palette") {
		c.Choreography.Palette = o.palette
	}
	if set("sensitivity") {
		c.Choreography.Sensitivity = o.sensitivity
	}
	if set("seed") {
		c.Choreography.Seed = o.seed
	}
	if set("dry-run") {
		c.Lighting.DryRun = o.dryRun
	}
	if set("serial-a") {
		c.Lighting.Serial.PortA = o.serialA
	}
	if set("serial-b") {
		c.Lighting.Serial.PortB = o.serialB
	}
	if set("artnet") {
		c.Lighting.ArtNet.Target = o.artnet
	}
	if set("preview") {
		c.Lighting.Preview = o.preview
	}
	if set("http") {
		c.Control.HTTPAddr = o.httpAddr
	}
	if set("midi") {
		c.Control.MIDIPort = o.midiPort
	}
	if set("csv") {
		c.Diagnostics.CSV = o.csv
	}
	if set("udp") {
		c.Diagnostics.UDPTarget = o.udpTarget
	}
	if set("ws") {
		c.Diagnostics.WebSocket = o.wsStream
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (a *app) runLive(ctx context.Context) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	capture, err := audio.NewCapture(a.cfg.CaptureConfig())
	if err != nil {
		return err
	}
	if a.cfg.Recording.Enabled {
		rec, err := audio.NewRecorder(a.cfg.Recording.OutputDir, a.cfg.Audio.SampleRate,
			a.cfg.Audio.InputChannels, a.cfg.Recording.BitDepth)
		if err != nil {
			return err
		}
		capture.SetRecorder(rec)
		defer func() {
			capture.SetRecorder(nil)
			if err := rec.Close(); err != nil {
				applog.Errorf("Recorder: %v", err)
			}
			fmt.Fprintf(a.out, "\nRecording saved to: %s\n", rec.Path())
		}()
	}
	return a.serve(ctx, capture, a.cfg.Audio.SampleRate, nil)
}

func (a *app) replay(ctx context.Context, path string, realtime bool) error {
	src, err := audio.OpenWAV(path, a.cfg.Audio.FramesPerBuffer, realtime)
	if err != nil {
		return err
	}
	defer src.Stop()
	return a.serve(ctx, src, src.SampleRate(), src.Done())
}

// serve runs a session over src until interrupted or, when finished is
// non-nil, until the source is exhausted and its frames analysed.
func (a *app) serve(ctx context.Context, src audio.Source, sampleRate float64, finished <-chan struct{}) error {
	out, err := openOutputs(a.cfg)
	if err != nil {
		return err
	}
	defer out.Close()

	sc, err := a.cfg.SessionConfig(sampleRate)
	if err != nil {
		return err
	}
	sc.Choreo.Diagnostics = out.diag
	sess, err := session.New(src, out.lighting, sc)
	if err != nil {
		return err
	}

	if addr := a.cfg.Control.HTTPAddr; addr != "" {
		var ws http.Handler
		if out.hub != nil {
			ws = out.hub.Handler()
		}
		gin.SetMode(gin.ReleaseMode)
		srv := control.NewHTTPServer(sess, ws)
		if err := srv.Listen(addr); err != nil {
			return err
		}
		defer srv.Close()
	}
	if port := a.cfg.Control.MIDIPort; port != "" {
		surface, err := control.OpenMIDI(port, sess)
		if err != nil {
			return err
		}
		defer surface.Close()
	}

	if err := sess.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if out.hub != nil {
		go publishState(ctx, out.hub, sess, statePeriod)
	}
	select {
	case <-ctx.Done():
		applog.Infof("Shutdown: Signal received")
	case <-finished:
		for sess.Pending() > 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}

	if err := sess.Stop(); err != nil {
		applog.Errorf("Shutdown: %v", err)
	}
	st := sess.State()
	fmt.Fprintf(a.out, "%d frames, %d beats, %.1f BPM, last program %s/%s, %d frames dropped\n",
		st.Frames, st.Beats, st.BPM, st.Section, st.Effect, st.DroppedFrames)
	return nil
}

func (a *app) devices(pick bool) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if pick {
		sel, ok, err := tui.PickInputDevice()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		fmt.Fprintf(a.out, "Selected [%d] %s at %.0f Hz\n", sel.DeviceID, sel.DeviceName, sel.SampleRate)
		fmt.Fprintf(a.out, "Run with: lightdesk run -d %d -s %.0f\n", sel.DeviceID, sel.SampleRate)
		return nil
	}

	devices, err := audio.HostDevices()
	if err != nil {
		return err
	}
	audio.PrintDevices(a.out, devices)

	if ports, err := lighting.ListSerialPorts(); err != nil {
		applog.Warnf("Devices: %v", err)
	} else {
		fmt.Fprintf(a.out, "Serial Ports\n\n")
		for _, p := range ports {
			fmt.Fprintf(a.out, "  %s\n", p)
		}
		fmt.Fprintln(a.out)
	}

	if ins, err := control.MIDIInputs(); err != nil {
		applog.Warnf("Devices: %v", err)
	} else {
		fmt.Fprintf(a.out, "MIDI Inputs\n\n")
		for _, name := range ins {
			fmt.Fprintf(a.out, "  %s\n", name)
		}
	}
	return nil
}

const statePeriod = 250 * time.Millisecond

// publishState streams session snapshots to websocket clients until ctx is
// done. Unchanged snapshots are skipped.
func publishState(ctx context.Context, t transport.Transport, c session.Controls, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	var last session.Status
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := c.State()
			if st == last {
				continue
			}
			last = st
			if err := t.Send(transport.Message{Type: transport.TypeState, Data: st}); err != nil {
				return
			}
		}
	}
}
