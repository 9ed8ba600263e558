// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"

	"lightdesk/internal/config"
	"lightdesk/internal/diag"
	"lightdesk/internal/lighting"
	applog "lightdesk/internal/log"
	"lightdesk/internal/transport"
	"lightdesk/internal/transport/udp"
)

// outputs holds every sink the engine drives plus the resources behind
// them, closed in reverse order of opening.
type outputs struct {
	lighting lighting.Fanout
	diag     diag.Fanout
	hub      *transport.WebSocketHub
	closers  []io.Closer
}

// openOutputs builds the lighting and diagnostic sinks enabled in cfg. The
// websocket hub is created when either the preview or the diagnostic
// stream needs it; it serves on its own listener unless the HTTP control
// API mounts it.
func openOutputs(cfg *config.Config) (_ *outputs, err error) {
	o := &outputs{}
	defer func() {
		if err != nil {
			o.Close()
		}
	}()

	if cfg.Lighting.Preview || cfg.Diagnostics.WebSocket {
		o.hub = transport.NewWebSocketHub()
		o.closers = append(o.closers, o.hub)
		if cfg.Control.HTTPAddr == "" {
			if err := o.hub.Listen(cfg.Transport.WebSocketAddr); err != nil {
				return nil, err
			}
		}
	}

	if err := o.openLighting(cfg); err != nil {
		return nil, err
	}
	if err := o.openDiagnostics(cfg); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *outputs) addDriver(d lighting.Driver) {
	s := lighting.NewAsyncSink(d, lighting.DefaultQueueSize)
	o.lighting = append(o.lighting, s)
	o.closers = append(o.closers, s)
}

func (o *outputs) openLighting(cfg *config.Config) error {
	lc := cfg.Lighting
	if lc.Serial.PortA != "" {
		d, err := lighting.OpenSerial(lc.Serial.PortA, lc.Serial.PortB, lc.Serial.Baud)
		if err != nil {
			return err
		}
		o.addDriver(d)
	}
	if lc.ArtNet.Target != "" {
		d, err := lighting.OpenArtNet(lc.ArtNet.Target, lc.ArtNet.Universe, lc.ArtNet.AddressA, lc.ArtNet.AddressB)
		if err != nil {
			return err
		}
		o.addDriver(d)
	}
	if lc.Preview && o.hub != nil {
		o.addDriver(lighting.NewTransportDriver("preview", o.hub))
	}
	if lc.DryRun || len(o.lighting) == 0 {
		if !lc.DryRun {
			applog.Warnf("Lighting: No output configured, logging commands instead")
		}
		o.addDriver(lighting.NewTransportDriver("dry-run", transport.NewLoggingTransport("lighting")))
	}
	return nil
}

func (o *outputs) openDiagnostics(cfg *config.Config) error {
	dc := cfg.Diagnostics
	if dc.CSV {
		s, err := diag.NewCSVSink(dc.CSVDir)
		if err != nil {
			return err
		}
		o.diag = append(o.diag, s)
		o.closers = append(o.closers, s)
	}
	if dc.UDPTarget != "" {
		sender, err := udp.NewUDPSender(dc.UDPTarget)
		if err != nil {
			return err
		}
		o.closers = append(o.closers, sender)
		pub, err := udp.NewPublisher(sender, udp.DefaultQueueSize)
		if err != nil {
			return err
		}
		pub.Start()
		o.diag = append(o.diag, diag.NewUDPSink(pub))
		o.closers = append(o.closers, pub)
	}
	if dc.WebSocket && o.hub != nil {
		o.diag = append(o.diag, diag.NewTransportSink(o.hub))
	}
	return nil
}

// Close releases everything in reverse order and returns the first error.
func (o *outputs) Close() error {
	var first error
	for i := len(o.closers) - 1; i >= 0; i-- {
		if err := o.closers[i].Close(); err != nil {
			applog.Warnf("Shutdown: %v", err)
			if first == nil {
				first = fmt.Errorf("close outputs: %w", err)
			}
		}
	}
	o.closers = nil
	return first
}
