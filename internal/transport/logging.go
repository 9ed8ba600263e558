// SPDX-License-Identifier: MIT
package transport

import (
	"log/slog"
	"sync/atomic"

	applog "lightdesk/internal/log"
)

// LoggingTransport writes every message to the application log. It backs
// dry-run mode, where no hardware is attached.
type LoggingTransport struct {
	log  *slog.Logger
	sent atomic.Uint64
}

// NewLoggingTransport returns a transport tagged with component.
func NewLoggingTransport(component string) *LoggingTransport {
	applog.Infof("Transport: %s using LoggingTransport", component)
	return &LoggingTransport{log: applog.With(component)}
}

// Send logs data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	if m, ok := data.(Message); ok {
		lt.log.Info(m.Type, "n", n, "data", m.Data)
		return nil
	}
	lt.log.Info("send", "n", n, "data", data)
	return nil
}

// Sent returns how many messages have been logged.
func (lt *LoggingTransport) Sent() uint64 { return lt.sent.Load() }

func (lt *LoggingTransport) Close() error {
	lt.log.Debug("closed", "sent", lt.Sent())
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
