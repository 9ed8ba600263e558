// SPDX-License-Identifier: MIT
package lighting

import (
	"lightdesk/internal/transport"
)

// TransportDriver forwards each command as a "lighting" message. With a
// websocket hub it drives a browser preview; with a logging transport it is
// the dry-run output.
type TransportDriver struct {
	name string
	t    transport.Transport
}

var _ Driver = (*TransportDriver)(nil)

// NewTransportDriver wraps t. Closing the driver does not close t, which is
// usually shared.
func NewTransportDriver(name string, t transport.Transport) *TransportDriver {
	return &TransportDriver{name: name, t: t}
}

func (d *TransportDriver) Name() string { return d.name }

func (d *TransportDriver) Apply(cmd Command) error {
	return d.t.Send(transport.Message{Type: transport.TypeLighting, Data: cmd})
}

func (d *TransportDriver) Close() error { return nil }
