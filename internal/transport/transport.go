// SPDX-License-Identifier: MIT
package transport

// Transport sends data to observers outside the process. Implementations
// must be safe for concurrent use and must not block the caller on I/O.
type Transport interface {
	Send(data any) error
	Close() error
}

// Message is the envelope for everything streamed to observers. Type tells
// a client how to read Data ("lighting", "beat", "state").
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Message types.
const (
	TypeLighting = "lighting"
	TypeBeat     = "beat"
	TypeState    = "state"
)
