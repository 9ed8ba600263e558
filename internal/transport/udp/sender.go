// SPDX-License-Identifier: MIT
package udp

import (
	"net"
	"sync"

	"github.com/pkg/errors"

	applog "lightdesk/internal/log"
)

// PacketSender transmits one datagram per call.
type PacketSender interface {
	Send(data []byte) error
}

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("udp: sender closed")

// UDPSender sends datagrams to a single target over a connected socket.
type UDPSender struct {
	mu     sync.Mutex // Guards conn against a concurrent Close.
	conn   *net.UDPConn
	target string
}

// NewUDPSender dials target ("host:port"). No local port is bound.
func NewUDPSender(target string) (*UDPSender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, errors.Wrapf(err, "udp: resolve %q", target)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "udp: dial %q", target)
	}
	applog.Infof("UDP Sender: Connected to %s", conn.RemoteAddr())
	return &UDPSender{conn: conn, target: conn.RemoteAddr().String()}, nil
}

// Target returns the resolved remote address.
func (s *UDPSender) Target() string { return s.target }

// Send writes data as one datagram. It is safe for concurrent use.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		return errors.Wrapf(err, "udp: send to %s", s.target)
	}
	return nil
}

// Close releases the socket. Further sends fail with ErrClosed.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	applog.Infof("UDP Sender: Closing connection to %s", s.target)
	err := s.conn.Close()
	s.conn = nil
	return errors.Wrap(err, "udp: close")
}

var _ PacketSender = (*UDPSender)(nil)
