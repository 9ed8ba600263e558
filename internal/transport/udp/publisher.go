// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	applog "lightdesk/internal/log"
)

/*
Packet layout (big endian):

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |     Count     |         Values          |
|      (uint32)     |   (int64, unix ns)    |    (uint16)   |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+
*/

// HeaderLen is the fixed packet prefix before the values.
const HeaderLen = 4 + 8 + 2

// MaxValues is the most float32 values one packet carries.
const MaxValues = math.MaxUint16

// DefaultQueueSize bounds the packets waiting to be sent.
const DefaultQueueSize = 64

// ErrShortPacket is returned by ParsePacket for truncated input.
var ErrShortPacket = errors.New("udp: short packet")

type packet struct {
	stamp  int64
	values []float32
}

// Publisher packs float32 vectors into numbered packets and sends them from
// its own goroutine. Publish never blocks; a full queue drops the packet.
type Publisher struct {
	sender PacketSender
	queue  chan packet

	mu       sync.Mutex // Guards done and running across Start/Stop.
	done     chan struct{}
	running  bool
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Owned by the publishing goroutine.
	seq uint32
	buf []byte

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewPublisher wraps sender. queueSize <= 0 selects DefaultQueueSize.
func NewPublisher(sender PacketSender, queueSize int) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("udp: publisher needs a sender")
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Publisher{
		sender: sender,
		queue:  make(chan packet, queueSize),
	}, nil
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}
	p.running = true
	p.done = make(chan struct{})
	p.stopOnce = sync.Once{}
	done := p.done

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDPPublisher: Publisher goroutine started")
		for {
			select {
			case pkt := <-p.queue:
				p.send(pkt)
			case <-done:
				p.drain()
				return
			}
		}
	}()
}

// drain sends whatever was queued before Stop.
func (p *Publisher) drain() {
	for {
		select {
		case pkt := <-p.queue:
			p.send(pkt)
		default:
			return
		}
	}
}

// Stop flushes queued packets and waits for the goroutine to exit.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.done)
		p.running = false
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Stopped (sent %d, dropped %d)", p.Sent(), p.Dropped())
	return nil
}

// Close implements io.Closer.
func (p *Publisher) Close() error { return p.Stop() }

// Publish queues a copy of values stamped with the current time. Values
// beyond MaxValues are cut off.
func (p *Publisher) Publish(values []float32) {
	if len(values) > MaxValues {
		values = values[:MaxValues]
	}
	pkt := packet{stamp: time.Now().UnixNano(), values: append([]float32(nil), values...)}
	select {
	case p.queue <- pkt:
	default:
		p.dropped.Add(1)
	}
}

// Sent returns how many packets reached the sender without error.
func (p *Publisher) Sent() uint64 { return p.sent.Load() }

// Dropped returns how many packets were discarded on a full queue.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

func (p *Publisher) send(pkt packet) {
	p.seq++
	p.buf = AppendPacket(p.buf[:0], p.seq, pkt.stamp, pkt.values)
	if err := p.sender.Send(p.buf); err != nil {
		applog.Debugf("UDPPublisher: Packet %d not sent: %v", p.seq, err)
		return
	}
	p.sent.Add(1)
}

// AppendPacket encodes one packet onto dst.
func AppendPacket(dst []byte, seq uint32, stamp int64, values []float32) []byte {
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(stamp))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(values)))
	for _, v := range values {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// ParsePacket decodes a packet produced by AppendPacket.
func ParsePacket(b []byte) (seq uint32, stamp int64, values []float32, err error) {
	if len(b) < HeaderLen {
		return 0, 0, nil, ErrShortPacket
	}
	seq = binary.BigEndian.Uint32(b)
	stamp = int64(binary.BigEndian.Uint64(b[4:]))
	n := int(binary.BigEndian.Uint16(b[12:]))
	body := b[HeaderLen:]
	if len(body) < n*4 {
		return 0, 0, nil, errors.Wrapf(ErrShortPacket, "want %d values, have %d bytes", n, len(body))
	}
	values = make([]float32, n)
	for i := range values {
		values[i] = math.Float32frombits(binary.BigEndian.Uint32(body[i*4:]))
	}
	return seq, stamp, values, nil
}

var _ interface{ Close() error } = (*Publisher)(nil)
