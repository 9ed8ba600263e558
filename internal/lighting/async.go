// SPDX-License-Identifier: MIT
package lighting

import (
	"sync"
	"sync/atomic"
	"time"

	applog "lightdesk/internal/log"
)

// Driver writes commands to one kind of output. Apply is only ever called
// from the owning AsyncSink's worker goroutine, so drivers need no locking.
type Driver interface {
	Name() string
	Apply(cmd Command) error
	Close() error
}

// DefaultQueueSize bounds the commands buffered per AsyncSink.
const DefaultQueueSize = 64

type job struct {
	cmd      Command
	revert   bool
	revertOf uint64 // Flash generation the revert belongs to.
}

// AsyncSink adapts a blocking Driver to the non-blocking Sink contract.
// Commands are queued and applied on a worker goroutine; when the queue is
// full the command is dropped and counted.
type AsyncSink struct {
	driver Driver
	queue  chan job
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	dropped atomic.Uint64
	failed  atomic.Uint64

	// Worker-owned state.
	gen   uint64
	state [2]Command // Last steady command per fixture (A, B).
}

var _ Sink = (*AsyncSink)(nil)

// NewAsyncSink starts the worker for driver. queueSize <= 0 selects
// DefaultQueueSize.
func NewAsyncSink(driver Driver, queueSize int) *AsyncSink {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	s := &AsyncSink{
		driver: driver,
		queue:  make(chan job, queueSize),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	applog.Infof("Lighting: %s sink started (queue %d)", driver.Name(), queueSize)
	return s
}

func (s *AsyncSink) SetColor(target Target, c Color) {
	s.enqueue(job{cmd: Command{Kind: CmdColor, Target: target, Color: c}})
}

func (s *AsyncSink) SetAnimation(target Target, mode Mode, speed uint8) {
	s.enqueue(job{cmd: Command{Kind: CmdAnimation, Target: target, Mode: mode, Speed: speed}})
}

func (s *AsyncSink) FlashWhite(d time.Duration) {
	s.enqueue(job{cmd: Command{Kind: CmdFlash, Target: TargetAll, Color: White, Flash: d}})
}

// Dropped returns how many commands were discarded because the queue was full.
func (s *AsyncSink) Dropped() uint64 { return s.dropped.Load() }

// Failed returns how many commands the driver rejected.
func (s *AsyncSink) Failed() uint64 { return s.failed.Load() }

func (s *AsyncSink) enqueue(j job) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.queue <- j:
	default:
		if s.dropped.Add(1)%100 == 1 {
			applog.Warnf("Lighting: %s queue full, %d commands dropped", s.driver.Name(), s.dropped.Load())
		}
	}
}

func (s *AsyncSink) run() {
	defer s.wg.Done()
	for {
		select {
		case j := <-s.queue:
			s.handle(j)
		case <-s.done:
			return
		}
	}
}

func (s *AsyncSink) handle(j job) {
	if j.revert {
		// Anything issued after the flash wins over the revert.
		if j.revertOf == s.gen {
			s.restore()
		}
		return
	}

	s.gen++
	cmd := j.cmd
	switch cmd.Kind {
	case CmdColor, CmdAnimation:
		s.remember(cmd)
	case CmdFlash:
		gen := s.gen
		time.AfterFunc(cmd.Flash, func() {
			s.enqueue(job{revert: true, revertOf: gen})
		})
	}
	s.apply(cmd)
}

func (s *AsyncSink) remember(cmd Command) {
	switch cmd.Target {
	case TargetA:
		s.state[0] = cmd
	case TargetB:
		s.state[1] = cmd
	default:
		s.state[0], s.state[1] = cmd, cmd
	}
	s.state[0].Target, s.state[1].Target = TargetA, TargetB
}

// restore re-issues the steady state each fixture showed before the flash.
// Fixtures with no history go dark.
func (s *AsyncSink) restore() {
	a, b := s.state[0], s.state[1]
	if a.Kind == 0 {
		a = Command{Kind: CmdColor, Target: TargetA, Color: Black}
	}
	if b.Kind == 0 {
		b = Command{Kind: CmdColor, Target: TargetB, Color: Black}
	}
	if a.Kind == b.Kind && a.Color == b.Color && a.Mode == b.Mode && a.Speed == b.Speed {
		a.Target = TargetAll
		s.apply(a)
		return
	}
	s.apply(a)
	s.apply(b)
}

func (s *AsyncSink) apply(cmd Command) {
	if err := s.driver.Apply(cmd); err != nil {
		if s.failed.Add(1)%100 == 1 {
			applog.Warnf("Lighting: %s failed to apply %s: %v", s.driver.Name(), cmd, err)
		}
	}
}

// Close stops the worker and closes the driver. Pending commands are
// discarded.
func (s *AsyncSink) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		err = s.driver.Close()
		applog.Infof("Lighting: %s sink closed (dropped %d, failed %d)", s.driver.Name(), s.Dropped(), s.Failed())
	})
	return err
}
