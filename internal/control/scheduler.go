package control

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultConfigTimeout is the Config-mode inactivity limit, in ticks.
const DefaultConfigTimeout = 1800

// Scheduler is the state block shared between the tick goroutine and the
// main loop.
//
// Write sets are disjoint: Tick writes elapsed, inactivity and raises the two
// flags; the main loop writes mode, interval, timeout, epoch and commands, and
// clears flags by consuming them. A flag stores the epoch it was raised in
// plus one, so a flag raised before a mode change is discarded on consume.
type Scheduler struct {
	// main loop -> tick
	mode     atomic.Uint32
	interval atomic.Uint32
	timeout  atomic.Uint32
	epoch    atomic.Uint64
	commands atomic.Uint64

	// tick -> main loop
	elapsed          atomic.Uint32
	inactivity       atomic.Uint32
	acquisitionDue   atomic.Uint64
	configTimeoutDue atomic.Uint64

	// Owned by the tick goroutine only.
	seenEpoch    uint64
	seenCommands uint64
}

func NewScheduler() *Scheduler {
	s := &Scheduler{}
	s.interval.Store(1)
	s.timeout.Store(DefaultConfigTimeout)
	return s
}

// Enter switches the cadence to mode. intervalSec is the effective acquisition
// interval (multiplier already applied). Both counters restart from zero.
func (s *Scheduler) Enter(mode Mode, intervalSec, timeoutSec uint32) {
	if intervalSec == 0 {
		intervalSec = 1
	}
	if timeoutSec == 0 {
		timeoutSec = DefaultConfigTimeout
	}
	s.mode.Store(uint32(mode))
	s.interval.Store(intervalSec)
	s.timeout.Store(timeoutSec)
	s.epoch.Add(1)
	s.acquisitionDue.Store(0)
	s.configTimeoutDue.Store(0)
}

// NotifyCommand records that the configuration console processed a command;
// the inactivity counter restarts on the next tick.
func (s *Scheduler) NotifyCommand() {
	s.commands.Add(1)
}

// Tick is the periodic handler. It only touches atomics.
func (s *Scheduler) Tick() {
	ep := s.epoch.Load()
	if ep != s.seenEpoch {
		s.seenEpoch = ep
		s.elapsed.Store(0)
		s.inactivity.Store(0)
	}
	if c := s.commands.Load(); c != s.seenCommands {
		s.seenCommands = c
		s.inactivity.Store(0)
	}

	switch Mode(s.mode.Load()) {
	case Off:
		return
	case Config:
		if s.inactivity.Add(1) >= s.timeout.Load() {
			s.inactivity.Store(0)
			s.configTimeoutDue.Store(ep + 1)
		}
	default:
		if s.elapsed.Add(1) >= s.interval.Load() {
			s.elapsed.Store(0)
			s.acquisitionDue.Store(ep + 1)
		}
	}
}

// ConsumeAcquisitionDue reports and clears the acquisition flag.
func (s *Scheduler) ConsumeAcquisitionDue() bool {
	return consume(&s.acquisitionDue, s.epoch.Load())
}

// ConsumeConfigTimeoutDue reports and clears the Config inactivity flag.
func (s *Scheduler) ConsumeConfigTimeoutDue() bool {
	return consume(&s.configTimeoutDue, s.epoch.Load())
}

// Counters returns the elapsed-in-mode and inactivity counters.
func (s *Scheduler) Counters() (elapsed, inactivity uint32) {
	return s.elapsed.Load(), s.inactivity.Load()
}

// Interval returns the effective acquisition interval in ticks.
func (s *Scheduler) Interval() uint32 { return s.interval.Load() }

func consume(flag *atomic.Uint64, epoch uint64) bool {
	v := flag.Swap(0)
	return v != 0 && v == epoch+1
}

// RunTicker calls s.Tick every period until ctx is done.
func RunTicker(ctx context.Context, s *Scheduler, period time.Duration) {
	if period <= 0 {
		period = time.Second
	}
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Tick()
		}
	}
}
