package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickN(s *Scheduler, n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

func TestScheduler_OffDoesNothing(t *testing.T) {
	s := NewScheduler()
	s.Enter(Off, 10, 1800)
	tickN(s, 100)
	elapsed, inactivity := s.Counters()
	assert.Zero(t, elapsed)
	assert.Zero(t, inactivity)
	assert.False(t, s.ConsumeAcquisitionDue())
	assert.False(t, s.ConsumeConfigTimeoutDue())
}

func TestScheduler_AcquisitionDueEveryInterval(t *testing.T) {
	s := NewScheduler()
	s.Enter(Standard, 10, 1800)

	tickN(s, 9)
	assert.False(t, s.ConsumeAcquisitionDue())
	s.Tick()
	assert.True(t, s.ConsumeAcquisitionDue())
	assert.False(t, s.ConsumeAcquisitionDue(), "flag is cleared on consume")

	elapsed, _ := s.Counters()
	assert.Zero(t, elapsed, "counter resets when flag is raised")

	tickN(s, 10)
	assert.True(t, s.ConsumeAcquisitionDue())
}

func TestScheduler_ConfigTimeout(t *testing.T) {
	s := NewScheduler()
	s.Enter(Config, 10, 30)

	tickN(s, 29)
	assert.False(t, s.ConsumeConfigTimeoutDue())
	assert.False(t, s.ConsumeAcquisitionDue(), "no acquisition cadence in config")
	s.Tick()
	assert.True(t, s.ConsumeConfigTimeoutDue())
}

func TestScheduler_CommandResetsInactivity(t *testing.T) {
	s := NewScheduler()
	s.Enter(Config, 10, 30)

	tickN(s, 25)
	s.NotifyCommand()
	tickN(s, 25)
	assert.False(t, s.ConsumeConfigTimeoutDue())
	_, inactivity := s.Counters()
	assert.Equal(t, uint32(25), inactivity)

	tickN(s, 5)
	assert.True(t, s.ConsumeConfigTimeoutDue())
}

func TestScheduler_EnterResetsCountersAndDropsStaleFlags(t *testing.T) {
	s := NewScheduler()
	s.Enter(Standard, 5, 1800)
	tickN(s, 5) // flag raised in the old epoch

	s.Enter(Eco, 10, 1800)
	assert.False(t, s.ConsumeAcquisitionDue(), "flag from previous mode must not leak")

	tickN(s, 9)
	assert.False(t, s.ConsumeAcquisitionDue())
	s.Tick()
	assert.True(t, s.ConsumeAcquisitionDue())
}

func TestScheduler_StaleFlagRaisedAfterEnterIsDiscarded(t *testing.T) {
	s := NewScheduler()
	s.Enter(Standard, 3, 1800)
	tickN(s, 2)

	// Simulate a tick that loaded the old epoch and raised its flag after the
	// main loop already switched mode.
	old := s.epoch.Load()
	s.Enter(Maintenance, 3, 1800)
	s.acquisitionDue.Store(old + 1)

	assert.False(t, s.ConsumeAcquisitionDue())
}

func TestScheduler_ZeroIntervalClamped(t *testing.T) {
	s := NewScheduler()
	s.Enter(Standard, 0, 0)
	assert.Equal(t, uint32(1), s.Interval())
	s.Tick()
	assert.True(t, s.ConsumeAcquisitionDue())
}

func TestRunTicker_TicksUntilCancelled(t *testing.T) {
	s := NewScheduler()
	s.Enter(Standard, 1, 1800)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunTicker(ctx, s, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, s.ConsumeAcquisitionDue, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("RunTicker did not return after cancel")
	}
}
