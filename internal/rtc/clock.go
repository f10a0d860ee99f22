package rtc

import (
	"time"

	"weatherwatcher/internal/feedback"
	"weatherwatcher/internal/logger"
)

// Source is a hardware clock.
type Source interface {
	Now() (time.Time, error)
	Set(t time.Time) error
}

// FaultReporter accepts fault requests; feedback.Engine satisfies it.
type FaultReporter interface {
	RequestFault(kind feedback.FaultKind) bool
}

// Clock timestamps readings from the RTC. When the chip cannot be read it
// raises ClockAccess and falls back to the system clock, so a reading is
// never lost for want of a timestamp.
type Clock struct {
	src    Source
	faults FaultReporter
	system func() time.Time
	failed bool
}

func NewClock(src Source, faults FaultReporter) *Clock {
	return &Clock{src: src, faults: faults, system: time.Now}
}

func (c *Clock) Now() time.Time {
	if c.src == nil {
		return c.system().UTC()
	}
	t, err := c.src.Now()
	if err != nil {
		if !c.failed {
			logger.Warn().Err(err).Msg("rtc unreadable, using system time")
		}
		c.failed = true
		if c.faults != nil {
			c.faults.RequestFault(feedback.ClockAccess)
		}
		return c.system().UTC()
	}
	if c.failed {
		logger.Info().Msg("rtc recovered")
		c.failed = false
	}
	return t
}

// Set programs the RTC. Without one it is a no-op.
func (c *Clock) Set(t time.Time) error {
	if c.src == nil {
		return nil
	}
	if err := c.src.Set(t); err != nil {
		return err
	}
	logger.Info().Time("time", t.UTC()).Msg("rtc set")
	return nil
}
