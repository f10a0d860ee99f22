package control

import (
	"time"

	"weatherwatcher/internal/feedback"
	"weatherwatcher/internal/logger"
)

// ColorSetter receives the steady colour of each mode.
type ColorSetter interface {
	SetSteadyColor(c feedback.Color)
}

// Cadence supplies the configured intervals, in seconds.
type Cadence interface {
	AcquisitionIntervalSeconds() int
	ConfigInactivityTimeoutSeconds() int
}

type Controller struct {
	mode     Mode
	previous Mode

	red   holdDetector
	green holdDetector

	led     ColorSetter
	sched   *Scheduler
	cadence Cadence
}

func NewController(led ColorSetter, sched *Scheduler, cadence Cadence, hold time.Duration) *Controller {
	if hold <= 0 {
		hold = DefaultHoldThreshold
	}
	return &Controller{
		mode:     Off,
		previous: Standard,
		red:      holdDetector{threshold: hold},
		green:    holdDetector{threshold: hold},
		led:      led,
		sched:    sched,
		cadence:  cadence,
	}
}

// Boot applies the Off mode entry actions.
func (c *Controller) Boot() {
	c.setMode(Off)
}

func (c *Controller) Mode() Mode { return c.mode }

// Previous is the mode Maintenance returns to.
func (c *Controller) Previous() Mode { return c.previous }

// Update is polled every loop iteration with the current button levels.
func (c *Controller) Update(now time.Duration, redPressed, greenPressed bool) {
	redEdge, redHeld := c.red.update(now, redPressed)
	greenEdge, greenHeld := c.green.update(now, greenPressed)

	if c.mode == Off {
		switch {
		case redEdge:
			c.setMode(Config)
		case greenEdge:
			c.setMode(Standard)
		}
	}

	if redHeld {
		if c.mode == Maintenance {
			c.setMode(c.previous)
		} else {
			c.previous = c.mode
			c.setMode(Maintenance)
		}
	}

	if greenHeld {
		switch c.mode {
		case Standard:
			c.setMode(Eco)
		case Eco:
			c.setMode(Standard)
		}
	}
}

// HandleConfigTimeout leaves Config after the inactivity limit.
func (c *Controller) HandleConfigTimeout() {
	if c.mode != Config {
		return
	}
	logger.Info().Msg("config inactivity timeout")
	c.setMode(Standard)
}

func (c *Controller) setMode(m Mode) {
	c.mode = m

	base, timeout := 1, DefaultConfigTimeout
	if c.cadence != nil {
		if v := c.cadence.AcquisitionIntervalSeconds(); v > 0 {
			base = v
		}
		if v := c.cadence.ConfigInactivityTimeoutSeconds(); v > 0 {
			timeout = v
		}
	}
	interval := uint32(base) * m.CadenceMultiplier(c.previous)
	if c.sched != nil {
		c.sched.Enter(m, interval, uint32(timeout))
	}
	if c.led != nil {
		c.led.SetSteadyColor(m.Color())
	}

	logger.Info().
		Str("mode", m.String()).
		Str("previous", c.previous.String()).
		Uint32("interval_sec", interval).
		Msg(modes[m].msg)
}
