package feedback

import (
	"time"

	"weatherwatcher/internal/logger"
)

// DefaultMaxCycles is the number of completed A->B->A cycles after which a
// fault animation clears itself.
const DefaultMaxCycles = 2

// Sink receives colour updates for the physical LED.
type Sink interface {
	SetColor(c Color) error
}

// Clock returns a monotonic offset from an arbitrary origin.
type Clock func() time.Duration

// MonotonicClock returns a Clock backed by the runtime monotonic clock.
func MonotonicClock() Clock {
	start := time.Now()
	return func() time.Duration { return time.Since(start) }
}

type phase uint8

const (
	idle phase = iota
	showingA
	showingB
)

type Option func(*Engine)

// WithMaxCycles overrides DefaultMaxCycles.
func WithMaxCycles(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxCycles = n
		}
	}
}

// Engine renders the steady mode colour and overlays at most one fault
// animation on top of it. It is not safe for concurrent use; the main loop
// owns it.
type Engine struct {
	sink      Sink
	clock     Clock
	maxCycles int

	steady Color

	phase      phase
	active     FaultKind
	pattern    Pattern
	t1, t2     time.Duration
	phaseStart time.Duration
	cycles     int
}

func New(sink Sink, clock Clock, opts ...Option) *Engine {
	if clock == nil {
		clock = MonotonicClock()
	}
	e := &Engine{sink: sink, clock: clock, maxCycles: DefaultMaxCycles}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetSteadyColor records the base colour and shows it unless an animation is
// running, in which case it is shown when the animation clears.
func (e *Engine) SetSteadyColor(c Color) {
	e.steady = c
	if e.phase == idle {
		e.show(c)
	}
}

// SteadyColor returns the current base colour.
func (e *Engine) SteadyColor() Color { return e.steady }

// RequestFault starts the animation for kind. Requests that arrive while
// another animation is running are dropped; there is no queue.
func (e *Engine) RequestFault(kind FaultKind) bool {
	p, ok := PatternFor(kind)
	if !ok {
		logger.Warn().Uint8("kind", uint8(kind)).Msg("feedback: unknown fault kind")
		return false
	}
	if e.phase != idle {
		logger.Debug().
			Str("requested", kind.String()).
			Str("active", e.active.String()).
			Msg("feedback: fault dropped, animation busy")
		return false
	}

	e.active = kind
	e.pattern = p
	e.t1, e.t2 = p.phases()
	e.phase = showingA
	e.phaseStart = e.clock()
	e.cycles = 0
	e.show(p.A)
	logger.Info().Str("fault", kind.String()).Msg("feedback: fault animation started")
	return true
}

// Poll advances the animation. It must be called every loop iteration and is
// the only place animation phase changes.
func (e *Engine) Poll(now time.Duration) {
	switch e.phase {
	case showingA:
		if now-e.phaseStart >= e.t1 {
			e.show(e.pattern.B)
			e.phase = showingB
			e.phaseStart = now
		}
	case showingB:
		if now-e.phaseStart < e.t2 {
			return
		}
		e.cycles++
		if e.cycles >= e.maxCycles {
			e.clear()
			return
		}
		e.show(e.pattern.A)
		e.phase = showingA
		e.phaseStart = now
	}
}

// Busy reports whether a fault animation is running.
func (e *Engine) Busy() bool { return e.phase != idle }

// Active returns the running fault, if any.
func (e *Engine) Active() (FaultKind, bool) {
	if e.phase == idle {
		return 0, false
	}
	return e.active, true
}

// CompletedCycles returns the number of finished A->B->A cycles of the
// running animation.
func (e *Engine) CompletedCycles() int { return e.cycles }

func (e *Engine) clear() {
	logger.Debug().Str("fault", e.active.String()).Int("cycles", e.cycles).Msg("feedback: fault animation cleared")
	e.phase = idle
	e.cycles = 0
	e.show(e.steady)
}

func (e *Engine) show(c Color) {
	if e.sink == nil {
		return
	}
	if err := e.sink.SetColor(c); err != nil {
		logger.Warn().Err(err).Str("color", c.String()).Msg("feedback: led write failed")
	}
}

func (p Pattern) phases() (t1, t2 time.Duration) {
	period := float64(time.Second) / p.FrequencyHz
	a := period / (1 + p.Ratio)
	return time.Duration(a), time.Duration(a * p.Ratio)
}
