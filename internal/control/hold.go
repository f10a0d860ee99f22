package control

import "time"

// DefaultHoldThreshold is how long a button must stay down to count as a hold.
const DefaultHoldThreshold = 5 * time.Second

// holdDetector turns a polled button level into press edges and a one-shot
// hold event. Releasing the button re-arms it.
type holdDetector struct {
	threshold time.Duration

	down  bool
	since time.Duration
	fired bool
}

func (h *holdDetector) update(now time.Duration, pressed bool) (edge, held bool) {
	if !pressed {
		h.down = false
		h.fired = false
		return false, false
	}
	if !h.down {
		h.down = true
		h.since = now
		edge = true
	}
	if !h.fired && now-h.since >= h.threshold {
		h.fired = true
		held = true
	}
	return edge, held
}
