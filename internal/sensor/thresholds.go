package sensor

import (
	"fmt"
	"math"
)

// Channel identifies one measured quantity.
type Channel uint8

const (
	Temperature Channel = iota
	Humidity
	Pressure
	Luminosity

	channelCount
)

// Channels lists every channel in reading order.
var Channels = [channelCount]Channel{Temperature, Humidity, Pressure, Luminosity}

var channelNames = [channelCount]string{
	Temperature: "temperature",
	Humidity:    "humidity",
	Pressure:    "pressure",
	Luminosity:  "luminosity",
}

func (c Channel) String() string {
	if c >= channelCount {
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
	return channelNames[c]
}

// physical ranges the hardware can report; configured bounds must lie inside.
var physicalRange = [channelCount][2]float64{
	Temperature: {-40, 85},   // degC
	Humidity:    {0, 100},    // %RH
	Pressure:    {300, 1100}, // hPa
	Luminosity:  {0, 65535},  // raw ADC counts
}

// Limit is the unvalidated bound of one channel as held by the parameter store.
type Limit struct {
	Enabled bool
	Min     float64
	Max     float64
}

// Limits holds one Limit per channel.
type Limits struct {
	Temperature Limit
	Humidity    Limit
	Pressure    Limit
	Luminosity  Limit
}

func (l Limits) get(c Channel) Limit {
	switch c {
	case Temperature:
		return l.Temperature
	case Humidity:
		return l.Humidity
	case Pressure:
		return l.Pressure
	default:
		return l.Luminosity
	}
}

// Thresholds is a validated, immutable set of per-channel bounds.
type Thresholds struct {
	bounds [channelCount]Limit
}

// NewThresholds validates raw limits. Every bound must be finite and ordered;
// enabled channels must also lie within the hardware range.
func NewThresholds(l Limits) (Thresholds, error) {
	var th Thresholds
	for _, c := range Channels {
		lim := l.get(c)
		if math.IsNaN(lim.Min) || math.IsInf(lim.Min, 0) || math.IsNaN(lim.Max) || math.IsInf(lim.Max, 0) {
			return Thresholds{}, fmt.Errorf("sensor: %s bounds must be finite", c)
		}
		if lim.Min > lim.Max {
			return Thresholds{}, fmt.Errorf("sensor: %s min %g > max %g", c, lim.Min, lim.Max)
		}
		pr := physicalRange[c]
		if lim.Enabled && (lim.Min < pr[0] || lim.Max > pr[1]) {
			return Thresholds{}, fmt.Errorf("sensor: %s bounds [%g, %g] outside [%g, %g]", c, lim.Min, lim.Max, pr[0], pr[1])
		}
		th.bounds[c] = lim
	}
	return th, nil
}

// Enabled reports whether c is being measured.
func (t Thresholds) Enabled(c Channel) bool {
	if c >= channelCount {
		return false
	}
	return t.bounds[c].Enabled
}

// Limit returns the bound for c.
func (t Thresholds) Limit(c Channel) Limit {
	if c >= channelCount {
		return Limit{}
	}
	return t.bounds[c]
}

// OutOfRange is the per-channel fault rule: enabled and outside [min, max].
func (t Thresholds) OutOfRange(c Channel, v float64) bool {
	if !t.Enabled(c) {
		return false
	}
	b := t.bounds[c]
	return v < b.Min || v > b.Max
}
