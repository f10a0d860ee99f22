package sensor

import (
	"errors"
	"math"

	"weatherwatcher/internal/feedback"
	"weatherwatcher/internal/logger"
)

var errNotFinite = errors.New("sensor: value not finite")

// Source is the transducer collaborator.
type Source interface {
	// Initialized reports whether the sensor chip came up.
	Initialized() bool
	ReadChannel(c Channel) (float64, error)
}

// FaultReporter accepts fault requests; feedback.Engine satisfies it.
type FaultReporter interface {
	RequestFault(kind feedback.FaultKind) bool
}

// Reading is one acquisition. Values of disabled channels are zero and their
// fault flags are false.
type Reading struct {
	Temperature float64 // degC
	Humidity    float64 // %RH
	Pressure    float64 // hPa
	Luminosity  float64 // raw

	TemperatureFault bool
	HumidityFault    bool
	PressureFault    bool
	LuminosityFault  bool
}

// Value returns the value of c.
func (r Reading) Value(c Channel) float64 {
	switch c {
	case Temperature:
		return r.Temperature
	case Humidity:
		return r.Humidity
	case Pressure:
		return r.Pressure
	case Luminosity:
		return r.Luminosity
	}
	return 0
}

// Fault returns the fault flag of c.
func (r Reading) Fault(c Channel) bool {
	switch c {
	case Temperature:
		return r.TemperatureFault
	case Humidity:
		return r.HumidityFault
	case Pressure:
		return r.PressureFault
	case Luminosity:
		return r.LuminosityFault
	}
	return false
}

// Incoherent reports the joint temperature/pressure plausibility failure.
func (r Reading) Incoherent() bool {
	return r.TemperatureFault || r.PressureFault
}

func (r *Reading) set(c Channel, v float64, fault bool) {
	switch c {
	case Temperature:
		r.Temperature, r.TemperatureFault = v, fault
	case Humidity:
		r.Humidity, r.HumidityFault = v, fault
	case Pressure:
		r.Pressure, r.PressureFault = v, fault
	case Luminosity:
		r.Luminosity, r.LuminosityFault = v, fault
	}
}

type Validator struct {
	src    Source
	faults FaultReporter
}

func NewValidator(src Source, faults FaultReporter) *Validator {
	return &Validator{src: src, faults: faults}
}

// Read acquires every enabled channel and applies th.
func (v *Validator) Read(th Thresholds) Reading {
	var r Reading
	if v.src == nil || !v.src.Initialized() {
		v.raise(feedback.SensorAccess)
		return r
	}

	accessFailed := false
	for _, c := range Channels {
		if !th.Enabled(c) {
			continue
		}
		val, err := v.src.ReadChannel(c)
		if err == nil && (math.IsNaN(val) || math.IsInf(val, 0)) {
			err = errNotFinite
		}
		if err != nil {
			logger.Warn().Err(err).Str("channel", c.String()).Msg("sensor: channel read failed")
			accessFailed = true
			continue
		}
		r.set(c, val, th.OutOfRange(c, val))
	}

	if accessFailed {
		v.raise(feedback.SensorAccess)
	}
	if r.Incoherent() {
		v.raise(feedback.SensorIncoherent)
	}
	return r
}

func (v *Validator) raise(kind feedback.FaultKind) {
	if v.faults != nil {
		v.faults.RequestFault(kind)
	}
}
