// Package sensors assembles the station's transducers into a sensor.Source.
package sensors

import (
	"errors"
	"fmt"
	"io"

	"weatherwatcher/internal/logger"
	"weatherwatcher/internal/sensor"
)

// ErrUnsupportedChannel is returned for a channel the fitted hardware cannot
// measure, e.g. humidity on a BMP280.
var ErrUnsupportedChannel = errors.New("sensors: channel not supported by hardware")

// Climate is a temperature/humidity/pressure chip.
type Climate interface {
	Temperature() (float64, error) // degC
	Humidity() (float64, error)    // %RH
	Pressure() (float64, error)    // hPa
}

// Light is the ambient light sensor.
type Light interface {
	Luminosity() (float64, error) // raw ADC counts
}

// OpenFunc brings the climate chip up. The returned value may implement
// io.Closer.
type OpenFunc func() (Climate, error)

// Board implements sensor.Source over one climate chip and an optional light
// sensor. While the chip is down every Initialized call retries opening it,
// so a sensor that comes up late is picked up on the next acquisition.
type Board struct {
	open    OpenFunc
	light   Light
	climate Climate
	lastErr error
}

var _ sensor.Source = (*Board)(nil)

func NewBoard(open OpenFunc, light Light) *Board {
	return &Board{open: open, light: light}
}

// Initialized reports whether the climate chip is up, first trying to open
// it if it is not.
func (b *Board) Initialized() bool {
	if b.climate != nil {
		return true
	}
	if b.open == nil {
		return false
	}
	c, err := b.open()
	if err != nil {
		if b.lastErr == nil || b.lastErr.Error() != err.Error() {
			logger.Warn().Err(err).Msg("sensor init failed")
		}
		b.lastErr = err
		return false
	}
	if b.lastErr != nil {
		logger.Info().Msg("sensor recovered")
	}
	b.climate = c
	b.lastErr = nil
	return true
}

func (b *Board) ReadChannel(c sensor.Channel) (float64, error) {
	if c == sensor.Luminosity {
		if b.light == nil {
			return 0, ErrUnsupportedChannel
		}
		return b.light.Luminosity()
	}
	if b.climate == nil {
		return 0, errors.New("sensors: climate chip not initialised")
	}

	var (
		v   float64
		err error
	)
	switch c {
	case sensor.Temperature:
		v, err = b.climate.Temperature()
	case sensor.Humidity:
		v, err = b.climate.Humidity()
	case sensor.Pressure:
		v, err = b.climate.Pressure()
	default:
		return 0, fmt.Errorf("sensors: unknown channel %d", c)
	}
	if err != nil && !errors.Is(err, ErrUnsupportedChannel) {
		// Drop the chip so the next cycle re-initialises it.
		b.drop(err)
	}
	return v, err
}

// LastError is the most recent initialisation failure.
func (b *Board) LastError() error { return b.lastErr }

func (b *Board) Close() error {
	if b.climate == nil {
		return nil
	}
	var err error
	if c, ok := b.climate.(io.Closer); ok {
		err = c.Close()
	}
	b.climate = nil
	return err
}

func (b *Board) drop(err error) {
	logger.Warn().Err(err).Msg("sensor read failed, reinitialising")
	_ = b.Close()
	b.lastErr = err
}
