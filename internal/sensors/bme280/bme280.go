// Package bme280 adapts the tinygo BME280 driver to the station's units.
package bme280

import (
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/bme280"
)

// DefaultAddress is the SDO-low address used by the Grove breakout.
const DefaultAddress = 0x76

type Device struct {
	dev bme280.Device
}

// New probes the chip at addr on bus and configures it for normal mode.
func New(bus drivers.I2C, addr uint16) (*Device, error) {
	if bus == nil {
		return nil, fmt.Errorf("bme280: bus is nil")
	}
	if addr == 0 {
		addr = DefaultAddress
	}
	d := bme280.New(bus)
	d.Address = addr
	if !d.Connected() {
		return nil, fmt.Errorf("bme280: no chip at 0x%02X", addr)
	}
	d.Configure()
	return &Device{dev: d}, nil
}

// Temperature in degrees Celsius.
func (d *Device) Temperature() (float64, error) {
	v, err := d.dev.ReadTemperature()
	if err != nil {
		return 0, fmt.Errorf("bme280: temperature: %w", err)
	}
	return milliToUnit(v), nil
}

// Humidity in percent relative humidity.
func (d *Device) Humidity() (float64, error) {
	v, err := d.dev.ReadHumidity()
	if err != nil {
		return 0, fmt.Errorf("bme280: humidity: %w", err)
	}
	return centiToUnit(v), nil
}

// Pressure in hPa.
func (d *Device) Pressure() (float64, error) {
	v, err := d.dev.ReadPressure()
	if err != nil {
		return 0, fmt.Errorf("bme280: pressure: %w", err)
	}
	return milliPascalToHPa(v), nil
}

func milliToUnit(v int32) float64 { return float64(v) / 1000 }

func centiToUnit(v int32) float64 { return float64(v) / 100 }

func milliPascalToHPa(v int32) float64 { return float64(v) / 100000 }
