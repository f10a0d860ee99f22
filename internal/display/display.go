// Package display prints live readings in Maintenance mode.
package display

import (
	"fmt"
	"io"

	"weatherwatcher/internal/gps"
	"weatherwatcher/internal/sensor"
)

type Display struct {
	w io.Writer
}

func New(w io.Writer) *Display {
	return &Display{w: w}
}

// Record writes one reading block. Disabled channels read zero.
func (d *Display) Record(r sensor.Reading, fix gps.Fix) error {
	pos := "no fix"
	if fix.Valid {
		pos = fmt.Sprintf("%.6f, %.6f", fix.Latitude, fix.Longitude)
	}
	_, err := fmt.Fprintf(d.w,
		"-- maintenance --\n"+
			"temperature  %8.2f C%s\n"+
			"humidity     %8.2f %%%s\n"+
			"pressure     %8.2f hPa%s\n"+
			"luminosity   %8.0f%s\n"+
			"position     %s\n",
		r.Temperature, mark(r.TemperatureFault),
		r.Humidity, mark(r.HumidityFault),
		r.Pressure, mark(r.PressureFault),
		r.Luminosity, mark(r.LuminosityFault),
		pos,
	)
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}

func mark(fault bool) string {
	if fault {
		return "  OUT OF RANGE"
	}
	return ""
}
