// Package light reads the analog light sensor through the Linux IIO ADC
// sysfs interface.
package light

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultPath is the first channel of the first IIO ADC.
const DefaultPath = "/sys/bus/iio/devices/iio:device0/in_voltage0_raw"

type Sensor struct {
	path string
}

func New(path string) *Sensor {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	return &Sensor{path: path}
}

// Luminosity returns the raw ADC count.
func (s *Sensor) Luminosity() (float64, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("light: read: %w", err)
	}
	return parseRaw(string(b))
}

func parseRaw(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("light: empty reading")
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("light: parse %q: %w", s, err)
	}
	return float64(n), nil
}
