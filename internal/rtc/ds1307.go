// Package rtc reads and sets the DS1307 real-time clock and provides the
// station's wall clock.
package rtc

import (
	"errors"
	"fmt"
	"time"

	"weatherwatcher/internal/i2c"
)

const (
	// DefaultAddress is the fixed DS1307 bus address.
	DefaultAddress = 0x68

	regSeconds = 0x00
	timeLen    = 7

	bitClockHalt = 0x80
	bit12Hour    = 0x40
	bitPM        = 0x20
)

// ErrClockHalted means the oscillator is stopped; the chip lost power or was
// never set.
var ErrClockHalted = errors.New("rtc: clock halted")

type regIO interface {
	ReadReg(reg byte, dst []byte) error
	Write(p []byte) error
}

type DS1307 struct {
	dev regIO
}

func New(dev *i2c.Dev) (*DS1307, error) {
	if dev == nil {
		return nil, fmt.Errorf("rtc: dev is nil")
	}
	return &DS1307{dev: dev}, nil
}

// Now reads the time registers. The chip keeps no zone; values are UTC.
func (d *DS1307) Now() (time.Time, error) {
	var b [timeLen]byte
	if err := d.dev.ReadReg(regSeconds, b[:]); err != nil {
		return time.Time{}, fmt.Errorf("rtc: read time: %w", err)
	}
	if b[0]&bitClockHalt != 0 {
		return time.Time{}, ErrClockHalted
	}

	sec := fromBCD(b[0] & 0x7F)
	minute := fromBCD(b[1] & 0x7F)
	var hour int
	if b[2]&bit12Hour != 0 {
		hour = fromBCD(b[2]&0x1F) % 12
		if b[2]&bitPM != 0 {
			hour += 12
		}
	} else {
		hour = fromBCD(b[2] & 0x3F)
	}
	day := fromBCD(b[4] & 0x3F)
	month := fromBCD(b[5] & 0x1F)
	year := 2000 + fromBCD(b[6])

	if sec > 59 || minute > 59 || hour > 23 || day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("rtc: invalid time registers % X", b[:])
	}
	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC), nil
}

// Set writes t (converted to UTC) in 24-hour mode and starts the oscillator.
func (d *DS1307) Set(t time.Time) error {
	t = t.UTC()
	if t.Year() < 2000 || t.Year() > 2099 {
		return fmt.Errorf("rtc: year %d outside 2000..2099", t.Year())
	}
	buf := [1 + timeLen]byte{
		regSeconds,
		toBCD(t.Second()),
		toBCD(t.Minute()),
		toBCD(t.Hour()),
		toBCD(int(t.Weekday()) + 1),
		toBCD(t.Day()),
		toBCD(int(t.Month())),
		toBCD(t.Year() - 2000),
	}
	if err := d.dev.Write(buf[:]); err != nil {
		return fmt.Errorf("rtc: write time: %w", err)
	}
	return nil
}

func fromBCD(b byte) int { return int(b>>4)*10 + int(b&0x0F) }

func toBCD(v int) byte { return byte(v/10)<<4 | byte(v%10) }
