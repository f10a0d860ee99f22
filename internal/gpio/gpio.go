// Package gpio drives the station's push buttons and LED lines through the
// Linux GPIO character device.
package gpio

import (
	"errors"
	"fmt"
)

// Line is one requested GPIO line. *gpiocdev.Line satisfies it.
type Line interface {
	Value() (int, error)
	SetValue(v int) error
	Close() error
}

// Consumer is the label shown by gpioinfo for lines held by the station.
const Consumer = "weatherwatcher"

// Buttons reads the red and green push buttons. Both are wired to ground
// with the internal pull-up enabled, so a pressed button reads 0.
type Buttons struct {
	red   Line
	green Line
}

func NewButtons(red, green Line) *Buttons {
	return &Buttons{red: red, green: green}
}

// OpenButtons requests the two BCM pins as pulled-up inputs.
func OpenButtons(redPin, greenPin int) (*Buttons, error) {
	red, err := openLineFn(redPin, false)
	if err != nil {
		return nil, fmt.Errorf("gpio: red button: %w", err)
	}
	green, err := openLineFn(greenPin, false)
	if err != nil {
		_ = red.Close()
		return nil, fmt.Errorf("gpio: green button: %w", err)
	}
	return NewButtons(red, green), nil
}

// Read returns the pressed state of each button.
func (b *Buttons) Read() (red, green bool, err error) {
	rv, err := b.red.Value()
	if err != nil {
		return false, false, fmt.Errorf("gpio: read red button: %w", err)
	}
	gv, err := b.green.Value()
	if err != nil {
		return false, false, fmt.Errorf("gpio: read green button: %w", err)
	}
	return rv == 0, gv == 0, nil
}

func (b *Buttons) Close() error {
	if b == nil {
		return nil
	}
	return errors.Join(closeLine(b.red), closeLine(b.green))
}

// OpenOutput requests pin as an output driven low.
func OpenOutput(pin int) (Line, error) {
	return openLineFn(pin, true)
}

func closeLine(l Line) error {
	if l == nil {
		return nil
	}
	return l.Close()
}
