// Package led drives a Grove chainable RGB LED (P9813) by bit-banging its
// clock and data lines.
package led

import (
	"errors"
	"fmt"

	"weatherwatcher/internal/feedback"
	"weatherwatcher/internal/gpio"
)

// Chain is a string of P9813 LEDs showing the same colour. It implements
// feedback.Sink.
type Chain struct {
	clk   gpio.Line
	data  gpio.Line
	count int
}

var _ feedback.Sink = (*Chain)(nil)

func New(clk, data gpio.Line, count int) *Chain {
	if count <= 0 {
		count = 1
	}
	return &Chain{clk: clk, data: data, count: count}
}

// Open requests the clock and data pins as outputs.
func Open(clkPin, dataPin, count int) (*Chain, error) {
	clk, err := gpio.OpenOutput(clkPin)
	if err != nil {
		return nil, fmt.Errorf("led: clock line: %w", err)
	}
	data, err := gpio.OpenOutput(dataPin)
	if err != nil {
		_ = clk.Close()
		return nil, fmt.Errorf("led: data line: %w", err)
	}
	return New(clk, data, count), nil
}

// SetColor shifts one frame per LED, framed by 32 zero bits on each side.
func (c *Chain) SetColor(col feedback.Color) error {
	if err := c.zeros(); err != nil {
		return err
	}
	f := frame(col)
	for i := 0; i < c.count; i++ {
		for _, b := range f {
			if err := c.sendByte(b); err != nil {
				return err
			}
		}
	}
	return c.zeros()
}

// Close blanks the chain and releases both lines.
func (c *Chain) Close() error {
	err := c.SetColor(feedback.Black)
	return errors.Join(err, c.clk.Close(), c.data.Close())
}

// frame builds the flag byte (two inverted MSBs of each channel) followed by
// blue, green and red.
func frame(col feedback.Color) [4]byte {
	flag := byte(0xC0)
	if col.B&0x80 == 0 {
		flag |= 0x20
	}
	if col.B&0x40 == 0 {
		flag |= 0x10
	}
	if col.G&0x80 == 0 {
		flag |= 0x08
	}
	if col.G&0x40 == 0 {
		flag |= 0x04
	}
	if col.R&0x80 == 0 {
		flag |= 0x02
	}
	if col.R&0x40 == 0 {
		flag |= 0x01
	}
	return [4]byte{flag, col.B, col.G, col.R}
}

func (c *Chain) zeros() error {
	for i := 0; i < 4; i++ {
		if err := c.sendByte(0); err != nil {
			return err
		}
	}
	return nil
}

// sendByte shifts b out MSB first; the chip samples data on the rising clock
// edge.
func (c *Chain) sendByte(b byte) error {
	for i := 0; i < 8; i++ {
		bit := 0
		if b&0x80 != 0 {
			bit = 1
		}
		if err := c.data.SetValue(bit); err != nil {
			return fmt.Errorf("led: data: %w", err)
		}
		if err := c.clk.SetValue(0); err != nil {
			return fmt.Errorf("led: clock: %w", err)
		}
		if err := c.clk.SetValue(1); err != nil {
			return fmt.Errorf("led: clock: %w", err)
		}
		b <<= 1
	}
	return nil
}
