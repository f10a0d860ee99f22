//go:build !linux

package gpio

import "fmt"

func openLine(pin int, output bool) (Line, error) {
	return nil, fmt.Errorf("gpio unsupported on this platform")
}

var openLineFn = openLine
