//go:build linux

package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openLine finds BCM pin as line "GPIO<pin>" on any gpiochip and requests it.
// Pi 5 kernels may expose the header on gpiochip4 instead of gpiochip0.
func openLine(pin int, output bool) (Line, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("invalid gpio pin %d", pin)
	}
	lineName := fmt.Sprintf("GPIO%d", pin)

	chipCandidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.WithConsumer(Consumer)}
	if output {
		opts = append(opts, gpiocdev.AsOutput(0))
	} else {
		opts = append(opts, gpiocdev.AsInput, gpiocdev.WithPullUp)
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, opts...)
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &cdevLine{chip: chip, Line: line}, nil
	}

	return nil, fmt.Errorf("gpio line %q not found (or busy)", lineName)
}

var openLineFn = openLine

type cdevLine struct {
	chip *gpiocdev.Chip
	*gpiocdev.Line
}

func (l *cdevLine) Close() error {
	if l == nil || l.Line == nil {
		return nil
	}
	err := l.Line.Close()
	l.Line = nil
	if l.chip != nil {
		_ = l.chip.Close()
		l.chip = nil
	}
	return err
}
