package control

import (
	"fmt"

	"weatherwatcher/internal/feedback"
)

// Mode is the station operating mode.
type Mode uint8

const (
	Off Mode = iota
	Standard
	Config
	Maintenance
	Eco

	modeCount
)

type modeInfo struct {
	name  string
	color feedback.Color
	msg   string
}

var modes = [modeCount]modeInfo{
	Off:         {name: "off", color: feedback.Black, msg: "standby, led off"},
	Standard:    {name: "standard", color: feedback.Green, msg: "standard logging"},
	Config:      {name: "config", color: feedback.Yellow, msg: "configuration"},
	Maintenance: {name: "maintenance", color: feedback.Orange, msg: "maintenance, live readings"},
	Eco:         {name: "eco", color: feedback.Blue, msg: "economy logging"},
}

func (m Mode) String() string {
	if m >= modeCount {
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
	return modes[m].name
}

// Color is the steady LED colour shown while m is active.
func (m Mode) Color() feedback.Color {
	if m >= modeCount {
		return feedback.Black
	}
	return modes[m].color
}

// Logging reports whether acquisitions are scheduled in m.
func (m Mode) Logging() bool {
	return m == Standard || m == Eco || m == Maintenance
}

// CadenceMultiplier scales the base acquisition interval. Eco, and
// Maintenance entered from Eco, log at half rate.
func (m Mode) CadenceMultiplier(previous Mode) uint32 {
	if m == Eco || (m == Maintenance && previous == Eco) {
		return 2
	}
	return 1
}
