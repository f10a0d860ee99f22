package feedback

import "fmt"

// Color is an RGB triple as sent to the status LED.
type Color struct {
	R, G, B uint8
}

var (
	Black  = Color{0, 0, 0}
	Red    = Color{255, 0, 0}
	Green  = Color{0, 255, 0}
	Blue   = Color{0, 0, 255}
	Yellow = Color{255, 255, 0}
	Orange = Color{255, 165, 0}
	White  = Color{255, 255, 255}
)

func (c Color) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.R, c.G, c.B)
}

// FaultKind identifies a fault condition rendered by the LED.
type FaultKind uint8

const (
	ClockAccess FaultKind = iota
	PositionAccess
	SensorAccess
	SensorIncoherent
	StorageFull
	StorageAccess

	faultKindCount
)

var faultNames = [faultKindCount]string{
	ClockAccess:      "clock_access",
	PositionAccess:   "position_access",
	SensorAccess:     "sensor_access",
	SensorIncoherent: "sensor_incoherent",
	StorageFull:      "storage_full",
	StorageAccess:    "storage_access",
}

func (k FaultKind) String() string {
	if k >= faultKindCount {
		return fmt.Sprintf("fault(%d)", uint8(k))
	}
	return faultNames[k]
}

// Valid reports whether k is one of the known fault kinds.
func (k FaultKind) Valid() bool { return k < faultKindCount }

// Pattern is a two-colour blink: colour A for t1, colour B for t2, where
// t1+t2 = 1/FrequencyHz and t2 = t1*Ratio.
type Pattern struct {
	A           Color
	B           Color
	FrequencyHz float64
	Ratio       float64
}

var patterns = [faultKindCount]Pattern{
	ClockAccess:      {A: Red, B: Blue, FrequencyHz: 1, Ratio: 1},
	PositionAccess:   {A: Red, B: Yellow, FrequencyHz: 1, Ratio: 1},
	SensorAccess:     {A: Red, B: Green, FrequencyHz: 1, Ratio: 1},
	SensorIncoherent: {A: Red, B: Green, FrequencyHz: 1, Ratio: 2},
	StorageFull:      {A: Red, B: White, FrequencyHz: 1, Ratio: 1},
	StorageAccess:    {A: Red, B: White, FrequencyHz: 1, Ratio: 2},
}

// PatternFor returns the blink pattern for k.
func PatternFor(k FaultKind) (Pattern, bool) {
	if !k.Valid() {
		return Pattern{}, false
	}
	return patterns[k], true
}
