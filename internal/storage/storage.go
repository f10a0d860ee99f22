// Package storage holds what the reading recorders share: the full-medium
// sentinel, fault classification and the CSV line format.
package storage

import (
	"errors"
	"strconv"
	"time"

	"weatherwatcher/internal/feedback"
	"weatherwatcher/internal/gps"
	"weatherwatcher/internal/sensor"
)

// ErrFull means the medium has no space left.
var ErrFull = errors.New("storage: medium full")

// Clock supplies record timestamps; rtc.Clock satisfies it.
type Clock interface {
	Now() time.Time
}

// FaultFor maps a recorder error to the LED fault it raises.
func FaultFor(err error) feedback.FaultKind {
	if errors.Is(err, ErrFull) {
		return feedback.StorageFull
	}
	return feedback.StorageAccess
}

// CSVHeader names the columns written by AppendCSV.
const CSVHeader = "time;temperature;humidity;pressure;luminosity;" +
	"temperature_fault;humidity_fault;pressure_fault;luminosity_fault;" +
	"latitude;longitude;fix"

// AppendCSV appends one semicolon separated record, without newline, to dst.
func AppendCSV(dst []byte, ts time.Time, r sensor.Reading, fix gps.Fix) []byte {
	dst = ts.UTC().AppendFormat(dst, time.RFC3339)
	for _, c := range sensor.Channels {
		dst = append(dst, ';')
		dst = strconv.AppendFloat(dst, r.Value(c), 'f', 2, 64)
	}
	for _, c := range sensor.Channels {
		dst = append(dst, ';')
		dst = appendBool(dst, r.Fault(c))
	}
	dst = append(dst, ';')
	dst = strconv.AppendFloat(dst, fix.Latitude, 'f', 6, 64)
	dst = append(dst, ';')
	dst = strconv.AppendFloat(dst, fix.Longitude, 'f', 6, 64)
	dst = append(dst, ';')
	dst = appendBool(dst, fix.Valid)
	return dst
}

func appendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, '1')
	}
	return append(dst, '0')
}
