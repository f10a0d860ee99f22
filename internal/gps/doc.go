// Package gps reads NMEA 0183 position fixes from a serial GNSS receiver.
//
// Parser extracts latitude and longitude from GGA and RMC sentences without
// allocating. Port supplies the bytes from a non-blocking tty.
package gps
