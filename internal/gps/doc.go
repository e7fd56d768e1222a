// Package gps owns the serial line to the GNSS receiver: opening it in raw
// mode, restoring the original line settings on exit and splitting the byte
// stream into NMEA lines.
package gps
