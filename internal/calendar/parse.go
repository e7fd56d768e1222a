package calendar

import (
	"errors"
	"fmt"
)

var (
	ErrDateFormat = errors.New("date must be YYYY-MM-DD or YYYYMMDD")
	ErrTimeFormat = errors.New("time must be HH:MM:SS or HHMMSS")
)

// ParseDate accepts YYYY-MM-DD or YYYYMMDD. The year must be in 1970..9999
// and the day must exist in that month.
func ParseDate(s string) (Date, error) {
	var y, m, d int
	var ok bool
	switch len(s) {
	case 10:
		if s[4] != '-' || s[7] != '-' {
			return Date{}, ErrDateFormat
		}
		y, ok = Digits(s[0:4])
		if ok {
			m, ok = Digits(s[5:7])
		}
		if ok {
			d, ok = Digits(s[8:10])
		}
	case 8:
		y, ok = Digits(s[0:4])
		if ok {
			m, ok = Digits(s[4:6])
		}
		if ok {
			d, ok = Digits(s[6:8])
		}
	}
	if !ok {
		return Date{}, ErrDateFormat
	}
	date := Date{Year: y, Month: m, Day: d}
	if !date.Valid() {
		return Date{}, fmt.Errorf("invalid date %s", s)
	}
	return date, nil
}

// ParseTime accepts HH:MM:SS or HHMMSS.
func ParseTime(s string) (TimeOfDay, error) {
	var parts [3]string
	switch len(s) {
	case 8:
		if s[2] != ':' || s[5] != ':' {
			return TimeOfDay{}, ErrTimeFormat
		}
		parts = [3]string{s[0:2], s[3:5], s[6:8]}
	case 6:
		parts = [3]string{s[0:2], s[2:4], s[4:6]}
	default:
		return TimeOfDay{}, ErrTimeFormat
	}
	var v [3]int
	for i, p := range parts {
		n, ok := Digits(p)
		if !ok {
			return TimeOfDay{}, ErrTimeFormat
		}
		v[i] = n
	}
	t := TimeOfDay{Hour: v[0], Minute: v[1], Second: v[2]}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("invalid time %s", s)
	}
	return t, nil
}

// Digits parses a non-empty string of ASCII digits. Signs, spaces and any
// other byte make it fail.
func Digits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
