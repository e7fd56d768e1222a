// Package nmea decodes the UTC time carried by NMEA 0183 sentences and keeps
// track of the calendar date across sentences that only report a time of day.
//
// Only RMC, ZDA/ZDG, GLL and GGA are interpreted. Everything else is counted
// as "other" and, when debug logging is on, decoded for the log only.
package nmea

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"ntpgps/internal/calendar"
	"ntpgps/internal/stats"
)

// Parser turns one sentence into a Timestamp. It holds no date state of its
// own; that lives in State so that it can be shared under a lock.
type Parser struct {
	counters *stats.Counters
	log      *zap.SugaredLogger
}

func NewParser(counters *stats.Counters, log *zap.SugaredLogger) *Parser {
	if counters == nil {
		counters = &stats.Counters{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Parser{counters: counters, log: log}
}

// Parse decodes line (without the trailing CR/LF) against st. now must carry
// a monotonic clock reading; it is used for date rollover and recorded in
// the anchor.
//
// Rejected sentences return a zero Timestamp and one of the package errors.
// The stored date may still move forward for a rejected sentence when the
// only problem is ErrInvalidFix.
func (p *Parser) Parse(st *State, line string, now time.Time) (Timestamp, error) {
	s, err := parseSentence(line)
	if err != nil {
		var ce *ChecksumError
		if errors.As(err, &ce) {
			p.counters.BadChecksum.Add(1)
			p.log.Warnw("nmea checksum mismatch", "expected", hexByte(ce.Computed), "actual", hexByte(ce.Declared), "line", line)
		}
		return Timestamp{}, err
	}

	k := classify(s.ID)
	if !st.Filter.allows(k) {
		return Timestamp{}, ErrFiltered
	}
	p.count(k)

	var (
		timeField string
		date      calendar.Date
		hasDate   bool
		invalid   bool
	)
	switch k {
	case kindRMC:
		// RMC: Recommended Minimum Specific GNSS Data
		// Fields:
		// 1: UTC time hhmmss.ss
		// 2: Status A=valid, V=warning
		// 3-8: position, speed, course
		// 9: Date ddmmyy
		timeField = s.field(1)
		invalid = s.field(2) == "V"
		date, hasDate = rmcDate(s.field(9))
	case kindZDA, kindZDG:
		// ZDA: Time & Date
		// Fields:
		// 1: UTC time hhmmss.ss
		// 2: Day dd
		// 3: Month mm
		// 4: Year yyyy
		timeField = s.field(1)
		date, hasDate = zdaDate(s.field(2), s.field(3), s.field(4))
	case kindGLL:
		// GLL: Geographic Position
		// Fields:
		// 1-4: lat, N/S, lon, E/W
		// 5: UTC time hhmmss.ss
		// 6: Status A=valid, V=invalid
		if st.Date.IsZero() {
			return Timestamp{}, ErrNoDate
		}
		timeField = s.field(5)
		invalid = s.field(6) == "V"
	case kindGGA:
		// GGA: Global Positioning System Fix Data
		// Fields:
		// 1: UTC time hhmmss.ss
		// 6: Fix quality (0=invalid)
		if st.Date.IsZero() {
			return Timestamp{}, ErrNoDate
		}
		timeField = s.field(1)
		invalid = s.field(6) == "0"
	default:
		p.traceOther(line)
		return Timestamp{}, ErrUnsupported
	}

	tod, nanos, err := parseUTC(timeField)
	if err != nil {
		return Timestamp{}, err
	}

	if hasDate {
		st.setNMEADate(date)
	} else if st.Date.IsZero() {
		return Timestamp{}, ErrNoDate
	} else if st.rollover(now, tod) {
		p.log.Infow("date rollover", "date", st.Date.Date.String(), "sentence", s.ID)
	}

	if invalid && st.RequireValid {
		return Timestamp{}, ErrInvalidFix
	}

	sec := calendar.EpochSeconds(st.Date.Date, tod)
	st.TimeOfDay = tod
	st.Anchor = Anchor{Tick: now, Epoch: sec}
	return Timestamp{Seconds: sec, Nanos: nanos}, nil
}

func (p *Parser) count(k kind) {
	c := p.counters
	switch k {
	case kindRMC:
		c.RMC.Add(1)
	case kindZDA:
		c.ZDA.Add(1)
	case kindZDG:
		c.ZDG.Add(1)
	case kindGLL:
		c.GLL.Add(1)
	case kindGGA:
		c.GGA.Add(1)
	default:
		c.Other.Add(1)
	}
}

// fracScale[n] converts an n-digit fraction to nanoseconds.
var fracScale = [10]int32{0, 1e8, 1e7, 1e6, 1e5, 1e4, 1e3, 1e2, 1e1, 1}

// parseUTC parses hhmmss[.fff...]. Fraction digits past the ninth are
// ignored.
func parseUTC(s string) (calendar.TimeOfDay, int32, error) {
	if len(s) < 6 {
		return calendar.TimeOfDay{}, 0, ErrBadTime
	}
	hh, ok1 := calendar.Digits(s[0:2])
	mm, ok2 := calendar.Digits(s[2:4])
	ss, ok3 := calendar.Digits(s[4:6])
	if !ok1 || !ok2 || !ok3 {
		return calendar.TimeOfDay{}, 0, ErrBadTime
	}
	tod := calendar.TimeOfDay{Hour: hh, Minute: mm, Second: ss}
	if !tod.Valid() {
		return calendar.TimeOfDay{}, 0, ErrBadTime
	}

	rest := s[6:]
	if rest == "" {
		return tod, 0, nil
	}
	if rest[0] != '.' {
		return calendar.TimeOfDay{}, 0, ErrBadTime
	}
	frac := rest[1:]
	if len(frac) > 9 {
		frac = frac[:9]
	}
	if frac == "" {
		return tod, 0, nil
	}
	n, ok := calendar.Digits(frac)
	if !ok {
		return calendar.TimeOfDay{}, 0, ErrBadTime
	}
	return tod, int32(n) * fracScale[len(frac)], nil
}

// rmcDate parses ddmmyy. Two digit years 80..99 are 19xx, the rest 20xx.
func rmcDate(s string) (calendar.Date, bool) {
	if len(s) != 6 {
		return calendar.Date{}, false
	}
	dd, ok1 := calendar.Digits(s[0:2])
	mm, ok2 := calendar.Digits(s[2:4])
	yy, ok3 := calendar.Digits(s[4:6])
	if !ok1 || !ok2 || !ok3 {
		return calendar.Date{}, false
	}
	year := 2000 + yy
	if yy >= 80 {
		year = 1900 + yy
	}
	d := calendar.Date{Year: year, Month: mm, Day: dd}
	return d, d.Valid()
}

func zdaDate(day, month, year string) (calendar.Date, bool) {
	if len(day) != 2 || len(month) != 2 || len(year) != 4 {
		return calendar.Date{}, false
	}
	dd, ok1 := calendar.Digits(day)
	mm, ok2 := calendar.Digits(month)
	yyyy, ok3 := calendar.Digits(year)
	if !ok1 || !ok2 || !ok3 {
		return calendar.Date{}, false
	}
	d := calendar.Date{Year: yyyy, Month: mm, Day: dd}
	return d, d.Valid()
}

func hexByte(b byte) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[b>>4], digits[b&0x0f]})
}
