package nmea

import (
	"errors"
	"fmt"
	"time"

	"ntpgps/internal/calendar"
)

// Source records who supplied the stored date.
type Source int

const (
	SourceUser Source = iota
	SourceNMEA
)

func (s Source) String() string {
	if s == SourceNMEA {
		return "NMEA"
	}
	return "User"
}

// StoredDate is the best known calendar date. Once Source is SourceNMEA it
// stays that way for the rest of the process lifetime.
type StoredDate struct {
	calendar.Date
	Source Source
	// Dirty is set when the date changed and has not been persisted yet.
	Dirty bool
}

// Anchor pairs a monotonic clock reading with the epoch seconds decoded at
// that moment.
type Anchor struct {
	Tick  time.Time
	Epoch int64
}

func (a Anchor) IsZero() bool { return a.Tick.IsZero() }

// Timestamp is a decoded GPS UTC time.
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

func (t Timestamp) Time() time.Time { return time.Unix(t.Seconds, int64(t.Nanos)).UTC() }

// State is the mutable parser state. It carries no lock: callers serialize
// access (see state.Shared).
type State struct {
	Date      StoredDate
	TimeOfDay calendar.TimeOfDay
	Anchor    Anchor

	// RequireValid rejects sentences whose status field reports no fix.
	RequireValid bool
	Filter       Filter
}

// ErrDateLocked is returned by SetUserDate once a GPS date has been seen.
var ErrDateLocked = errors.New("date locked")

// DateLockedError carries the GPS date that holds the lock.
type DateLockedError struct {
	Date calendar.Date
}

func (e *DateLockedError) Error() string {
	return fmt.Sprintf("date locked (NMEA:%s)", e.Date)
}

func (e *DateLockedError) Is(target error) bool { return target == ErrDateLocked }

// SetUserDate stores an operator supplied date. It fails once the receiver
// has provided a date.
func (s *State) SetUserDate(d calendar.Date) error {
	if s.Date.Source == SourceNMEA {
		return &DateLockedError{Date: s.Date.Date}
	}
	if !d.Valid() {
		return fmt.Errorf("invalid date %s", d)
	}
	if d != s.Date.Date {
		s.Date.Dirty = true
	}
	s.Date.Date = d
	return nil
}

// setNMEADate records a date decoded from a sentence.
func (s *State) setNMEADate(d calendar.Date) {
	if s.Date.Source != SourceNMEA || s.Date.Date != d {
		s.Date.Dirty = true
	}
	s.Date.Date = d
	s.Date.Source = SourceNMEA
}

// rollover advances the stored date for a time-only sentence using the real
// time elapsed since the anchor. tod is the sentence's own time of day.
func (s *State) rollover(now time.Time, tod calendar.TimeOfDay) bool {
	if s.Anchor.IsZero() || s.Date.IsZero() {
		return false
	}
	elapsed := int64(now.Sub(s.Anchor.Tick) / time.Second)
	if elapsed < 0 {
		return false
	}
	anchorDay := s.Anchor.Epoch / calendar.SecondsPerDay
	anchorTOD := s.Anchor.Epoch % calendar.SecondsPerDay

	days := elapsed / calendar.SecondsPerDay
	if elapsed%calendar.SecondsPerDay+anchorTOD >= calendar.SecondsPerDay {
		days++
	}

	// Whole-second truncation of elapsed can land one day short right at
	// midnight. The sentence time of day must be within half a day of the
	// prediction.
	predicted := s.Anchor.Epoch + elapsed
	got := (anchorDay+days)*calendar.SecondsPerDay + tod.Seconds()
	switch {
	case got-predicted > calendar.SecondsPerDay/2:
		days--
	case predicted-got > calendar.SecondsPerDay/2:
		days++
	}
	if days <= 0 {
		return false
	}

	target := anchorDay + days
	if target <= calendar.DateToDays(s.Date.Date) {
		return false
	}
	s.Date.Date = calendar.DaysToDate(target)
	s.Date.Dirty = true
	return true
}
