// Package calendar implements the integer-only proleptic Gregorian date and
// time-of-day arithmetic used to turn GPS sentences into epoch seconds.
package calendar

import "fmt"

const SecondsPerDay = 86400

// Date is a proleptic Gregorian calendar date. The zero value means "unset".
type Date struct {
	Year  int
	Month int
	Day   int
}

// TimeOfDay is a UTC wall-clock time. Second may be 60 during a leap second.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func (d Date) IsZero() bool { return d.Day == 0 }

// Valid reports whether d names a day that exists, from 1970 onward.
func (d Date) Valid() bool {
	if d.Year < 1970 || d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}
	return d.Day <= DaysInMonth(d.Year, d.Month)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// AddDays returns d shifted by delta days (negative moves backwards).
func (d Date) AddDays(delta int64) Date {
	if delta == 0 {
		return d
	}
	return DaysToDate(DateToDays(d) + delta)
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 &&
		t.Minute >= 0 && t.Minute <= 59 &&
		t.Second >= 0 && t.Second <= 60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Seconds returns the number of seconds since midnight.
func (t TimeOfDay) Seconds() int64 {
	return int64(t.Hour)*3600 + int64(t.Minute)*60 + int64(t.Second)
}

// AddSeconds shifts t by delta seconds, wrapping around midnight in both
// directions. A leap second (ss=60) is folded into the next minute.
func (t TimeOfDay) AddSeconds(delta int64) TimeOfDay {
	s := (t.Seconds() + delta) % SecondsPerDay
	if s < 0 {
		s += SecondsPerDay
	}
	return TimeOfDayFromSeconds(s)
}

// TimeOfDayFromSeconds converts seconds since midnight (0..86399) to a
// TimeOfDay. Values outside the range are reduced modulo one day.
func TimeOfDayFromSeconds(s int64) TimeOfDay {
	s %= SecondsPerDay
	if s < 0 {
		s += SecondsPerDay
	}
	return TimeOfDay{
		Hour:   int(s / 3600),
		Minute: int(s % 3600 / 60),
		Second: int(s % 60),
	}
}

// CompareTimes orders two times of day lexicographically and returns -1, 0
// or +1.
func CompareTimes(a, b TimeOfDay) int {
	switch {
	case a.Hour != b.Hour:
		return sign(a.Hour - b.Hour)
	case a.Minute != b.Minute:
		return sign(a.Minute - b.Minute)
	default:
		return sign(a.Second - b.Second)
	}
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DaysInMonth returns 0 for an out of range month.
func DaysInMonth(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	if month == 2 && IsLeap(year) {
		return 29
	}
	return monthDays[month-1]
}

// DateToDays returns the number of days since 1970-01-01.
//
// This is the days-from-civil algorithm: years are shifted so that March is
// the first month, which puts the leap day at the end of the year and makes
// the month lengths a linear function.
func DateToDays(d Date) int64 {
	y := int64(d.Year)
	m := int64(d.Month)
	if m <= 2 {
		y--
	}
	era := floorDiv(y, 400)
	yoe := y - era*400 // [0, 399]
	mp := (m + 9) % 12 // March=0
	doy := (153*mp+2)/5 + int64(d.Day) - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy // [0, 146096]
	return era*146097 + doe - 719468
}

// DaysToDate is the inverse of DateToDays.
func DaysToDate(days int64) Date {
	z := days + 719468
	era := floorDiv(z, 146097)
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d := doy - (153*mp+2)/5 + 1
	m := mp + 3
	if m > 12 {
		m -= 12
	}
	if m <= 2 {
		y++
	}
	return Date{Year: int(y), Month: int(m), Day: int(d)}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// EpochSeconds is timegm for a validated date and time of day.
func EpochSeconds(d Date, t TimeOfDay) int64 {
	return DateToDays(d)*SecondsPerDay + t.Seconds()
}

// SplitEpoch is the inverse of EpochSeconds for non-negative inputs.
func SplitEpoch(sec int64) (Date, TimeOfDay) {
	days := floorDiv(sec, SecondsPerDay)
	return DaysToDate(days), TimeOfDayFromSeconds(sec - days*SecondsPerDay)
}
