package calendar

import (
	"testing"
	"time"
)

func TestDateToDays_RoundTrip(t *testing.T) {
	for y := 1970; y <= 2400; y++ {
		for m := 1; m <= 12; m++ {
			for d := 1; d <= DaysInMonth(y, m); d++ {
				in := Date{Year: y, Month: m, Day: d}
				got := DaysToDate(DateToDays(in))
				if got != in {
					t.Fatalf("round trip %v -> %d -> %v", in, DateToDays(in), got)
				}
			}
		}
	}
}

func TestDateToDays_MatchesTimePackage(t *testing.T) {
	cases := []Date{
		{1970, 1, 1},
		{1994, 3, 23},
		{2000, 2, 29},
		{2024, 12, 31},
		{2100, 3, 1},
		{9999, 12, 31},
	}
	for _, d := range cases {
		want := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC).Unix() / SecondsPerDay
		if got := DateToDays(d); got != want {
			t.Fatalf("DateToDays(%v)=%d want %d", d, got, want)
		}
	}
}

func TestIsLeap(t *testing.T) {
	cases := map[int]bool{1900: false, 1996: true, 2000: true, 2023: false, 2024: true, 2100: false, 2400: true}
	for y, want := range cases {
		if got := IsLeap(y); got != want {
			t.Fatalf("IsLeap(%d)=%v want %v", y, got, want)
		}
	}
}

func TestAddDays(t *testing.T) {
	cases := []struct {
		in    Date
		delta int64
		want  Date
	}{
		{Date{2025, 1, 31}, 1, Date{2025, 2, 1}},
		{Date{2024, 2, 28}, 1, Date{2024, 2, 29}},
		{Date{2023, 2, 28}, 1, Date{2023, 3, 1}},
		{Date{2024, 12, 31}, 1, Date{2025, 1, 1}},
		{Date{2025, 3, 1}, -1, Date{2025, 2, 28}},
		{Date{2025, 1, 1}, 400, Date{2026, 2, 5}},
		{Date{2025, 6, 15}, 0, Date{2025, 6, 15}},
	}
	for _, tc := range cases {
		if got := tc.in.AddDays(tc.delta); got != tc.want {
			t.Fatalf("%v.AddDays(%d)=%v want %v", tc.in, tc.delta, got, tc.want)
		}
	}
}

func TestTimeOfDay_AddSecondsWraps(t *testing.T) {
	cases := []struct {
		in    TimeOfDay
		delta int64
		want  TimeOfDay
	}{
		{TimeOfDay{23, 59, 50}, 15, TimeOfDay{0, 0, 5}},
		{TimeOfDay{0, 0, 5}, -10, TimeOfDay{23, 59, 55}},
		{TimeOfDay{12, 0, 0}, 3 * SecondsPerDay, TimeOfDay{12, 0, 0}},
		{TimeOfDay{12, 0, 0}, -SecondsPerDay - 1, TimeOfDay{11, 59, 59}},
	}
	for _, tc := range cases {
		if got := tc.in.AddSeconds(tc.delta); got != tc.want {
			t.Fatalf("%v.AddSeconds(%d)=%v want %v", tc.in, tc.delta, got, tc.want)
		}
	}
}

func TestCompareTimes(t *testing.T) {
	a := TimeOfDay{10, 20, 30}
	if CompareTimes(a, a) != 0 {
		t.Fatalf("expected equal")
	}
	if CompareTimes(a, TimeOfDay{10, 20, 31}) != -1 {
		t.Fatalf("expected less by second")
	}
	if CompareTimes(TimeOfDay{11, 0, 0}, a) != 1 {
		t.Fatalf("expected greater by hour")
	}
	if CompareTimes(TimeOfDay{10, 19, 59}, a) != -1 {
		t.Fatalf("expected less by minute")
	}
}

func TestEpochSeconds(t *testing.T) {
	d := Date{1994, 3, 23}
	tod := TimeOfDay{12, 35, 19}
	want := time.Date(1994, 3, 23, 12, 35, 19, 0, time.UTC).Unix()
	if got := EpochSeconds(d, tod); got != want {
		t.Fatalf("EpochSeconds=%d want %d", got, want)
	}
	gd, gt := SplitEpoch(want)
	if gd != d || gt != tod {
		t.Fatalf("SplitEpoch=%v %v", gd, gt)
	}
}

func TestParseDate(t *testing.T) {
	good := map[string]Date{
		"2025-01-31": {2025, 1, 31},
		"20240229":   {2024, 2, 29},
		"1970-01-01": {1970, 1, 1},
	}
	for in, want := range good {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseDate(%q)=%v want %v", in, got, want)
		}
	}
	for _, in := range []string{"", "2025-1-31", "2023-02-29", "1969-12-31", "2025/01/31", "2025-13-01", "abcd-ef-gh", "2025-01-00"} {
		if _, err := ParseDate(in); err == nil {
			t.Fatalf("ParseDate(%q) expected error", in)
		}
	}
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("23:59:60")
	if err != nil || got != (TimeOfDay{23, 59, 60}) {
		t.Fatalf("ParseTime leap second: %v %v", got, err)
	}
	got, err = ParseTime("075900")
	if err != nil || got != (TimeOfDay{7, 59, 0}) {
		t.Fatalf("ParseTime compact: %v %v", got, err)
	}
	for _, in := range []string{"24:00:00", "12:60:00", "12-00-00", "1200", "12:00:0a"} {
		if _, err := ParseTime(in); err == nil {
			t.Fatalf("ParseTime(%q) expected error", in)
		}
	}
}
