package gps

import (
	"strings"
	"testing"
)

type collected struct {
	lines     []string
	truncated []bool
}

func (c *collected) add(line string, truncated bool) {
	c.lines = append(c.lines, line)
	c.truncated = append(c.truncated, truncated)
}

func TestLineSplitter_SplitsAcrossReads(t *testing.T) {
	var l LineSplitter
	var c collected
	l.Feed([]byte("$GPRMC,1235"), c.add)
	l.Feed([]byte("19*00\r\n\r\n$GPZDA"), c.add)
	l.Feed([]byte(",x*00\n"), c.add)

	if len(c.lines) != 2 || c.lines[0] != "$GPRMC,123519*00" || c.lines[1] != "$GPZDA,x*00" {
		t.Fatalf("unexpected lines %q", c.lines)
	}
}

func TestLineSplitter_DropsCRInside(t *testing.T) {
	var l LineSplitter
	var c collected
	l.Feed([]byte("$GP\rGGA\r\n"), c.add)
	if len(c.lines) != 1 || c.lines[0] != "$GPGGA" {
		t.Fatalf("unexpected lines %q", c.lines)
	}
}

func TestLineSplitter_Truncates(t *testing.T) {
	var l LineSplitter
	var c collected
	l.Feed([]byte(strings.Repeat("x", MaxLine+100)+"\n$GPGLL\n"), c.add)
	if len(c.lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(c.lines))
	}
	if len(c.lines[0]) != MaxLine || !c.truncated[0] {
		t.Fatalf("first line len=%d truncated=%v", len(c.lines[0]), c.truncated[0])
	}
	if c.lines[1] != "$GPGLL" || c.truncated[1] {
		t.Fatalf("second line %q truncated=%v", c.lines[1], c.truncated[1])
	}
}

func TestLineSplitter_Reset(t *testing.T) {
	var l LineSplitter
	var c collected
	l.Feed([]byte{0xB5, 0x62, 0x05, 0x01}, c.add)
	l.Reset()
	l.Feed([]byte("$GPZDA\n"), c.add)
	if len(c.lines) != 1 || c.lines[0] != "$GPZDA" {
		t.Fatalf("unexpected lines %q", c.lines)
	}
}
