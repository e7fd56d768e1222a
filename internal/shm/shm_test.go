package shm

import (
	"testing"
	"time"
	"unsafe"
)

func TestTime_Layout(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("layout is defined for 64-bit platforms")
	}
	var v Time
	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"mode", unsafe.Offsetof(v.Mode), 0},
		{"count", unsafe.Offsetof(v.Count), 4},
		{"clockTimeStampSec", unsafe.Offsetof(v.ClockTimeStampSec), 8},
		{"clockTimeStampUSec", unsafe.Offsetof(v.ClockTimeStampUSec), 16},
		{"receiveTimeStampSec", unsafe.Offsetof(v.ReceiveTimeStampSec), 24},
		{"receiveTimeStampUSec", unsafe.Offsetof(v.ReceiveTimeStampUSec), 32},
		{"leap", unsafe.Offsetof(v.Leap), 36},
		{"precision", unsafe.Offsetof(v.Precision), 40},
		{"nsamples", unsafe.Offsetof(v.NSamples), 44},
		{"valid", unsafe.Offsetof(v.Valid), 48},
		{"clockTimeStampNSec", unsafe.Offsetof(v.ClockTimeStampNSec), 52},
		{"receiveTimeStampNSec", unsafe.Offsetof(v.ReceiveTimeStampNSec), 56},
		{"dummy", unsafe.Offsetof(v.Dummy), 60},
	}
	for _, o := range offsets {
		if o.got != o.want {
			t.Fatalf("offset of %s=%d want %d", o.name, o.got, o.want)
		}
	}
	if sz := unsafe.Sizeof(v); sz != Size {
		t.Fatalf("sizeof=%d want %d", sz, Size)
	}
}

func TestKey(t *testing.T) {
	if Key(0) != 0x4e545030 || Key(2) != 0x4e545032 {
		t.Fatalf("unexpected keys %#x %#x", Key(0), Key(2))
	}
}

func TestInitialize_Once(t *testing.T) {
	s := NewMemory()
	s.t.Count = 7
	s.Initialize(-1, LeapNoWarning, 3)
	s.Initialize(-20, LeapNotInSync, 9)

	if s.t.Mode != 1 || s.t.Precision != -1 || s.t.Leap != LeapNoWarning || s.t.NSamples != 3 {
		t.Fatalf("unexpected metadata %+v", *s.t)
	}
	if s.t.Count != 8 {
		t.Fatalf("odd count must be evened out, got %d", s.t.Count)
	}
	if _, ok := s.Snapshot(); ok {
		t.Fatalf("fresh segment must not be valid")
	}
}

func TestPublish_CounterAndValid(t *testing.T) {
	s := NewMemory()
	s.Initialize(-1, LeapNoWarning, 3)

	clock := time.Date(1994, 3, 23, 12, 35, 19, 250_000_000, time.UTC)
	recv := clock.Add(1500 * time.Microsecond)
	before := s.t.Count
	s.Publish(clock, recv)

	if s.t.Count != before+2 {
		t.Fatalf("count=%d want %d", s.t.Count, before+2)
	}
	got, ok := s.Snapshot()
	if !ok {
		t.Fatalf("expected valid sample")
	}
	if got.ClockTimeStampSec != clock.Unix() || got.ClockTimeStampUSec != 250000 || got.ClockTimeStampNSec != 250000000 {
		t.Fatalf("unexpected clock fields %+v", got)
	}
	if got.ReceiveTimeStampSec != recv.Unix() || got.ReceiveTimeStampUSec != 251500 || got.ReceiveTimeStampNSec != 251500000 {
		t.Fatalf("unexpected receive fields %+v", got)
	}
	if got.Mode != 1 || got.Precision != -1 || got.NSamples != 3 {
		t.Fatalf("metadata lost on publish: %+v", got)
	}
}

func TestPublish_ReaderNeverSeesMixedState(t *testing.T) {
	s := NewMemory()
	s.Initialize(-1, LeapNoWarning, 3)
	first := time.Unix(1_700_000_000, 0)
	s.Publish(first, first)
	pre, ok := s.Snapshot()
	if !ok {
		t.Fatalf("expected valid sample before second publish")
	}

	stages := 0
	s.step = func(stage string) {
		stages++
		got, ok := Read(s.t)
		if ok && got != pre {
			t.Fatalf("stage %s: reader saw mixed state %+v (pre %+v)", stage, got, pre)
		}
	}
	second := first.Add(time.Second)
	s.Publish(second, second)
	if stages != 4 {
		t.Fatalf("expected 4 stages, got %d", stages)
	}

	s.step = nil
	got, ok := s.Snapshot()
	if !ok || got.ClockTimeStampSec != second.Unix() || got.Count != pre.Count+2 {
		t.Fatalf("unexpected final sample %+v ok=%v", got, ok)
	}
}

func TestDetach_Memory(t *testing.T) {
	if err := NewMemory().Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}
}
