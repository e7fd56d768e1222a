package state

import (
	"errors"
	"sync"
	"testing"

	"ntpgps/internal/calendar"
	"ntpgps/internal/nmea"
)

type recordingSeeds struct {
	writes int
	date   calendar.Date
	tod    calendar.TimeOfDay
	err    error
}

func (r *recordingSeeds) Write(d calendar.Date, t calendar.TimeOfDay) error {
	r.writes++
	r.date, r.tod = d, t
	return r.err
}

func TestFlushSeed_OnlyWhenDirty(t *testing.T) {
	s := New(nmea.State{})
	w := &recordingSeeds{}

	if wrote, err := s.FlushSeed(w); wrote || err != nil {
		t.Fatalf("clean state flushed: wrote=%v err=%v", wrote, err)
	}

	d := calendar.Date{Year: 2025, Month: 6, Day: 1}
	s.Do(func(st *nmea.State) {
		if err := st.SetUserDate(d); err != nil {
			t.Fatalf("SetUserDate: %v", err)
		}
		st.TimeOfDay = calendar.TimeOfDay{Hour: 1, Minute: 2, Second: 3}
	})
	wrote, err := s.FlushSeed(w)
	if !wrote || err != nil || w.writes != 1 || w.date != d || w.tod.Second != 3 {
		t.Fatalf("unexpected flush wrote=%v err=%v rec=%+v", wrote, err, w)
	}
	if s.Snapshot().Date.Dirty {
		t.Fatalf("dirty flag must be cleared")
	}
	if wrote, _ := s.FlushSeed(w); wrote {
		t.Fatalf("second flush must be a no-op")
	}
}

func TestFlushSeed_ErrorStillClearsDirty(t *testing.T) {
	s := New(nmea.State{})
	w := &recordingSeeds{err: errors.New("read-only file system")}
	wrote, err := s.DoAndFlush(w, func(st *nmea.State) {
		_ = st.SetUserDate(calendar.Date{Year: 2025, Month: 1, Day: 1})
	})
	if !wrote || err == nil {
		t.Fatalf("expected write error, wrote=%v err=%v", wrote, err)
	}
	if s.Snapshot().Date.Dirty {
		t.Fatalf("a failed write must not be retried on every line")
	}
}

func TestShared_ConcurrentAccess(t *testing.T) {
	s := New(nmea.State{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.Do(func(st *nmea.State) { st.RequireValid = !st.RequireValid })
			}
		}()
	}
	wg.Wait()
	if s.Snapshot().RequireValid {
		t.Fatalf("8000 toggles must leave the flag unchanged")
	}
}

func TestShared_Version(t *testing.T) {
	s := New(nmea.State{})
	if s.Version() != "" {
		t.Fatalf("expected empty version")
	}
	s.SetVersion("ROM CORE 3.01")
	if s.Version() != "ROM CORE 3.01" {
		t.Fatalf("version=%q", s.Version())
	}
}
