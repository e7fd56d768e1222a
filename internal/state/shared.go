// Package state holds the parser state shared by the receiver and control
// workers behind a single mutex.
package state

import (
	"sync"

	"ntpgps/internal/calendar"
	"ntpgps/internal/nmea"
)

// SeedWriter persists the stored date and time of day.
type SeedWriter interface {
	Write(d calendar.Date, t calendar.TimeOfDay) error
}

type Shared struct {
	mu      sync.Mutex
	st      nmea.State
	version string
}

func New(initial nmea.State) *Shared {
	return &Shared{st: initial}
}

// Do runs fn with the lock held. fn must not block on I/O.
func (s *Shared) Do(fn func(st *nmea.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.st)
}

// Snapshot returns a copy of the current state.
func (s *Shared) Snapshot() nmea.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// FlushSeed writes the seed files if the stored date changed since the last
// flush. The write happens under the lock so that the files always describe
// one consistent state.
func (s *Shared) FlushSeed(w SeedWriter) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return flushLocked(&s.st, w)
}

func flushLocked(st *nmea.State, w SeedWriter) (bool, error) {
	if !st.Date.Dirty || w == nil {
		return false, nil
	}
	st.Date.Dirty = false
	return true, w.Write(st.Date.Date, st.TimeOfDay)
}

// DoAndFlush runs fn and then FlushSeed without releasing the lock in
// between.
func (s *Shared) DoAndFlush(w SeedWriter, fn func(st *nmea.State)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.st)
	return flushLocked(&s.st, w)
}

// SetVersion records the receiver's MON-VER summary.
func (s *Shared) SetVersion(v string) {
	s.mu.Lock()
	s.version = v
	s.mu.Unlock()
}

func (s *Shared) Version() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}
