// Package shm writes timestamps into the NTP shared memory reference clock
// segment (ntpd refclock type 28, chrony "SHM").
//
// References:
// http://doc.ntp.org/current-stable/drivers/driver28.html
package shm

import (
	"sync"
	"sync/atomic"
	"time"
)

// KeyBase is "NTP0"; unit N uses KeyBase+N.
const KeyBase = 0x4e545030

// Size is sizeof(struct shmTime) with a 64-bit time_t.
const Size = 96

func Key(unit int) int { return KeyBase + unit }

// Time mirrors struct shmTime. Field order and widths are ABI; offsets are
// noted for the 64-bit layout.
type Time struct {
	Mode                 int32    // 0
	Count                int32    // 4
	ClockTimeStampSec    int64    // 8
	ClockTimeStampUSec   int32    // 16
	ReceiveTimeStampSec  int64    // 24
	ReceiveTimeStampUSec int32    // 32
	Leap                 int32    // 36
	Precision            int32    // 40
	NSamples             int32    // 44
	Valid                int32    // 48
	ClockTimeStampNSec   uint32   // 52
	ReceiveTimeStampNSec uint32   // 56
	Dummy                [8]int32 // 60
}

// Leap indicator values.
const (
	LeapNoWarning = 0
	LeapAddSecond = 1
	LeapDelSecond = 2
	LeapNotInSync = 3
)

// Segment is an attached shared time segment. There must be exactly one
// writer per segment; Publish is not safe for concurrent use.
type Segment struct {
	t      *Time
	detach func() error

	initOnce sync.Once

	// step, when set, runs between the stages of Publish.
	step func(stage string)
}

// NewMemory returns a segment backed by ordinary process memory.
func NewMemory() *Segment {
	return &Segment{t: new(Time)}
}

// Initialize writes the static metadata. Only the first call has an effect.
// Mode 1 means the reader clears Valid after consuming a sample.
func (s *Segment) Initialize(precision, leap, nsamples int32) {
	s.initOnce.Do(func() {
		t := s.t
		atomic.StoreInt32(&t.Valid, 0)
		t.Mode = 1
		t.Precision = precision
		t.Leap = leap
		t.NSamples = nsamples
		// A previous writer may have left an odd count behind.
		if c := atomic.LoadInt32(&t.Count); c&1 != 0 {
			atomic.AddInt32(&t.Count, 1)
		}
	})
}

// Publish stores one sample. The segment is updated as
//
//	valid = 0; count++; <copy fields>; count++; valid = 1
//
// so a reader that sees valid == 0 or a count that changed while it was
// copying discards the sample.
func (s *Segment) Publish(clock, receive time.Time) {
	t := s.t

	next := *t
	next.ClockTimeStampSec = clock.Unix()
	next.ClockTimeStampUSec = int32(clock.Nanosecond() / 1000)
	next.ClockTimeStampNSec = uint32(clock.Nanosecond())
	next.ReceiveTimeStampSec = receive.Unix()
	next.ReceiveTimeStampUSec = int32(receive.Nanosecond() / 1000)
	next.ReceiveTimeStampNSec = uint32(receive.Nanosecond())
	next.Count = atomic.LoadInt32(&t.Count) + 1
	next.Valid = 0

	atomic.StoreInt32(&t.Valid, 0)
	s.stage("invalidated")
	atomic.AddInt32(&t.Count, 1)
	s.stage("counted")
	*t = next
	s.stage("copied")
	atomic.AddInt32(&t.Count, 1)
	s.stage("recounted")
	atomic.StoreInt32(&t.Valid, 1)
}

func (s *Segment) stage(name string) {
	if s.step != nil {
		s.step(name)
	}
}

// Snapshot reads the segment the way a reader does.
func (s *Segment) Snapshot() (Time, bool) { return Read(s.t) }

// Detach releases the mapping. The segment itself stays so that the reader
// keeps its attachment across writer restarts.
func (s *Segment) Detach() error {
	if s.detach == nil {
		return nil
	}
	err := s.detach()
	s.detach = nil
	return err
}

// Read copies a consistent sample out of t, or reports false when a write is
// in progress or no sample is available.
func Read(t *Time) (Time, bool) {
	before := atomic.LoadInt32(&t.Count)
	if before&1 != 0 || atomic.LoadInt32(&t.Valid) == 0 {
		return Time{}, false
	}
	snap := *t
	if atomic.LoadInt32(&t.Count) != before {
		return Time{}, false
	}
	return snap, true
}
