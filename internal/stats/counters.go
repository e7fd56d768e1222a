// Package stats holds the lock-free observability counters shared by the
// receiver and control workers.
package stats

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Counters are independent atomics; none of them is needed for correctness.
type Counters struct {
	RMC         atomic.Uint64
	ZDA         atomic.Uint64
	ZDG         atomic.Uint64
	GLL         atomic.Uint64
	GGA         atomic.Uint64
	Other       atomic.Uint64
	BadChecksum atomic.Uint64
	SHMWrites   atomic.Uint64
	ParseFail   atomic.Uint64
	LoopGPS     atomic.Uint64
	LoopSocket  atomic.Uint64
}

// Snapshot is a point-in-time copy of Counters. Fields are read one by one,
// so the copy is not atomic as a whole.
type Snapshot struct {
	RMC         uint64
	ZDA         uint64
	ZDG         uint64
	GLL         uint64
	GGA         uint64
	Other       uint64
	BadChecksum uint64
	SHMWrites   uint64
	ParseFail   uint64
	LoopGPS     uint64
	LoopSocket  uint64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		RMC:         c.RMC.Load(),
		ZDA:         c.ZDA.Load(),
		ZDG:         c.ZDG.Load(),
		GLL:         c.GLL.Load(),
		GGA:         c.GGA.Load(),
		Other:       c.Other.Load(),
		BadChecksum: c.BadChecksum.Load(),
		SHMWrites:   c.SHMWrites.Load(),
		ParseFail:   c.ParseFail.Load(),
		LoopGPS:     c.LoopGPS.Load(),
		LoopSocket:  c.LoopSocket.Load(),
	}
}

func (c *Counters) Reset() {
	for _, v := range c.all() {
		v.counter.Store(0)
	}
}

type namedCounter struct {
	name    string
	counter *atomic.Uint64
}

func (c *Counters) all() []namedCounter {
	return []namedCounter{
		{"rmc", &c.RMC},
		{"zda", &c.ZDA},
		{"zdg", &c.ZDG},
		{"gll", &c.GLL},
		{"gga", &c.GGA},
		{"other", &c.Other},
		{"badcs", &c.BadChecksum},
		{"shm_write", &c.SHMWrites},
		{"parse_fail", &c.ParseFail},
		{"loop_gps", &c.LoopGPS},
		{"loop_socket", &c.LoopSocket},
	}
}

// WriteTo prints one "name=value" line per counter.
func (c *Counters) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, v := range c.all() {
		n, err := fmt.Fprintf(w, "%s=%d\n", v.name, v.counter.Load())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Fields returns alternating key/value pairs suitable for zap's Infow.
func (c *Counters) Fields() []any {
	all := c.all()
	out := make([]any, 0, 2*len(all))
	for _, v := range all {
		out = append(out, v.name, v.counter.Load())
	}
	return out
}
