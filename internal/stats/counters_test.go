package stats

import (
	"strings"
	"sync"
	"testing"
)

func TestCounters_ConcurrentAddAndReset(t *testing.T) {
	var c Counters
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.RMC.Add(1)
				c.SHMWrites.Add(1)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.RMC != 8000 || s.SHMWrites != 8000 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	c.Reset()
	if s := c.Snapshot(); s != (Snapshot{}) {
		t.Fatalf("expected zero snapshot after reset, got %+v", s)
	}
}

func TestCounters_WriteTo(t *testing.T) {
	var c Counters
	c.BadChecksum.Add(3)
	c.LoopSocket.Add(1)

	var b strings.Builder
	if _, err := c.WriteTo(&b); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	out := b.String()
	for _, want := range []string{"badcs=3\n", "loop_socket=1\n", "rmc=0\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if n := len(c.Fields()); n != 22 {
		t.Fatalf("Fields len=%d want 22", n)
	}
}
