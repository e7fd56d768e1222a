package indicator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"ntpgps/internal/config"
)

type fakeLine struct {
	mu     sync.Mutex
	values []int
	closed bool
}

func (f *fakeLine) SetValue(v int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, v)
	return nil
}

func (f *fakeLine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeLine) snapshot() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.values...)
}

func withFakeLine(t *testing.T, fl *fakeLine, err error) {
	t.Helper()
	prev := openLineFn
	openLineFn = func(chip string, offset int) (line, error) {
		if err != nil {
			return nil, err
		}
		return fl, nil
	}
	t.Cleanup(func() { openLineFn = prev })
}

func TestIndicator_DisabledIsNoop(t *testing.T) {
	ind, err := Open(config.IndicatorConfig{}, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	ind.Fix()
	if err := ind.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if err := ind.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

func TestIndicator_Pulse(t *testing.T) {
	fl := &fakeLine{}
	withFakeLine(t, fl, nil)
	ind, err := Open(config.IndicatorConfig{Enable: true, Chip: "gpiochip0", Line: 17, Pulse: 5 * time.Millisecond}, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ind.Run(ctx) }()

	ind.Fix()
	deadline := time.Now().Add(2 * time.Second)
	for {
		v := fl.snapshot()
		if len(v) >= 2 {
			if v[0] != 1 || v[1] != 0 {
				t.Fatalf("unexpected sequence %v", v)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("pulse not completed, values=%v", v)
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if err := ind.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !fl.closed {
		t.Fatalf("line not released")
	}
}

func TestIndicator_OpenError(t *testing.T) {
	withFakeLine(t, nil, errors.New("busy"))
	if _, err := Open(config.IndicatorConfig{Enable: true}, nil); err == nil {
		t.Fatalf("expected error")
	}
}
