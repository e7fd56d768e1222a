// Package indicator drives an optional GPIO output (typically an LED) that
// pulses once for every timestamp published to the SHM segment.
package indicator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ntpgps/internal/config"
)

var openLineFn = openLine

// line is a digital output.
type line interface {
	SetValue(v int) error
	Close() error
}

type Indicator struct {
	out   line
	pulse time.Duration
	kick  chan struct{}
	log   *zap.SugaredLogger
}

// Open requests the configured line. A disabled indicator is returned as a
// no-op whose methods are safe to call.
func Open(cfg config.IndicatorConfig, log *zap.SugaredLogger) (*Indicator, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ind := &Indicator{pulse: cfg.Pulse, kick: make(chan struct{}, 1), log: log}
	if !cfg.Enable {
		return ind, nil
	}
	if ind.pulse <= 0 {
		ind.pulse = 50 * time.Millisecond
	}
	out, err := openLineFn(cfg.Chip, cfg.Line)
	if err != nil {
		return nil, fmt.Errorf("indicator: %w", err)
	}
	ind.out = out
	log.Infow("fix indicator enabled", "chip", cfg.Chip, "line", cfg.Line, "pulse", ind.pulse)
	return ind, nil
}

func (i *Indicator) Enabled() bool { return i != nil && i.out != nil }

// Fix requests a pulse. It never blocks; pulses requested while one is
// already pending are merged.
func (i *Indicator) Fix() {
	if !i.Enabled() {
		return
	}
	select {
	case i.kick <- struct{}{}:
	default:
	}
}

// Run turns the line on for each requested pulse until ctx is done.
func (i *Indicator) Run(ctx context.Context) error {
	if !i.Enabled() {
		return nil
	}
	off := time.NewTimer(time.Hour)
	off.Stop()
	defer off.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-i.kick:
			if err := i.out.SetValue(1); err != nil {
				i.log.Warnw("indicator set failed", "err", err)
				continue
			}
			off.Reset(i.pulse)
		case <-off.C:
			if err := i.out.SetValue(0); err != nil {
				i.log.Warnw("indicator set failed", "err", err)
			}
		}
	}
}

// Close switches the line off and releases it.
func (i *Indicator) Close() error {
	if !i.Enabled() {
		return nil
	}
	_ = i.out.SetValue(0)
	err := i.out.Close()
	i.out = nil
	return err
}
