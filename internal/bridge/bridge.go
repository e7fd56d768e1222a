// Package bridge runs the receiver and control workers and owns the process
// resources: serial line, SHM segment, control socket and fix indicator.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"ntpgps/internal/config"
	"ntpgps/internal/control"
	"ntpgps/internal/gps"
	"ntpgps/internal/indicator"
	"ntpgps/internal/logging"
	"ntpgps/internal/nmea"
	"ntpgps/internal/seed"
	"ntpgps/internal/shm"
	"ntpgps/internal/state"
	"ntpgps/internal/stats"
	"ntpgps/internal/ubx"
)

// ErrDeviceGone is returned by Run when the serial device reports EOF, e.g.
// after a USB receiver was unplugged.
var ErrDeviceGone = errors.New("gps device closed")

const readWait = time.Second

// Port is the receiver line.
type Port interface {
	ubx.Port
	io.Closer
}

type Bridge struct {
	cfg config.Config
	log *logging.Logger

	port     Port
	seg      *shm.Segment
	ind      *indicator.Indicator
	ctl      *control.Server
	handler  *control.Handler
	state    *state.Shared
	counters *stats.Counters
	parser   *nmea.Parser
	seeds    seed.Store

	// now stamps received data; it must carry a monotonic reading.
	now    func() time.Time
	cancel context.CancelFunc
}

// Open acquires every resource named by cfg. On failure whatever was already
// acquired is released again.
func Open(cfg config.Config, log *logging.Logger) (_ *Bridge, err error) {
	var (
		port *gps.Serial
		seg  *shm.Segment
		ind  *indicator.Indicator
	)
	defer func() {
		if err == nil {
			return
		}
		if ind != nil {
			_ = ind.Close()
		}
		if seg != nil {
			_ = seg.Detach()
		}
		if port != nil {
			_ = port.Close()
		}
	}()

	port, err = gps.Open(cfg.DevicePath(), gps.Options{Baud: cfg.Baud, NoRaw: !cfg.Raw})
	if err != nil {
		return nil, err
	}
	log.Infow("gps enabled", "device", port.Path(), "baud", cfg.Baud, "raw", cfg.Raw)

	perm, err := cfg.SHM.PermBits()
	if err != nil {
		return nil, err
	}
	seg, err = shm.Attach(cfg.Unit, perm)
	if err != nil {
		return nil, err
	}
	log.Infow("shm attached", "unit", cfg.Unit, "key", fmt.Sprintf("%#x", shm.Key(cfg.Unit)))

	ind, err = indicator.Open(cfg.Indicator, log.Named("indicator"))
	if err != nil {
		return nil, err
	}

	return New(cfg, log, port, seg, ind)
}

// New wires already opened resources together, loads the seed files and
// starts listening on the control socket. It takes ownership of port, seg
// and ind only when it succeeds.
func New(cfg config.Config, log *logging.Logger, port Port, seg *shm.Segment, ind *indicator.Indicator) (*Bridge, error) {
	b := &Bridge{
		cfg:      cfg,
		log:      log,
		port:     port,
		seg:      seg,
		ind:      ind,
		counters: &stats.Counters{},
		seeds:    seed.Store{Dir: cfg.SeedDir},
		now:      time.Now,
	}
	b.parser = nmea.NewParser(b.counters, log.Named("nmea"))
	b.state = state.New(b.initialState())

	seg.Initialize(cfg.SHM.Precision, cfg.SHM.Leap, cfg.SHM.NSamples)

	b.handler = &control.Handler{
		State:    b.state,
		Counters: b.counters,
		Log:      log,
		Seeds:    b.seeds,
		Shutdown: b.requestShutdown,
	}
	ctl, err := control.Listen(cfg.SocketPath(), b.handler, b.counters, log.Named("control"))
	if err != nil {
		return nil, err
	}
	b.ctl = ctl
	return b, nil
}

func (b *Bridge) initialState() nmea.State {
	filter, err := b.cfg.NMEAFilter()
	if err != nil {
		b.log.Warnw("invalid nmea filter ignored, accepting all sentences", "filter", b.cfg.Filter, "err", err)
	}
	st := nmea.State{RequireValid: b.cfg.RequireValid, Filter: filter}

	if d, ok, err := b.seeds.ReadDate(); err != nil {
		b.log.Warnw("date seed unreadable", "path", b.seeds.DatePath(), "err", err)
	} else if ok {
		st.Date.Date = d
		b.log.Infow("loaded stored date", "date", d.String())
	}
	if t, ok, err := b.seeds.ReadTime(); err != nil {
		b.log.Warnw("time seed unreadable", "path", b.seeds.TimePath(), "err", err)
	} else if ok {
		st.TimeOfDay = t
	}
	return st
}

func (b *Bridge) State() *state.Shared      { return b.state }
func (b *Bridge) Counters() *stats.Counters { return b.counters }
func (b *Bridge) SocketPath() string        { return b.ctl.Path() }
func (b *Bridge) Segment() *shm.Segment     { return b.seg }

// Run blocks until ctx is done, SHUTDOWN is received or the receiver worker
// fails. It returns nil for a requested shutdown.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.receive(gctx) })
	g.Go(func() error { return b.ctl.Serve(gctx) })
	g.Go(func() error { return b.ind.Run(gctx) })

	err := g.Wait()
	b.log.Infow("workers stopped", b.counters.Fields()...)
	return err
}

func (b *Bridge) requestShutdown() {
	b.log.Infow("shutdown requested over control socket")
	if b.cancel != nil {
		b.cancel()
	}
}

// Close releases resources in a fixed order: control endpoint, SHM segment,
// serial line, socket file, indicator.
func (b *Bridge) Close() error {
	var err error
	if _, ferr := b.state.FlushSeed(b.seeds); ferr != nil {
		b.log.Warnw("seed write failed", "err", ferr)
	}
	err = multierr.Append(err, b.ctl.Close())
	if derr := b.seg.Detach(); derr != nil {
		b.log.Warnw("shm detach failed", "err", derr)
		err = multierr.Append(err, derr)
	}
	err = multierr.Append(err, b.port.Close())
	err = multierr.Append(err, b.ctl.Remove())
	err = multierr.Append(err, b.ind.Close())
	return err
}
