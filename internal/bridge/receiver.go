package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"ntpgps/internal/gps"
	"ntpgps/internal/nmea"
	"ntpgps/internal/ubx"
)

// receive configures the receiver once and then turns lines into SHM
// samples until ctx is done or the device goes away.
func (b *Bridge) receive(ctx context.Context) error {
	b.configure(ctx)

	var lines gps.LineSplitter
	buf := make([]byte, 256)
	for {
		if ctx.Err() != nil {
			return nil
		}
		b.counters.LoopGPS.Add(1)

		if err := b.port.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			return fmt.Errorf("gps: %w", err)
		}
		n, err := b.port.Read(buf)
		if n > 0 {
			now := b.now()
			lines.Feed(buf[:n], func(line string, truncated bool) {
				if truncated {
					b.log.Debugw("gps line truncated", "len", gps.MaxLine)
				}
				b.handleLine(line, now)
			})
		}
		switch {
		case err == nil:
		case errors.Is(err, os.ErrDeadlineExceeded):
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, io.EOF):
			b.log.Warnw("gps device closed")
			return ErrDeviceGone
		default:
			return fmt.Errorf("gps read: %w", err)
		}
	}
}

// handleLine parses one line and publishes the decoded time. Parsing,
// publishing and the seed write share one critical section so that the
// control worker never observes a half applied sentence.
func (b *Bridge) handleLine(line string, now time.Time) {
	b.log.Debugw("gps line", "line", line)

	var (
		ts  nmea.Timestamp
		err error
	)
	wrote, ferr := b.state.DoAndFlush(b.seeds, func(st *nmea.State) {
		ts, err = b.parser.Parse(st, line, now)
		if err == nil {
			b.seg.Publish(ts.Time(), now)
			b.counters.SHMWrites.Add(1)
		}
	})
	if ferr != nil {
		b.log.Warnw("seed write failed", "dir", b.seeds.Dir, "err", ferr)
	} else if wrote {
		b.log.Debugw("seed updated", "dir", b.seeds.Dir)
	}

	if err != nil {
		b.counters.ParseFail.Add(1)
		if !errors.Is(err, nmea.ErrFiltered) && !errors.Is(err, nmea.ErrUnsupported) {
			b.log.Debugw("nmea rejected", "err", err, "line", line)
		}
		return
	}
	b.ind.Fix()
	b.log.Debugw("shm write", "clock", ts.Time().Format(time.RFC3339Nano), "receive", now.UTC().Format(time.RFC3339Nano))
}

// configure runs the receiver configuration selected in cfg.UBlox. Every
// step is best effort: a receiver that is not a u-blox, or does not answer,
// still gets its NMEA output read.
func (b *Bridge) configure(ctx context.Context) {
	u := b.cfg.UBlox
	if !u.Query && u.Only == "" && len(u.Enable) == 0 && len(u.Disable) == 0 && !u.Save {
		return
	}
	log := b.log.Named("ubx")
	sess := ubx.NewSession(b.port, u.SessionConfig(), log)
	cat := ubx.NewCatalog(uint32(b.cfg.Baud))

	if u.Query {
		v, err := sess.QueryVersion(ctx, cat)
		if err != nil {
			// Only a receiver that answered MON-VER is reconfigured.
			log.Warnw("failed to get UBX-MON-VER, skipping receiver configuration", "err", err)
			return
		}
		log.Infow("receiver version", "sw", v.Software, "hw", v.Hardware, "ext", v.Extensions)
		b.state.SetVersion(v.String())
	}

	var seqs []ubx.Sequence
	if u.Only != "" {
		seq, err := cat.Only(u.Only)
		if err != nil {
			log.Warnw("ublox only ignored", "err", err)
		} else {
			seqs = append(seqs, seq)
		}
	}
	if len(u.Enable) > 0 || len(u.Disable) > 0 {
		seq, err := cat.Switch(u.Enable, u.Disable)
		if err != nil {
			log.Warnw("ublox enable/disable ignored", "err", err)
		} else {
			seqs = append(seqs, seq)
		}
	}
	if u.Save && len(seqs) > 0 {
		seqs = append(seqs, cat.Persist())
	}

	for _, seq := range seqs {
		if !sleepCtx(ctx, configSettle) {
			return
		}
		res := sess.Run(ctx, seq)
		if failed := ubx.Failed(res); failed > 0 {
			log.Warnw("receiver configuration incomplete", "seq", seq.Name, "failed", failed, "steps", len(seq.Steps))
		} else {
			log.Infow("receiver configured", "seq", seq.Name, "steps", len(seq.Steps))
		}
	}
}

// configSettle separates the version query from the next sequence.
const configSettle = 20 * time.Millisecond

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
