package ubx

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
)

// Port is the serial line as seen by a Session. Reads must honor the read
// deadline and fail with os.ErrDeadlineExceeded when it passes.
type Port interface {
	io.ReadWriter
	SetReadDeadline(t time.Time) error
}

// drainer is implemented by ports that can block until output is on the wire
// (tcdrain).
type drainer interface {
	Drain() error
}

// Mode selects what Send waits for after writing a message.
type Mode int

const (
	// FireAndForget writes and returns. Used for port protocol switches,
	// whose ACK may come back in a format we are no longer listening for.
	FireAndForget Mode = iota
	// WaitAck waits for ACK-ACK or ACK-NAK naming the message.
	WaitAck
	// WaitResponse waits for a frame of the same class and id (a poll reply).
	WaitResponse
)

func (m Mode) String() string {
	switch m {
	case FireAndForget:
		return "fire-and-forget"
	case WaitAck:
		return "wait-ack"
	case WaitResponse:
		return "wait-response"
	default:
		return "unknown"
	}
}

type Outcome int

const (
	OK Outcome = iota
	NAK
	BadChecksum
	Timeout
	IOError
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case NAK:
		return "nak"
	case BadChecksum:
		return "checksum error"
	case Timeout:
		return "timeout"
	case IOError:
		return "io error"
	default:
		return "unknown"
	}
}

// Reply is the result of one Send.
type Reply struct {
	Outcome  Outcome
	Frame    Frame
	Attempts int
	Err      error
}

type SessionConfig struct {
	// AckTimeout bounds the wait for ACK/NAK.
	AckTimeout time.Duration
	// ResponseTimeout bounds the wait for a poll response such as MON-VER.
	ResponseTimeout time.Duration
	// Retries is how many times a timed out message is re-sent.
	Retries int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
	// StepDelay separates the messages of a sequence.
	StepDelay time.Duration
	// RetryChecksum also retries replies that arrive with a bad checksum.
	RetryChecksum bool
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.AckTimeout <= 0 {
		c.AckTimeout = 50 * time.Millisecond
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = 500 * time.Millisecond
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.Backoff <= 0 {
		c.Backoff = 20 * time.Millisecond
	}
	if c.StepDelay < 0 {
		c.StepDelay = 0
	}
	return c
}

// Session sends UBX messages over a Port and matches replies. It is not
// safe for concurrent use; the receiver worker owns it.
type Session struct {
	port Port
	cfg  SessionConfig
	log  *zap.SugaredLogger

	buf [256]byte
}

func NewSession(port Port, cfg SessionConfig, log *zap.SugaredLogger) *Session {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Session{port: port, cfg: cfg.withDefaults(), log: log}
}

// Send writes m and, depending on mode, waits for the matching reply.
// Timeouts are retried with a linearly growing pause; NAK, checksum and I/O
// errors are returned immediately.
func (s *Session) Send(ctx context.Context, m Message, mode Mode) Reply {
	if mode == FireAndForget {
		if err := s.write(m); err != nil {
			return Reply{Outcome: IOError, Attempts: 1, Err: err}
		}
		return Reply{Outcome: OK, Attempts: 1}
	}

	filter := MatchAck(m.Class, m.ID)
	timeout := s.cfg.AckTimeout
	if mode == WaitResponse {
		filter = MatchMessage(m.Class, m.ID)
		timeout = s.cfg.ResponseTimeout
	}

	for attempt := 1; ; attempt++ {
		var r Reply
		if err := s.write(m); err != nil {
			r = Reply{Outcome: IOError, Err: err}
		} else {
			r = s.await(ctx, filter, timeout)
		}
		r.Attempts = attempt
		if r.Outcome == OK && mode == WaitAck {
			if _, nak := r.Frame.IsAck(m.Class, m.ID); nak {
				r.Outcome = NAK
			}
		}

		retry := r.Outcome == Timeout || (r.Outcome == BadChecksum && s.cfg.RetryChecksum)
		if !retry || attempt > s.cfg.Retries {
			return r
		}
		s.log.Debugw("ubx retry", "msg", m.Name, "attempt", attempt, "outcome", r.Outcome.String())
		if !sleepCtx(ctx, time.Duration(attempt)*s.cfg.Backoff) {
			r.Outcome = IOError
			r.Err = ctx.Err()
			return r
		}
	}
}

func (s *Session) write(m Message) error {
	s.log.Debugw("ubx send", "msg", m.Name, "frame", Frame{Class: m.Class, ID: m.ID, Payload: m.Payload}.String())
	if _, err := s.port.Write(m.Wire()); err != nil {
		return err
	}
	if d, ok := s.port.(drainer); ok {
		return d.Drain()
	}
	return nil
}

// await reads until a frame passes filter or the deadline passes.
func (s *Session) await(ctx context.Context, filter *Filter, timeout time.Duration) Reply {
	p := NewParser(filter)
	p.OnSkip = func(f Frame) {
		s.log.Debugw("ubx skip", "frame", f.String())
	}
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return Reply{Outcome: IOError, Err: err}
		}
		if err := s.port.SetReadDeadline(deadline); err != nil {
			return Reply{Outcome: IOError, Err: err}
		}
		n, err := s.port.Read(s.buf[:])
		for _, b := range s.buf[:n] {
			switch p.Feed(b) {
			case Complete:
				f := p.Frame()
				s.log.Debugw("ubx recv", "frame", f.String())
				return Reply{Outcome: OK, Frame: f}
			case ChecksumError:
				return Reply{Outcome: BadChecksum}
			case LengthError:
				s.log.Debugw("ubx oversized frame dropped")
			}
		}
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return Reply{Outcome: Timeout}
			}
			return Reply{Outcome: IOError, Err: err}
		}
		if n == 0 && !time.Now().Before(deadline) {
			return Reply{Outcome: Timeout}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
