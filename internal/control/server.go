package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"ntpgps/internal/stats"
)

// MaxCommand bounds one command line.
const MaxCommand = 128

const (
	acceptWait = time.Second
	ioWait     = time.Second
)

// Server owns the listening socket.
type Server struct {
	path     string
	ln       *net.UnixListener
	h        *Handler
	counters *stats.Counters
	log      *zap.SugaredLogger
}

// Listen creates the socket directory, removes a stale socket left by a
// previous run and starts listening on path.
func Listen(path string, h *Handler, counters *stats.Counters, log *zap.SugaredLogger) (*Server, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if counters == nil {
		counters = &stats.Counters{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("control: remove stale socket: %w", err)
	}
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	// The socket file is removed last, after the other resources.
	ln.SetUnlinkOnClose(false)
	log.Infow("control socket listening", "path", path)
	return &Server{path: path, ln: ln, h: h, counters: counters, log: log}, nil
}

func (s *Server) Path() string { return s.path }

// Serve accepts connections until ctx is done or the listener fails. Each
// accept waits at most one second so that cancellation is noticed promptly.
func (s *Server) Serve(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		s.counters.LoopSocket.Add(1)
		if err := s.ln.SetDeadline(time.Now().Add(acceptWait)); err != nil {
			return fmt.Errorf("control: %w", err)
		}
		conn, err := s.ln.AcceptUnix()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("control: accept: %w", err)
		}
		s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ioWait))

	line, err := readCommand(conn)
	if err != nil {
		s.log.Debugw("control read failed", "err", err)
		return
	}
	if line == "" {
		return
	}
	s.log.Infow("control command", "cmd", line)
	resp := s.h.Handle(line)
	if _, err := io.WriteString(conn, resp); err != nil {
		s.log.Debugw("control write failed", "err", err)
	}
}

// readCommand returns the first line of at most MaxCommand bytes, with
// trailing CR/LF removed. A client may omit the newline and close or
// half-close its side instead.
func readCommand(r io.Reader) (string, error) {
	br := bufio.NewReaderSize(io.LimitReader(r, MaxCommand), MaxCommand)
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		if line == "" || !errors.Is(err, os.ErrDeadlineExceeded) {
			return "", err
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Close stops accepting connections. The socket file stays until Remove.
func (s *Server) Close() error {
	return s.ln.Close()
}

// Remove unlinks the socket file.
func (s *Server) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
