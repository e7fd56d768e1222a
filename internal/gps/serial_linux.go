//go:build linux

package gps

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Serial is an open receiver line. Reads honor SetReadDeadline because the
// descriptor is non-blocking and registered with the runtime poller.
type Serial struct {
	f     *os.File
	path  string
	saved *unix.Termios
}

// Open opens path read/write without making it the controlling terminal.
// Unless opts.NoRaw is set the line is switched to raw 8N1 at opts.Baud and
// the previous settings are kept for Close to restore.
func Open(path string, opts Options) (*Serial, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// Best-effort: if anything below fails, close fd.
	ok := false
	defer func() {
		if !ok {
			_ = unix.Close(fd)
		}
	}()

	var saved *unix.Termios
	if !opts.NoRaw {
		saved, err = unix.IoctlGetTermios(fd, unix.TCGETS)
		if err != nil {
			return nil, fmt.Errorf("tcgetattr %s: %w", path, err)
		}
		spd, err := baudToUnix(opts.Baud)
		if err != nil {
			return nil, err
		}
		t := *saved
		makeRaw(&t, spd)
		if err := unix.IoctlSetTermios(fd, unix.TCSETS, &t); err != nil {
			return nil, fmt.Errorf("tcsetattr %s: %w", path, err)
		}
	}

	f := os.NewFile(uintptr(fd), path)
	if f == nil {
		return nil, fmt.Errorf("os.NewFile failed")
	}
	ok = true
	return &Serial{f: f, path: path, saved: saved}, nil
}

// makeRaw is cfmakeraw plus the speed. Reads return as soon as one byte is
// available; the deadline bounds the wait.
func makeRaw(t *unix.Termios, spd uint32) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	t.Cflag &^= unix.CBAUD
	t.Cflag |= spd
	t.Ispeed = spd
	t.Ospeed = spd
}

func (s *Serial) Path() string { return s.path }

func (s *Serial) Read(p []byte) (int, error)  { return s.f.Read(p) }
func (s *Serial) Write(p []byte) (int, error) { return s.f.Write(p) }

func (s *Serial) SetReadDeadline(t time.Time) error { return s.f.SetReadDeadline(t) }

// Drain blocks until everything written has left the UART (tcdrain).
func (s *Serial) Drain() error {
	return s.control(func(fd int) error {
		return unix.IoctlSetInt(fd, unix.TCSBRK, 1)
	})
}

// Close restores the saved line settings, if any, and closes the device.
// Both steps are attempted; the first error is returned.
func (s *Serial) Close() error {
	var rerr error
	if s.saved != nil {
		rerr = s.control(func(fd int) error {
			return unix.IoctlSetTermios(fd, unix.TCSETS, s.saved)
		})
		if rerr != nil {
			rerr = fmt.Errorf("restore %s: %w", s.path, rerr)
		}
		s.saved = nil
	}
	cerr := s.f.Close()
	if rerr != nil {
		return rerr
	}
	return cerr
}

// control runs fn on the raw descriptor. f.Fd() would switch the file back
// to blocking mode and break deadlines.
func (s *Serial) control(fn func(fd int) error) error {
	rc, err := s.f.SyscallConn()
	if err != nil {
		return err
	}
	var ferr error
	if err := rc.Control(func(fd uintptr) { ferr = fn(int(fd)) }); err != nil {
		return err
	}
	return ferr
}

func baudToUnix(baud int) (uint32, error) {
	switch baud {
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	default:
		return 0, fmt.Errorf("unsupported baud %d", baud)
	}
}
