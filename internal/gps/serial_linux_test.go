//go:build linux

package gps

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestBaudToUnix(t *testing.T) {
	got, err := baudToUnix(9600)
	if err != nil || got != unix.B9600 {
		t.Fatalf("baudToUnix(9600)=%v err=%v", got, err)
	}
	if _, err := baudToUnix(1234); err == nil {
		t.Fatalf("expected error for unsupported baud")
	}
}

func TestMakeRaw(t *testing.T) {
	tio := unix.Termios{
		Iflag: unix.ICRNL | unix.IXON,
		Oflag: unix.OPOST,
		Lflag: unix.ICANON | unix.ECHO | unix.ISIG,
		Cflag: unix.PARENB | unix.CS7,
	}
	makeRaw(&tio, unix.B115200)
	if tio.Iflag&(unix.ICRNL|unix.IXON) != 0 || tio.Oflag&unix.OPOST != 0 {
		t.Fatalf("input/output processing left on: %+v", tio)
	}
	if tio.Lflag&(unix.ICANON|unix.ECHO|unix.ISIG) != 0 {
		t.Fatalf("line discipline left on: %+v", tio)
	}
	if tio.Cflag&unix.CSIZE != unix.CS8 || tio.Cflag&unix.PARENB != 0 {
		t.Fatalf("expected 8N1, cflag=%#o", tio.Cflag)
	}
	if tio.Ispeed != unix.B115200 || tio.Cc[unix.VMIN] != 1 || tio.Cc[unix.VTIME] != 0 {
		t.Fatalf("unexpected speed/vmin %+v", tio)
	}
}

func TestOpen_MissingDevice(t *testing.T) {
	if _, err := Open("/dev/does-not-exist-ntpgps", Options{Baud: 9600}); err == nil {
		t.Fatalf("expected error")
	}
}
