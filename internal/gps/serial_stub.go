//go:build !linux

package gps

import (
	"fmt"
	"time"
)

type Serial struct{}

func Open(path string, opts Options) (*Serial, error) {
	return nil, fmt.Errorf("gps serial not supported on this platform")
}

func (s *Serial) Path() string                      { return "" }
func (s *Serial) Read(p []byte) (int, error)        { return 0, fmt.Errorf("not supported") }
func (s *Serial) Write(p []byte) (int, error)       { return 0, fmt.Errorf("not supported") }
func (s *Serial) SetReadDeadline(t time.Time) error { return nil }
func (s *Serial) Drain() error                      { return nil }
func (s *Serial) Close() error                      { return nil }
