//go:build !linux

package shm

import "fmt"

func Attach(unit int, perm uint32) (*Segment, error) {
	return nil, fmt.Errorf("shm: SysV shared memory not supported on this platform")
}
