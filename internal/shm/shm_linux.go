//go:build linux

package shm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Attach creates (if needed) and maps the segment for unit. perm holds the
// permission bits used when the segment is created.
func Attach(unit int, perm uint32) (*Segment, error) {
	if unit < 0 || unit > 255 {
		return nil, fmt.Errorf("shm: unit %d out of range", unit)
	}
	if sz := unsafe.Sizeof(Time{}); sz != Size {
		return nil, fmt.Errorf("shm: struct shmTime is %d bytes on this platform, want %d", sz, Size)
	}

	id, err := unix.SysvShmGet(Key(unit), Size, unix.IPC_CREAT|int(perm&0o777))
	if err != nil {
		return nil, fmt.Errorf("shm: shmget key=%#x: %w", Key(unit), err)
	}
	mem, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("shm: shmat id=%d: %w", id, err)
	}
	if len(mem) < Size {
		_ = unix.SysvShmDetach(mem)
		return nil, fmt.Errorf("shm: segment id=%d is %d bytes, want %d", id, len(mem), Size)
	}

	return &Segment{
		t:      (*Time)(unsafe.Pointer(&mem[0])),
		detach: func() error { return unix.SysvShmDetach(mem) },
	}, nil
}
