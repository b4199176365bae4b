//go:build unix

package storage

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps the first nbytes of f read-write. Shared mappings write
// through to the file; private ones are copy-on-write.
func mapFile(f *os.File, nbytes int, shared bool) (DataPtr, error) {
	if nbytes == 0 {
		return DataPtr{Data: []byte{}, Device: CPU}, nil
	}

	flags := unix.MAP_PRIVATE
	if shared {
		flags = unix.MAP_SHARED
	}
	data, err := unix.Mmap(
		int(f.Fd()), //nolint:gosec // G115: file descriptor fits in int
		0,
		nbytes,
		unix.PROT_READ|unix.PROT_WRITE,
		flags,
	)
	if err != nil {
		return DataPtr{}, err
	}

	return DataPtr{
		Data:    data,
		Context: f.Name(),
		Device:  CPU,
		Deleter: func(p DataPtr) error {
			return unix.Munmap(p.Data)
		},
	}, nil
}
