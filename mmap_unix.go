//go:build linux || darwin

package gonpy

import (
	"fmt"
	"os"
	"syscall"
)

// mmapFile memory-maps the whole of f read-only with bare
// syscall.Mmap/Munmap.
func mmapFile(f *os.File, size int64) ([]byte, func() error, error) {
	if size == 0 {
		return nil, func() error { return nil }, nil
	}
	mem, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("gonpy: mmap: %w: %v", ErrMmapFailed, err)
	}
	release := func() error {
		if err := syscall.Munmap(mem); err != nil {
			return fmt.Errorf("gonpy: munmap: %w: %v", ErrMunmapFailed, err)
		}
		return nil
	}
	return mem, release, nil
}
