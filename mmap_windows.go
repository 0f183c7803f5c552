//go:build windows

package gonpy

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// mmapFile memory-maps the whole of f read-only using
// golang.org/x/sys/windows's file-mapping wrappers.
func mmapFile(f *os.File, size int64) ([]byte, func() error, error) {
	if size == 0 {
		return nil, func() error { return nil }, nil
	}
	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READONLY, 0, 0, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("gonpy: mmap: %w: %v", ErrMmapFailed, err)
	}
	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(h)
		return nil, nil, fmt.Errorf("gonpy: mmap: %w: %v", ErrMmapFailed, err)
	}
	mem := unsafeSliceFromPtr(addr, int(size))
	release := func() error {
		if err := windows.UnmapViewOfFile(addr); err != nil {
			windows.CloseHandle(h)
			return fmt.Errorf("gonpy: munmap: %w: %v", ErrMunmapFailed, err)
		}
		return windows.CloseHandle(h)
	}
	return mem, release, nil
}
