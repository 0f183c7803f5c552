//go:build !linux && !darwin && !windows

package gonpy

import (
	"fmt"
	"os"
)

// mmapFile is unavailable on platforms without a supported mapping
// primitive; FromNpyMmap then fails with ErrMmapFailed.
func mmapFile(f *os.File, size int64) ([]byte, func() error, error) {
	return nil, nil, fmt.Errorf("gonpy: mmap not supported on this platform: %w", ErrMmapFailed)
}
