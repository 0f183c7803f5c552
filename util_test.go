package gonpy

import (
	"math"
	"os"
	"unsafe"
)

func pointerOf(b []byte) unsafe.Pointer { return unsafe.Pointer(&b[0]) }

func floatBits(f float64) uint64 { return math.Float64bits(f) }

func floatFromBits(b uint64) float64 { return math.Float64frombits(b) }

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
