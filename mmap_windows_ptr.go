//go:build windows

package gonpy

import "unsafe"

// unsafeSliceFromPtr reinterprets a mapped view's base address as a byte
// slice of the given length. The slice aliases the mapping and must not
// be used after UnmapViewOfFile.
func unsafeSliceFromPtr(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}
