package gonpy

import (
	"encoding/binary"
	"math"
)

// nativeByteOrder is detected by probing how a known uint16 value lands
// in memory.
var nativeByteOrder binary.ByteOrder

func init() {
	var buf [2]byte
	binary.NativeEndian.PutUint16(buf[:], 1)
	if buf[0] == 1 {
		nativeByteOrder = binary.LittleEndian
	} else {
		nativeByteOrder = binary.BigEndian
	}
}

// Swap16 byte-swaps a 16-bit unsigned integer.
func Swap16(v uint16) uint16 {
	return v<<8 | v>>8
}

// Swap32 byte-swaps a 32-bit unsigned integer.
func Swap32(v uint32) uint32 {
	return v<<24 | (v<<8)&0x00ff0000 | (v>>8)&0x0000ff00 | v>>24
}

// Swap64 byte-swaps a 64-bit unsigned integer.
func Swap64(v uint64) uint64 {
	return v<<56 |
		(v<<40)&0x00ff000000000000 |
		(v<<24)&0x0000ff0000000000 |
		(v<<8)&0x000000ff00000000 |
		(v>>8)&0x00000000ff000000 |
		(v>>24)&0x0000000000ff0000 |
		(v>>40)&0x000000000000ff00 |
		v>>56
}

// SwapFloat32 byte-swaps an IEEE-754 single-precision float in place of
// its bit pattern.
func SwapFloat32(v float32) float32 {
	return math.Float32frombits(Swap32(math.Float32bits(v)))
}

// SwapFloat64 byte-swaps an IEEE-754 double-precision float.
func SwapFloat64(v float64) float64 {
	return math.Float64frombits(Swap64(math.Float64bits(v)))
}

// SwapComplex64 byte-swaps each of a complex64's two float32 components
// independently — numpy stores complex numbers as a (real, imag) pair of
// same-width floats, each subject to the descriptor's declared
// endianness.
func SwapComplex64(v complex64) complex64 {
	return complex(SwapFloat32(real(v)), SwapFloat32(imag(v)))
}

// SwapComplex128 byte-swaps each of a complex128's two float64
// components independently.
func SwapComplex128(v complex128) complex128 {
	return complex(SwapFloat64(real(v)), SwapFloat64(imag(v)))
}

// byteOrderFor resolves a Dtype's declared endianness to a concrete
// binary.ByteOrder for use when interpreting raw bytes. Byte-order
// conversion is never performed implicitly on load; no load path calls
// this.
func byteOrderFor(e Endianness) binary.ByteOrder {
	switch e {
	case EndianBig:
		return binary.BigEndian
	case EndianNative:
		return nativeByteOrder
	case EndianLittle, EndianNotRelevant, EndianInvalid:
		return binary.LittleEndian
	default:
		return binary.LittleEndian
	}
}
