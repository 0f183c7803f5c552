package gonpy

import (
	"encoding/binary"
	"unicode/utf8"
)

// DecodeUCS4 decodes a fixed-width numpy "<U" / ">U" field of n code
// points (4 bytes each) into a Go string, converting losslessly to
// UTF-8. Trailing NUL code points (the numpy convention for unused
// capacity) are trimmed.
func DecodeUCS4(raw []byte, n int, order binary.ByteOrder) string {
	runes := make([]rune, 0, n)
	for i := 0; i < n; i++ {
		off := i * 4
		if off+4 > len(raw) {
			break
		}
		runes = append(runes, rune(order.Uint32(raw[off:off+4])))
	}
	for len(runes) > 0 && runes[len(runes)-1] == 0 {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

// EncodeUCS4 encodes a Go string into a fixed-width n-code-point "<U" /
// ">U" field, zero-padding unused capacity. It returns the written byte
// slice, always 4*n bytes long. A string with more than n code points is
// truncated to n.
func EncodeUCS4(s string, n int, order binary.ByteOrder) []byte {
	out := make([]byte, 4*n)
	i := 0
	for _, r := range s {
		if i >= n {
			break
		}
		order.PutUint32(out[i*4:i*4+4], uint32(r))
		i++
	}
	return out
}

// UCS4Len returns how many UTF-8 runes s decodes to, the size a "<U"
// descriptor must declare to hold s without truncation.
func UCS4Len(s string) int {
	return utf8.RuneCountInString(s)
}
