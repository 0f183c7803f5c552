package gonpy

import (
	"encoding/binary"
	"io"
	"os"
)

// ToNpyBuffer serializes arr into a complete .npy byte buffer: magic,
// version 2.0, a 4-byte header-length field, the header dict padded
// with 0x20 to a 64-byte boundary and terminated by '\n', then the raw
// payload in the array's storage order.
func ToNpyBuffer(arr *Ndarray) ([]byte, Result) {
	if arr.Empty() {
		return nil, ErrUnavailable
	}

	header := arr.TypeDescription()

	// prelude is magic + version + 4-byte header length; pad the header
	// so prelude+header lands on a 64-byte boundary, with the last byte
	// reserved for the newline terminator
	prelude := len(npyMagicString) + 2 + 4
	total := prelude + len(header) + 1
	pad := 0
	if rem := total % 64; rem != 0 {
		pad = 64 - rem
	}
	headerLen := len(header) + pad + 1

	buf := make([]byte, 0, prelude+headerLen+arr.NBytes())
	buf = append(buf, npyMagicString...)
	buf = append(buf, 2, 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(headerLen))
	buf = append(buf, header...)
	for i := 0; i < pad; i++ {
		buf = append(buf, 0x20)
	}
	buf = append(buf, '\n')
	buf = append(buf, arr.Data()...)
	return buf, OK
}

// writeNpy emits arr as a .npy stream to w.
func writeNpy(w io.Writer, arr *Ndarray) Result {
	buf, res := ToNpyBuffer(arr)
	if res.IsError() {
		return res
	}
	if _, err := w.Write(buf); err != nil {
		return ErrWriteFailed
	}
	return OK
}

// Save writes arr to path as a .npy file. With overwrite false an
// existing file fails with ErrExists.
func Save(path string, arr *Ndarray, overwrite bool) Result {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return ErrExists
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return ErrOpenFailed
	}
	res := writeNpy(f, arr)
	if err := f.Close(); err != nil && res == OK {
		return ErrClose
	}
	return res
}
