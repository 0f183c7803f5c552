package gonpy

import (
	"encoding/binary"
	"io"
	"os"
)

// readFull reads exactly len(dest) bytes from b, mapping a short read to
// the given truncation flag.
func readFull(b Backend, dest []byte, short Result) Result {
	got := 0
	for got < len(dest) {
		n, err := b.Read(dest[got:])
		got += n
		if err == io.EOF || n == 0 {
			if got < len(dest) {
				return short
			}
			break
		}
		if err != nil {
			return ErrReadFailed
		}
	}
	return OK
}

// readNpyHeader reads and validates the framing of a .npy stream from
// the backend's current position: magic, version, header length, then
// the header bytes. On success the backend's cursor sits at the first
// payload byte and npy's framing fields are filled in.
func readNpyHeader(b Backend, npy *NpyFile) Result {
	var magic [6]byte
	if res := readFull(b, magic[:], ErrMagicStringInvalid); res != OK {
		return res
	}
	if string(magic[:]) != npyMagicString {
		return ErrMagicStringInvalid
	}

	var version [2]byte
	if res := readFull(b, version[:], ErrHeaderTruncated); res != OK {
		return res
	}
	npy.Major, npy.Minor = version[0], version[1]
	switch {
	case npy.Major == 1 && npy.Minor == 0:
		npy.HeaderLenWidth = 2
	case npy.Major == 2 && npy.Minor == 0:
		npy.HeaderLenWidth = 4
	default:
		return ErrVersionNotSupported
	}

	lenBytes := make([]byte, npy.HeaderLenWidth)
	if res := readFull(b, lenBytes, ErrHeaderTruncated); res != OK {
		return res
	}
	if npy.HeaderLenWidth == 2 {
		npy.HeaderLen = int(binary.LittleEndian.Uint16(lenBytes))
	} else {
		npy.HeaderLen = int(binary.LittleEndian.Uint32(lenBytes))
	}

	// the prelude plus header must pad out to a multiple of 64
	prelude := len(npyMagicString) + 2 + npy.HeaderLenWidth
	if (prelude+npy.HeaderLen)%64 != 0 {
		return ErrHeaderInvalidLength
	}
	if npy.HeaderLen == 0 {
		return ErrHeaderEmpty
	}

	npy.Header = make([]byte, npy.HeaderLen)
	if res := readFull(b, npy.Header, ErrHeaderTruncated); res != OK {
		return res
	}
	npy.DataOffset = int64(prelude + npy.HeaderLen)

	size := b.Size()
	if size == 0 {
		npy.Streaming = true
		npy.PayloadSize = 0
	} else {
		npy.PayloadSize = size - npy.DataOffset
	}
	return OK
}

// parseNpyHeader interprets an already-read header as the numpy dict.
// Missing keys are warnings OR-ed into the returned Result; they never
// abort. The returned dtype is fully laid out (offsets and item sizes
// computed).
func parseNpyHeader(npy *NpyFile) (*Dtype, Order, Shape, Result) {
	root, err := parsePyDict(npy.Header)
	if err != nil {
		return nil, RowMajor, nil, ErrHeaderParsingError
	}
	if len(root.children) == 0 {
		return nil, RowMajor, nil, ErrHeaderEmpty
	}

	// warnings for all three keys start set and are cleared as the keys
	// are discovered; dict entry order is not assumed
	res := WarnMissingDescr | WarnMissingFortranOrder | WarnMissingShape

	dt := &Dtype{Endianness: EndianNative}
	order := RowMajor
	var shape Shape

	for _, kv := range root.children {
		if kv.typ != pyKV || len(kv.children) != 2 {
			return nil, RowMajor, nil, res | ErrHeaderInvalid
		}
		key, ok := kv.children[0].asString()
		if !ok {
			return nil, RowMajor, nil, res | ErrHeaderInvalid
		}
		val := kv.children[1]

		switch key {
		case "descr":
			d, dres, err := NewDtypeFromDescr(val)
			if err != nil {
				return nil, RowMajor, nil, res | dres
			}
			dt = d
			res &^= WarnMissingDescr

		case "fortran_order":
			fo, ok := val.asBool()
			if !ok {
				return nil, RowMajor, nil, res | ErrFortranOrderInvalidValue
			}
			if fo {
				order = ColMajor
			} else {
				order = RowMajor
			}
			res &^= WarnMissingFortranOrder

		case "shape":
			if val.typ != pyTuple {
				return nil, RowMajor, nil, res | ErrShapeInvalidValue
			}
			shape = shape[:0]
			for _, dim := range val.children {
				v, ok := dim.asInt()
				if !ok {
					return nil, RowMajor, nil, res | ErrShapeInvalidShapeValue
				}
				shape = append(shape, int(v))
			}
			res &^= WarnMissingShape
		}
	}
	return dt, order, shape, res
}

// npyFromBackend runs the full eager read path over any backend:
// framing, header parse, payload validation, then construction of the
// array from the remaining bytes.
func npyFromBackend(b Backend, npy *NpyFile, arr *Ndarray) Result {
	if res := readNpyHeader(b, npy); res.IsError() {
		return res
	}
	dt, order, shape, res := parseNpyHeader(npy)
	if res.IsError() {
		return res
	}

	if !npy.Streaming && dt.ItemSize > 0 {
		if npy.PayloadSize%int64(dt.ItemSize) != 0 {
			return res | ErrDataSizeMismatch
		}
	}

	var payload []byte
	if npy.Streaming {
		var err error
		payload, err = io.ReadAll(backendReader{b})
		if err != nil {
			return res | ErrReadFailed
		}
		npy.PayloadSize = int64(len(payload))
		if dt.ItemSize > 0 && npy.PayloadSize%int64(dt.ItemSize) != 0 {
			return res | ErrDataSizeMismatch
		}
	} else {
		payload = make([]byte, npy.PayloadSize)
		if r := readFull(b, payload, ErrTruncated); r != OK {
			return res | r
		}
	}

	arr.Assign(dt, shape, vectorStore(payload), order)
	return res
}

// backendReader adapts a Backend to io.Reader for io.ReadAll.
type backendReader struct{ b Backend }

func (r backendReader) Read(p []byte) (int, error) { return r.b.Read(p) }

// FromBuffer decodes a complete in-memory .npy byte buffer into arr,
// taking ownership of data. npy receives the framing metadata and may be
// nil if the caller does not need it.
func FromBuffer(data []byte, npy *NpyFile, arr *Ndarray) Result {
	if npy == nil {
		npy = &NpyFile{}
	}
	return npyFromBackend(NewBufferBackend(data), npy, arr)
}

// openNpy opens path, rejecting zip archives with ErrWrongFiletype: an
// .npz must go through FromNpz instead since its members decode
// differently (see the npz codec). On success the returned file's cursor
// is back at offset 0.
func openNpy(path string) (*os.File, int64, Result) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, ErrOpenFailed
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, ErrOpenFailed
	}
	var sig [4]byte
	if _, err := io.ReadFull(f, sig[:]); err == nil && isZipSignature(sig) {
		f.Close()
		return nil, 0, ErrWrongFiletype
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, 0, ErrSeekFailed
	}
	return f, st.Size(), OK
}

// isZipSignature matches the PKZIP local file header 0x04034B50 in its
// on-disk little-endian byte order.
func isZipSignature(sig [4]byte) bool {
	return sig[0] == 0x50 && sig[1] == 0x4b && sig[2] == 0x03 && sig[3] == 0x04
}

// FromNpy eagerly reads a whole .npy file into arr. npyOut, if
// non-nil, receives the framing metadata.
func FromNpy(path string, arr *Ndarray, npyOut *NpyFile) Result {
	f, size, res := openNpy(path)
	if res != OK {
		return res
	}
	defer f.Close()

	// buffer the whole file up front; stream decoding is the lazy
	// reader's job
	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return ErrReadFailed
	}
	return FromBuffer(buf, npyOut, arr)
}

// FromNpyMmap maps a whole .npy file and hands the mapping to arr, which
// owns it until Release. The array is read-only; in-place Apply fails
// with ErrUnavailable, and Transform is the way to a mutable copy.
func FromNpyMmap(path string, arr *Ndarray, npyOut *NpyFile) Result {
	f, size, res := openNpy(path)
	if res != OK {
		return res
	}
	defer f.Close()

	mem, release, err := mmapFile(f, size)
	if err != nil {
		return ErrMmapFailed
	}

	npy := npyOut
	if npy == nil {
		npy = &NpyFile{}
	}
	// parse framing and header out of the mapping itself
	hb := NewBufferBackend(mem)
	if r := readNpyHeader(hb, npy); r.IsError() {
		release()
		return r
	}
	dt, order, shape, pres := parseNpyHeader(npy)
	if pres.IsError() {
		release()
		return pres
	}
	if dt.ItemSize > 0 && npy.PayloadSize%int64(dt.ItemSize) != 0 {
		release()
		return pres | ErrDataSizeMismatch
	}

	mm := newMmapBackend(mem, int(npy.DataOffset), release)
	arr.Assign(dt, shape, mmapStore(mm), order)
	return pres
}
