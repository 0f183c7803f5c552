package gonpy

import (
	"archive/zip"
	"io"
	"os"

	"github.com/klauspost/compress/flate"
)

// ZipMode selects what a zip backend session is opened for.
type ZipMode int

const (
	ZipModeRead ZipMode = iota
	ZipModeWrite
)

// ZipBackend is the narrow collaborator contract the npz codec depends
// on. The package ships one implementation over archive/zip with
// klauspost/compress deflate, but any compliant backend is acceptable —
// the npz codec never touches the archive format directly.
type ZipBackend interface {
	// Open starts a session on path. Write mode creates or truncates
	// the archive. Open on an already-open session closes it first.
	Open(path string, mode ZipMode) Result
	// Close finishes the session, flushing any pending writes.
	// Idempotent.
	Close() Result
	// FileList returns the member names in the archive's listing order.
	// Read mode only.
	FileList() ([]string, Result)
	// Read decompresses one member into a fresh byte vector. Read mode
	// only.
	Read(name string) ([]byte, Result)
	// Write adds one member. With compress false the member is stored;
	// otherwise it is deflated at the given level, where 0 means the
	// backend's default and 1–9 follow the zlib convention. Write mode
	// only.
	Write(name string, data []byte, compress bool, level int) Result
}

// NewZipBackend returns the package's archive/zip-backed implementation.
func NewZipBackend() ZipBackend { return &zipArchive{} }

type zipArchive struct {
	mode ZipMode
	rc   *zip.ReadCloser
	f    *os.File
	zw   *zip.Writer
}

func (z *zipArchive) Open(path string, mode ZipMode) Result {
	z.Close()
	switch mode {
	case ZipModeRead:
		rc, err := zip.OpenReader(path)
		if err != nil {
			if os.IsNotExist(err) {
				return ErrNotFound
			}
			return ErrOpenFailed
		}
		z.rc = rc
	case ZipModeWrite:
		f, err := os.Create(path)
		if err != nil {
			return ErrOpenFailed
		}
		z.f = f
		z.zw = zip.NewWriter(f)
	default:
		return ErrOpenFailed
	}
	z.mode = mode
	return OK
}

func (z *zipArchive) Close() Result {
	res := OK
	if z.rc != nil {
		if err := z.rc.Close(); err != nil {
			res = ErrClose
		}
		z.rc = nil
	}
	if z.zw != nil {
		if err := z.zw.Close(); err != nil {
			res = ErrClose
		}
		z.zw = nil
	}
	if z.f != nil {
		if err := z.f.Close(); err != nil && res == OK {
			res = ErrClose
		}
		z.f = nil
	}
	return res
}

func (z *zipArchive) FileList() ([]string, Result) {
	if z.rc == nil {
		return nil, ErrReaderNotOpen
	}
	names := make([]string, 0, len(z.rc.File))
	for _, f := range z.rc.File {
		names = append(names, f.Name)
	}
	return names, OK
}

func (z *zipArchive) Read(name string) ([]byte, Result) {
	if z.rc == nil {
		return nil, ErrReaderNotOpen
	}
	for _, f := range z.rc.File {
		if f.Name != name {
			continue
		}
		r, err := f.Open()
		if err != nil {
			return nil, ErrReadFailed
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return nil, ErrReadFailed
		}
		return data, OK
	}
	return nil, ErrNotFound
}

func (z *zipArchive) Write(name string, data []byte, compress bool, level int) Result {
	if z.zw == nil {
		return ErrReaderNotOpen
	}
	hdr := &zip.FileHeader{Name: name, Method: zip.Store}
	if compress {
		hdr.Method = zip.Deflate
		fl := flate.DefaultCompression
		if level >= 1 && level <= 9 {
			fl = level
		}
		// the compressor is resolved when the member is created, so
		// re-registering before each member gives per-member levels
		z.zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, fl)
		})
	}
	w, err := z.zw.CreateHeader(hdr)
	if err != nil {
		return ErrWriteFailed
	}
	if _, err := w.Write(data); err != nil {
		return ErrWriteFailed
	}
	return OK
}
