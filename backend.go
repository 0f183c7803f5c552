package gonpy

import (
	"fmt"
	"io"
)

// Whence mirrors io.Seeker's origin constants: absolute, relative, and
// from-end seeks.
type Whence int

const (
	SeekAbsolute Whence = iota
	SeekRelative
	SeekFromEnd
)

// Backend is the narrow contract every buffer backend implements. Only
// BufferBackend and MmapBackend support zero-copy View; FileBackend
// returns ErrUnavailable from View.
type Backend interface {
	// Read copies up to len(dest) bytes into dest from the current
	// cursor, advancing it, and returns the number of bytes copied. It
	// may short-return at EOF without error.
	Read(dest []byte) (int, error)
	// Seek repositions the cursor per whence and returns the new
	// absolute offset.
	Seek(offset int64, whence Whence) (int64, error)
	// View returns a zero-copy slice of n bytes at the current cursor
	// without advancing it. Only buffer and mmap backends support this.
	View(n int) ([]byte, error)
	// EOF reports whether the cursor is at or past the end of the
	// backend's data.
	EOF() bool
	// Size returns the total byte length of the backend's data.
	Size() int64
	// Close releases any resource the backend holds (file handle,
	// mapping). Close is idempotent.
	Close() error
}

// BufferBackend is a fully buffered, owned byte vector. It is used for
// the eager/buffered read path and for in-memory npz member decoding.
type BufferBackend struct {
	data []byte
	pos  int64
}

// NewBufferBackend wraps data, taking ownership of the slice — callers
// should not mutate it afterward.
func NewBufferBackend(data []byte) *BufferBackend {
	return &BufferBackend{data: data}
}

func (b *BufferBackend) Read(dest []byte) (int, error) {
	if b.pos >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(dest, b.data[b.pos:])
	b.pos += int64(n)
	return n, nil
}

func (b *BufferBackend) Seek(offset int64, whence Whence) (int64, error) {
	var base int64
	switch whence {
	case SeekAbsolute:
		base = 0
	case SeekRelative:
		base = b.pos
	case SeekFromEnd:
		base = int64(len(b.data))
	default:
		return 0, fmt.Errorf("gonpy: buffer backend: %w", ErrSeekFailed)
	}
	np := base + offset
	if np < 0 || np > int64(len(b.data)) {
		return 0, fmt.Errorf("gonpy: buffer backend: seek out of range: %w", ErrSeekFailed)
	}
	b.pos = np
	return np, nil
}

func (b *BufferBackend) View(n int) ([]byte, error) {
	if b.pos+int64(n) > int64(len(b.data)) {
		return nil, fmt.Errorf("gonpy: buffer backend: view past end: %w", ErrUnavailable)
	}
	return b.data[b.pos : b.pos+int64(n)], nil
}

func (b *BufferBackend) EOF() bool   { return b.pos >= int64(len(b.data)) }
func (b *BufferBackend) Size() int64 { return int64(len(b.data)) }
func (b *BufferBackend) Close() error { return nil }

// Bytes returns the full backing slice, regardless of cursor position.
func (b *BufferBackend) Bytes() []byte { return b.data }

// FileBackend streams from an io.ReadSeeker, typically an *os.File. It
// does not support View and does not read ahead of the cursor beyond a
// single Read call.
type FileBackend struct {
	r    io.ReadSeeker
	size int64
}

// NewFileBackend wraps r. size is the total byte length if known (0 for
// a pure stream, matching NpyFile.Streaming); Read still works without a
// known size, but EOF() and Size() rely on it (EOF() always reports
// false when size is 0).
func NewFileBackend(r io.ReadSeeker, size int64) *FileBackend {
	return &FileBackend{r: r, size: size}
}

func (f *FileBackend) Read(dest []byte) (int, error) {
	n, err := f.r.Read(dest)
	if err == io.EOF {
		return n, io.EOF
	}
	if err != nil {
		return n, fmt.Errorf("gonpy: file backend: %w", ErrReadFailed)
	}
	return n, nil
}

func (f *FileBackend) Seek(offset int64, whence Whence) (int64, error) {
	var stdWhence int
	switch whence {
	case SeekAbsolute:
		stdWhence = io.SeekStart
	case SeekRelative:
		stdWhence = io.SeekCurrent
	case SeekFromEnd:
		stdWhence = io.SeekEnd
	default:
		return 0, fmt.Errorf("gonpy: file backend: %w", ErrSeekFailed)
	}
	np, err := f.r.Seek(offset, stdWhence)
	if err != nil {
		return 0, fmt.Errorf("gonpy: file backend: %w", ErrSeekFailed)
	}
	return np, nil
}

func (f *FileBackend) View(n int) ([]byte, error) {
	return nil, fmt.Errorf("gonpy: file backend does not support View: %w", ErrUnavailable)
}

func (f *FileBackend) EOF() bool {
	if f.size == 0 {
		return false
	}
	cur, err := f.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return false
	}
	return cur >= f.size
}

func (f *FileBackend) Size() int64 { return f.size }

func (f *FileBackend) Close() error {
	if c, ok := f.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// MmapBackend is a read-only view of a memory-mapped file region. Its
// payload offset is non-zero when the mapping covers a whole npy file:
// the mapping starts at file offset 0 but array data begins after the
// header.
type MmapBackend struct {
	mapping    []byte
	payloadOff int
	pos        int64
	release    func() error
}

func newMmapBackend(mapping []byte, payloadOff int, release func() error) *MmapBackend {
	return &MmapBackend{mapping: mapping, payloadOff: payloadOff, release: release}
}

func (m *MmapBackend) data() []byte { return m.mapping[m.payloadOff:] }

func (m *MmapBackend) Read(dest []byte) (int, error) {
	d := m.data()
	if m.pos >= int64(len(d)) {
		return 0, io.EOF
	}
	n := copy(dest, d[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *MmapBackend) Seek(offset int64, whence Whence) (int64, error) {
	d := m.data()
	var base int64
	switch whence {
	case SeekAbsolute:
		base = 0
	case SeekRelative:
		base = m.pos
	case SeekFromEnd:
		base = int64(len(d))
	default:
		return 0, fmt.Errorf("gonpy: mmap backend: %w", ErrSeekFailed)
	}
	np := base + offset
	if np < 0 || np > int64(len(d)) {
		return 0, fmt.Errorf("gonpy: mmap backend: seek out of range: %w", ErrSeekFailed)
	}
	m.pos = np
	return np, nil
}

func (m *MmapBackend) View(n int) ([]byte, error) {
	d := m.data()
	if m.pos+int64(n) > int64(len(d)) {
		return nil, fmt.Errorf("gonpy: mmap backend: view past end: %w", ErrUnavailable)
	}
	return d[m.pos : m.pos+int64(n)], nil
}

func (m *MmapBackend) EOF() bool   { return m.pos >= int64(len(m.data())) }
func (m *MmapBackend) Size() int64 { return int64(len(m.data())) }

// Close unmaps the region. Idempotent.
func (m *MmapBackend) Close() error {
	if m.release == nil {
		return nil
	}
	release := m.release
	m.release = nil
	return release()
}

// DataPtr returns the raw payload bytes, for direct indexing by the
// ndarray store.
func (m *MmapBackend) DataPtr() []byte { return m.data() }
