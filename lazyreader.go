package gonpy

import (
	"fmt"
	"io"
	"unsafe"
)

// Reader is the lazy, item-by-item access path over an opened .npy
// source. Its lifecycle is
// closed → Open → (seek|read|iterate)* → Close; Open on an already-open
// reader closes and reopens.
type Reader struct {
	backend Backend
	npy     NpyFile
	dtype   *Dtype
	shape   Shape
	order   Order
	isOpen  bool
}

// Open positions the reader at the first item of the .npy file at path.
func (r *Reader) Open(path string) Result {
	if r.isOpen {
		r.Close()
	}
	f, size, res := openNpy(path)
	if res != OK {
		return res
	}
	backend := NewFileBackend(f, size)

	r.npy = NpyFile{}
	if res := readNpyHeader(backend, &r.npy); res.IsError() {
		backend.Close()
		return res
	}
	dt, order, shape, pres := parseNpyHeader(&r.npy)
	if pres.IsError() {
		backend.Close()
		return pres
	}
	// no payload-size validation here: the lazy path reports a short
	// tail as truncated at iteration time rather than rejecting the
	// file up front

	r.backend = backend
	r.dtype = dt
	r.shape = shape
	r.order = order
	r.isOpen = true
	return pres
}

// Close releases the underlying file. Idempotent.
func (r *Reader) Close() Result {
	if !r.isOpen {
		return OK
	}
	r.isOpen = false
	if err := r.backend.Close(); err != nil {
		return ErrClose
	}
	r.backend = nil
	return OK
}

// IsOpen reports whether the reader holds an open source.
func (r *Reader) IsOpen() bool { return r.isOpen }

// Dtype returns the parsed element type. Valid only while open.
func (r *Reader) Dtype() *Dtype { return r.dtype }

// Shape returns the parsed array shape.
func (r *Reader) Shape() Shape { return r.shape }

// Order returns the parsed storage order.
func (r *Reader) Order() Order { return r.order }

// NumItems returns the total item count declared by the header's shape.
func (r *Reader) NumItems() int { return r.shape.Len() }

// SeekItem positions the cursor at item index i, i.e. file offset
// data_offset + i·item_size. Seeking to NumItems() is allowed and lands
// on EOF.
func (r *Reader) SeekItem(i int) Result {
	if !r.isOpen {
		return ErrReaderNotOpen
	}
	if i < 0 || i > r.NumItems() {
		return ErrInvalidItemOffset
	}
	off := r.npy.DataOffset + int64(i)*int64(r.dtype.ItemSize)
	if _, err := r.backend.Seek(off, SeekAbsolute); err != nil {
		return ErrSeekFailed
	}
	return OK
}

// ReadItem reads the item at the cursor into a fresh slice and advances
// past it. A clean EOF returns ErrTruncated only when a partial item was
// read; at an exact item boundary it returns io.EOF semantics via the
// second result being false.
func (r *Reader) ReadItem() (item []byte, ok bool, res Result) {
	if !r.isOpen {
		return nil, false, ErrReaderNotOpen
	}
	buf := make([]byte, r.dtype.ItemSize)
	got := 0
	for got < len(buf) {
		n, err := r.backend.Read(buf[got:])
		got += n
		if err == io.EOF || n == 0 {
			break
		}
		if err != nil {
			return nil, false, ErrReadFailed
		}
	}
	if got == 0 {
		return nil, false, OK
	}
	if got < len(buf) {
		return nil, false, ErrTruncated
	}
	return buf, true, OK
}

// View reads one item of type T at the current cursor without advancing
// it. The size of T must equal the item size, else it panics.
func View[T any](r *Reader) (T, Result) {
	var zero T
	if !r.isOpen {
		return zero, ErrReaderNotOpen
	}
	checkTypeSize[T](r.dtype.ItemSize)
	pos, err := r.backend.Seek(0, SeekRelative)
	if err != nil {
		return zero, ErrSeekFailed
	}
	item, ok, res := r.ReadItem()
	if _, serr := r.backend.Seek(pos, SeekAbsolute); serr != nil {
		return zero, ErrSeekFailed
	}
	if res.IsError() {
		return zero, res
	}
	if !ok {
		return zero, ErrTruncated
	}
	return *(*T)(unsafe.Pointer(&item[0])), OK
}

// ItemAt seeks to a flat index and reads one item of type T. The cursor
// is left after the item.
func ItemAt[T any](r *Reader, flat int) (T, Result) {
	var zero T
	if res := r.SeekItem(flat); res.IsError() {
		return zero, res
	}
	checkTypeSize[T](r.dtype.ItemSize)
	item, ok, res := r.ReadItem()
	if res.IsError() {
		return zero, res
	}
	if !ok {
		return zero, ErrTruncated
	}
	return *(*T)(unsafe.Pointer(&item[0])), OK
}

// ItemAtIndex is ItemAt addressed by coordinate tuple, raveled under the
// reader's shape and order.
func ItemAtIndex[T any](r *Reader, index ...int) (T, Result) {
	var zero T
	if !r.isOpen {
		return zero, ErrReaderNotOpen
	}
	flat, err := Ravel(index, r.shape, r.order)
	if err != nil {
		panic(err)
	}
	return ItemAt[T](r, flat)
}

func checkTypeSize[T any](itemSize int) {
	var zero T
	if int(unsafe.Sizeof(zero)) != itemSize {
		panic(ContractError{Msg: fmt.Sprintf("typed view: type size %d does not match item size %d", unsafe.Sizeof(zero), itemSize)})
	}
}

// ItemIterator is an input iterator over a reader's items, yielding one
// item_size byte span per step in ascending flat-index order.
type ItemIterator struct {
	r    *Reader
	idx  int
	cur  []byte
	res  Result
	done bool
}

// Items returns an iterator positioned before the first item. The
// reader's cursor is rewound to item 0.
func (r *Reader) Items() *ItemIterator {
	it := &ItemIterator{r: r, idx: -1}
	if res := r.SeekItem(0); res.IsError() {
		it.res = res
		it.done = true
	}
	return it
}

// Next advances to the next item, returning false at EOF, on truncation,
// or after an early error (inspect Err).
func (it *ItemIterator) Next() bool {
	if it.done {
		return false
	}
	item, ok, res := it.r.ReadItem()
	if res.IsError() {
		it.res = res
		it.done = true
		return false
	}
	if !ok {
		it.done = true
		return false
	}
	it.cur = item
	it.idx++
	return true
}

// Index returns the current item's flat index.
func (it *ItemIterator) Index() int { return it.idx }

// Bytes returns the current item's bytes.
func (it *ItemIterator) Bytes() []byte { return it.cur }

// Err returns the terminal result: OK after a clean EOF, ErrTruncated
// when the tail held fewer than item_size residual bytes, or the first
// I/O error.
func (it *ItemIterator) Err() Result { return it.res }

// IterValue reinterprets the iterator's current item as T. Panics on a
// size mismatch.
func IterValue[T any](it *ItemIterator) T {
	checkTypeSize[T](len(it.cur))
	return *(*T)(unsafe.Pointer(&it.cur[0]))
}

// Callback types for the lazy load paths. Returning false cancels
// iteration; the in-flight item is delivered first.
type (
	// PropsCallback is invoked once after the header parse; returning
	// false skips item iteration entirely.
	PropsCallback func(dtype *Dtype, shape Shape, order Order) bool
	// GenericCallback receives every item's raw bytes along with the
	// array properties and the ascending flat index.
	GenericCallback func(dtype *Dtype, shape Shape, order Order, flat int, item []byte) bool
	// TypedCallback receives every item reinterpreted as T.
	TypedCallback[T any] func(flat int, value T) bool
	// MultiIndexCallback receives every item with its flat index
	// unraveled into a coordinate tuple.
	MultiIndexCallback[T any] func(index []int, value T) bool
)

// forEachItem drives the callback loop shared by every lazy load
// variant: strict ascending flat indices, cancellation on false, and
// ErrTruncated when the tail holds fewer than item_size bytes.
func forEachItem(r *Reader, fn func(flat int, item []byte) bool) Result {
	flat := 0
	for {
		item, ok, res := r.ReadItem()
		if res.IsError() {
			return res
		}
		if !ok {
			return OK
		}
		if !fn(flat, item) {
			return OK
		}
		flat++
	}
}

// withOpenReader opens path, runs fn, and always closes again, OR-ing
// header warnings into fn's result. npyOut, if non-nil, receives the
// framing metadata.
func withOpenReader(path string, npyOut *NpyFile, fn func(r *Reader) Result) Result {
	var r Reader
	res := r.Open(path)
	if res.IsError() {
		return res
	}
	// the deferred close also runs when fn panics on a contract
	// violation (the panic still propagates); the explicit close below
	// reports I/O close errors, and the deferred one is then a no-op
	defer r.Close()
	if npyOut != nil {
		*npyOut = r.npy
	}
	res |= fn(&r)
	if cres := r.Close(); cres.IsError() && !res.IsError() {
		res |= cres
	}
	return res
}

// FromNpyFunc lazily reads path, handing every item's raw bytes to cb.
func FromNpyFunc(path string, cb GenericCallback, npyOut *NpyFile) Result {
	return withOpenReader(path, npyOut, func(r *Reader) Result {
		return forEachItem(r, func(flat int, item []byte) bool {
			return cb(r.dtype, r.shape, r.order, flat, item)
		})
	})
}

// FromNpyTyped lazily reads path, handing every item to cb as a T.
func FromNpyTyped[T any](path string, cb TypedCallback[T], npyOut *NpyFile) Result {
	return FromNpyTypedProps[T](path, nil, cb, npyOut)
}

// FromNpyTypedProps is FromNpyTyped with a properties callback invoked
// once after the header parse; if it returns false the items are never
// read.
func FromNpyTypedProps[T any](path string, props PropsCallback, cb TypedCallback[T], npyOut *NpyFile) Result {
	return withOpenReader(path, npyOut, func(r *Reader) Result {
		if props != nil && !props(r.dtype, r.shape, r.order) {
			return OK
		}
		checkTypeSize[T](r.dtype.ItemSize)
		return forEachItem(r, func(flat int, item []byte) bool {
			return cb(flat, *(*T)(unsafe.Pointer(&item[0])))
		})
	})
}

// FromNpyMultiIndex lazily reads path, unraveling each flat index into a
// coordinate tuple under the file's shape and order before invoking cb.
func FromNpyMultiIndex[T any](path string, cb MultiIndexCallback[T], npyOut *NpyFile) Result {
	return withOpenReader(path, npyOut, func(r *Reader) Result {
		checkTypeSize[T](r.dtype.ItemSize)
		return forEachItem(r, func(flat int, item []byte) bool {
			index, err := UnravelIndex(flat, r.shape, r.order)
			if err != nil {
				panic(err)
			}
			return cb(index, *(*T)(unsafe.Pointer(&item[0])))
		})
	})
}

// Open opens a lazy reader on path; the counterpart of Close. These are
// the package-level spellings of the reader lifecycle for callers that
// prefer a functional surface over methods.
func Open(path string, r *Reader) Result { return r.Open(path) }

// Close closes a lazy reader.
func Close(r *Reader) Result { return r.Close() }
