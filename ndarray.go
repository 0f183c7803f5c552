package gonpy

import (
	"fmt"
	"unsafe"
)

// Ndarray is a typed container over a backing store: a dtype, a shape,
// a storage order, a cached stride vector, and the raw bytes. It is
// created empty, by NewNdarray (owned allocation), by the npy codec on
// load, or by Assign. Ndarrays move, they do not copy: passing the
// pointer around shares the store, and Move transfers it leaving the
// source empty. Memory-mapped arrays are read-only.
type Ndarray struct {
	dtype   *Dtype
	shape   Shape
	order   Order
	strides []int
	store   backingStore
}

// NewNdarray allocates a zeroed array of the given dtype and shape in
// row-major order. The dtype must already be laid out (NewDtypeFromDescr
// or ScalarDtype do this).
func NewNdarray(dtype *Dtype, shape Shape) *Ndarray {
	return NewNdarrayOrder(dtype, shape, RowMajor)
}

// NewNdarrayOrder is NewNdarray with an explicit storage order.
func NewNdarrayOrder(dtype *Dtype, shape Shape, order Order) *Ndarray {
	a := &Ndarray{}
	a.Assign(dtype, shape, rawStore(dtype.ItemSize*shape.Len()), order)
	return a
}

// ScalarDtype builds a laid-out leaf dtype from its parts, the
// programmatic equivalent of parsing a descr string like "<i8".
func ScalarDtype(endianness Endianness, typeCode byte, size int) *Dtype {
	d := &Dtype{Endianness: endianness, TypeCode: typeCode, Size: size}
	d.ItemSize = multiplier(typeCode) * size
	return d
}

// Assign swaps in a new backing store and recomputes size and strides.
// Any previous store is released first.
func (a *Ndarray) Assign(dtype *Dtype, shape Shape, store backingStore, order Order) {
	a.store.release()
	a.dtype = dtype
	a.shape = append(Shape(nil), shape...)
	a.order = order
	a.strides = ComputeStrides(a.shape, order)
	a.store = store
}

// Release drops the backing store, returning the array to the empty
// state. Idempotent; for mmap-backed arrays this unmaps the region.
func (a *Ndarray) Release() error {
	a.dtype = nil
	a.shape = nil
	a.strides = nil
	return a.store.release()
}

// Move transfers a's store and metadata into a fresh array and leaves a
// empty; the moved-from array is safe to drop.
func (a *Ndarray) Move() *Ndarray {
	out := &Ndarray{
		dtype:   a.dtype,
		shape:   a.shape,
		order:   a.order,
		strides: a.strides,
		store:   a.store,
	}
	a.dtype = nil
	a.shape = nil
	a.strides = nil
	a.store = backingStore{}
	return out
}

// Empty reports whether a holds no backing store.
func (a *Ndarray) Empty() bool { return a.store.kind == storeEmpty }

// Dtype returns the array's element type.
func (a *Ndarray) Dtype() *Dtype { return a.dtype }

// Shape returns the array's axis sizes. Callers must not mutate it.
func (a *Ndarray) Shape() Shape { return a.shape }

// Order returns the array's storage order.
func (a *Ndarray) Order() Order { return a.order }

// Strides returns the cached element strides for the array's shape and
// order.
func (a *Ndarray) Strides() []int { return a.strides }

// Len returns the total element count, the product of the shape.
func (a *Ndarray) Len() int { return a.shape.Len() }

// ItemSize returns the byte width of one element.
func (a *Ndarray) ItemSize() int {
	if a.dtype == nil {
		return 0
	}
	return a.dtype.ItemSize
}

// NBytes returns the total payload byte length.
func (a *Ndarray) NBytes() int { return a.store.dataSize() }

// Data returns the raw payload bytes regardless of which store variant
// the array holds. For mmap-backed arrays the slice aliases the mapping
// and must not be written.
func (a *Ndarray) Data() []byte { return a.store.dataPtr() }

// ItemBytes returns the item_size bytes of the element at a flat index.
// An out-of-range index panics (caller contract violation).
func (a *Ndarray) ItemBytes(flat int) []byte {
	n := a.Len()
	if flat < 0 || flat >= n {
		panic(ErrIndexOutOfRange{Axis: -1, Index: flat, Size: n})
	}
	isz := a.ItemSize()
	off := flat * isz
	return a.Data()[off : off+isz]
}

// At returns the element bytes at a coordinate tuple, using the cached
// strides. Out-of-range coordinates panic.
func (a *Ndarray) At(index ...int) []byte {
	flat, err := RavelIndex(index, a.shape, a.strides)
	if err != nil {
		panic(err)
	}
	isz := a.ItemSize()
	off := flat * isz
	return a.Data()[off : off+isz]
}

// Value reinterprets the element at a flat index as T. The size of T
// must equal the array's item size; a mismatch panics, as does an
// out-of-range index.
func Value[T any](a *Ndarray, flat int) T {
	b := a.ItemBytes(flat)
	var zero T
	if int(unsafe.Sizeof(zero)) != len(b) {
		panic(ContractError{Msg: fmt.Sprintf("Value: type size %d does not match item size %d", unsafe.Sizeof(zero), len(b))})
	}
	return *(*T)(unsafe.Pointer(&b[0]))
}

// ValueAt is Value addressed by coordinate tuple.
func ValueAt[T any](a *Ndarray, index ...int) T {
	b := a.At(index...)
	var zero T
	if int(unsafe.Sizeof(zero)) != len(b) {
		panic(ContractError{Msg: fmt.Sprintf("ValueAt: type size %d does not match item size %d", unsafe.Sizeof(zero), len(b))})
	}
	return *(*T)(unsafe.Pointer(&b[0]))
}

// SetValue stores v into the element at a flat index. Panics on size
// mismatch or out-of-range index, and on a read-only (mmap) store.
func SetValue[T any](a *Ndarray, flat int, v T) {
	if !a.store.writable() {
		panic(ContractError{Msg: "SetValue: array is read-only"})
	}
	b := a.ItemBytes(flat)
	if int(unsafe.Sizeof(v)) != len(b) {
		panic(ContractError{Msg: fmt.Sprintf("SetValue: type size %d does not match item size %d", unsafe.Sizeof(v), len(b))})
	}
	*(*T)(unsafe.Pointer(&b[0])) = v
}

// Apply mutates every element in place through fn, visiting flat indices
// in ascending order. The item slice aliases the array's bytes; fn
// writes through it directly. Mmap-backed arrays are read-only and
// return ErrUnavailable.
func (a *Ndarray) Apply(fn func(item []byte)) error {
	if !a.store.writable() {
		return fmt.Errorf("gonpy: apply on read-only array: %w", ErrUnavailable)
	}
	n := a.Len()
	for i := 0; i < n; i++ {
		fn(a.ItemBytes(i))
	}
	return nil
}

// Map visits every element in ascending flat-index order without
// mutating, stopping early when fn returns false.
func (a *Ndarray) Map(fn func(flat int, item []byte) bool) {
	n := a.Len()
	for i := 0; i < n; i++ {
		if !fn(i, a.ItemBytes(i)) {
			return
		}
	}
}

// Transform produces a new owned array whose elements are fn applied to
// each of a's elements. fn must return exactly item_size bytes; anything
// else panics. The result is always vector-backed, so Transform is also
// the way to get a mutable copy of an mmap-backed array.
func (a *Ndarray) Transform(fn func(item []byte) []byte) *Ndarray {
	isz := a.ItemSize()
	out := make([]byte, a.NBytes())
	n := a.Len()
	for i := 0; i < n; i++ {
		r := fn(a.ItemBytes(i))
		if len(r) != isz {
			panic(ContractError{Msg: fmt.Sprintf("Transform: callback returned %d bytes, want %d", len(r), isz)})
		}
		copy(out[i*isz:], r)
	}
	res := &Ndarray{}
	res.Assign(a.dtype, a.shape, vectorStore(out), a.order)
	return res
}

// Reshape reinterprets the array under a new shape with the same total
// element count. The bytes are untouched; only shape and strides change.
func (a *Ndarray) Reshape(shape Shape) error {
	if shape.Len() != a.Len() {
		return fmt.Errorf("gonpy: reshape from %v (%d elements) to %v (%d elements)", a.shape, a.Len(), shape, shape.Len())
	}
	a.shape = append(Shape(nil), shape...)
	a.strides = ComputeStrides(a.shape, a.order)
	return nil
}

// TypeDescription renders the header-dict literal describing this
// array, the exact string the npy writer embeds.
func (a *Ndarray) TypeDescription() string {
	fortran := "False"
	if a.order == ColMajor {
		fortran = "True"
	}
	return fmt.Sprintf("{'descr': %s, 'fortran_order': %s, 'shape': %s, }",
		a.dtype.Describe(), fortran, shapeTupleString(a.shape))
}

// String summarizes the array for debugging.
func (a *Ndarray) String() string {
	if a.Empty() {
		return "Ndarray(empty)"
	}
	return fmt.Sprintf("Ndarray(dtype=%s, shape=%v, order=%s, nbytes=%d)",
		scalarOrRecordName(a.dtype), a.shape, a.order, a.NBytes())
}

func scalarOrRecordName(d *Dtype) string {
	if d.IsRecord() {
		return fmt.Sprintf("record[%d fields]", len(d.Fields))
	}
	return scalarDescrString(d)
}
