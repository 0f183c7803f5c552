package gonpy

import "fmt"

// NpzFile is the in-memory form of a loaded .npz archive: member names
// in the archive's listing order plus the per-member framing metadata
// and payload arrays.
type NpzFile struct {
	Names  []string
	npys   map[string]*NpyFile
	arrays map[string]*Ndarray
}

func newNpzFile() *NpzFile {
	return &NpzFile{
		npys:   make(map[string]*NpyFile),
		arrays: make(map[string]*Ndarray),
	}
}

func (z *NpzFile) add(name string, npy *NpyFile, arr *Ndarray) {
	if z.npys == nil {
		z.npys = make(map[string]*NpyFile)
		z.arrays = make(map[string]*Ndarray)
	}
	z.Names = append(z.Names, name)
	z.npys[name] = npy
	z.arrays[name] = arr
}

// Len returns the member count.
func (z *NpzFile) Len() int { return len(z.Names) }

// Has reports whether a member of the given name exists.
func (z *NpzFile) Has(name string) bool {
	_, ok := z.arrays[name]
	return ok
}

// Get returns the named member's array. A missing name panics —
// dynamic lookup failure is a caller contract violation.
func (z *NpzFile) Get(name string) *Ndarray {
	arr, ok := z.arrays[name]
	if !ok {
		panic(ContractError{Msg: fmt.Sprintf("npz: no member %q", name)})
	}
	return arr
}

// File returns the named member's framing metadata. A missing name
// panics.
func (z *NpzFile) File(name string) *NpyFile {
	npy, ok := z.npys[name]
	if !ok {
		panic(ContractError{Msg: fmt.Sprintf("npz: no member %q", name)})
	}
	return npy
}

// Release drops every member's backing store. Idempotent.
func (z *NpzFile) Release() {
	for _, arr := range z.arrays {
		arr.Release()
	}
}
