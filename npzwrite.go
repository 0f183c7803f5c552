package gonpy

import (
	"fmt"
	"os"
)

// NamedArray pairs one archive member name with its array for savez-
// style calls.
type NamedArray struct {
	Name  string
	Array *Ndarray
}

// Anonymous wraps unnamed arrays in the synthesized names numpy itself
// uses: arr_0, arr_1, ...
func Anonymous(arrays ...*Ndarray) []NamedArray {
	out := make([]NamedArray, len(arrays))
	for i, a := range arrays {
		out[i] = NamedArray{Name: fmt.Sprintf("arr_%d", i), Array: a}
	}
	return out
}

// toZipArchive serializes every array to an npy buffer and hands it to
// the zip backend. Duplicate names are rejected before the archive is
// opened, so a duplicate name never leaves a truncated file behind; a
// failure after the archive is opened leaves the members written so far.
func toZipArchive(path string, args []NamedArray, compress bool, level int, overwrite bool) Result {
	seen := make(map[string]struct{}, len(args))
	for _, a := range args {
		if _, dup := seen[a.Name]; dup {
			return ErrDuplicateArrayName
		}
		seen[a.Name] = struct{}{}
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return ErrExists
		}
	}

	backend := NewZipBackend()
	if res := backend.Open(path, ZipModeWrite); res.IsError() {
		return res
	}
	for _, a := range args {
		buf, res := ToNpyBuffer(a.Array)
		if res.IsError() {
			backend.Close()
			return res
		}
		if res := backend.Write(a.Name+npySuffix, buf, compress, level); res.IsError() {
			backend.Close()
			return res
		}
	}
	return backend.Close()
}

// SaveZ writes name/array pairs to an uncompressed (stored) .npz file.
func SaveZ(path string, args []NamedArray, overwrite bool) Result {
	return toZipArchive(path, args, false, 0, overwrite)
}

// SaveZCompressed writes name/array pairs to a deflated .npz file.
// level 0 is the backend default; 1–9 follow the zlib convention.
func SaveZCompressed(path string, args []NamedArray, overwrite bool, level int) Result {
	return toZipArchive(path, args, true, level, overwrite)
}
