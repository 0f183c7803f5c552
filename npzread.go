package gonpy

import (
	"io"
	"os"
	"strings"
)

// fromZipArchive decodes every member of an opened archive through the
// npy reader, storing each under its bare name (the ".npy" suffix
// stripped), in the archive's listing order.
func fromZipArchive(backend ZipBackend, npz *NpzFile) Result {
	names, res := backend.FileList()
	if res.IsError() {
		return res
	}
	for _, fname := range names {
		data, res := backend.Read(fname)
		if res.IsError() {
			return res
		}
		name := strings.TrimSuffix(fname, npySuffix)

		npy := &NpyFile{}
		arr := &Ndarray{}
		if res := FromBuffer(data, npy, arr); res.IsError() {
			return res
		}
		npz.add(name, npy, arr)
	}
	return OK
}

// FromNpz reads a whole .npz archive into npz. A file that is not a
// PKZIP archive fails with ErrWrongFiletype.
func FromNpz(path string, npz *NpzFile) Result {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return ErrOpenFailed
	}
	var sig [4]byte
	_, rerr := io.ReadFull(f, sig[:])
	f.Close()
	if rerr != nil || !isZipSignature(sig) {
		return ErrWrongFiletype
	}

	backend := NewZipBackend()
	if res := backend.Open(path, ZipModeRead); res.IsError() {
		return res
	}
	res := fromZipArchive(backend, npz)
	if cres := backend.Close(); cres.IsError() && !res.IsError() {
		res = cres
	}
	return res
}
