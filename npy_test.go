package gonpy

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// makeNpy frames an arbitrary header string with version-2.0 framing and
// the 64-byte padding rule, then appends payload.
func makeNpy(header string, payload []byte) []byte {
	prelude := len(npyMagicString) + 2 + 4
	total := prelude + len(header) + 1
	pad := 0
	if rem := total % 64; rem != 0 {
		pad = 64 - rem
	}
	headerLen := len(header) + pad + 1

	buf := make([]byte, 0, prelude+headerLen+len(payload))
	buf = append(buf, npyMagicString...)
	buf = append(buf, 2, 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(headerLen))
	buf = append(buf, header...)
	for i := 0; i < pad; i++ {
		buf = append(buf, 0x20)
	}
	buf = append(buf, '\n')
	buf = append(buf, payload...)
	return buf
}

func writeTempNpy(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHeaderFramingDivisibility(t *testing.T) {
	// every written file pads to a 64-byte boundary and
	// ends the header with a newline
	for _, n := range []int{1, 5, 100} {
		arr := newTestArray(t, n)
		buf, res := ToNpyBuffer(arr)
		if res.IsError() {
			t.Fatal(res)
		}
		headerLen := int(binary.LittleEndian.Uint32(buf[8:12]))
		prelude := 12
		if (prelude+headerLen)%64 != 0 {
			t.Errorf("n=%d: prelude+header = %d not a multiple of 64", n, prelude+headerLen)
		}
		if buf[prelude+headerLen-1] != '\n' {
			t.Errorf("n=%d: last header byte is %#x, want newline", n, buf[prelude+headerLen-1])
		}
		if buf[6] != 2 || buf[7] != 0 {
			t.Errorf("n=%d: version = %d.%d, want 2.0", n, buf[6], buf[7])
		}
	}
}

func TestScalarInt64Load(t *testing.T) {
	payload := make([]byte, 5*8)
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint64(payload[i*8:], uint64(i))
	}
	data := makeNpy("{'descr': '<i8', 'fortran_order': False, 'shape': (5,), }", payload)
	path := writeTempNpy(t, "s1.npy", data)

	var arr Ndarray
	var npy NpyFile
	res := FromNpy(path, &arr, &npy)
	if res.IsError() {
		t.Fatal(res)
	}
	if arr.ItemSize() != 8 {
		t.Errorf("item_size = %d, want 8", arr.ItemSize())
	}
	if !arr.Shape().Equal(Shape{5}) {
		t.Errorf("shape = %v, want [5]", arr.Shape())
	}
	if v := Value[int64](&arr, 3); v != 3 {
		t.Errorf("arr[3] = %d, want 3", v)
	}
	if npy.Major != 2 || npy.HeaderLenWidth != 4 {
		t.Errorf("framing: version %d width %d", npy.Major, npy.HeaderLenWidth)
	}
}

func TestBigEndianComplexApplySwap(t *testing.T) {
	// 2x2 >c16: raw values stay byte-swapped after load, host order after Apply
	want := []complex128{1 + 2i, 3 + 4i, 5 + 6i, 7 + 8i}
	payload := make([]byte, 4*16)
	for i, c := range want {
		binary.BigEndian.PutUint64(payload[i*16:], uint64(floatBits(real(c))))
		binary.BigEndian.PutUint64(payload[i*16+8:], uint64(floatBits(imag(c))))
	}
	data := makeNpy("{'descr': '>c16', 'fortran_order': False, 'shape': (2, 2), }", payload)
	path := writeTempNpy(t, "s2.npy", data)

	var arr Ndarray
	if res := FromNpy(path, &arr, nil); res.IsError() {
		t.Fatal(res)
	}
	if arr.Dtype().Endianness != EndianBig {
		t.Fatalf("endianness = %v, want big", arr.Dtype().Endianness)
	}
	// raw access is byte-swapped relative to the little-endian host
	if raw := Value[complex128](&arr, 0); raw == want[0] {
		t.Error("raw value should not be in host order before the swap")
	}
	err := arr.Apply(func(item []byte) {
		v := *(*complex128)(pointerOf(item))
		*(*complex128)(pointerOf(item)) = SwapComplex128(v)
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range want {
		if got := Value[complex128](&arr, i); got != c {
			t.Errorf("arr[%d] = %v, want %v", i, got, c)
		}
	}
}

func TestStructuredRecordLoad(t *testing.T) {
	// two records of [('name','<U16'), ('grades','<f8',(2,))]
	type rec struct {
		name   string
		grades [2]float64
	}
	recs := []rec{{"alice", [2]float64{1.5, 2.5}}, {"bob", [2]float64{3.0, 4.0}}}

	payload := make([]byte, 0, 2*80)
	for _, r := range recs {
		payload = append(payload, EncodeUCS4(r.name, 16, binary.LittleEndian)...)
		for _, g := range r.grades {
			payload = binary.LittleEndian.AppendUint64(payload, uint64(floatBits(g)))
		}
	}
	header := "{'descr': [('name', '<U16'), ('grades', '<f8', (2,))], 'fortran_order': False, 'shape': (2,), }"
	path := writeTempNpy(t, "s3.npy", makeNpy(header, payload))

	var arr Ndarray
	if res := FromNpy(path, &arr, nil); res.IsError() {
		t.Fatal(res)
	}
	dt := arr.Dtype()
	if dt.ItemSize != 80 {
		t.Fatalf("item_size = %d, want 80", dt.ItemSize)
	}
	for i, r := range recs {
		item := arr.ItemBytes(i)
		name := dt.FindField("name")
		if got := DecodeUCS4(item[name.Offset:name.Offset+name.ItemSize], 16, binary.LittleEndian); got != r.name {
			t.Errorf("record %d name = %q, want %q", i, got, r.name)
		}
		grades := dt.FindField("grades")
		for j := 0; j < 2; j++ {
			bits := binary.LittleEndian.Uint64(item[grades.Offset+j*8:])
			if got := floatFromBits(bits); got != r.grades[j] {
				t.Errorf("record %d grade %d = %v, want %v", i, j, got, r.grades[j])
			}
		}
	}
}

func TestSaveLoadIdempotence(t *testing.T) {
	arr := NewNdarrayOrder(ScalarDtype(EndianLittle, 'f', 8), Shape{3, 4}, ColMajor)
	for i := 0; i < arr.Len(); i++ {
		SetValue(arr, i, float64(i)*1.25)
	}
	path := filepath.Join(t.TempDir(), "roundtrip.npy")
	if res := Save(path, arr, false); res.IsError() {
		t.Fatal(res)
	}

	var back Ndarray
	if res := Load(path, &back); res.IsError() {
		t.Fatal(res)
	}
	if !back.Shape().Equal(arr.Shape()) {
		t.Errorf("shape %v != %v", back.Shape(), arr.Shape())
	}
	if back.Order() != ColMajor {
		t.Errorf("order = %v, want col_major", back.Order())
	}
	if back.Dtype().TypeCode != 'f' || back.Dtype().Size != 8 {
		t.Errorf("dtype = %c%d", back.Dtype().TypeCode, back.Dtype().Size)
	}
	if !bytes.Equal(back.Data(), arr.Data()) {
		t.Error("payload bytes differ after round trip")
	}
}

func TestSaveNoOverwrite(t *testing.T) {
	arr := newTestArray(t, 2)
	path := filepath.Join(t.TempDir(), "exists.npy")
	if res := Save(path, arr, false); res.IsError() {
		t.Fatal(res)
	}
	if res := Save(path, arr, false); !res.Is(ErrExists) {
		t.Errorf("second save = %v, want exists", res)
	}
	if res := Save(path, arr, true); res.IsError() {
		t.Errorf("overwriting save = %v", res)
	}
}

func TestBadMagic(t *testing.T) {
	data := makeNpy("{'descr': '<i8', 'fortran_order': False, 'shape': (1,), }", make([]byte, 8))
	data[0] = 'X'
	path := writeTempNpy(t, "badmagic.npy", data)
	var arr Ndarray
	if res := FromNpy(path, &arr, nil); !res.Is(ErrMagicStringInvalid) {
		t.Errorf("result = %v, want magic_string_invalid", res)
	}
}

func TestBadVersion(t *testing.T) {
	data := makeNpy("{'descr': '<i8', 'fortran_order': False, 'shape': (1,), }", make([]byte, 8))
	data[6] = 3
	path := writeTempNpy(t, "badversion.npy", data)
	var arr Ndarray
	if res := FromNpy(path, &arr, nil); !res.Is(ErrVersionNotSupported) {
		t.Errorf("result = %v, want version_not_supported", res)
	}
}

func TestBadHeaderLength(t *testing.T) {
	data := makeNpy("{'descr': '<i8', 'fortran_order': False, 'shape': (1,), }", make([]byte, 8))
	binary.LittleEndian.PutUint32(data[8:12], 17)
	path := writeTempNpy(t, "badlen.npy", data)
	var arr Ndarray
	if res := FromNpy(path, &arr, nil); !res.Is(ErrHeaderInvalidLength) {
		t.Errorf("result = %v, want header_invalid_length", res)
	}
}

func TestMissingKeysAreWarnings(t *testing.T) {
	// fortran_order and shape omitted: warnings OR-ed in, not fatal
	payload := make([]byte, 8)
	data := makeNpy("{'descr': '<i8', }", payload)
	path := writeTempNpy(t, "warn.npy", data)
	var arr Ndarray
	res := FromNpy(path, &arr, nil)
	if res.IsError() {
		t.Fatalf("missing keys must not abort: %v", res)
	}
	if !res.Is(WarnMissingFortranOrder) || !res.Is(WarnMissingShape) {
		t.Errorf("result = %v, want missing_fortran_order | missing_shape", res)
	}
	if res.Is(WarnMissingDescr) {
		t.Errorf("descr was present: %v", res)
	}
}

func TestDataSizeMismatch(t *testing.T) {
	// 10 payload bytes are not a multiple of item_size 8
	data := makeNpy("{'descr': '<i8', 'fortran_order': False, 'shape': (1,), }", make([]byte, 10))
	path := writeTempNpy(t, "mismatch.npy", data)
	var arr Ndarray
	if res := FromNpy(path, &arr, nil); !res.Is(ErrDataSizeMismatch) {
		t.Errorf("result = %v, want data_size_mismatch", res)
	}
}

func TestVersion10Accepted(t *testing.T) {
	header := "{'descr': '<i8', 'fortran_order': False, 'shape': (2,), }"
	prelude := len(npyMagicString) + 2 + 2
	total := prelude + len(header) + 1
	pad := 0
	if rem := total % 64; rem != 0 {
		pad = 64 - rem
	}
	headerLen := len(header) + pad + 1

	buf := []byte(npyMagicString)
	buf = append(buf, 1, 0)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(headerLen))
	buf = append(buf, header...)
	for i := 0; i < pad; i++ {
		buf = append(buf, 0x20)
	}
	buf = append(buf, '\n')
	buf = append(buf, make([]byte, 16)...)

	path := writeTempNpy(t, "v1.npy", buf)
	var arr Ndarray
	var npy NpyFile
	if res := FromNpy(path, &arr, &npy); res.IsError() {
		t.Fatal(res)
	}
	if npy.Major != 1 || npy.HeaderLenWidth != 2 {
		t.Errorf("version %d, width %d, want 1/2", npy.Major, npy.HeaderLenWidth)
	}
}

func TestProbeFile(t *testing.T) {
	dir := t.TempDir()
	arr := newTestArray(t, 2)

	npyPath := filepath.Join(dir, "a.npy")
	if res := Save(npyPath, arr, false); res.IsError() {
		t.Fatal(res)
	}
	npzPath := filepath.Join(dir, "a.npz")
	if res := SaveZ(npzPath, []NamedArray{{Name: "a", Array: arr}}, false); res.IsError() {
		t.Fatal(res)
	}
	otherPath := filepath.Join(dir, "other.bin")
	if err := os.WriteFile(otherPath, []byte("not numpy"), 0o644); err != nil {
		t.Fatal(err)
	}

	if f, _ := ProbeFile(npyPath); f != FormatNpy {
		t.Errorf("npy probed as %v", f)
	}
	if f, _ := ProbeFile(npzPath); f != FormatNpz {
		t.Errorf("npz probed as %v", f)
	}
	if f, _ := ProbeFile(otherPath); f != FormatUnknown {
		t.Errorf("junk probed as %v", f)
	}
}

func TestLoadRejectsZip(t *testing.T) {
	arr := newTestArray(t, 2)
	path := filepath.Join(t.TempDir(), "a.npz")
	if res := SaveZ(path, []NamedArray{{Name: "a", Array: arr}}, false); res.IsError() {
		t.Fatal(res)
	}
	var out Ndarray
	if res := Load(path, &out); !res.Is(ErrWrongFiletype) {
		t.Errorf("Load on npz = %v, want wrong_filetype", res)
	}
}

func TestFromNpyMmap(t *testing.T) {
	payload := make([]byte, 4*8)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(payload[i*8:], uint64(i*7))
	}
	data := makeNpy("{'descr': '<i8', 'fortran_order': False, 'shape': (4,), }", payload)
	path := writeTempNpy(t, "mmap.npy", data)

	var arr Ndarray
	if res := FromNpyMmap(path, &arr, nil); res.IsError() {
		t.Fatal(res)
	}
	defer arr.Release()
	if v := Value[int64](&arr, 3); v != 21 {
		t.Errorf("arr[3] = %d, want 21", v)
	}
	// mmap-backed arrays are read-only
	if err := arr.Apply(func(item []byte) {}); err == nil {
		t.Error("Apply on an mmap-backed array should fail")
	}
	// but Transform yields a mutable copy
	doubled := arr.Transform(func(item []byte) []byte {
		out := make([]byte, 8)
		binary.LittleEndian.PutUint64(out, binary.LittleEndian.Uint64(item)*2)
		return out
	})
	if v := Value[int64](doubled, 3); v != 42 {
		t.Errorf("transformed[3] = %d, want 42", v)
	}
}
