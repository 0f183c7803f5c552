package gonpy

import "testing"

func mustDescr(t *testing.T, descr string) *Dtype {
	t.Helper()
	src := "{'descr': " + descr + ", 'fortran_order': False, 'shape': (1,), }"
	root, err := parsePyDict([]byte(src))
	if err != nil {
		t.Fatalf("parse %q: %v", descr, err)
	}
	node, _ := dictGet(root, "descr")
	d, res, err := NewDtypeFromDescr(node)
	if err != nil {
		t.Fatalf("dtype from %q: %v (%v)", descr, err, res)
	}
	return d
}

func TestScalarDescr(t *testing.T) {
	tests := []struct {
		descr      string
		endianness Endianness
		typeCode   byte
		size       int
		itemSize   int
	}{
		{"'<i8'", EndianLittle, 'i', 8, 8},
		{"'>c16'", EndianBig, 'c', 16, 16},
		{"'|u1'", EndianNotRelevant, 'u', 1, 1},
		{"'<U16'", EndianLittle, 'U', 16, 64},
		{"'<O8'", EndianLittle, 'O', 8, 64},
		{"'=f4'", EndianNative, 'f', 4, 4},
	}
	for _, tc := range tests {
		d := mustDescr(t, tc.descr)
		if d.Endianness != tc.endianness || d.TypeCode != tc.typeCode || d.Size != tc.size || d.ItemSize != tc.itemSize {
			t.Errorf("%s: got (%v %c %d %d), want (%v %c %d %d)", tc.descr,
				d.Endianness, d.TypeCode, d.Size, d.ItemSize,
				tc.endianness, tc.typeCode, tc.size, tc.itemSize)
		}
	}
}

func TestDescrStringTooShort(t *testing.T) {
	_, res, err := dtypeFromDescrString("<i")
	if err == nil || res != ErrDescrInvalidString {
		t.Errorf("got (%v, %v), want descr_invalid_string", res, err)
	}
}

func TestStructuredRecord(t *testing.T) {
	// a record of [('name','<U16'), ('grades','<f8',(2,))]
	d := mustDescr(t, "[('name', '<U16'), ('grades', '<f8', (2,))]")
	if !d.IsRecord() || len(d.Fields) != 2 {
		t.Fatalf("want record with 2 fields, got %d", len(d.Fields))
	}
	if d.ItemSize != 80 {
		t.Errorf("item_size = %d, want 80", d.ItemSize)
	}
	name := d.FindField("name")
	if name.Offset != 0 || name.ItemSize != 64 {
		t.Errorf("name: offset=%d itemsize=%d, want 0/64", name.Offset, name.ItemSize)
	}
	grades := d.FindField("grades")
	if grades.Offset != 64 || grades.ItemSize != 16 {
		t.Errorf("grades: offset=%d itemsize=%d, want 64/16", grades.Offset, grades.ItemSize)
	}
	if len(grades.Shape) != 1 || grades.Shape[0] != 2 {
		t.Errorf("grades shape = %v, want [2]", grades.Shape)
	}
}

func TestNestedRecord(t *testing.T) {
	// a nested record with three sub-records
	country := "[('country', '<U16'), ('gdp', '<u8')]"
	descr := "[('year', '<u4'), ('countries', [('c1', " + country + "), ('c2', " + country + "), ('c3', " + country + ")])]"
	d := mustDescr(t, descr)
	if d.ItemSize != 220 {
		t.Errorf("item_size = %d, want 220", d.ItemSize)
	}
	gdp, off, err := d.Field("countries", "c2", "gdp")
	if err != nil {
		t.Fatal(err)
	}
	if off != 140 {
		t.Errorf("countries.c2.gdp offset = %d, want 140", off)
	}
	if gdp.TypeCode != 'u' || gdp.ItemSize != 8 {
		t.Errorf("gdp dtype = %c/%d, want u/8", gdp.TypeCode, gdp.ItemSize)
	}
}

func TestRecordOffsetConsistency(t *testing.T) {
	// item_size is the field sum, offsets are cumulative
	d := mustDescr(t, "[('a', '<i4'), ('b', '<f8'), ('c', '<u2'), ('d', '<U3')]")
	sum := 0
	for i, f := range d.Fields {
		if f.Offset != sum {
			t.Errorf("field %d offset = %d, want %d", i, f.Offset, sum)
		}
		sum += f.ItemSize
	}
	if d.ItemSize != sum {
		t.Errorf("record item_size = %d, want %d", d.ItemSize, sum)
	}
}

func TestDtypeRoundTrip(t *testing.T) {
	// serialize -> parse reproduces the tree
	descrs := []string{
		"'<i8'",
		"'>f4'",
		"[('name', '<U16'), ('grades', '<f8', (2,))]",
		"[('year', '<u4'), ('inner', [('a', '<i2'), ('b', '>c16')])]",
	}
	for _, descr := range descrs {
		d := mustDescr(t, descr)
		reparsed := mustDescr(t, d.Describe())
		assertDtypeEqual(t, descr, d, reparsed)
	}
}

func assertDtypeEqual(t *testing.T, ctx string, want, got *Dtype) {
	t.Helper()
	if got.TypeCode != want.TypeCode || got.Endianness != want.Endianness || got.Size != want.Size {
		t.Errorf("%s: (%c %v %d) != (%c %v %d)", ctx, got.TypeCode, got.Endianness, got.Size, want.TypeCode, want.Endianness, want.Size)
	}
	if len(got.Shape) != len(want.Shape) {
		t.Errorf("%s: shape %v != %v", ctx, got.Shape, want.Shape)
	} else {
		for i := range got.Shape {
			if got.Shape[i] != want.Shape[i] {
				t.Errorf("%s: shape %v != %v", ctx, got.Shape, want.Shape)
				break
			}
		}
	}
	if len(got.Fields) != len(want.Fields) {
		t.Fatalf("%s: field count %d != %d", ctx, len(got.Fields), len(want.Fields))
	}
	for i := range got.Fields {
		if got.Fields[i].Name != want.Fields[i].Name {
			t.Errorf("%s: field %d name %q != %q", ctx, i, got.Fields[i].Name, want.Fields[i].Name)
		}
		assertDtypeEqual(t, ctx+"."+want.Fields[i].Name, want.Fields[i], got.Fields[i])
	}
}

func TestFindFieldMissingPanics(t *testing.T) {
	d := mustDescr(t, "[('a', '<i4')]")
	defer func() {
		if recover() == nil {
			t.Error("FindField on a missing name should panic")
		}
	}()
	d.FindField("nope")
}

func TestFieldPathErrors(t *testing.T) {
	d := mustDescr(t, "[('a', '<i4')]")
	if _, _, err := d.Field("nope"); err == nil {
		t.Error("missing field should return an error")
	}
	if _, _, err := d.Field("a", "deeper"); err == nil {
		t.Error("descending into a scalar should return an error")
	}
}

func TestDescrListErrors(t *testing.T) {
	tests := []struct {
		descr string
		want  Result
	}{
		{"[]", ErrDescrListEmpty},
		{"[('a',)]", ErrDescrListIncompleteValue},
		{"[(1, '<i4')]", ErrDescrListInvalidValue},
		{"[('a', True)]", ErrDescrListSubtypeNotSupported},
		{"[('a', '<i4', [1, 2])]", ErrDescrListInvalidShape},
		{"[('a', '<i4', ('x',))]", ErrDescrListInvalidShapeValue},
	}
	for _, tc := range tests {
		src := "{'descr': " + tc.descr + ", 'shape': (1,), }"
		root, err := parsePyDict([]byte(src))
		if err != nil {
			t.Fatalf("parse %q: %v", tc.descr, err)
		}
		node, _ := dictGet(root, "descr")
		_, res, err := NewDtypeFromDescr(node)
		if err == nil || res != tc.want {
			t.Errorf("%s: got (%v, %v), want %v", tc.descr, res, err, tc.want)
		}
	}
}
