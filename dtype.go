package gonpy

import (
	"fmt"
	"strconv"
	"strings"
)

// Endianness mirrors numpy's single-character byte-order codes.
type Endianness byte

const (
	EndianNative      Endianness = '='
	EndianLittle      Endianness = '<'
	EndianBig         Endianness = '>'
	EndianNotRelevant Endianness = '|'
	EndianInvalid     Endianness = 0
)

func parseEndianness(c byte) Endianness {
	switch c {
	case '=':
		return EndianNative
	case '<':
		return EndianLittle
	case '>':
		return EndianBig
	case '|':
		return EndianNotRelevant
	default:
		return EndianInvalid
	}
}

func (e Endianness) String() string {
	switch e {
	case EndianNative:
		return "native"
	case EndianLittle:
		return "little"
	case EndianBig:
		return "big"
	case EndianNotRelevant:
		return "not_relevant"
	default:
		return "invalid"
	}
}

// Dtype is a recursive description of one array element. A Dtype with a
// non-empty Fields slice is a structured record; one with an empty
// Fields slice is a scalar (or a fixed sub-array of a scalar, when
// Shape is non-empty).
type Dtype struct {
	Name       string // empty for top-level scalar arrays
	Endianness Endianness
	TypeCode   byte // 'i' 'u' 'f' 'c' 'b' 'B' 't' '?' 'm' 'M' 'O' 'S' 'U' 'V' ...
	Size       int  // declared element count in the descriptor's own units
	ItemSize   int  // computed byte-width of one element
	Offset     int  // byte offset of this field within its parent record
	Shape      []int

	Fields     []*Dtype
	fieldIndex map[string]int
}

// multiplier returns the per-unit byte width used by the item-size
// walk: 4 for unicode code points, 8 for object slots, 1 for everything
// else (numeric dtypes already carry their byte width in Size).
func multiplier(typeCode byte) int {
	switch typeCode {
	case 'U':
		return 4
	case 'O':
		return 8
	default:
		return 1
	}
}

// dtypeFromDescrString decodes a leaf descr string of the form
// "<byteorder><typecode><size>", e.g. "<f8", ">c16", "|u1".
func dtypeFromDescrString(s string) (*Dtype, Result, error) {
	if len(s) < 3 {
		return nil, ErrDescrInvalidString, fmt.Errorf("gonpy: descr string %q too short", s)
	}
	d := &Dtype{
		Endianness: parseEndianness(s[0]),
		TypeCode:   s[1],
	}
	size, err := strconv.Atoi(s[2:])
	if err != nil {
		return nil, ErrDescrInvalidString, fmt.Errorf("gonpy: descr string %q: invalid size: %w", s, err)
	}
	d.Size = size
	return d, OK, nil
}

// dtypeFromDescrNode decodes a parsed descr node, which is either a
// string (scalar leaf) or a list of 2- or 3-tuples (record).
func dtypeFromDescrNode(n *pyNode) (*Dtype, Result, error) {
	if n == nil {
		return nil, ErrDescrInvalid, fmt.Errorf("gonpy: missing descr")
	}
	switch n.typ {
	case pyString:
		return dtypeFromDescrString(n.sval)
	case pyList:
		return dtypeFromDescrList(n)
	default:
		return nil, ErrDescrInvalidType, fmt.Errorf("gonpy: descr is neither a string nor a list")
	}
}

func dtypeFromDescrList(n *pyNode) (*Dtype, Result, error) {
	if len(n.children) == 0 {
		return nil, ErrDescrListEmpty, fmt.Errorf("gonpy: descr list has no fields")
	}
	rec := &Dtype{TypeCode: 'V', Endianness: EndianNotRelevant}
	rec.Fields = make([]*Dtype, 0, len(n.children))
	rec.fieldIndex = make(map[string]int, len(n.children))

	for _, elem := range n.children {
		if elem.typ != pyTuple || (len(elem.children) != 2 && len(elem.children) != 3) {
			return nil, ErrDescrListIncompleteValue, fmt.Errorf("gonpy: descr list field must be a 2- or 3-tuple")
		}
		name, ok := elem.children[0].asString()
		if !ok {
			return nil, ErrDescrListInvalidValue, fmt.Errorf("gonpy: descr list field name must be a string")
		}

		var field *Dtype
		var res Result
		var err error
		switch elem.children[1].typ {
		case pyString, pyList:
			field, res, err = dtypeFromDescrNode(elem.children[1])
		default:
			return nil, ErrDescrListSubtypeNotSupported, fmt.Errorf("gonpy: descr list field %q: unsupported subtype form", name)
		}
		if err != nil {
			return nil, res, err
		}
		field.Name = name

		if len(elem.children) == 3 {
			shapeNode := elem.children[2]
			if shapeNode.typ != pyTuple {
				return nil, ErrDescrListInvalidShape, fmt.Errorf("gonpy: descr list field %q: shape must be a tuple", name)
			}
			for _, dimNode := range shapeNode.children {
				dim, ok := dimNode.asInt()
				if !ok {
					return nil, ErrDescrListInvalidShapeValue, fmt.Errorf("gonpy: descr list field %q: shape element is not an int", name)
				}
				field.Shape = append(field.Shape, int(dim))
			}
		}

		rec.fieldIndex[name] = len(rec.Fields)
		rec.Fields = append(rec.Fields, field)
	}
	return rec, OK, nil
}

// computeItemSize walks the tree depth-first, assigning field offsets
// and accumulating item sizes. A record that declares a non-zero
// item_size disagreeing with the field sum fails.
func computeItemSize(d *Dtype, parentOffset int) (int, Result, error) {
	if len(d.Fields) == 0 {
		shapeProd := 1
		for _, s := range d.Shape {
			shapeProd *= s
		}
		d.ItemSize = multiplier(d.TypeCode) * d.Size * shapeProd
		d.Offset = parentOffset
		return d.ItemSize, OK, nil
	}

	declared := d.ItemSize
	sum := 0
	for _, f := range d.Fields {
		f.Offset = parentOffset + sum
		sz, res, err := computeItemSize(f, f.Offset)
		if err != nil {
			return 0, res, err
		}
		sum += sz
	}
	if declared != 0 && declared != sum {
		return 0, ErrItemSizeMismatch, fmt.Errorf("gonpy: record item_size mismatch: declared %d, computed %d", declared, sum)
	}
	d.ItemSize = sum
	d.Offset = parentOffset
	return sum, OK, nil
}

// NewDtypeFromDescr parses a descr parse-tree node into a fully laid-out
// Dtype: field offsets computed, item sizes validated.
func NewDtypeFromDescr(n *pyNode) (*Dtype, Result, error) {
	d, res, err := dtypeFromDescrNode(n)
	if err != nil {
		return nil, res, err
	}
	if _, res, err := computeItemSize(d, 0); err != nil {
		return nil, res, err
	}
	return d, OK, nil
}

// IsRecord reports whether d has named sub-fields.
func (d *Dtype) IsRecord() bool { return len(d.Fields) > 0 }

// FindField looks up an immediate child field by name in O(1) via the
// field index. It panics (ContractError) if the field does not exist or
// d is not a record — a caller contract violation, not an I/O error.
func (d *Dtype) FindField(name string) *Dtype {
	if !d.IsRecord() {
		panic(ContractError{Msg: "FindField: dtype has no fields"})
	}
	idx, ok := d.fieldIndex[name]
	if !ok {
		panic(ContractError{Msg: fmt.Sprintf("FindField: no such field %q", name)})
	}
	return d.Fields[idx]
}

// Field chains FindField across a path of field names and returns the
// resolved Dtype along with its cumulative byte offset from the
// record's own start. Unlike FindField it returns an error instead of
// panicking, since a caller-supplied path is often built from user
// input rather than being a programming-time constant.
func (d *Dtype) Field(path ...string) (*Dtype, int, error) {
	cur := d
	for _, name := range path {
		if !cur.IsRecord() {
			return nil, 0, fmt.Errorf("gonpy: field path %q: %q is not a record", strings.Join(path, "."), name)
		}
		idx, ok := cur.fieldIndex[name]
		if !ok {
			return nil, 0, fmt.Errorf("gonpy: field path %q: no such field %q", strings.Join(path, "."), name)
		}
		cur = cur.Fields[idx]
	}
	// computeItemSize folds each parent's own offset into every
	// descendant's Offset already, so cur.Offset is absolute from the
	// top-level record's start — no running sum needed here.
	return cur, cur.Offset, nil
}

func scalarDescrString(d *Dtype) string {
	return fmt.Sprintf("%c%c%d", d.Endianness, d.TypeCode, d.Size)
}

// describeNode renders d back into a numpy-parseable descr fragment.
func describeNode(d *Dtype) string {
	if !d.IsRecord() {
		return "'" + scalarDescrString(d) + "'"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range d.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		b.WriteString("'" + f.Name + "'")
		b.WriteString(", ")
		b.WriteString(describeNode(f))
		if len(f.Shape) > 0 {
			b.WriteString(", ")
			b.WriteString(shapeTupleString(f.Shape))
		}
		b.WriteByte(')')
	}
	b.WriteByte(']')
	return b.String()
}

func shapeTupleString(shape []int) string {
	if len(shape) == 0 {
		return "()"
	}
	parts := make([]string, len(shape))
	for i, s := range shape {
		parts[i] = strconv.Itoa(s)
	}
	return "(" + strings.Join(parts, ",") + ",)"
}

// Describe renders d as the value of a numpy header's "descr" key.
func (d *Dtype) Describe() string { return describeNode(d) }
