package gonpy

import "strconv"

// pyNodeType tags the discriminated union a parsed node carries.
type pyNodeType int

const (
	pyTuple pyNodeType = iota
	pyList
	pySet
	pyDict
	pyKV
	pyString
	pyInt
	pyFloat
	pyBool
	pyNone
)

// pyValueKind discriminates the scalar union a leaf node's value holds.
type pyValueKind int

const (
	pyValNone pyValueKind = iota
	pyValInt
	pyValFloat
	pyValBool
	pyValString
)

// pyNode is one parsed node. Non-leaf nodes (tuple/list/set/dict/kv) carry
// children in source order; leaf nodes carry a scalar value. A kv node's
// two children are [key, value].
type pyNode struct {
	typ      pyNodeType
	begin    int
	end      int
	children []*pyNode

	valKind pyValueKind
	ival    int64
	fval    float64
	bval    bool
	sval    string
}

func (n *pyNode) asString() (string, bool) {
	if n == nil || n.valKind != pyValString {
		return "", false
	}
	return n.sval, true
}

func (n *pyNode) asInt() (int64, bool) {
	if n == nil || n.valKind != pyValInt {
		return 0, false
	}
	return n.ival, true
}

func (n *pyNode) asBool() (bool, bool) {
	if n == nil || n.valKind != pyValBool {
		return false, false
	}
	return n.bval, true
}

// pyParser is a recursive-descent parser over the Python-literal
// grammar a numpy header can contain. Every alternative marks its
// position before committing to a prefix token and rewinds on any
// child failure, so "not this production" is always cheap and
// non-destructive.
type pyParser struct {
	tok *pyTokenizer
}

func newPyParser(src []byte) *pyParser {
	return &pyParser{tok: newPyTokenizer(src)}
}

// parseTopLevel parses a top-level expression, which must be one of the
// four container forms. A numpy header is always exactly one dict.
func (p *pyParser) parseTopLevel() (*pyNode, error) {
	n, ok := p.parseExpression()
	if !ok {
		return nil, ContractError{Msg: "python literal: expected tuple, list, set or dict at top level"}
	}
	return n, nil
}

func (p *pyParser) parseExpression() (*pyNode, bool) {
	if n, ok := p.parseDict(); ok {
		return n, true
	}
	if n, ok := p.parseTuple(); ok {
		return n, true
	}
	if n, ok := p.parseList(); ok {
		return n, true
	}
	if n, ok := p.parseSet(); ok {
		return n, true
	}
	return nil, false
}

// parseValue parses any single production reachable from "value" in the
// grammar.
func (p *pyParser) parseValue() (*pyNode, bool) {
	m := p.tok.mark()
	begin := p.tok.peek().begin
	tk := p.tok.next()
	switch tk.kind {
	case tokNone:
		return &pyNode{typ: pyNone, valKind: pyValNone, begin: begin, end: tk.end}, true
	case tokTrue:
		return &pyNode{typ: pyBool, valKind: pyValBool, bval: true, begin: begin, end: tk.end}, true
	case tokFalse:
		return &pyNode{typ: pyBool, valKind: pyValBool, bval: false, begin: begin, end: tk.end}, true
	case tokInt:
		return &pyNode{typ: pyInt, valKind: pyValInt, ival: tk.ival, begin: begin, end: tk.end}, true
	case tokFloat:
		return &pyNode{typ: pyFloat, valKind: pyValFloat, fval: tk.fval, begin: begin, end: tk.end}, true
	case tokString:
		return &pyNode{typ: pyString, valKind: pyValString, sval: tk.str, begin: begin, end: tk.end}, true
	}
	p.tok.reset(m)
	return p.parseExpression()
}

// parseHashable parses a set element: anything value can produce except
// the unordered containers (set/dict). Lists are accepted, although
// CPython would reject them as unhashable. numpy headers never nest sets, but the
// grammar allows it, so it is implemented for completeness.
func (p *pyParser) parseHashable() (*pyNode, bool) {
	m := p.tok.mark()
	n, ok := p.parseValue()
	if !ok {
		return nil, false
	}
	if n.typ == pySet || n.typ == pyDict {
		p.tok.reset(m)
		return nil, false
	}
	return n, true
}

func (p *pyParser) parseDelimited(open, close pyTokenKind, typ pyNodeType, elem func() (*pyNode, bool)) (*pyNode, bool) {
	m := p.tok.mark()
	begin := p.tok.peek().begin
	if p.tok.next().kind != open {
		p.tok.reset(m)
		return nil, false
	}

	node := &pyNode{typ: typ, begin: begin}

	if p.tok.peek().kind == close {
		end := p.tok.next().end
		node.end = end
		return node, true
	}

	for {
		child, ok := elem()
		if !ok {
			p.tok.reset(m)
			return nil, false
		}
		node.children = append(node.children, child)

		nt := p.tok.peek()
		if nt.kind == tokComma {
			p.tok.next()
			if p.tok.peek().kind == close {
				end := p.tok.next().end
				node.end = end
				return node, true
			}
			continue
		}
		if nt.kind == close {
			end := p.tok.next().end
			node.end = end
			return node, true
		}
		p.tok.reset(m)
		return nil, false
	}
}

func (p *pyParser) parseTuple() (*pyNode, bool) {
	return p.parseDelimited(tokLParen, tokRParen, pyTuple, p.parseValue)
}

func (p *pyParser) parseList() (*pyNode, bool) {
	return p.parseDelimited(tokLBracket, tokRBracket, pyList, p.parseValue)
}

func (p *pyParser) parseSet() (*pyNode, bool) {
	return p.parseDelimited(tokLBrace, tokRBrace, pySet, p.parseHashable)
}

// parseDict disambiguates from parseSet by requiring every element to
// parse as a kv pair; if the first element has no ':' the braces are a
// set instead.
func (p *pyParser) parseDict() (*pyNode, bool) {
	return p.parseDelimited(tokLBrace, tokRBrace, pyDict, p.parseKV)
}

func (p *pyParser) parseKV() (*pyNode, bool) {
	m := p.tok.mark()
	begin := p.tok.peek().begin

	var key *pyNode
	var ok bool
	switch p.tok.peek().kind {
	case tokString, tokInt, tokFloat:
		key, ok = p.parseValue()
	case tokLParen:
		key, ok = p.parseTuple()
	}
	if !ok || key == nil {
		p.tok.reset(m)
		return nil, false
	}
	if p.tok.next().kind != tokColon {
		p.tok.reset(m)
		return nil, false
	}
	val, ok := p.parseValue()
	if !ok {
		p.tok.reset(m)
		return nil, false
	}
	return &pyNode{typ: pyKV, begin: begin, end: val.end, children: []*pyNode{key, val}}, true
}

func parseIntPrefix(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseFloatPrefix(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// parsePyDict is the entry point used by the npy header reader: it
// parses src as a single top-level dict and fails if it is anything
// else, since a numpy header is always a dict.
func parsePyDict(src []byte) (*pyNode, error) {
	p := newPyParser(src)
	n, err := p.parseTopLevel()
	if err != nil {
		return nil, err
	}
	if n.typ != pyDict {
		return nil, ContractError{Msg: "python literal: top-level expression is not a dict"}
	}
	return n, nil
}

// dictGet looks up a key's value node within a parsed dict node.
func dictGet(dict *pyNode, key string) (*pyNode, bool) {
	if dict == nil || dict.typ != pyDict {
		return nil, false
	}
	for _, kv := range dict.children {
		if len(kv.children) != 2 {
			continue
		}
		if k, ok := kv.children[0].asString(); ok && k == key {
			return kv.children[1], true
		}
	}
	return nil, false
}
