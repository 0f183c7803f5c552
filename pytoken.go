package gonpy

import "unicode"

// pyTokenKind classifies one lexical token of a Python-literal dict
// header.
type pyTokenKind int

const (
	tokEOF pyTokenKind = iota
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokLBrace
	tokRBrace
	tokComma
	tokColon
	tokString
	tokInt
	tokFloat
	tokTrue
	tokFalse
	tokNone
	tokUnknown
)

// pyToken is one scanned token plus its cached scalar value, where the
// kind calls for one (string/int/float).
type pyToken struct {
	kind  pyTokenKind
	text  string // raw source slice, punctuation and literals alike
	str   string // decoded string value, for tokString
	ival  int64  // decoded value, for tokInt
	fval  float64
	begin int
	end   int
}

// pyMark is an opaque restore point returned by mark. Restoring via
// reset rewinds the tokenizer to the same position cheaply, by seeking
// the cursor back into the append-only token cache — no token is ever
// rescanned once cached.
type pyMark int

// pyTokenizer backtracks over src by caching every emitted token and
// exposing an integer cursor into that cache. It never copies restore
// points; a pyMark is just the cache index to rewind to.
type pyTokenizer struct {
	src    []byte
	pos    int // byte offset of the next uncached rune
	cache  []pyToken
	cursor int // index into cache of the next token to hand out
}

func newPyTokenizer(src []byte) *pyTokenizer {
	return &pyTokenizer{src: src}
}

// mark returns the current cursor as a restore point.
func (t *pyTokenizer) mark() pyMark { return pyMark(t.cursor) }

// reset rewinds the cursor to a previously returned mark.
func (t *pyTokenizer) reset(m pyMark) { t.cursor = int(m) }

// next returns the next token, scanning and caching it if it has not
// been scanned before, and advances the cursor past it.
func (t *pyTokenizer) next() pyToken {
	if t.cursor < len(t.cache) {
		tok := t.cache[t.cursor]
		t.cursor++
		return tok
	}
	tok := t.scan()
	t.cache = append(t.cache, tok)
	t.cursor++
	return tok
}

// peek returns the next token without advancing the cursor.
func (t *pyTokenizer) peek() pyToken {
	m := t.mark()
	tok := t.next()
	t.reset(m)
	return tok
}

func (t *pyTokenizer) skipSpace() {
	for t.pos < len(t.src) && unicode.IsSpace(rune(t.src[t.pos])) {
		t.pos++
	}
}

func (t *pyTokenizer) scan() pyToken {
	t.skipSpace()
	begin := t.pos
	if t.pos >= len(t.src) {
		return pyToken{kind: tokEOF, begin: begin, end: begin}
	}

	c := t.src[t.pos]
	switch c {
	case '(':
		t.pos++
		return pyToken{kind: tokLParen, text: "(", begin: begin, end: t.pos}
	case ')':
		t.pos++
		return pyToken{kind: tokRParen, text: ")", begin: begin, end: t.pos}
	case '[':
		t.pos++
		return pyToken{kind: tokLBracket, text: "[", begin: begin, end: t.pos}
	case ']':
		t.pos++
		return pyToken{kind: tokRBracket, text: "]", begin: begin, end: t.pos}
	case '{':
		t.pos++
		return pyToken{kind: tokLBrace, text: "{", begin: begin, end: t.pos}
	case '}':
		t.pos++
		return pyToken{kind: tokRBrace, text: "}", begin: begin, end: t.pos}
	case ',':
		t.pos++
		return pyToken{kind: tokComma, text: ",", begin: begin, end: t.pos}
	case ':':
		t.pos++
		return pyToken{kind: tokColon, text: ":", begin: begin, end: t.pos}
	case '\'', '"':
		return t.scanString(c)
	}

	if c == '-' || c == '+' || (c >= '0' && c <= '9') {
		return t.scanNumber()
	}

	if isIdentStart(c) {
		return t.scanKeyword()
	}

	t.pos++
	return pyToken{kind: tokUnknown, text: string(c), begin: begin, end: t.pos}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (t *pyTokenizer) scanKeyword() pyToken {
	begin := t.pos
	for t.pos < len(t.src) && isIdentCont(t.src[t.pos]) {
		t.pos++
	}
	word := string(t.src[begin:t.pos])
	switch word {
	case "True":
		return pyToken{kind: tokTrue, text: word, begin: begin, end: t.pos}
	case "False":
		return pyToken{kind: tokFalse, text: word, begin: begin, end: t.pos}
	case "None":
		return pyToken{kind: tokNone, text: word, begin: begin, end: t.pos}
	default:
		return pyToken{kind: tokUnknown, text: word, begin: begin, end: t.pos}
	}
}

// scanString handles single- or double-quoted literals. Escapes beyond
// matching the opposite delimiter are not interpreted — numpy headers
// never need more.
func (t *pyTokenizer) scanString(quote byte) pyToken {
	begin := t.pos
	t.pos++ // opening quote
	start := t.pos
	for t.pos < len(t.src) && t.src[t.pos] != quote {
		t.pos++
	}
	val := string(t.src[start:t.pos])
	if t.pos < len(t.src) {
		t.pos++ // closing quote
	}
	return pyToken{kind: tokString, text: string(t.src[begin:t.pos]), str: val, begin: begin, end: t.pos}
}

// scanNumber scans a locale-independent decimal integer or float
// literal, optionally signed.
func (t *pyTokenizer) scanNumber() pyToken {
	begin := t.pos
	if t.src[t.pos] == '+' || t.src[t.pos] == '-' {
		t.pos++
	}
	isFloat := false
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		switch {
		case c >= '0' && c <= '9':
			t.pos++
		case c == '.' || c == 'e' || c == 'E':
			isFloat = true
			t.pos++
			if t.pos < len(t.src) && (t.src[t.pos] == '+' || t.src[t.pos] == '-') {
				t.pos++
			}
		default:
			goto done
		}
	}
done:
	text := string(t.src[begin:t.pos])
	tok := pyToken{text: text, begin: begin, end: t.pos}
	if isFloat {
		tok.kind = tokFloat
		tok.fval = parseFloatPrefix(text)
	} else {
		tok.kind = tokInt
		tok.ival = parseIntPrefix(text)
	}
	return tok
}
