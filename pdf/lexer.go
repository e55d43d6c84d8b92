package pdf

import (
	"fmt"
	"strconv"
)

// tokenKind discriminates lexer output.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokName
	tokKeyword    // true, false, null, obj, R, stream, ...
	tokArrayOpen  // [
	tokArrayClose // ]
	tokDictOpen   // <<
	tokDictClose  // >>
)

type token struct {
	kind tokenKind
	text string // keyword or name text
	num  float64
	isInt bool
	str  []byte // decoded string bytes
}

// lexer walks PDF syntax over a byte slice. Position-based so the
// parser can jump to xref offsets.
type lexer struct {
	data []byte
	pos  int
}

func newLexer(data []byte, pos int) *lexer {
	return &lexer{data: data, pos: pos}
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isSpace(c byte) bool {
	switch c {
	case 0x00, 0x09, 0x0a, 0x0c, 0x0d, 0x20:
		return true
	}
	return false
}

// skipSpace advances over whitespace and comments.
func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isSpace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// next returns the next token.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return token{kind: tokEOF}, nil
	}

	c := l.data[l.pos]
	switch {
	case c == '[':
		l.pos++
		return token{kind: tokArrayOpen}, nil
	case c == ']':
		l.pos++
		return token{kind: tokArrayClose}, nil
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return token{kind: tokDictOpen}, nil
		}
		return l.hexString()
	case c == '>':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
			l.pos += 2
			return token{kind: tokDictClose}, nil
		}
		return token{}, fmt.Errorf("stray '>' at offset %d", l.pos)
	case c == '(':
		return l.literalString()
	case c == '/':
		return l.name()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.number()
	case c == '{' || c == '}':
		// Only legal in PostScript functions; treat as keywords so
		// content parsing can skip them.
		l.pos++
		return token{kind: tokKeyword, text: string(c)}, nil
	default:
		return l.keyword()
	}
}

func (l *lexer) keyword() (token, error) {
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	if l.pos == start {
		return token{}, fmt.Errorf("unexpected byte 0x%02x at offset %d", l.data[l.pos], l.pos)
	}
	return token{kind: tokKeyword, text: string(l.data[start:l.pos])}, nil
}

func (l *lexer) name() (token, error) {
	l.pos++ // slash
	var out []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isSpace(c) || isDelimiter(c) {
			break
		}
		if c == '#' && l.pos+2 < len(l.data) {
			hi, err1 := hexNibble(l.data[l.pos+1])
			lo, err2 := hexNibble(l.data[l.pos+2])
			if err1 == nil && err2 == nil {
				out = append(out, hi<<4|lo)
				l.pos += 3
				continue
			}
		}
		out = append(out, c)
		l.pos++
	}
	return token{kind: tokName, text: string(out)}, nil
}

func (l *lexer) number() (token, error) {
	start := l.pos
	if c := l.data[l.pos]; c == '+' || c == '-' {
		l.pos++
	}
	isInt := true
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '.' {
			isInt = false
			l.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		l.pos++
	}
	text := string(l.data[start:l.pos])
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, fmt.Errorf("malformed number %q at offset %d", text, start)
	}
	return token{kind: tokNumber, num: n, isInt: isInt}, nil
}

// literalString decodes a (...) string with backslash escapes, octal
// codes and balanced nested parentheses.
func (l *lexer) literalString() (token, error) {
	l.pos++ // opening paren
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return token{kind: tokString, str: out}, nil
			}
			out = append(out, c)
		case '\\':
			if l.pos >= len(l.data) {
				return token{}, fmt.Errorf("string escape at end of file")
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\n':
				// Line continuation.
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := int(e - '0')
				for k := 0; k < 2 && l.pos < len(l.data); k++ {
					d := l.data[l.pos]
					if d < '0' || d > '7' {
						break
					}
					v = v*8 + int(d-'0')
					l.pos++
				}
				out = append(out, byte(v))
			default:
				out = append(out, e)
			}
		default:
			out = append(out, c)
		}
	}
	return token{}, fmt.Errorf("unterminated string")
}

// hexString decodes a <...> string. An odd final digit is padded with
// zero per the format.
func (l *lexer) hexString() (token, error) {
	l.pos++ // opening angle
	var out []byte
	var hi byte
	haveHi := false
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if haveHi {
				out = append(out, hi<<4)
			}
			return token{kind: tokString, str: out}, nil
		}
		if isSpace(c) {
			continue
		}
		v, err := hexNibble(c)
		if err != nil {
			return token{}, fmt.Errorf("bad hex digit %q in string", c)
		}
		if haveHi {
			out = append(out, hi<<4|v)
			haveHi = false
		} else {
			hi = v
			haveHi = true
		}
	}
	return token{}, fmt.Errorf("unterminated hex string")
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	}
	return 0, fmt.Errorf("not a hex digit")
}
