package pdf

import (
	"strings"
	"unicode/utf16"
)

// extractText reconstructs the visible text of one page's content
// streams. Only the text-showing operators are interpreted: Tj, ', ",
// and TJ. Positioning operators that start a new line (Td, TD, T*, ',
// ") emit a line break; ET closes a paragraph. Glyph-to-unicode
// mapping through font CMaps is not attempted, so text stored with
// non-identity encodings may come out garbled. That limitation is
// shared with most lightweight extractors.
func extractText(content []byte) string {
	lex := newLexer(content, 0)

	var (
		b       strings.Builder
		line    strings.Builder
		operands []token
	)
	endLine := func() {
		s := strings.TrimRight(line.String(), " ")
		line.Reset()
		if s == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s)
	}

	showString := func(tok token) {
		line.WriteString(decodeTextString(tok.str))
	}

	for {
		tok, err := lex.next()
		if err != nil {
			// Resynchronize one byte further on; content streams from
			// broken files are extracted best effort.
			lex.pos++
			if lex.pos >= len(content) {
				break
			}
			continue
		}
		if tok.kind == tokEOF {
			break
		}
		if tok.kind != tokKeyword {
			operands = append(operands, tok)
			if len(operands) > 16 {
				operands = operands[1:]
			}
			continue
		}

		switch tok.text {
		case "Tj":
			if n := len(operands); n > 0 && operands[n-1].kind == tokString {
				showString(operands[n-1])
			}
		case "'":
			endLine()
			if n := len(operands); n > 0 && operands[n-1].kind == tokString {
				showString(operands[n-1])
			}
		case "\"":
			endLine()
			if n := len(operands); n > 0 && operands[n-1].kind == tokString {
				showString(operands[n-1])
			}
		case "TJ":
			if n := len(operands); n > 0 {
				// The array was flattened into operand tokens; replay
				// the string elements in order.
				start := 0
				for i := n - 1; i >= 0; i-- {
					if operands[i].kind == tokArrayOpen {
						start = i + 1
						break
					}
				}
				for _, op := range operands[start:] {
					if op.kind == tokString {
						showString(op)
					}
				}
			}
		case "Td", "TD", "T*":
			endLine()
		case "ET":
			endLine()
		case "BI":
			// Inline image: skip to EI so binary data is not lexed.
			if i := indexToken(content[lex.pos:], "EI"); i >= 0 {
				lex.pos += i + 2
			} else {
				lex.pos = len(content)
			}
		}
		operands = operands[:0]
	}
	endLine()
	return b.String()
}

// indexToken finds a keyword preceded and followed by whitespace or
// end of data.
func indexToken(data []byte, kw string) int {
	for i := 0; i+len(kw) <= len(data); i++ {
		if string(data[i:i+len(kw)]) != kw {
			continue
		}
		beforeOK := i == 0 || isSpace(data[i-1])
		afterOK := i+len(kw) == len(data) || isSpace(data[i+len(kw)])
		if beforeOK && afterOK {
			return i
		}
	}
	return -1
}

// decodeTextString converts PDF string bytes to Go text. UTF-16BE
// strings carry a BOM; everything else is treated as a Latin-family
// single-byte encoding, which covers the common PDFDocEncoding range.
func decodeTextString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xfe && b[1] == 0xff {
		u := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}
