package pdf

import (
	"bytes"
	"fmt"
)

// parser builds objects from a lexer. It owns the whole file's bytes
// so stream data can be sliced out directly.
type parser struct {
	lex *lexer
}

func newParser(data []byte, pos int) *parser {
	return &parser{lex: newLexer(data, pos)}
}

// parseObject parses one object starting at the current position.
// Numbers are disambiguated from indirect references by lookahead:
// "N G R" collapses into a Ref.
func (p *parser) parseObject() (Object, error) {
	tok, err := p.lex.next()
	if err != nil {
		return nil, err
	}
	return p.objectFrom(tok)
}

func (p *parser) objectFrom(tok token) (Object, error) {
	switch tok.kind {
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of file")
	case tokNumber:
		if tok.isInt {
			if ref, ok := p.tryRef(int(tok.num)); ok {
				return ref, nil
			}
			return Int(tok.num), nil
		}
		return Real(tok.num), nil
	case tokString:
		return String(tok.str), nil
	case tokName:
		return Name(tok.text), nil
	case tokArrayOpen:
		return p.parseArray()
	case tokDictOpen:
		return p.parseDictOrStream()
	case tokKeyword:
		switch tok.text {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		case "null":
			return Null{}, nil
		}
		return nil, fmt.Errorf("unexpected keyword %q", tok.text)
	default:
		return nil, fmt.Errorf("unexpected token kind %d", tok.kind)
	}
}

// tryRef checks whether the two tokens after an integer form "G R",
// rewinding when they do not.
func (p *parser) tryRef(num int) (Ref, bool) {
	save := p.lex.pos
	genTok, err := p.lex.next()
	if err != nil || genTok.kind != tokNumber || !genTok.isInt {
		p.lex.pos = save
		return Ref{}, false
	}
	rTok, err := p.lex.next()
	if err != nil || rTok.kind != tokKeyword || rTok.text != "R" {
		p.lex.pos = save
		return Ref{}, false
	}
	return Ref{Num: num, Gen: int(genTok.num)}, true
}

func (p *parser) parseArray() (Array, error) {
	var arr Array
	for {
		tok, err := p.lex.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokArrayClose {
			return arr, nil
		}
		obj, err := p.objectFrom(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

// parseDictOrStream parses a dictionary and, when the "stream" keyword
// follows, slices out the stream data using the Length entry. A wrong
// or indirect Length falls back to scanning for "endstream".
func (p *parser) parseDictOrStream() (Object, error) {
	dict := Dict{}
	for {
		tok, err := p.lex.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokDictClose {
			break
		}
		if tok.kind != tokName {
			return nil, fmt.Errorf("dictionary key is not a name")
		}
		val, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		dict[tok.text] = val
	}

	save := p.lex.pos
	tok, err := p.lex.next()
	if err != nil || tok.kind != tokKeyword || tok.text != "stream" {
		p.lex.pos = save
		return dict, nil
	}

	data := p.lex.data
	pos := p.lex.pos
	if pos < len(data) && data[pos] == '\r' {
		pos++
	}
	if pos < len(data) && data[pos] == '\n' {
		pos++
	}

	length, haveLength := dict.Int("Length")
	if haveLength && pos+length <= len(data) && endstreamFollows(data, pos+length) {
		p.lex.pos = pos + length
		p.skipEndstream()
		return &Stream{Dict: dict, Data: data[pos : pos+length]}, nil
	}

	end := bytes.Index(data[pos:], []byte("endstream"))
	if end < 0 {
		return nil, fmt.Errorf("stream without endstream")
	}
	raw := bytes.TrimRight(data[pos:pos+end], "\r\n")
	p.lex.pos = pos + end
	p.skipEndstream()
	return &Stream{Dict: dict, Data: raw}, nil
}

func endstreamFollows(data []byte, pos int) bool {
	for pos < len(data) && (data[pos] == '\r' || data[pos] == '\n') {
		pos++
	}
	return bytes.HasPrefix(data[pos:], []byte("endstream"))
}

func (p *parser) skipEndstream() {
	tok, err := p.lex.next()
	if err == nil && tok.kind == tokKeyword && tok.text == "endstream" {
		return
	}
	// Tolerate junk between data and the keyword.
	if i := bytes.Index(p.lex.data[p.lex.pos:], []byte("endstream")); i >= 0 {
		p.lex.pos += i + len("endstream")
	}
}

// parseIndirectAt parses "N G obj ... endobj" at a byte offset. The
// endobj keyword is not required; real files sometimes omit it.
func (p *parser) parseIndirectAt(offset int) (int, Object, error) {
	if offset < 0 || offset >= len(p.lex.data) {
		return 0, nil, fmt.Errorf("object offset %d out of range", offset)
	}
	p.lex.pos = offset

	numTok, err := p.lex.next()
	if err != nil {
		return 0, nil, err
	}
	if numTok.kind != tokNumber || !numTok.isInt {
		return 0, nil, fmt.Errorf("no object number at offset %d", offset)
	}
	genTok, err := p.lex.next()
	if err != nil {
		return 0, nil, err
	}
	if genTok.kind != tokNumber || !genTok.isInt {
		return 0, nil, fmt.Errorf("no generation number at offset %d", offset)
	}
	objTok, err := p.lex.next()
	if err != nil {
		return 0, nil, err
	}
	if objTok.kind != tokKeyword || objTok.text != "obj" {
		return 0, nil, fmt.Errorf("missing obj keyword at offset %d", offset)
	}

	obj, err := p.parseObject()
	if err != nil {
		return 0, nil, err
	}
	return int(numTok.num), obj, nil
}
