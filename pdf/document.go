package pdf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Document is a parsed PDF file: the raw bytes, the trailer, and an
// object arena keyed by object number. Objects load lazily from their
// xref offsets; compressed objects load from their object streams.
type Document struct {
	data    []byte
	trailer Dict
	objects map[int]Object
	offsets map[int]int    // object number to byte offset
	inStm   map[int]Ref    // object number to containing object stream
	rebuilt bool           // xref was reconstructed by scanning
}

// loadDocument parses the cross-reference structure of a PDF. When the
// trailer or xref chain is broken the whole file is scanned for
// indirect objects instead, which is the repair path for truncated or
// hand-edited files.
func loadDocument(data []byte) (*Document, error) {
	d := &Document{
		data:    data,
		trailer: Dict{},
		objects: map[int]Object{},
		offsets: map[int]int{},
		inStm:   map[int]Ref{},
	}

	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("missing %%PDF header")
	}

	if err := d.loadXref(); err != nil {
		if scanErr := d.rebuildByScan(); scanErr != nil {
			return nil, fmt.Errorf("xref: %v; scan: %v", err, scanErr)
		}
		d.rebuilt = true
	}
	if d.trailer["Root"] == nil {
		return nil, fmt.Errorf("trailer has no Root entry")
	}
	return d, nil
}

// loadXref follows startxref and the /Prev chain, oldest section
// parsed last so newer entries win.
func (d *Document) loadXref() error {
	start, err := findStartXref(d.data)
	if err != nil {
		return err
	}

	seen := map[int]bool{}
	for offset := start; offset >= 0; {
		if seen[offset] {
			return fmt.Errorf("xref chain loops at offset %d", offset)
		}
		seen[offset] = true

		trailer, err := d.loadXrefSection(offset)
		if err != nil {
			return err
		}
		for key, val := range trailer {
			if d.trailer[key] == nil {
				d.trailer[key] = val
			}
		}

		offset = -1
		if prev, ok := trailer.Int("Prev"); ok {
			offset = prev
		}
	}
	return nil
}

var startXrefRe = regexp.MustCompile(`startxref\s+(\d+)`)

func findStartXref(data []byte) (int, error) {
	tail := data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	matches := startXrefRe.FindAllSubmatch(tail, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("no startxref marker")
	}
	n, err := strconv.Atoi(string(matches[len(matches)-1][1]))
	if err != nil || n < 0 || n >= len(data) {
		return 0, fmt.Errorf("bad startxref offset")
	}
	return n, nil
}

// loadXrefSection parses either a classic xref table or an xref stream
// at the given offset and returns its trailer dictionary.
func (d *Document) loadXrefSection(offset int) (Dict, error) {
	lex := newLexer(d.data, offset)
	lex.skipSpace()
	if bytes.HasPrefix(d.data[lex.pos:], []byte("xref")) {
		return d.loadXrefTable(lex.pos + len("xref"))
	}
	return d.loadXrefStream(offset)
}

func (d *Document) loadXrefTable(pos int) (Dict, error) {
	lex := newLexer(d.data, pos)
	for {
		lex.skipSpace()
		if bytes.HasPrefix(d.data[lex.pos:], []byte("trailer")) {
			lex.pos += len("trailer")
			break
		}

		firstTok, err := lex.next()
		if err != nil || firstTok.kind != tokNumber {
			return nil, fmt.Errorf("malformed xref subsection header")
		}
		countTok, err := lex.next()
		if err != nil || countTok.kind != tokNumber {
			return nil, fmt.Errorf("malformed xref subsection header")
		}

		first := int(firstTok.num)
		count := int(countTok.num)
		for i := 0; i < count; i++ {
			lex.skipSpace()
			if lex.pos+18 > len(d.data) {
				return nil, fmt.Errorf("truncated xref entry")
			}
			entry := d.data[lex.pos : lex.pos+18]
			off, err := strconv.Atoi(strings.TrimSpace(string(entry[0:10])))
			if err != nil {
				return nil, fmt.Errorf("malformed xref entry %q", entry)
			}
			kind := entry[17]
			num := first + i
			if kind == 'n' {
				if _, exists := d.offsets[num]; !exists {
					d.offsets[num] = off
				}
			}
			lex.pos += 18
		}
	}

	p := &parser{lex: lex}
	obj, err := p.parseObject()
	if err != nil {
		return nil, fmt.Errorf("trailer: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is not a dictionary")
	}
	return trailer, nil
}

// loadXrefStream parses a cross-reference stream: a stream object
// whose decoded data holds fixed-width entries described by /W.
func (d *Document) loadXrefStream(offset int) (Dict, error) {
	p := newParser(d.data, 0)
	_, obj, err := p.parseIndirectAt(offset)
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}
	stm, ok := obj.(*Stream)
	if !ok || stm.Dict.Name("Type") != "XRef" {
		return nil, fmt.Errorf("object at offset %d is not an xref stream", offset)
	}

	decoded, err := d.decodeStream(stm)
	if err != nil {
		return nil, fmt.Errorf("xref stream decode: %w", err)
	}

	w := stm.Dict.Array("W")
	if len(w) < 3 {
		return nil, fmt.Errorf("xref stream missing W widths")
	}
	widths := make([]int, 3)
	for i := range widths {
		v, ok := w[i].(Int)
		if !ok {
			return nil, fmt.Errorf("xref stream W entry is not an integer")
		}
		widths[i] = int(v)
	}
	rowLen := widths[0] + widths[1] + widths[2]
	if rowLen == 0 {
		return nil, fmt.Errorf("xref stream has zero-width rows")
	}

	size, _ := stm.Dict.Int("Size")
	index := []int{0, size}
	if idx := stm.Dict.Array("Index"); len(idx) >= 2 {
		index = index[:0]
		for _, v := range idx {
			n, ok := v.(Int)
			if !ok {
				return nil, fmt.Errorf("xref stream Index entry is not an integer")
			}
			index = append(index, int(n))
		}
	}

	readField := func(row []byte, start, width, def int) int {
		if width == 0 {
			return def
		}
		var buf [8]byte
		copy(buf[8-width:], row[start:start+width])
		return int(binary.BigEndian.Uint64(buf[:]))
	}

	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+rowLen > len(decoded) {
				return nil, fmt.Errorf("xref stream data shorter than Index declares")
			}
			row := decoded[pos : pos+rowLen]
			pos += rowLen

			num := first + j
			entryType := readField(row, 0, widths[0], 1)
			switch entryType {
			case 1: // object at byte offset
				if _, exists := d.offsets[num]; !exists && d.inStm[num] == (Ref{}) {
					d.offsets[num] = readField(row, widths[0], widths[1], 0)
				}
			case 2: // object inside an object stream
				if _, exists := d.offsets[num]; !exists && d.inStm[num] == (Ref{}) {
					d.inStm[num] = Ref{Num: readField(row, widths[0], widths[1], 0)}
				}
			}
		}
	}
	return stm.Dict, nil
}

var indirectObjRe = regexp.MustCompile(`(?m)(\d+)\s+(\d+)\s+obj\b`)

// rebuildByScan reconstructs the object table by scanning the file for
// "N G obj" markers, then recovers the trailer from the newest object
// that looks like a document catalog.
func (d *Document) rebuildByScan() error {
	for _, m := range indirectObjRe.FindAllSubmatchIndex(d.data, -1) {
		num, err := strconv.Atoi(string(d.data[m[2]:m[3]]))
		if err != nil {
			continue
		}
		// Later definitions win, matching incremental-update order.
		d.offsets[num] = m[0]
	}
	if len(d.offsets) == 0 {
		return fmt.Errorf("no indirect objects found")
	}

	if d.trailer["Root"] == nil {
		if i := bytes.LastIndex(d.data, []byte("trailer")); i >= 0 {
			p := newParser(d.data, i+len("trailer"))
			if obj, err := p.parseObject(); err == nil {
				if t, ok := obj.(Dict); ok {
					d.trailer = t
				}
			}
		}
	}
	if d.trailer["Root"] == nil {
		for num := range d.offsets {
			if dict, ok := d.object(num).(Dict); ok && dict.Name("Type") == "Catalog" {
				d.trailer["Root"] = Ref{Num: num}
				break
			}
		}
	}
	if d.trailer["Root"] == nil {
		return fmt.Errorf("no document catalog found")
	}
	return nil
}

// object returns the object with the given number, loading it on first
// use. Unresolvable objects read as null.
func (d *Document) object(num int) Object {
	if obj, ok := d.objects[num]; ok {
		return obj
	}
	d.objects[num] = Null{} // break reference cycles during load

	if offset, ok := d.offsets[num]; ok {
		p := newParser(d.data, 0)
		if gotNum, obj, err := p.parseIndirectAt(offset); err == nil && gotNum == num {
			d.objects[num] = obj
			return obj
		}
	}
	if stmRef, ok := d.inStm[num]; ok {
		if obj := d.objectFromStream(stmRef.Num, num); obj != nil {
			d.objects[num] = obj
			return obj
		}
	}
	return d.objects[num]
}

// objectFromStream extracts one object from an ObjStm container. The
// decoded stream starts with number/offset pairs, then the objects at
// First plus their offsets.
func (d *Document) objectFromStream(stmNum, wantNum int) Object {
	stm, ok := d.object(stmNum).(*Stream)
	if !ok || stm.Dict.Name("Type") != "ObjStm" {
		return nil
	}
	decoded, err := d.decodeStream(stm)
	if err != nil {
		return nil
	}
	count, _ := stm.Dict.Int("N")
	first, _ := stm.Dict.Int("First")

	lex := newLexer(decoded, 0)
	for i := 0; i < count; i++ {
		numTok, err1 := lex.next()
		offTok, err2 := lex.next()
		if err1 != nil || err2 != nil || numTok.kind != tokNumber || offTok.kind != tokNumber {
			return nil
		}
		if int(numTok.num) != wantNum {
			continue
		}
		p := newParser(decoded, first+int(offTok.num))
		obj, err := p.parseObject()
		if err != nil {
			return nil
		}
		return obj
	}
	return nil
}

// resolve follows indirect references until a direct object remains.
func (d *Document) resolve(obj Object) Object {
	for depth := 0; depth < 32; depth++ {
		ref, ok := obj.(Ref)
		if !ok {
			return obj
		}
		obj = d.object(ref.Num)
	}
	return Null{}
}

// resolveDict resolves obj and returns it as a dictionary, or nil.
// Streams answer with their dictionary.
func (d *Document) resolveDict(obj Object) Dict {
	switch v := d.resolve(obj).(type) {
	case Dict:
		return v
	case *Stream:
		return v.Dict
	}
	return nil
}

// catalog returns the document catalog.
func (d *Document) catalog() Dict {
	return d.resolveDict(d.trailer["Root"])
}

// info returns the document information dictionary, or nil.
func (d *Document) info() Dict {
	return d.resolveDict(d.trailer["Info"])
}
