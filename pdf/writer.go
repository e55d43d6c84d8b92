package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/foliokit/folio/model"
)

// pageWidth and pageHeight are US Letter in points.
const (
	pageWidth  = 612
	pageHeight = 792
	marginX    = 72
	marginTop  = 720
	lineStep   = 14
	maxLineLen = 90
	linesPerPage = 46
)

// docWriter assembles a PDF file: objects are allocated numbers first,
// then emitted in order so the xref table can record their offsets.
type docWriter struct {
	buf     bytes.Buffer
	objects []Object
}

func newDocWriter() *docWriter {
	return &docWriter{objects: []Object{nil}} // object 0 is the free head
}

// alloc reserves an object number.
func (w *docWriter) alloc() Ref {
	w.objects = append(w.objects, nil)
	return Ref{Num: len(w.objects) - 1}
}

// set binds an allocated number to its object.
func (w *docWriter) set(ref Ref, obj Object) {
	w.objects[ref.Num] = obj
}

// add allocates and binds in one step.
func (w *docWriter) add(obj Object) Ref {
	ref := w.alloc()
	w.set(ref, obj)
	return ref
}

// bytes serializes header, objects, xref table and trailer.
func (w *docWriter) bytes(root, info Ref) []byte {
	w.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(w.objects))
	for num := 1; num < len(w.objects); num++ {
		offsets[num] = w.buf.Len()
		fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", num, serialize(w.objects[num]))
	}

	xrefStart := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", len(w.objects))
	w.buf.WriteString("0000000000 65535 f \n")
	for num := 1; num < len(w.objects); num++ {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", offsets[num])
	}

	trailer := Dict{
		"Size": Int(len(w.objects)),
		"Root": root,
	}
	if info.Num != 0 {
		trailer["Info"] = info
	}
	fmt.Fprintf(&w.buf, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", serialize(trailer), xrefStart)
	return w.buf.Bytes()
}

// buildDocument renders metadata and chapters into a complete file.
// Each chapter starts on a new page; long chapters flow onto
// additional pages. Chapter titles become outline entries.
func buildDocument(meta model.Metadata, chapters []model.Chapter) []byte {
	w := newDocWriter()

	catalogRef := w.alloc()
	pagesRef := w.alloc()
	fontRef := w.add(Dict{
		"Type":     Name("Font"),
		"Subtype":  Name("Type1"),
		"BaseFont": Name("Helvetica"),
	})
	resources := Dict{"Font": Dict{"F1": fontRef}}

	var (
		pageRefs  []Object
		chapterPage = make([]Ref, len(chapters))
	)
	for ci, ch := range chapters {
		for pi, body := range paginate(ch) {
			encoded := flateEncode(body)
			content := w.add(&Stream{
				Dict: Dict{
					"Length": Int(len(encoded)),
					"Filter": Name("FlateDecode"),
				},
				Data: encoded,
			})
			pageRef := w.add(Dict{
				"Type":      Name("Page"),
				"Parent":    pagesRef,
				"MediaBox":  Array{Int(0), Int(0), Int(pageWidth), Int(pageHeight)},
				"Resources": resources,
				"Contents":  content,
			})
			pageRefs = append(pageRefs, pageRef)
			if pi == 0 {
				chapterPage[ci] = pageRef
			}
		}
	}

	w.set(pagesRef, Dict{
		"Type":  Name("Pages"),
		"Kids":  Array(pageRefs),
		"Count": Int(len(pageRefs)),
	})

	catalog := Dict{
		"Type":  Name("Catalog"),
		"Pages": pagesRef,
	}
	if meta.Language != "" {
		catalog["Lang"] = String(meta.Language)
	}
	if ref, ok := buildOutlines(w, chapters, chapterPage); ok {
		catalog["Outlines"] = ref
	}
	w.set(catalogRef, catalog)

	infoRef := w.add(buildInfo(meta))
	return w.bytes(catalogRef, infoRef)
}

// buildOutlines emits one outline item per titled chapter.
func buildOutlines(w *docWriter, chapters []model.Chapter, chapterPage []Ref) (Ref, bool) {
	var titled []int
	for i, ch := range chapters {
		if ch.Title != "" {
			titled = append(titled, i)
		}
	}
	if len(titled) == 0 {
		return Ref{}, false
	}

	outlinesRef := w.alloc()
	itemRefs := make([]Ref, len(titled))
	for i := range titled {
		itemRefs[i] = w.alloc()
	}
	for i, ci := range titled {
		item := Dict{
			"Title":  String(chapters[ci].Title),
			"Parent": outlinesRef,
			"Dest":   Array{chapterPage[ci], Name("Fit")},
		}
		if i > 0 {
			item["Prev"] = itemRefs[i-1]
		}
		if i+1 < len(itemRefs) {
			item["Next"] = itemRefs[i+1]
		}
		w.set(itemRefs[i], item)
	}
	w.set(outlinesRef, Dict{
		"Type":  Name("Outlines"),
		"First": itemRefs[0],
		"Last":  itemRefs[len(itemRefs)-1],
		"Count": Int(len(itemRefs)),
	})
	return outlinesRef, true
}

// buildInfo maps metadata to the document information dictionary.
// Publisher and ISBN have no standard Info keys but custom keys are
// legal there, and the reader recovers them.
func buildInfo(meta model.Metadata) Dict {
	info := Dict{"Producer": String("folio")}
	setIf := func(key, value string) {
		if value != "" {
			info[key] = String(value)
		}
	}
	setIf("Title", meta.Title)
	setIf("Author", meta.Author)
	setIf("Subject", meta.Description)
	setIf("Publisher", meta.Publisher)
	setIf("ISBN", meta.ISBN)
	if meta.PubDate != "" {
		info["CreationDate"] = String("D:" + strings.ReplaceAll(meta.PubDate, "-", ""))
	}
	return info
}

// paginate renders one chapter into per-page content streams.
func paginate(ch model.Chapter) [][]byte {
	var lines []string
	for _, para := range strings.Split(ch.Content, "\n\n") {
		for _, line := range strings.Split(para, "\n") {
			lines = append(lines, wrapLine(strings.TrimRight(line, " "))...)
		}
		lines = append(lines, "")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var pages [][]byte
	for start := 0; start < len(lines) || start == 0; start += linesPerPage {
		end := start + linesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, contentStream(ch.Title, start == 0, lines[start:end]))
		if end == len(lines) {
			break
		}
	}
	return pages
}

// contentStream emits the text operators for one page. Td moves are
// relative to the previous line start, so the first sets the origin
// and the rest step down one line.
func contentStream(title string, first bool, lines []string) []byte {
	var b strings.Builder

	b.WriteString("BT\n")
	fmt.Fprintf(&b, "/F1 11 Tf %d %d Td\n", marginX, marginTop)
	if first && title != "" {
		fmt.Fprintf(&b, "/F1 18 Tf %s Tj /F1 11 Tf\n", serialize(String(title)))
		fmt.Fprintf(&b, "0 -%d Td\n", 2*lineStep)
	}
	for i, line := range lines {
		if i > 0 {
			fmt.Fprintf(&b, "0 -%d Td\n", lineStep)
		}
		if line != "" {
			fmt.Fprintf(&b, "%s Tj\n", serialize(String(line)))
		}
	}
	b.WriteString("ET\n")
	return []byte(b.String())
}

// wrapLine splits a long line on spaces.
func wrapLine(line string) []string {
	if len(line) <= maxLineLen {
		return []string{line}
	}
	var out []string
	words := strings.Fields(line)
	var cur string
	for _, word := range words {
		switch {
		case cur == "":
			cur = word
		case len(cur)+1+len(word) <= maxLineLen:
			cur += " " + word
		default:
			out = append(out, cur)
			cur = word
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}
