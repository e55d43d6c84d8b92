// Package pdf implements the PDF format handler.
//
// Reading parses the cross-reference structure (classic tables, xref
// streams and object streams, including incremental-update chains)
// into an object arena, then pulls metadata from the information
// dictionary, text from page content streams, navigation from the
// outline tree, and images from page XObjects. Text extraction is
// best effort: it interprets the text-showing operators without font
// CMap mapping, so exotic encodings may degrade. Writing produces a
// simple paginated document with Flate-compressed content streams and
// an outline entry per chapter.
package pdf

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
)

// Handler reads and writes PDF ebooks. A Handler owns the state of
// exactly one file; construct a fresh one per operation.
type Handler struct {
	meta     model.Metadata
	content  string
	chapters []model.Chapter
	toc      []model.TocEntry
	images   []model.ImageData
	path     string
	loaded   bool
}

// New returns an empty handler.
func New() *Handler {
	return &Handler{}
}

// ReadFromFile parses the document and loads metadata, text,
// navigation and images.
func (h *Handler) ReadFromFile(path string) error {
	const op = "pdf.read"

	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}

	doc, err := loadDocument(data)
	if err != nil {
		return errs.Wrap(errs.KindContainer, op, err).
			WithPath(path).
			WithHint("try repair to rebuild the cross-reference table")
	}
	if doc.resolveDict(doc.catalog()["Pages"]) == nil {
		return errs.New(errs.KindInvalidStructure, op, "catalog has no page tree").WithPath(path)
	}

	pages, err := doc.pageList()
	if err != nil {
		return errs.Wrap(errs.KindInvalidStructure, op, err).WithPath(path)
	}

	var parts []string
	for _, pg := range pages {
		content, err := doc.contentData(pg)
		if err != nil {
			// A page with an undecodable stream degrades to empty
			// rather than failing the whole book.
			continue
		}
		if text := extractText(content); text != "" {
			parts = append(parts, text)
		}
	}

	h.meta = readMetadata(doc)
	h.content = strings.Join(parts, "\n\n")
	h.toc = doc.outlineTOC()
	h.images = doc.imageList(pages)
	h.chapters = nil
	h.path = path
	h.loaded = true
	return nil
}

// readMetadata maps the information dictionary and catalog language
// into Metadata. Standard keys fill first-class fields; other string
// values survive as pdf.<key> custom fields.
func readMetadata(doc *Document) model.Metadata {
	meta := model.Metadata{Format: "PDF"}

	if lang, ok := doc.resolve(doc.catalog()["Lang"]).(String); ok {
		meta.Language = string(lang)
	}

	info := doc.info()
	for key, val := range info {
		s, ok := doc.resolve(val).(String)
		if !ok {
			continue
		}
		value := decodeTextString([]byte(s))
		switch key {
		case "Title":
			meta.Title = value
		case "Author":
			meta.Author = value
		case "Subject":
			meta.Description = value
		case "Publisher":
			meta.Publisher = value
		case "ISBN":
			meta.ISBN = value
		case "CreationDate":
			meta.PubDate = parseDate(value)
		case "ModDate":
			// Not carried as a first-class field.
		default:
			meta.SetCustom("pdf."+strings.ToLower(key), value)
		}
	}
	return meta
}

// parseDate converts the D:YYYYMMDDHHmmSS form to YYYY-MM-DD,
// keeping as much precision as the value carries.
func parseDate(raw string) string {
	s := strings.TrimPrefix(raw, "D:")
	digits := ""
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		digits += string(r)
	}
	switch {
	case len(digits) >= 8:
		return digits[:4] + "-" + digits[4:6] + "-" + digits[6:8]
	case len(digits) >= 6:
		return digits[:4] + "-" + digits[4:6]
	case len(digits) >= 4:
		return digits[:4]
	}
	return raw
}

// Metadata returns the metadata of the last read or the set state.
func (h *Handler) Metadata() (model.Metadata, error) {
	if !h.loaded {
		return model.Metadata{}, errs.New(errs.KindNotFound, "pdf.metadata", "no file has been read")
	}
	return h.meta.Clone(), nil
}

// Content returns the extracted page text.
func (h *Handler) Content() (string, error) {
	if !h.loaded {
		return "", errs.New(errs.KindNotFound, "pdf.content", "no file has been read")
	}
	return h.content, nil
}

// TOC returns outline-derived navigation entries.
func (h *Handler) TOC() ([]model.TocEntry, error) {
	if !h.loaded {
		return nil, errs.New(errs.KindNotFound, "pdf.toc", "no file has been read")
	}
	return h.toc, nil
}

// Images returns images extracted from page resources.
func (h *Handler) Images() ([]model.ImageData, error) {
	if !h.loaded {
		return nil, errs.New(errs.KindNotFound, "pdf.images", "no file has been read")
	}
	return h.images, nil
}

// SetMetadata stores metadata for the next write.
func (h *Handler) SetMetadata(meta model.Metadata) error {
	h.meta = meta.Clone()
	h.meta.Format = "PDF"
	h.loaded = true
	return nil
}

// SetContent replaces the content for the next write, dropping any
// chapter structure.
func (h *Handler) SetContent(content string) error {
	h.content = content
	h.chapters = nil
	h.loaded = true
	return nil
}

// AddChapter appends a titled chapter for the next write. Each
// chapter starts on a new page and gets an outline entry.
func (h *Handler) AddChapter(title, content string) error {
	h.chapters = append(h.chapters, model.Chapter{
		Title:    title,
		Content:  content,
		Position: len(h.chapters),
	})
	h.loaded = true
	return nil
}

// WriteToFile serializes the handler state as a paginated document.
func (h *Handler) WriteToFile(path string) error {
	const op = "pdf.write"

	chapters := h.chapters
	if len(chapters) == 0 {
		chapters = []model.Chapter{{Content: h.content}}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}
	if err := os.WriteFile(path, buildDocument(h.meta, chapters), 0o644); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}
	h.path = path
	return nil
}

// Validate checks the file bound at read time.
func (h *Handler) Validate() (*model.Report, error) {
	if h.path == "" {
		return nil, errs.New(errs.KindNotFound, "pdf.validate", "handler is not bound to a file")
	}
	return ValidateFile(h.path)
}

// Repair repairs the file bound at read time, in place.
func (h *Handler) Repair() error {
	if h.path == "" {
		return errs.New(errs.KindNotFound, "pdf.repair", "handler is not bound to a file")
	}
	return RepairFile(h.path, h.path)
}
