// Package mobi implements the MOBI and KF8 (AZW3) format handler, plus
// the read-only AZW variant.
//
// The container is a Palm database: a fixed header, a record offset
// table, and records. Record zero holds the PalmDOC compression header,
// the MOBI header and optionally an EXTH metadata block; the following
// records hold the book text, PalmDOC-compressed or raw. KF8 files are
// recognized by their boundary marker or header version and reported
// under the KF8 format tag. Chapter structure is recovered from heading
// markup on a best-effort basis; books without markup fall back to a
// chapter-line heuristic.
package mobi

import (
	"os"
	"strings"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
)

// Handler reads and writes MOBI ebooks. A Handler owns the state of
// exactly one file; construct a fresh one per operation.
type Handler struct {
	meta     model.Metadata
	content  string
	chapters []model.Chapter
	toc      []model.TocEntry
	path     string
	loaded   bool

	// allowDRM leaves metadata readable on an encrypted book instead
	// of failing the whole read. Set for the AZW variant.
	allowDRM bool
	drm      bool
}

// New returns an empty handler.
func New() *Handler {
	return &Handler{}
}

// ReadFromFile parses the Palm database and loads metadata, text and
// navigation.
func (h *Handler) ReadFromFile(path string) error {
	const op = "mobi.read"

	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}

	db, err := parsePDB(data)
	if err != nil {
		return errs.Wrap(errs.KindParse, op, err).WithPath(path)
	}
	if len(db.Records) == 0 {
		return errs.New(errs.KindInvalidStructure, op, "no records in database").WithPath(path)
	}

	rec0 := db.Records[0]
	doc, err := parsePalmDocHeader(rec0)
	if err != nil {
		return errs.Wrap(errs.KindParse, op, err).WithPath(path)
	}
	head, err := parseMobiHeader(rec0)
	if err != nil {
		return errs.Wrap(errs.KindParse, op, err).WithPath(path)
	}

	exth, _ := parseEXTH(exthData(rec0, head))

	meta := model.Metadata{Format: "MOBI"}
	if hasEXTHTag(exth, exthKF8Boundary) || head.FileVersion >= 8 {
		meta.Format = "KF8"
	}
	meta.Language = languageForLocale(head.Locale)
	applyEXTH(exth, &meta)
	if meta.Title == "" {
		meta.Title = head.FullName
	}
	if meta.Title == "" {
		meta.Title = db.Name
	}

	h.drm = doc.Encryption != 0
	if h.drm {
		if !h.allowDRM {
			return errs.New(errs.KindUnsupportedOp, op, "file is DRM protected").
				WithPath(path).
				WithHint("DRM removal is not supported; obtain a DRM-free copy")
		}
		h.meta = meta
		h.path = path
		h.loaded = true
		return nil
	}

	if doc.Compression == compressionHuffCDIC {
		return errs.New(errs.KindUnsupportedOp, op, "HUFF/CDIC compression is not supported").
			WithPath(path).
			WithHint("re-export the book with PalmDOC or no compression")
	}

	text, err := h.extractText(db, doc, head)
	if err != nil {
		return err
	}

	var headings []heading
	if looksLikeHTML(text) {
		text, headings = stripMarkup(text)
	} else {
		headings = plainTextHeadings(text)
	}

	h.meta = meta
	h.content = text
	h.toc = headingTOC(headings)
	h.chapters = nil
	h.path = path
	h.loaded = true
	return nil
}

func (h *Handler) extractText(db *pdb, doc palmDocHeader, head mobiHeader) (string, error) {
	const op = "mobi.read"

	count := int(doc.RecordCount)
	if count >= len(db.Records) {
		count = len(db.Records) - 1
	}

	var raw []byte
	for i := 1; i <= count; i++ {
		// A corrupted record count can reach past the text section into
		// the EOF marker or other trailing records. TextLength bounds
		// the real text, so stop as soon as it is satisfied.
		if n := int(doc.TextLength); n > 0 && len(raw) >= n {
			break
		}
		rec := db.Records[i]
		switch doc.Compression {
		case compressionNone:
			raw = append(raw, rec...)
		case compressionPalmDoc:
			chunk, err := palmdocDecompress(rec)
			if err != nil {
				return "", errs.Wrap(errs.KindParse, op, err).WithPath(h.path)
			}
			raw = append(raw, chunk...)
		default:
			return "", errs.Newf(errs.KindUnsupportedOp, op, "unknown compression type %d", doc.Compression)
		}
	}
	if n := int(doc.TextLength); n > 0 && n < len(raw) {
		raw = raw[:n]
	}
	return decodeText(raw, head.TextEncoding), nil
}

// Metadata returns the metadata of the last read or the set state.
func (h *Handler) Metadata() (model.Metadata, error) {
	if !h.loaded {
		return model.Metadata{}, errs.New(errs.KindNotFound, "mobi.metadata", "no file has been read")
	}
	return h.meta.Clone(), nil
}

// Content returns the extracted book text. On a DRM protected book the
// text is unreadable and the call fails.
func (h *Handler) Content() (string, error) {
	if !h.loaded {
		return "", errs.New(errs.KindNotFound, "mobi.content", "no file has been read")
	}
	if h.drm {
		return "", errs.New(errs.KindUnsupportedOp, "mobi.content", "content is DRM protected").
			WithHint("DRM removal is not supported; obtain a DRM-free copy")
	}
	return h.content, nil
}

// TOC returns heading-derived navigation entries.
func (h *Handler) TOC() ([]model.TocEntry, error) {
	if !h.loaded {
		return nil, errs.New(errs.KindNotFound, "mobi.toc", "no file has been read")
	}
	if h.drm {
		return nil, errs.New(errs.KindUnsupportedOp, "mobi.toc", "content is DRM protected").
			WithHint("DRM removal is not supported; obtain a DRM-free copy")
	}
	return h.toc, nil
}

// Images returns an empty list: image extraction is not implemented
// for this container.
func (h *Handler) Images() ([]model.ImageData, error) {
	if !h.loaded {
		return nil, errs.New(errs.KindNotFound, "mobi.images", "no file has been read")
	}
	return nil, nil
}

// SetMetadata stores metadata for the next write.
func (h *Handler) SetMetadata(meta model.Metadata) error {
	format := "MOBI"
	if meta.Format == "KF8" {
		format = "KF8"
	}
	h.meta = meta.Clone()
	h.meta.Format = format
	h.loaded = true
	return nil
}

// SetContent replaces the content for the next write, dropping any
// chapter structure.
func (h *Handler) SetContent(content string) error {
	h.content = content
	h.chapters = nil
	h.toc = nil
	h.loaded = true
	return nil
}

// AddChapter appends a titled chapter for the next write.
func (h *Handler) AddChapter(title, content string) error {
	h.chapters = append(h.chapters, model.Chapter{
		Title:    title,
		Content:  content,
		Position: len(h.chapters),
	})
	h.toc = append(h.toc, model.TocEntry{Title: title})
	h.loaded = true
	return nil
}

// bookHTML renders the handler state as the HTML body stored in the
// text records.
func (h *Handler) bookHTML() string {
	var b strings.Builder
	b.WriteString("<html><head><title>")
	b.WriteString(htmlEscape(h.meta.Title))
	b.WriteString("</title></head><body>")

	writeParas := func(text string) {
		for _, para := range strings.Split(text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			b.WriteString("<p>")
			b.WriteString(htmlEscape(para))
			b.WriteString("</p>")
		}
	}

	if len(h.chapters) > 0 {
		for i, ch := range h.chapters {
			if i > 0 {
				b.WriteString("<mbp:pagebreak/>")
			}
			if ch.Title != "" {
				b.WriteString("<h1>")
				b.WriteString(htmlEscape(ch.Title))
				b.WriteString("</h1>")
			}
			writeParas(ch.Content)
		}
	} else {
		writeParas(h.content)
	}

	b.WriteString("</body></html>")
	return b.String()
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
