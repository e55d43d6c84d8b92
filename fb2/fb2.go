// Package fb2 reads and writes FictionBook 2 documents, a single-file XML
// ebook format. The description block maps onto Metadata and the body's
// nested sections become chapters and a nested table of contents.
package fb2

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
)

const fb2Namespace = "http://www.gribuser.ru/xml/fictionbook/2.0"

// Handler holds the in-memory representation of a single FB2 document.
// Construct one per file operation; instances are not safe for sharing.
type Handler struct {
	meta     model.Metadata
	sections []section
	chapters []model.Chapter
	path     string
	loaded   bool
}

// New returns an empty handler ready for ReadFromFile or the setters.
func New() *Handler {
	return &Handler{}
}

// ReadFromFile parses the FB2 document at path into the handler.
func (h *Handler) ReadFromFile(path string) error {
	const op = "fb2.read"

	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.KindIO, op, err).WithPath(path)
	}

	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return errs.Wrap(errs.KindParse, op, err).WithPath(path)
	}
	if !strings.EqualFold(doc.XMLName.Local, "FictionBook") {
		return errs.Newf(errs.KindInvalidStructure, op,
			"root element is %q, not FictionBook", doc.XMLName.Local).WithPath(path)
	}

	h.meta = doc.Description.metadata()
	h.meta.Format = "FB2"
	h.sections = nil
	for _, b := range doc.Bodies {
		// Notes bodies carry footnotes, not reading content.
		if strings.EqualFold(b.Name, "notes") {
			continue
		}
		h.sections = append(h.sections, b.Sections...)
	}
	h.chapters = nil
	h.path = path
	h.loaded = true
	return nil
}

// Metadata returns the parsed or set metadata.
func (h *Handler) Metadata() (model.Metadata, error) {
	if !h.loaded {
		return model.Metadata{}, errs.New(errs.KindNotFound, "fb2.metadata", "no document loaded")
	}
	return h.meta.Clone(), nil
}

// Content returns the body text: section titles followed by their
// paragraphs, in document order.
func (h *Handler) Content() (string, error) {
	if !h.loaded {
		return "", errs.New(errs.KindNotFound, "fb2.content", "no document loaded")
	}
	var parts []string
	for _, s := range h.sections {
		s.appendText(&parts)
	}
	return strings.Join(parts, "\n\n"), nil
}

// TOC returns the nested section tree. Sections without a title are
// skipped at their own level but their children are promoted.
func (h *Handler) TOC() ([]model.TocEntry, error) {
	if !h.loaded {
		return nil, errs.New(errs.KindNotFound, "fb2.toc", "no document loaded")
	}
	return tocEntries(h.sections, 1), nil
}

// Images reports no images; FB2 binary attachments are not extracted.
func (h *Handler) Images() ([]model.ImageData, error) {
	if !h.loaded {
		return nil, errs.New(errs.KindNotFound, "fb2.images", "no document loaded")
	}
	return nil, nil
}

// SetMetadata replaces the handler metadata.
func (h *Handler) SetMetadata(meta model.Metadata) error {
	h.meta = meta
	h.meta.Format = "FB2"
	h.loaded = true
	return nil
}

// SetContent replaces the body with a single section built from content.
// Any sections parsed from a previous read are discarded.
func (h *Handler) SetContent(content string) error {
	h.sections = nil
	h.chapters = []model.Chapter{{Content: content, Position: 0}}
	h.loaded = true
	return nil
}

// AddChapter appends a chapter; each becomes one body section on write.
func (h *Handler) AddChapter(title, content string) error {
	h.sections = nil
	h.chapters = append(h.chapters, model.Chapter{
		Title:    title,
		Content:  content,
		Position: len(h.chapters),
	})
	h.loaded = true
	return nil
}

// WriteToFile serializes the handler state as an FB2 document. A handler
// populated by ReadFromFile re-emits its parsed section tree, preserving
// nesting; one populated through the setters emits one section per chapter.
func (h *Handler) WriteToFile(path string) error {
	const op = "fb2.write"

	data, err := h.marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Wrap(errs.KindIO, op, err).WithPath(path)
	}
	h.path = path
	return nil
}

func (h *Handler) marshal() ([]byte, error) {
	const op = "fb2.write"

	sections := h.sections
	if len(sections) == 0 {
		sections = sectionsFromChapters(h.chapters)
	}

	doc := document{
		XMLName:     xml.Name{Local: "FictionBook"},
		Xmlns:       fb2Namespace,
		Description: descriptionFromMetadata(h.meta),
		Bodies:      []body{{Sections: sections}},
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.KindEncoding, op, err)
	}
	return append([]byte(xml.Header), out...), nil
}

func sectionsFromChapters(chapters []model.Chapter) []section {
	var out []section
	for _, ch := range chapters {
		s := section{}
		if ch.Title != "" {
			s.Title = &sectionTitle{Paras: []para{{Text: ch.Title}}}
		}
		for _, line := range strings.Split(ch.Content, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				s.Paras = append(s.Paras, para{Text: line})
			}
		}
		out = append(out, s)
	}
	if out == nil {
		out = []section{{Paras: []para{{Text: ""}}}}
	}
	return out
}

func tocEntries(sections []section, level int) []model.TocEntry {
	var out []model.TocEntry
	for _, s := range sections {
		title := s.titleText()
		if title == "" {
			out = append(out, tocEntries(s.Sections, level)...)
			continue
		}
		entry := model.TocEntry{Title: title, Level: level}
		if s.ID != "" {
			entry.Href = "#" + s.ID
		}
		entry.Children = tocEntries(s.Sections, level+1)
		out = append(out, entry)
	}
	return out
}

// Validate checks the file bound at read time.
func (h *Handler) Validate() (*model.Report, error) {
	if h.path == "" {
		return nil, errs.New(errs.KindNotFound, "fb2.validate", "no file bound")
	}
	return ValidateFile(h.path)
}

// Repair repairs the file bound at read time in place.
func (h *Handler) Repair() error {
	if h.path == "" {
		return errs.New(errs.KindNotFound, "fb2.repair", "no file bound")
	}
	return RepairFile(h.path, h.path)
}
