package pdf

import (
	"bytes"
	"os"
	"strings"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
	"github.com/foliokit/folio/repairio"
)

// ValidateFile checks header, cross-reference and object consistency.
// A malformed file produces issues, not an error. A file whose xref
// had to be rebuilt by scanning is reported as damaged even though it
// remains readable.
func ValidateFile(path string) (*model.Report, error) {
	const op = "pdf.validate"

	report := &model.Report{Path: path, Format: "PDF"}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, op, err)
	}

	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		report.Add("pdf.header", "file does not start with %PDF-")
		return report, nil
	}

	doc, err := loadDocument(data)
	if err != nil {
		report.Add("pdf.xref", err.Error())
		return report, nil
	}
	if doc.rebuilt {
		report.Add("pdf.xref", "cross-reference table is unusable; objects were recovered by scanning")
	}
	if doc.catalog() == nil {
		report.Add("pdf.catalog", "Root does not resolve to a catalog dictionary")
		return report, nil
	}
	if _, err := doc.pageList(); err != nil {
		report.Add("pdf.pages", err.Error())
	}
	return report, nil
}

// RepairFile repairs src into dst. A valid file is copied unchanged.
// Anything else is re-serialized from whatever could be parsed: the
// scan-recovery loader collects every reachable object, and the file
// is rebuilt as a fresh document from the extracted text, metadata
// and outline.
func RepairFile(src, dst string) error {
	const op = "pdf.repair"

	report, err := ValidateFile(src)
	if err != nil {
		return err
	}
	if report.Valid() {
		if err := repairio.CopyIfDistinct(src, dst); err != nil {
			return errs.Wrap(errs.KindIO, op, err)
		}
		return nil
	}

	h := New()
	if err := h.ReadFromFile(src); err != nil {
		return errs.Wrap(errs.KindContainer, op, err).
			WithPath(src).
			WithHint("the file has no recoverable document structure")
	}

	out := New()
	out.SetMetadata(h.meta)
	if len(h.toc) > 0 && len(h.toc) < 500 {
		// Rebuild chapters along outline boundaries when the text
		// still contains the headings; otherwise keep one body.
		if chapters := splitByHeadings(h.content, h.toc); chapters != nil {
			for _, ch := range chapters {
				out.AddChapter(ch.Title, ch.Content)
			}
		}
	}
	if len(out.chapters) == 0 {
		out.SetContent(h.content)
	}

	if err := repairio.WriteAtomic(dst, buildDocument(out.meta, out.writeChapters())); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}
	return nil
}

func (h *Handler) writeChapters() []model.Chapter {
	if len(h.chapters) > 0 {
		return h.chapters
	}
	return []model.Chapter{{Content: h.content}}
}

// splitByHeadings cuts content at the first occurrence of each top
// level outline title. Titles that cannot be located abort the split.
func splitByHeadings(content string, toc []model.TocEntry) []model.Chapter {
	type cut struct {
		title string
		pos   int
	}
	var cuts []cut
	search := 0
	for _, entry := range toc {
		if entry.Level > 0 {
			continue
		}
		i := indexFrom(content, entry.Title, search)
		if i < 0 {
			return nil
		}
		cuts = append(cuts, cut{title: entry.Title, pos: i})
		search = i + len(entry.Title)
	}
	if len(cuts) == 0 {
		return nil
	}

	var chapters []model.Chapter
	for i, c := range cuts {
		end := len(content)
		if i+1 < len(cuts) {
			end = cuts[i+1].pos
		}
		body := content[c.pos+len(c.title) : end]
		chapters = append(chapters, model.Chapter{
			Title:    c.title,
			Content:  strings.TrimSpace(body),
			Position: i,
		})
	}
	return chapters
}

func indexFrom(s, sub string, from int) int {
	if from >= len(s) {
		return -1
	}
	i := strings.Index(s[from:], sub)
	if i < 0 {
		return -1
	}
	return from + i
}
