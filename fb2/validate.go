package fb2

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
	"github.com/foliokit/folio/repairio"
)

// ValidateFile checks the FB2 document at path for well-formedness and
// required structure. Malformed input produces report issues, not errors.
func ValidateFile(path string) (*model.Report, error) {
	const op = "fb2.validate"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, op, err).WithPath(path)
	}

	report := &model.Report{Path: path, Format: "FB2"}

	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		report.Add("fb2.xml", "document is not well-formed XML: "+err.Error())
		return report, nil
	}
	if !strings.EqualFold(doc.XMLName.Local, "FictionBook") {
		report.Add("fb2.root", "root element is not FictionBook")
	}
	if doc.Description.TitleInfo.BookTitle == "" {
		report.Add("fb2.title", "description has no book-title")
	}
	if len(doc.Bodies) == 0 {
		report.Add("fb2.body", "document has no body")
	}
	return report, nil
}

// RepairFile rewrites the document at src to dst with structural fixes: a
// missing title is filled from the filename and, when the XML cannot be
// parsed at all, the raw text is wrapped into a minimal valid document.
// A valid source is copied byte for byte (no-op when src == dst).
func RepairFile(src, dst string) error {
	const op = "fb2.repair"

	report, err := ValidateFile(src)
	if err != nil {
		return err
	}
	if report.Valid() {
		return repairio.CopyIfDistinct(src, dst)
	}

	h := New()
	if err := h.ReadFromFile(src); err != nil {
		// Unparseable XML: salvage the bytes as plain text.
		data, rerr := os.ReadFile(src)
		if rerr != nil {
			return errs.Wrap(errs.KindIO, op, rerr).WithPath(src)
		}
		h = New()
		if err := h.SetContent(string(data)); err != nil {
			return err
		}
	}
	if h.meta.Title == "" {
		h.meta.Title = stem(src)
	}
	if h.meta.Format == "" {
		h.meta.Format = "FB2"
	}

	out, err := h.marshal()
	if err != nil {
		return err
	}
	if err := repairio.WriteAtomic(dst, out); err != nil {
		return errs.Wrap(errs.KindIO, op, err).WithPath(dst)
	}
	return nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
