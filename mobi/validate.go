package mobi

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
	"github.com/foliokit/folio/repairio"
)

// Validate checks the file bound at read time.
func (h *Handler) Validate() (*model.Report, error) {
	if h.path == "" {
		return nil, errs.New(errs.KindNotFound, "mobi.validate", "handler is not bound to a file")
	}
	return ValidateFile(h.path)
}

// Repair repairs the file bound at read time, in place.
func (h *Handler) Repair() error {
	if h.path == "" {
		return errs.New(errs.KindNotFound, "mobi.repair", "handler is not bound to a file")
	}
	return RepairFile(h.path, h.path)
}

// ValidateFile checks Palm database structure and MOBI header sanity.
// A malformed file produces issues, not an error.
func ValidateFile(path string) (*model.Report, error) {
	const op = "mobi.validate"

	report := &model.Report{Path: path, Format: "MOBI"}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, op, err)
	}

	db, err := parsePDB(data)
	if err != nil {
		report.Add("mobi.database", err.Error())
		return report, nil
	}
	if len(db.Records) == 0 {
		report.Add("mobi.records", "database has no records")
		return report, nil
	}

	rec0 := db.Records[0]
	doc, err := parsePalmDocHeader(rec0)
	if err != nil {
		report.Add("mobi.header", err.Error())
		return report, nil
	}
	switch doc.Compression {
	case compressionNone, compressionPalmDoc, compressionHuffCDIC:
	default:
		report.Add("mobi.compression", fmt.Sprintf("unknown compression type %d", doc.Compression))
	}
	if int(doc.RecordCount) >= len(db.Records) {
		report.Add("mobi.records", fmt.Sprintf(
			"header declares %d text records but only %d records follow record zero",
			doc.RecordCount, len(db.Records)-1))
	}

	if _, err := parseMobiHeader(rec0); err != nil {
		report.Add("mobi.header", err.Error())
	}
	return report, nil
}

// RepairFile repairs src into dst. A valid file is copied unchanged.
// A readable file with structural issues is rewritten from its parsed
// state. An unreadable file is salvaged: any recoverable text after
// the database header becomes the content of a fresh book titled from
// the database name or the file stem.
func RepairFile(src, dst string) error {
	const op = "mobi.repair"

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
	if err := h.ReadFromFile(src); err == nil {
		return repairWrite(h, dst)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}

	title := ""
	if len(data) >= 32 {
		title = trimPalmName(data[:32])
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	}

	salvaged := New()
	salvaged.SetMetadata(model.Metadata{Title: title})
	salvaged.SetContent(salvageText(data))
	return repairWrite(salvaged, dst)
}

func repairWrite(h *Handler, dst string) error {
	const op = "mobi.repair"
	if err := repairio.WriteAtomic(dst, h.buildDatabase()); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}
	return nil
}

// salvageText pulls printable runs out of a broken database body.
// Runs shorter than a few words are treated as header noise.
func salvageText(data []byte) string {
	if len(data) > pdbHeaderSize {
		data = data[pdbHeaderSize:]
	}

	const minRun = 24
	var (
		b   strings.Builder
		run []byte
	)
	flush := func() {
		if len(run) >= minRun {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.Write(run)
		}
		run = run[:0]
	}
	for _, c := range data {
		if c == '\n' || c == '\t' || (c >= 0x20 && c < 0x7f) {
			run = append(run, c)
		} else {
			flush()
		}
	}
	flush()
	return b.String()
}
