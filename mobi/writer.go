package mobi

import (
	"os"
	"path/filepath"

	"github.com/foliokit/folio/errs"
)

// WriteToFile serializes the handler state as a BOOKMOBI database with
// PalmDOC-compressed text records.
func (h *Handler) WriteToFile(path string) error {
	const op = "mobi.write"

	data := h.buildDatabase()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}
	h.path = path
	return nil
}

func (h *Handler) buildDatabase() []byte {
	text := []byte(h.bookHTML())

	var textRecords [][]byte
	for off := 0; off < len(text); off += textRecordSize {
		end := off + textRecordSize
		if end > len(text) {
			end = len(text)
		}
		textRecords = append(textRecords, palmdocCompress(text[off:end]))
	}
	if len(textRecords) == 0 {
		textRecords = append(textRecords, palmdocCompress(nil))
	}

	doc := palmDocHeader{
		Compression: compressionPalmDoc,
		TextLength:  uint32(len(text)),
		RecordCount: uint16(len(textRecords)),
		RecordSize:  textRecordSize,
	}

	title := h.meta.Title
	if title == "" {
		title = "Untitled"
	}
	exth := buildEXTH(h.meta)
	rec0 := buildRecordZero(doc, title, localeForLanguage(h.meta.Language), 1, exth)

	records := make([][]byte, 0, len(textRecords)+2)
	records = append(records, rec0)
	records = append(records, textRecords...)
	// Trailing EOF record, as Mobipocket tooling emits.
	records = append(records, []byte{0xe9, 0x8e, 0x0d, 0x0a})

	return buildPDB(title, sigBookMobi, records)
}
