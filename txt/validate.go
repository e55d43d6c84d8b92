package txt

import (
	"os"
	"unicode/utf8"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
	"github.com/foliokit/folio/repairio"
)

// ValidateFile checks that the file exists and decodes under one of the
// supported encodings. Malformed input becomes report issues, not errors.
func ValidateFile(path string) (*model.Report, error) {
	report := &model.Report{Path: path, Format: "TXT"}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "txt.validate", err)
	}

	if !utf8.Valid(data) && !hasBOM(data) {
		report.Add("txt.encoding", "content is not valid UTF-8 and carries no byte order mark")
	}
	return report, nil
}

func hasBOM(data []byte) bool {
	return len(data) >= 2 &&
		((data[0] == 0xEF && len(data) >= 3 && data[1] == 0xBB && data[2] == 0xBF) ||
			(data[0] == 0xFF && data[1] == 0xFE) ||
			(data[0] == 0xFE && data[1] == 0xFF))
}

// RepairFile re-encodes undecodable content as UTF-8 via the permissive
// Windows-1252 fallback. A file that already validates is left untouched.
func RepairFile(path, outPath string) error {
	const op = "txt.repair"

	report, err := ValidateFile(path)
	if err != nil {
		return err
	}
	if report.Valid() {
		return repairio.CopyIfDistinct(path, outPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}

	fixed, err := DecodeText(data)
	if err != nil {
		fixed = DecodePermissive(data)
	}
	return repairio.WriteAtomic(outPath, []byte(fixed))
}
