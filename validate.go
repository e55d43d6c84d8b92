package folio

import (
	"io"
	"os"

	"github.com/foliokit/folio/cbz"
	"github.com/foliokit/folio/epub"
	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/fb2"
	"github.com/foliokit/folio/format"
	"github.com/foliokit/folio/mobi"
	"github.com/foliokit/folio/model"
	"github.com/foliokit/folio/pdf"
	"github.com/foliokit/folio/txt"
)

// Validate structurally checks the file at path without reading it
// fully. Malformed input produces a report with issues, not an error.
// The format is taken from the extension but content sniffing is
// authoritative when the two disagree, so a misnamed file is checked
// as what it actually is.
func Validate(path string) (*model.Report, error) {
	f, err := effectiveFormat(path)
	if err != nil {
		return nil, err
	}

	switch f {
	case format.EPUB:
		return epub.ValidateFile(path)
	case format.MOBI, format.KF8, format.AZW:
		return mobi.ValidateFile(path)
	case format.FB2:
		return fb2.ValidateFile(path)
	case format.CBZ:
		return cbz.ValidateFile(path)
	case format.TXT:
		return txt.ValidateFile(path)
	case format.PDF:
		return pdf.ValidateFile(path)
	default:
		return nil, errs.Newf(errs.KindUnsupportedFormat, "folio.validate", "no validator for format %q", f).WithPath(path)
	}
}

// effectiveFormat reconciles extension detection with content
// sniffing. The sniffed format wins on conflict; extension fills in
// when the content is ambiguous (TXT has no magic).
func effectiveFormat(path string) (format.Format, error) {
	const op = "folio.detect"

	byExt := format.Detect(path)

	fh, err := os.Open(path)
	if err != nil {
		return format.Unknown, errs.Wrap(errs.KindIO, op, err)
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return format.Unknown, errs.Wrap(errs.KindIO, op, err)
	}
	bySniff, err := format.DetectFromReader(fh, info.Size())
	if err != nil && err != io.EOF {
		bySniff = format.Unknown
	}

	switch {
	case bySniff == format.Unknown && byExt == format.Unknown:
		return format.Unknown, errs.Newf(errs.KindUnsupportedFormat, op, "cannot determine the format of %q", path).
			WithPath(path).
			WithHint("rename the file with a supported extension")
	case bySniff == format.Unknown:
		return byExt, nil
	case byExt == format.Unknown:
		return bySniff, nil
	case palmFamily(byExt) && bySniff == format.MOBI:
		// The Palm signature cannot tell MOBI, KF8 and AZW apart; the
		// extension carries the specificity.
		return byExt, nil
	case bySniff == format.TXT:
		// The text sniff is a weak fallback heuristic; a recognized
		// extension on printable content wins.
		return byExt, nil
	default:
		return bySniff, nil
	}
}

func palmFamily(f format.Format) bool {
	return f == format.MOBI || f == format.KF8 || f == format.AZW
}
