package folio

import (
	"github.com/foliokit/folio/cbz"
	"github.com/foliokit/folio/epub"
	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/fb2"
	"github.com/foliokit/folio/format"
	"github.com/foliokit/folio/mobi"
	"github.com/foliokit/folio/pdf"
	"github.com/foliokit/folio/txt"
)

// Repair rebuilds the file at srcPath into dstPath. Pass the same
// path for both to repair in place; the write is atomic either way.
// An already-valid file is copied byte for byte. The format comes
// from content sniffing when it contradicts the extension, so repair
// works on misnamed and extensionless files.
func Repair(srcPath, dstPath string) error {
	f, err := effectiveFormat(srcPath)
	if err != nil {
		return err
	}

	switch f {
	case format.EPUB:
		return epub.RepairFile(srcPath, dstPath)
	case format.MOBI, format.KF8, format.AZW:
		return mobi.RepairFile(srcPath, dstPath)
	case format.FB2:
		return fb2.RepairFile(srcPath, dstPath)
	case format.CBZ:
		return cbz.RepairFile(srcPath, dstPath)
	case format.TXT:
		return txt.RepairFile(srcPath, dstPath)
	case format.PDF:
		return pdf.RepairFile(srcPath, dstPath)
	default:
		return errs.Newf(errs.KindUnsupportedFormat, "folio.repair", "no repairer for format %q", f).WithPath(srcPath)
	}
}
