// Package folio reads, writes, converts, validates and repairs ebook
// files in EPUB, MOBI/KF8, AZW, FB2, CBZ, TXT and PDF formats.
//
// Basic usage:
//
//	h, err := folio.Open("book.epub")
//	if err != nil {
//	    // handle error
//	}
//	meta, err := h.Metadata()
//
// Conversion:
//
//	err := folio.Convert("book.epub", "book.mobi")
//
// Each format lives in its own subpackage with a Handler type; this
// package fronts them with capability interfaces and format dispatch.
// A handler implements only what its format supports: AZW is read
// only, and image embedding exists where the container stores images
// (EPUB and CBZ).
package folio

import (
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

// Reader is the read capability: load a file and query its parts.
type Reader interface {
	ReadFromFile(path string) error
	Metadata() (model.Metadata, error)
	Content() (string, error)
	TOC() ([]model.TocEntry, error)
	Images() ([]model.ImageData, error)
}

// Writer is the write capability: stage state and serialize it.
type Writer interface {
	SetMetadata(meta model.Metadata) error
	SetContent(content string) error
	AddChapter(title, content string) error
	WriteToFile(path string) error
}

// ImageWriter is the image embedding capability. Only formats whose
// container stores images implement it; the conversion engine
// discovers it by type assertion.
type ImageWriter interface {
	AddImage(name string, data []byte) error
}

// Operator is the full read/write/validate/repair capability set.
type Operator interface {
	Reader
	Writer
	Validate() (*model.Report, error)
	Repair() error
}

// Compile-time capability matrix.
var (
	_ Operator    = (*epub.Handler)(nil)
	_ Operator    = (*mobi.Handler)(nil)
	_ Operator    = (*fb2.Handler)(nil)
	_ Operator    = (*cbz.Handler)(nil)
	_ Operator    = (*txt.Handler)(nil)
	_ Operator    = (*pdf.Handler)(nil)
	_ Reader      = (*mobi.AZW)(nil)
	_ ImageWriter = (*epub.Handler)(nil)
	_ ImageWriter = (*cbz.Handler)(nil)
)

// New returns an empty handler for the format tag, as a Reader. The
// result also implements Writer and Operator for every format except
// AZW.
func New(f format.Format) (Reader, error) {
	switch f {
	case format.EPUB:
		return epub.New(), nil
	case format.MOBI, format.KF8:
		return mobi.New(), nil
	case format.AZW:
		return mobi.NewAZW(), nil
	case format.FB2:
		return fb2.New(), nil
	case format.CBZ:
		return cbz.New(), nil
	case format.TXT:
		return txt.New(), nil
	case format.PDF:
		return pdf.New(), nil
	default:
		return nil, errs.Newf(errs.KindUnsupportedFormat, "folio.new", "no handler for format %q", f)
	}
}

// Open detects the format from the path's extension, reads the file
// and returns the loaded handler.
func Open(path string) (Reader, error) {
	f := format.Detect(path)
	if f == format.Unknown {
		return nil, errs.Newf(errs.KindUnsupportedFormat, "folio.open", "unrecognized file extension in %q", path).
			WithPath(path).
			WithHint("supported extensions are .epub .mobi .azw3 .azw .fb2 .cbz .txt .pdf")
	}
	h, err := New(f)
	if err != nil {
		return nil, err
	}
	if err := h.ReadFromFile(path); err != nil {
		return nil, err
	}
	return h, nil
}

// NewWriter returns an empty handler for a writable format.
func NewWriter(f format.Format) (Writer, error) {
	h, err := New(f)
	if err != nil {
		return nil, err
	}
	w, ok := h.(Writer)
	if !ok {
		return nil, errs.Newf(errs.KindUnsupportedOp, "folio.newwriter", "format %q is read only", f).
			WithHint("AZW cannot be written; convert to MOBI or EPUB instead")
	}
	return w, nil
}
