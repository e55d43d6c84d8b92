package mobi

import (
	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
)

// AZW reads classic Kindle AZW books. The container is the same Palm
// database as MOBI, but the format is DRM-oriented, so only the read
// side is exposed. On an encrypted book the headers remain readable:
// metadata succeeds while content and navigation fail with a DRM hint.
type AZW struct {
	h Handler
}

// NewAZW returns an empty AZW reader.
func NewAZW() *AZW {
	a := &AZW{}
	a.h.allowDRM = true
	return a
}

// ReadFromFile parses the database. An encrypted book loads metadata
// only.
func (a *AZW) ReadFromFile(path string) error {
	if err := a.h.ReadFromFile(path); err != nil {
		return err
	}
	a.h.meta.Format = "AZW"
	return nil
}

// Metadata returns the metadata of the last read. Readable even on
// encrypted books, since headers are never encrypted.
func (a *AZW) Metadata() (model.Metadata, error) {
	return a.h.Metadata()
}

// Content returns book text, or a DRM failure on an encrypted book.
func (a *AZW) Content() (string, error) {
	return a.h.Content()
}

// TOC returns navigation, or a DRM failure on an encrypted book.
func (a *AZW) TOC() ([]model.TocEntry, error) {
	return a.h.TOC()
}

// Images returns an empty list.
func (a *AZW) Images() ([]model.ImageData, error) {
	return a.h.Images()
}

// Validate checks the file bound at read time.
func (a *AZW) Validate() (*model.Report, error) {
	if a.h.path == "" {
		return nil, errs.New(errs.KindNotFound, "azw.validate", "handler is not bound to a file")
	}
	return ValidateFile(a.h.path)
}
