//go:build ocr

// Package ocr recognizes text on comic page images.
//
// Recognition runs through Tesseract via gosseract and is only compiled
// in under the "ocr" build tag; the default build ships a stub whose
// calls fail with ErrNotEnabled so the CBZ handler can fall back to a
// page-count summary. Tesseract must be installed on the system
// (tesseract-ocr on Debian/Ubuntu, brew install tesseract on macOS).
package ocr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// ErrNotEnabled is returned by the stub build. Declared in both builds
// so callers can test for it under either configuration.
var ErrNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// PageReader recognizes text on page images. Pages carry sparse,
// scattered lettering rather than running prose, so the reader uses
// Tesseract's sparse-text segmentation.
type PageReader struct {
	client *gosseract.Client
}

// NewPageReader starts a Tesseract session. Close it when done.
func NewPageReader() (*PageReader, error) {
	client := gosseract.NewClient()
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		client.Close()
		return nil, fmt.Errorf("configure segmentation: %w", err)
	}
	return &PageReader{client: client}, nil
}

// Close releases the Tesseract session.
func (r *PageReader) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// PageText recognizes the lettering on one encoded page image (PNG,
// JPEG, TIFF). The result is trimmed; an unlettered page yields "".
func (r *PageReader) PageText(page []byte) (string, error) {
	if err := r.client.SetImageFromBytes(page); err != nil {
		return "", fmt.Errorf("load page image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize page: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// SetLanguage selects the recognition language(s), "+"-separated for
// multiple (e.g. "eng+jpn"). The default is English.
func (r *PageReader) SetLanguage(lang string) error {
	return r.client.SetLanguage(lang)
}
