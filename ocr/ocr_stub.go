//go:build !ocr

// Package ocr recognizes text on comic page images.
//
// This is the stub compiled when the "ocr" build tag is absent; every
// constructor fails with ErrNotEnabled and callers fall back to their
// no-OCR behavior. Build with -tags ocr (Tesseract installed) for real
// recognition.
package ocr

import "errors"

// ErrNotEnabled is returned when recognition is requested but OCR
// support was not compiled in.
var ErrNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// PageReader is the stub page recognizer.
type PageReader struct{}

// NewPageReader always fails in the stub build.
func NewPageReader() (*PageReader, error) {
	return nil, ErrNotEnabled
}

// Close is a no-op, safe on a nil reader.
func (r *PageReader) Close() error { return nil }

// PageText always fails in the stub build.
func (r *PageReader) PageText(page []byte) (string, error) {
	return "", ErrNotEnabled
}

// SetLanguage always fails in the stub build.
func (r *PageReader) SetLanguage(lang string) error {
	return ErrNotEnabled
}
