// Package format provides ebook file format detection.
package format

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// Format represents a supported ebook format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// EPUB indicates a ZIP-packaged EPUB document.
	EPUB
	// MOBI indicates a classic Mobipocket database.
	MOBI
	// KF8 indicates an AZW3 (KF8) Kindle database.
	KF8
	// AZW indicates a legacy Kindle AZW database (read-only).
	AZW
	// FB2 indicates a FictionBook 2 XML document.
	FB2
	// CBZ indicates a ZIP comic archive.
	CBZ
	// TXT indicates a plain text file.
	TXT
	// PDF indicates a PDF document.
	PDF
)

// String returns the canonical tag for the format.
func (f Format) String() string {
	switch f {
	case EPUB:
		return "EPUB"
	case MOBI:
		return "MOBI"
	case KF8:
		return "KF8"
	case AZW:
		return "AZW"
	case FB2:
		return "FB2"
	case CBZ:
		return "CBZ"
	case TXT:
		return "TXT"
	case PDF:
		return "PDF"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case EPUB:
		return ".epub"
	case MOBI:
		return ".mobi"
	case KF8:
		return ".azw3"
	case AZW:
		return ".azw"
	case FB2:
		return ".fb2"
	case CBZ:
		return ".cbz"
	case TXT:
		return ".txt"
	case PDF:
		return ".pdf"
	default:
		return ""
	}
}

// Parse maps a format tag (case-insensitive) to a Format.
func Parse(tag string) Format {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "epub":
		return EPUB
	case "mobi":
		return MOBI
	case "kf8", "azw3":
		return KF8
	case "azw":
		return AZW
	case "fb2":
		return FB2
	case "cbz":
		return CBZ
	case "txt", "text":
		return TXT
	case "pdf":
		return PDF
	default:
		return Unknown
	}
}

// Detect determines file format from the filename extension.
func Detect(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".epub":
		return EPUB
	case ".mobi":
		return MOBI
	case ".azw3":
		return KF8
	case ".azw":
		return AZW
	case ".fb2":
		return FB2
	case ".cbz":
		return CBZ
	case ".txt":
		return TXT
	case ".pdf":
		return PDF
	default:
		return Unknown
	}
}

// Palm database type/creator pairs at offset 60 in the PDB header.
var (
	palmMobi = []byte("BOOKMOBI")
	palmDoc  = []byte("TEXtREAd")
)

// DetectFromMagic checks leading magic bytes to determine the format.
// ZIP archives cannot be classified from magic alone (EPUB vs CBZ);
// use DetectFromReader for those. Returns Unknown when inconclusive.
func DetectFromMagic(data []byte) Format {
	if len(data) >= 5 && bytes.HasPrefix(data, []byte("%PDF-")) {
		return PDF
	}
	// Palm database: the type/creator signature sits at offset 60.
	if len(data) >= 68 {
		sig := data[60:68]
		if bytes.Equal(sig, palmMobi) || bytes.Equal(sig, palmDoc) {
			return MOBI
		}
	}
	if detectFB2Magic(data) {
		return FB2
	}
	return Unknown
}

// detectFB2Magic checks for an XML prolog followed by a FictionBook root.
func detectFB2Magic(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf")
	if !bytes.HasPrefix(trimmed, []byte("<?xml")) && !bytes.HasPrefix(trimmed, []byte("<FictionBook")) {
		return false
	}
	limit := len(trimmed)
	if limit > 512 {
		limit = 512
	}
	return bytes.Contains(trimmed[:limit], []byte("<FictionBook"))
}

// DetectFromReader inspects content to determine the format. This is
// authoritative over extension-based detection and distinguishes the
// ZIP-based formats (EPUB vs CBZ) by looking inside the archive.
func DetectFromReader(r io.ReaderAt, size int64) (Format, error) {
	magic := make([]byte, 512)
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	magic = magic[:n]

	if f := DetectFromMagic(magic); f != Unknown {
		return f, nil
	}

	if len(magic) >= 4 && magic[0] == 0x50 && magic[1] == 0x4B &&
		(magic[2] == 0x03 || magic[2] == 0x05 || magic[2] == 0x07) {
		return detectZIPFormat(r, size)
	}

	if looksLikeText(magic) {
		return TXT, nil
	}

	return Unknown, nil
}

// detectZIPFormat classifies a ZIP archive as EPUB or CBZ from its entries.
func detectZIPFormat(r io.ReaderAt, size int64) (Format, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		// Structurally broken ZIP: still a ZIP family file, but the
		// specific format is unknowable without the central directory.
		return Unknown, err
	}

	imageEntries := 0
	for _, f := range zr.File {
		switch {
		case f.Name == "mimetype":
			rc, err := f.Open()
			if err == nil {
				data := make([]byte, 64)
				n, _ := rc.Read(data)
				rc.Close()
				if strings.Contains(string(data[:n]), "application/epub+zip") {
					return EPUB, nil
				}
			}
		case f.Name == "META-INF/container.xml":
			return EPUB, nil
		case f.Name == "ComicInfo.xml":
			return CBZ, nil
		case isImageName(f.Name):
			imageEntries++
		}
	}

	// An archive of nothing but images is a comic archive.
	if imageEntries > 0 && imageEntries >= len(zr.File)-1 {
		return CBZ, nil
	}
	return Unknown, nil
}

func isImageName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}

// looksLikeText reports whether the sample contains no NUL bytes and is
// mostly printable, the heuristic used for extensionless repair input.
func looksLikeText(sample []byte) bool {
	if len(sample) == 0 {
		return false
	}
	control := 0
	for _, b := range sample {
		if b == 0 {
			return false
		}
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			control++
		}
	}
	return control*20 < len(sample)
}
