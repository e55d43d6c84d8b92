package model

import (
	"net/http"
	"strings"
)

// Metadata contains bibliographic information about an ebook.
// All fields are optional; an empty string or nil means unknown.
type Metadata struct {
	Title       string
	Author      string
	Publisher   string
	Description string
	Language    string
	ISBN        string
	PubDate     string // publication date as the source format carries it
	CoverImage  []byte // raw cover image bytes, nil when absent
	Format      string // format tag of the source, e.g. "EPUB"

	// Custom holds format-specific fields that have no first-class slot,
	// keyed by a stable name (e.g. "exth.501", "comicinfo.series").
	// It supplements the typed fields, never replaces them.
	Custom map[string]string
}

// SetCustom records a custom field, allocating the map on first use.
func (m *Metadata) SetCustom(key, value string) {
	if m.Custom == nil {
		m.Custom = make(map[string]string)
	}
	m.Custom[key] = value
}

// Custom field lookup that tolerates a nil map.
func (m *Metadata) GetCustom(key string) (string, bool) {
	v, ok := m.Custom[key]
	return v, ok
}

// Clone returns a deep copy of the metadata.
func (m Metadata) Clone() Metadata {
	cp := m
	if m.CoverImage != nil {
		cp.CoverImage = append([]byte(nil), m.CoverImage...)
	}
	if m.Custom != nil {
		cp.Custom = make(map[string]string, len(m.Custom))
		for k, v := range m.Custom {
			cp.Custom[k] = v
		}
	}
	return cp
}

// TocEntry is a single table-of-contents node.
type TocEntry struct {
	Title    string
	Level    int    // nesting depth, 0 at the root
	Href     string // target reference (href/anchor), empty when none
	Children []TocEntry
}

// Walk visits the entry and its descendants in document order.
func (t TocEntry) Walk(fn func(TocEntry)) {
	fn(t)
	for _, c := range t.Children {
		c.Walk(fn)
	}
}

// FlattenToc returns all entries of a TOC tree in document order.
func FlattenToc(entries []TocEntry) []TocEntry {
	var out []TocEntry
	for _, e := range entries {
		e.Walk(func(t TocEntry) { out = append(out, t) })
	}
	return out
}

// ImageData is one embedded image: a container-relative name, a MIME type,
// and the raw bytes. The bytes are owned by the handler that produced them
// and must not be mutated by consumers.
type ImageData struct {
	Name     string
	MimeType string
	Data     []byte
}

// SniffMime returns the MIME type detected from the image bytes, falling
// back to the extension only when the content is inconclusive.
func SniffMime(name string, data []byte) string {
	if len(data) > 0 {
		ct := http.DetectContentType(data)
		if strings.HasPrefix(ct, "image/") {
			return ct
		}
	}
	return MimeFromName(name)
}

// MimeFromName maps a filename extension to a MIME type.
func MimeFromName(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "application/octet-stream"
	}
	switch strings.ToLower(name[i+1:]) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "svg":
		return "image/svg+xml"
	case "xhtml", "html", "htm":
		return "application/xhtml+xml"
	case "css":
		return "text/css"
	case "ncx":
		return "application/x-dtbncx+xml"
	default:
		return "application/octet-stream"
	}
}

// Chapter is a unit of structured content held by a handler between
// AddChapter and WriteToFile. Position is the zero-based write order.
type Chapter struct {
	Title    string
	Content  string
	Position int
}
