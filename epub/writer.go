package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
)

const contentDir = "OEBPS"

// Write-side OPF document. The dc-prefixed tags emit Dublin Core
// elements directly; encoding/xml treats the prefix as part of the name.
type writePackage struct {
	XMLName  xml.Name      `xml:"package"`
	Xmlns    string        `xml:"xmlns,attr"`
	XmlnsDC  string        `xml:"xmlns:dc,attr"`
	Version  string        `xml:"version,attr"`
	UniqueID string        `xml:"unique-identifier,attr"`
	Metadata writeMetadata `xml:"metadata"`
	Manifest writeManifest `xml:"manifest"`
	Spine    writeSpine    `xml:"spine"`
}

type writeMetadata struct {
	Identifiers  []writeIdentifier `xml:"dc:identifier"`
	Titles       []string          `xml:"dc:title"`
	Languages    []string          `xml:"dc:language"`
	Creators     []string          `xml:"dc:creator,omitempty"`
	Publishers   []string          `xml:"dc:publisher,omitempty"`
	Dates        []string          `xml:"dc:date,omitempty"`
	Descriptions []string          `xml:"dc:description,omitempty"`
	Subjects     []string          `xml:"dc:subject,omitempty"`
	Rights       []string          `xml:"dc:rights,omitempty"`
	Metas        []writeMeta       `xml:"meta,omitempty"`
}

type writeIdentifier struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr,omitempty"`
}

type writeMeta struct {
	Property string `xml:"property,attr,omitempty"`
	Name     string `xml:"name,attr,omitempty"`
	Content  string `xml:"content,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type writeManifest struct {
	Items []writeItem `xml:"item"`
}

type writeItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type writeSpine struct {
	Toc      string          `xml:"toc,attr,omitempty"`
	ItemRefs []writeItemRef  `xml:"itemref"`
}

type writeItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// WriteToFile serializes the handler state as a new publication at path.
// The mimetype entry is always first and stored uncompressed; everything
// else is deflated. The package identifier is the metadata ISBN when one
// is set, a fresh urn:uuid otherwise.
func (h *Handler) WriteToFile(outPath string) error {
	const op = "epub.write"

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return errs.Wrap(errs.KindIO, op, err).WithPath(outPath)
	}
	defer f.Close()

	if err := h.writeArchive(f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return errs.Wrap(errs.KindIO, op, err).WithPath(outPath)
	}
	h.path = outPath
	return nil
}

func (h *Handler) writeArchive(f *os.File) error {
	const op = "epub.write"

	zw := zip.NewWriter(f)

	// mimetype must be the first entry and must not be compressed.
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: mimetypeName, Method: zip.Store})
	if err != nil {
		return errs.Wrap(errs.KindContainer, op, err)
	}
	if _, err := mt.Write([]byte(mimetypeValue)); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}

	opfPath := defaultOPFPath
	container, err := containerFor(opfPath)
	if err != nil {
		return errs.Wrap(errs.KindEncoding, op, err)
	}
	if err := addDeflated(zw, containerName, container); err != nil {
		return errs.Wrap(errs.KindContainer, op, err)
	}

	chapters := h.chapters
	if len(chapters) == 0 {
		chapters = []model.Chapter{{Title: h.meta.Title, Content: ""}}
	}

	identifier := h.identifier()
	toc := h.writerTOC(chapters)

	opf, err := h.buildOPF(identifier, chapters)
	if err != nil {
		return errs.Wrap(errs.KindEncoding, op, err)
	}
	if err := addDeflated(zw, opfPath, opf); err != nil {
		return errs.Wrap(errs.KindContainer, op, err)
	}

	if h.version != "2.0" {
		if err := addDeflated(zw, contentDir+"/nav.xhtml", navFor(h.meta.Title, toc)); err != nil {
			return errs.Wrap(errs.KindContainer, op, err)
		}
	}
	ncx, err := ncxFor(identifier, h.meta.Title, toc)
	if err != nil {
		return errs.Wrap(errs.KindEncoding, op, err)
	}
	if err := addDeflated(zw, contentDir+"/toc.ncx", ncx); err != nil {
		return errs.Wrap(errs.KindContainer, op, err)
	}

	for i, ch := range chapters {
		name := fmt.Sprintf("%s/text/%s", contentDir, chapterHref(i))
		if err := addDeflated(zw, name, chapterXHTML(ch.Title, ch.Content)); err != nil {
			return errs.Wrap(errs.KindContainer, op, err)
		}
	}

	if len(h.meta.CoverImage) > 0 {
		name := contentDir + "/images/" + coverName(h.meta.CoverImage)
		if err := addDeflated(zw, name, h.meta.CoverImage); err != nil {
			return errs.Wrap(errs.KindContainer, op, err)
		}
	}
	for _, img := range h.images {
		name := contentDir + "/images/" + path.Base(img.Name)
		if err := addDeflated(zw, name, img.Data); err != nil {
			return errs.Wrap(errs.KindContainer, op, err)
		}
	}

	if err := zw.Close(); err != nil {
		return errs.Wrap(errs.KindContainer, op, err)
	}
	return nil
}

func addDeflated(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (h *Handler) identifier() string {
	if h.meta.ISBN != "" {
		return "urn:isbn:" + h.meta.ISBN
	}
	if id, ok := h.meta.GetCustom("epub.identifier"); ok && id != "" {
		return id
	}
	return "urn:uuid:" + uuid.NewString()
}

// writerTOC prefers an explicitly set or previously parsed tree, mapping
// hrefs onto the emitted chapter files otherwise.
func (h *Handler) writerTOC(chapters []model.Chapter) []model.TocEntry {
	if len(h.toc) > 0 {
		return h.toc
	}
	entries := make([]model.TocEntry, 0, len(chapters))
	for i, ch := range chapters {
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		entries = append(entries, model.TocEntry{
			Title: title,
			Level: 1,
			Href:  "text/" + chapterHref(i),
		})
	}
	return entries
}

func chapterHref(i int) string {
	return fmt.Sprintf("chapter-%03d.xhtml", i+1)
}

func coverName(data []byte) string {
	switch model.SniffMime("", data) {
	case "image/png":
		return "cover.png"
	case "image/gif":
		return "cover.gif"
	default:
		return "cover.jpg"
	}
}

func (h *Handler) buildOPF(identifier string, chapters []model.Chapter) ([]byte, error) {
	meta := writeMetadata{
		Identifiers: []writeIdentifier{{Value: identifier, ID: "pub-id"}},
		Titles:      []string{orUntitled(h.meta.Title)},
		Languages:   []string{orDefault(h.meta.Language, "en")},
	}
	if h.meta.Author != "" {
		meta.Creators = strings.Split(h.meta.Author, ", ")
	}
	if h.meta.Publisher != "" {
		meta.Publishers = []string{h.meta.Publisher}
	}
	if h.meta.PubDate != "" {
		meta.Dates = []string{h.meta.PubDate}
	}
	if h.meta.Description != "" {
		meta.Descriptions = []string{h.meta.Description}
	}
	if subjects, ok := h.meta.GetCustom("epub.subject"); ok {
		meta.Subjects = strings.Split(subjects, ", ")
	}
	if rights, ok := h.meta.GetCustom("epub.rights"); ok {
		meta.Rights = []string{rights}
	}
	if h.version != "2.0" {
		meta.Metas = append(meta.Metas, writeMeta{
			Property: "dcterms:modified",
			Value:    time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	manifest := writeManifest{}
	spine := writeSpine{Toc: "ncx"}

	if h.version != "2.0" {
		manifest.Items = append(manifest.Items, writeItem{
			ID: "nav", Href: "nav.xhtml", MediaType: xhtmlMediaType, Properties: "nav",
		})
	}
	manifest.Items = append(manifest.Items, writeItem{
		ID: "ncx", Href: "toc.ncx", MediaType: ncxMediaType,
	})

	for i := range chapters {
		id := fmt.Sprintf("chapter-%03d", i+1)
		manifest.Items = append(manifest.Items, writeItem{
			ID: id, Href: "text/" + chapterHref(i), MediaType: xhtmlMediaType,
		})
		spine.ItemRefs = append(spine.ItemRefs, writeItemRef{IDRef: id})
	}

	if len(h.meta.CoverImage) > 0 {
		name := coverName(h.meta.CoverImage)
		manifest.Items = append(manifest.Items, writeItem{
			ID:         "cover-image",
			Href:       "images/" + name,
			MediaType:  model.SniffMime(name, h.meta.CoverImage),
			Properties: "cover-image",
		})
		// EPUB 2 readers find the cover through this meta element.
		meta.Metas = append(meta.Metas, writeMeta{Name: "cover", Content: "cover-image"})
	}
	for i, img := range h.images {
		manifest.Items = append(manifest.Items, writeItem{
			ID:        fmt.Sprintf("img-%03d", i+1),
			Href:      "images/" + path.Base(img.Name),
			MediaType: img.MimeType,
		})
	}

	p := writePackage{
		Xmlns:    "http://www.idpf.org/2007/opf",
		XmlnsDC:  "http://purl.org/dc/elements/1.1/",
		Version:  h.version,
		UniqueID: "pub-id",
		Metadata: meta,
		Manifest: manifest,
		Spine:    spine,
	}
	out, err := xml.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func orUntitled(s string) string {
	if s == "" {
		return "Untitled"
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
