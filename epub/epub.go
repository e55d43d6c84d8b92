// Package epub reads and writes EPUB publications, versions 2 and 3.
//
// The read path follows the container chain: the mimetype entry, then
// META-INF/container.xml to locate the package document, then manifest,
// spine and Dublin Core metadata. Navigation comes from the EPUB 3 nav
// document when declared, falling back to the EPUB 2 NCX. DRM-protected
// files are rejected before any content parsing; font obfuscation is not
// treated as DRM.
package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/imaging"
	"github.com/foliokit/folio/model"
	"github.com/foliokit/folio/streamio"
)

// Handler holds the in-memory representation of a single publication.
// Construct one per file operation; instances are not safe for sharing.
type Handler struct {
	meta     model.Metadata
	chapters []model.Chapter
	images   []model.ImageData
	toc      []model.TocEntry
	version  string
	stream   bool
	path     string
	loaded   bool
}

// New returns an empty handler that writes EPUB 3 by default.
func New() *Handler {
	return &Handler{version: "3.0"}
}

// SetVersion selects the package version emitted by WriteToFile:
// "2.0" writes an NCX only, "3.0" writes a nav document plus an NCX for
// older readers.
func (h *Handler) SetVersion(version string) error {
	switch version {
	case "2.0", "3.0":
		h.version = version
		return nil
	}
	return errs.Newf(errs.KindInvalidMetadata, "epub.version", "unsupported EPUB version %q", version)
}

// ReadFromFile parses the publication at path into the handler.
func (h *Handler) ReadFromFile(path string) error {
	const op = "epub.read"

	if stream, err := streamio.ShouldStream(path, streamio.EpubThreshold); err == nil {
		h.stream = stream
	}

	archive, err := zip.OpenReader(path)
	if err != nil {
		return errs.Wrap(errs.KindContainer, op, err).WithPath(path)
	}
	defer archive.Close()
	zr := &archive.Reader

	// A wrong or missing mimetype entry is tolerated on read; many
	// real files get it wrong and validation reports it instead.
	if hasDRM(zr) {
		return errs.New(errs.KindUnsupportedOp, op, "publication is DRM-protected").
			WithPath(path).
			WithHint("DRM-protected books cannot be read; remove protection with the vendor's tools first")
	}

	opfPath, err := parseContainer(zr)
	if err != nil {
		return errs.Wrap(errs.KindContainer, op, err).WithPath(path)
	}
	p, baseDir, err := parseOPF(zr, opfPath)
	if err != nil {
		return errs.Wrap(errs.KindParse, op, err).WithPath(path)
	}
	if len(p.Spine) == 0 {
		return errs.New(errs.KindInvalidStructure, op, "spine has no content").WithPath(path)
	}

	h.meta = p.metadata()
	if v := strings.TrimSpace(p.Version); v != "" {
		h.version = v
	}

	h.loadChapters(zr, p, baseDir)
	h.loadImages(zr, p, baseDir)
	h.loadCover(zr, p, baseDir)
	h.toc = h.parseNavigation(zr, p, baseDir)

	if len(h.chapters) == 0 {
		return errs.New(errs.KindInvalidStructure, op, "no readable content documents").WithPath(path)
	}
	h.path = path
	h.loaded = true
	return nil
}

func (h *Handler) loadChapters(zr *zip.Reader, p *pkg, baseDir string) {
	h.chapters = nil
	for i, idref := range p.Spine {
		item, ok := p.Manifest[idref]
		if !ok {
			continue
		}
		content, err := h.readArchiveFile(zr, resolveHref(baseDir, item.Href))
		if err != nil {
			continue
		}
		h.chapters = append(h.chapters, model.Chapter{
			Title:    titleFromXHTML(content),
			Content:  textFromXHTML(content),
			Position: i,
		})
	}
}

func (h *Handler) loadImages(zr *zip.Reader, p *pkg, baseDir string) {
	h.images = nil
	for _, item := range p.Manifest {
		if !strings.HasPrefix(item.MediaType, "image/") {
			continue
		}
		data, err := h.readArchiveFile(zr, resolveHref(baseDir, item.Href))
		if err != nil {
			continue
		}
		// Bare names, not archive paths: the writer lays images out
		// under its own images/ directory, so a read/write cycle (or a
		// conversion) must not accumulate path prefixes.
		h.images = append(h.images, model.ImageData{
			Name:     path.Base(item.Href),
			MimeType: item.MediaType,
			Data:     data,
		})
	}
}

func (h *Handler) loadCover(zr *zip.Reader, p *pkg, baseDir string) {
	id := p.coverID()
	if id == "" {
		return
	}
	item, ok := p.Manifest[id]
	if !ok {
		return
	}
	data, err := h.readArchiveFile(zr, resolveHref(baseDir, item.Href))
	if err != nil {
		return
	}
	h.meta.CoverImage = data
}

// readArchiveFile reads a named entry. Above the streaming threshold the
// copy runs in bounded chunks instead of a single read.
func (h *Handler) readArchiveFile(zr *zip.Reader, name string) ([]byte, error) {
	f := findEntry(zr, name)
	if f == nil {
		return nil, fmt.Errorf("entry %s not found", name)
	}
	if !h.stream {
		return readEntry(f)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := streamio.Copy(&buf, rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resolveHref(baseDir, href string) string {
	href = strings.TrimPrefix(href, "./")
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if baseDir == "" {
		return href
	}
	return path.Join(baseDir, href)
}

// Metadata returns the parsed or set metadata.
func (h *Handler) Metadata() (model.Metadata, error) {
	if !h.loaded {
		return model.Metadata{}, errs.New(errs.KindNotFound, "epub.metadata", "no publication loaded")
	}
	return h.meta.Clone(), nil
}

// Content returns the text of every spine document in reading order.
func (h *Handler) Content() (string, error) {
	if !h.loaded {
		return "", errs.New(errs.KindNotFound, "epub.content", "no publication loaded")
	}
	var parts []string
	for _, ch := range h.chapters {
		if s := strings.TrimSpace(ch.Content); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// TOC returns the navigation tree.
func (h *Handler) TOC() ([]model.TocEntry, error) {
	if !h.loaded {
		return nil, errs.New(errs.KindNotFound, "epub.toc", "no publication loaded")
	}
	return h.toc, nil
}

// Images returns every manifest entry with an image media type.
func (h *Handler) Images() ([]model.ImageData, error) {
	if !h.loaded {
		return nil, errs.New(errs.KindNotFound, "epub.images", "no publication loaded")
	}
	out := make([]model.ImageData, len(h.images))
	copy(out, h.images)
	return out, nil
}

// SetMetadata replaces the handler metadata.
func (h *Handler) SetMetadata(meta model.Metadata) error {
	h.meta = meta
	h.meta.Format = "EPUB"
	h.loaded = true
	return nil
}

// SetContent replaces all chapters with a single untitled one.
func (h *Handler) SetContent(content string) error {
	h.chapters = []model.Chapter{{Content: content, Position: 0}}
	h.toc = nil
	h.loaded = true
	return nil
}

// AddChapter appends a chapter to the spine.
func (h *Handler) AddChapter(title, content string) error {
	h.chapters = append(h.chapters, model.Chapter{
		Title:    title,
		Content:  content,
		Position: len(h.chapters),
	})
	h.loaded = true
	return nil
}

// AddImage adds an image resource. Duplicate names are rejected.
func (h *Handler) AddImage(name string, data []byte) error {
	for _, img := range h.images {
		if img.Name == name {
			return errs.Newf(errs.KindImage, "epub.addImage", "duplicate image name %q", name)
		}
	}
	h.images = append(h.images, model.ImageData{
		Name:     name,
		MimeType: model.SniffMime(name, data),
		Data:     data,
	})
	h.loaded = true
	return nil
}

// OptimizeImages recompresses every manifest image and the cover with
// the given options and returns the total bytes saved. Images that fail
// to optimize or would grow are left untouched.
func (h *Handler) OptimizeImages(opts imaging.Options) (int, error) {
	saved := 0
	for i := range h.images {
		out, mime, err := imaging.Optimize(h.images[i].Data, h.images[i].MimeType, opts)
		if err != nil {
			continue
		}
		if len(out) < len(h.images[i].Data) {
			saved += len(h.images[i].Data) - len(out)
			h.images[i].Data = out
			h.images[i].MimeType = mime
		}
	}
	if h.meta.CoverImage != nil {
		mime := model.SniffMime("cover", h.meta.CoverImage)
		out, _, err := imaging.Optimize(h.meta.CoverImage, mime, opts)
		if err == nil && len(out) < len(h.meta.CoverImage) {
			saved += len(h.meta.CoverImage) - len(out)
			h.meta.CoverImage = out
		}
	}
	return saved, nil
}

// SetTOC replaces the navigation tree emitted on write.
func (h *Handler) SetTOC(entries []model.TocEntry) error {
	h.toc = entries
	return nil
}

// Validate checks the file bound at read time.
func (h *Handler) Validate() (*model.Report, error) {
	if h.path == "" {
		return nil, errs.New(errs.KindNotFound, "epub.validate", "no file bound")
	}
	return ValidateFile(h.path)
}

// Repair repairs the file bound at read time in place.
func (h *Handler) Repair() error {
	if h.path == "" {
		return errs.New(errs.KindNotFound, "epub.repair", "no file bound")
	}
	return RepairFile(h.path, h.path)
}
