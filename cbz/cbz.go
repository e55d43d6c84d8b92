// Package cbz reads and writes comic book archives: ZIP files of page
// images with an optional ComicInfo.xml metadata sidecar. Pages order
// naturally by filename, with digit runs compared numerically.
package cbz

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/imaging"
	"github.com/foliokit/folio/model"
	"github.com/foliokit/folio/ocr"
)

// Handler holds the in-memory representation of a single comic archive.
type Handler struct {
	meta      model.Metadata
	images    []model.ImageData
	comicInfo *ComicInfo
	path      string
	loaded    bool
}

// New returns an empty handler ready for ReadFromFile or the setters.
func New() *Handler {
	return &Handler{}
}

// ReadFromFile opens the archive at path, reads ComicInfo.xml when
// present and collects every page image in natural order.
func (h *Handler) ReadFromFile(path string) error {
	const op = "cbz.read"

	archive, err := zip.OpenReader(path)
	if err != nil {
		return errs.Wrap(errs.KindContainer, op, err).WithPath(path)
	}
	defer archive.Close()

	h.meta = model.Metadata{}
	h.images = nil
	h.comicInfo = nil

	for _, entry := range archive.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		data, err := readZipEntry(entry)
		if err != nil {
			return errs.Wrap(errs.KindContainer, op, err).WithPath(path)
		}

		if filepath.Base(entry.Name) == comicInfoName {
			if ci, err := parseComicInfo(data); err == nil {
				h.comicInfo = ci
				h.meta = ci.metadata()
			}
			continue
		}
		if !isImageName(entry.Name) {
			continue
		}
		h.images = append(h.images, model.ImageData{
			Name:     entry.Name,
			MimeType: model.SniffMime(entry.Name, data),
			Data:     data,
		})
	}

	sort.SliceStable(h.images, func(i, j int) bool {
		return naturalLess(h.images[i].Name, h.images[j].Name)
	})

	if h.meta.Title == "" {
		h.meta.Title = stem(path)
	}
	h.meta.Format = "CBZ"
	if h.comicInfo != nil {
		h.comicInfo.PageCount = len(h.images)
	}
	h.path = path
	h.loaded = true
	return nil
}

func readZipEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func isImageName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Metadata returns the parsed or set metadata.
func (h *Handler) Metadata() (model.Metadata, error) {
	if !h.loaded {
		return model.Metadata{}, errs.New(errs.KindNotFound, "cbz.metadata", "no archive loaded")
	}
	return h.meta.Clone(), nil
}

// Content returns text recognized from the pages when OCR support is
// compiled in, otherwise a one-line page count summary.
func (h *Handler) Content() (string, error) {
	if !h.loaded {
		return "", errs.New(errs.KindNotFound, "cbz.content", "no archive loaded")
	}

	reader, err := ocr.NewPageReader()
	if err != nil {
		if errors.Is(err, ocr.ErrNotEnabled) {
			return fmt.Sprintf("CBZ archive with %d images", len(h.images)), nil
		}
		return "", errs.Wrap(errs.KindUnsupportedOp, "cbz.content", err)
	}
	defer reader.Close()

	var pages []string
	for _, img := range h.images {
		text, err := reader.PageText(img.Data)
		if err != nil || text == "" {
			continue
		}
		pages = append(pages, text)
	}
	if len(pages) == 0 {
		return fmt.Sprintf("CBZ archive with %d images", len(h.images)), nil
	}
	return strings.Join(pages, "\n\n"), nil
}

// TOC reports no entries; comic archives carry no navigation structure.
func (h *Handler) TOC() ([]model.TocEntry, error) {
	if !h.loaded {
		return nil, errs.New(errs.KindNotFound, "cbz.toc", "no archive loaded")
	}
	return nil, nil
}

// Images returns the page images in reading order.
func (h *Handler) Images() ([]model.ImageData, error) {
	if !h.loaded {
		return nil, errs.New(errs.KindNotFound, "cbz.images", "no archive loaded")
	}
	out := make([]model.ImageData, len(h.images))
	copy(out, h.images)
	return out, nil
}

// SetMetadata replaces the handler metadata.
func (h *Handler) SetMetadata(meta model.Metadata) error {
	h.meta = meta
	h.meta.Format = "CBZ"
	h.loaded = true
	return nil
}

// SetContent is accepted but has no representation in the archive.
func (h *Handler) SetContent(content string) error {
	h.loaded = true
	return nil
}

// AddChapter is accepted but has no representation in the archive.
func (h *Handler) AddChapter(title, content string) error {
	h.loaded = true
	return nil
}

// AddImage appends a page. Duplicate names are rejected; the archive
// cannot hold two entries at the same path.
func (h *Handler) AddImage(name string, data []byte) error {
	for _, img := range h.images {
		if img.Name == name {
			return errs.Newf(errs.KindImage, "cbz.addImage", "duplicate image name %q", name)
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

// OptimizeImages recompresses every page with the given options and
// returns the total bytes saved. Pages that fail to optimize or would
// grow are left untouched.
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
	return saved, nil
}

// WriteToFile packs ComicInfo.xml and the pages, in their current order,
// into a new archive at path.
func (h *Handler) WriteToFile(path string) error {
	const op = "cbz.write"

	var buf bytes.Buffer
	if err := h.writeArchive(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errs.Wrap(errs.KindIO, op, err).WithPath(path)
	}
	h.path = path
	return nil
}

func (h *Handler) writeArchive(w io.Writer) error {
	const op = "cbz.write"

	zw := zip.NewWriter(w)

	ci := h.comicInfo
	if ci == nil {
		ci = comicInfoFromMetadata(h.meta)
	}
	ci.PageCount = len(h.images)

	xmlData, err := ci.marshal()
	if err != nil {
		return errs.Wrap(errs.KindEncoding, op, err)
	}
	entry, err := zw.Create(comicInfoName)
	if err != nil {
		return errs.Wrap(errs.KindContainer, op, err)
	}
	if _, err := entry.Write(xmlData); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}

	for _, img := range h.images {
		entry, err := zw.Create(img.Name)
		if err != nil {
			return errs.Wrap(errs.KindContainer, op, err)
		}
		if _, err := entry.Write(img.Data); err != nil {
			return errs.Wrap(errs.KindIO, op, err)
		}
	}
	if err := zw.Close(); err != nil {
		return errs.Wrap(errs.KindContainer, op, err)
	}
	return nil
}

// Validate checks the file bound at read time.
func (h *Handler) Validate() (*model.Report, error) {
	if h.path == "" {
		return nil, errs.New(errs.KindNotFound, "cbz.validate", "no file bound")
	}
	return ValidateFile(h.path)
}

// Repair repairs the file bound at read time in place.
func (h *Handler) Repair() error {
	if h.path == "" {
		return errs.New(errs.KindNotFound, "cbz.repair", "no file bound")
	}
	return RepairFile(h.path, h.path)
}
