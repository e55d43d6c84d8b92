// Package txt implements the plain-text format handler.
//
// Read and write switch to chunked streaming for files at or above 10 MB;
// below the threshold the direct whole-buffer path is used. Both paths
// produce identical content. Text is decoded by BOM detection first, then
// UTF-8 validation, then a Windows-1252 fallback that cannot fail.
package txt

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
	"github.com/foliokit/folio/streamio"
)

// headerKeys are the metadata keys recognized in a leading header block.
// The writer emits them; the reader strips them back into Metadata so that
// title and author survive a TXT round trip.
var headerKeys = []string{"Title", "Author"}

// Handler reads and writes plain text ebooks. A Handler owns the state of
// exactly one file; construct a fresh one per operation.
type Handler struct {
	meta    model.Metadata
	content string
	path    string
	loaded  bool
}

// New returns an empty handler.
func New() *Handler {
	return &Handler{}
}

// ReadFromFile reads and decodes the file, streaming when it is at or
// above the 10 MB threshold.
func (h *Handler) ReadFromFile(path string) error {
	const op = "txt.read"

	stream, err := streamio.ShouldStream(path, streamio.TxtThreshold)
	if err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}

	var data []byte
	if stream {
		data, err = streamio.ReadAll(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}

	text, err := DecodeText(data)
	if err != nil {
		return errs.Wrap(errs.KindEncoding, op, err)
	}

	h.meta = model.Metadata{Format: "TXT"}
	h.content = stripHeader(text, &h.meta)
	if h.meta.Title == "" {
		h.meta.Title = stem(path)
	}
	h.path = path
	h.loaded = true
	return nil
}

// stem returns the file name without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// stripHeader consumes a leading "Key: value" block terminated by a blank
// line, recording recognized keys into meta. Content without such a block
// is returned untouched.
func stripHeader(text string, meta *model.Metadata) string {
	rest := text
	consumed := 0
	matched := false
	for {
		line, tail, found := strings.Cut(rest, "\n")
		key, value, ok := cutHeaderLine(line)
		if !ok {
			break
		}
		switch key {
		case "Title":
			meta.Title = value
		case "Author":
			meta.Author = value
		}
		matched = true
		consumed += len(line) + 1
		rest = tail
		if !found {
			rest = ""
			break
		}
	}
	if !matched {
		return text
	}
	// The block must end with a blank line for the header to count.
	if strings.HasPrefix(rest, "\n") {
		return rest[1:]
	}
	if rest == "" {
		return ""
	}
	return text[consumed:]
}

func cutHeaderLine(line string) (key, value string, ok bool) {
	for _, k := range headerKeys {
		if v, found := strings.CutPrefix(line, k+": "); found {
			return k, strings.TrimRight(v, "\r"), true
		}
	}
	return "", "", false
}

// Metadata returns the metadata of the last read or the set state.
func (h *Handler) Metadata() (model.Metadata, error) {
	if !h.loaded {
		return model.Metadata{}, errs.New(errs.KindNotFound, "txt.metadata", "no file has been read")
	}
	return h.meta.Clone(), nil
}

// Content returns the decoded text.
func (h *Handler) Content() (string, error) {
	if !h.loaded {
		return "", errs.New(errs.KindNotFound, "txt.content", "no file has been read")
	}
	return h.content, nil
}

// TOC returns an empty list: plain text has no native navigation.
func (h *Handler) TOC() ([]model.TocEntry, error) {
	if !h.loaded {
		return nil, errs.New(errs.KindNotFound, "txt.toc", "no file has been read")
	}
	return nil, nil
}

// Images returns an empty list: plain text embeds no images.
func (h *Handler) Images() ([]model.ImageData, error) {
	if !h.loaded {
		return nil, errs.New(errs.KindNotFound, "txt.images", "no file has been read")
	}
	return nil, nil
}

// SetMetadata stores metadata for the next write.
func (h *Handler) SetMetadata(meta model.Metadata) error {
	h.meta = meta.Clone()
	h.meta.Format = "TXT"
	h.loaded = true
	return nil
}

// SetContent replaces the content for the next write.
func (h *Handler) SetContent(content string) error {
	h.content = content
	h.loaded = true
	return nil
}

// AddChapter appends a titled section to the content.
func (h *Handler) AddChapter(title, content string) error {
	var b strings.Builder
	b.WriteString(h.content)
	if h.content != "" {
		b.WriteString("\n\n")
	}
	if title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	b.WriteString(content)
	h.content = b.String()
	h.loaded = true
	return nil
}

// WriteToFile serializes the handler state, prefixing a metadata header
// when title or author are known. Files at or above the streaming
// threshold are written chunked.
func (h *Handler) WriteToFile(path string) error {
	const op = "txt.write"

	var b strings.Builder
	if h.meta.Title != "" {
		b.WriteString("Title: ")
		b.WriteString(h.meta.Title)
		b.WriteString("\n")
	}
	if h.meta.Author != "" {
		b.WriteString("Author: ")
		b.WriteString(h.meta.Author)
		b.WriteString("\n")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(h.content)
	data := []byte(b.String())

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}

	var err error
	if len(data) >= streamio.TxtThreshold {
		err = streamio.WriteAll(path, data)
	} else {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}
	h.path = path
	return nil
}

// Validate checks the file bound at read time.
func (h *Handler) Validate() (*model.Report, error) {
	if h.path == "" {
		return nil, errs.New(errs.KindNotFound, "txt.validate", "handler is not bound to a file")
	}
	return ValidateFile(h.path)
}

// Repair repairs the file bound at read time, in place.
func (h *Handler) Repair() error {
	if h.path == "" {
		return errs.New(errs.KindNotFound, "txt.repair", "handler is not bound to a file")
	}
	return RepairFile(h.path, h.path)
}
