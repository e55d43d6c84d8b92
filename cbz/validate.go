package cbz

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
	"github.com/foliokit/folio/repairio"
)

// ValidateFile checks the archive at path: ZIP integrity, at least one
// page image, and a well-formed ComicInfo.xml when one is present.
func ValidateFile(path string) (*model.Report, error) {
	const op = "cbz.validate"

	report := &model.Report{Path: path, Format: "CBZ"}

	archive, err := zip.OpenReader(path)
	if err != nil {
		if _, serr := os.Stat(path); serr != nil {
			return nil, errs.Wrap(errs.KindIO, op, serr).WithPath(path)
		}
		report.Add("cbz.zip", "archive is not a readable ZIP: "+err.Error())
		return report, nil
	}
	defer archive.Close()

	pages := 0
	for _, entry := range archive.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		data, err := readZipEntry(entry)
		if err != nil {
			report.Add("cbz.entry", "entry "+entry.Name+" is corrupt: "+err.Error())
			continue
		}
		if filepath.Base(entry.Name) == comicInfoName {
			if _, err := parseComicInfo(data); err != nil {
				report.Add("cbz.comicinfo", "ComicInfo.xml is malformed: "+err.Error())
			}
			continue
		}
		if isImageName(entry.Name) {
			pages++
		}
	}
	if pages == 0 {
		report.Add("cbz.pages", "archive contains no page images")
	}
	return report, nil
}

// RepairFile rewrites the archive at src to dst. A ZIP with a damaged or
// truncated central directory is salvaged by scanning for local file
// headers; readable archives with lesser defects are repacked. A valid
// source is copied byte for byte (no-op when src == dst).
func RepairFile(src, dst string) error {
	const op = "cbz.repair"

	report, err := ValidateFile(src)
	if err != nil {
		return err
	}
	if report.Valid() {
		return repairio.CopyIfDistinct(src, dst)
	}

	h := New()
	if err := h.ReadFromFile(src); err != nil {
		data, rerr := os.ReadFile(src)
		if rerr != nil {
			return errs.Wrap(errs.KindIO, op, rerr).WithPath(src)
		}
		entries := salvageEntries(data)
		if len(entries) == 0 {
			return errs.New(errs.KindContainer, op, "no recoverable entries in archive").WithPath(src)
		}
		h = New()
		for _, e := range entries {
			if filepath.Base(e.name) == comicInfoName {
				if ci, perr := parseComicInfo(e.data); perr == nil {
					h.comicInfo = ci
					h.meta = ci.metadata()
				}
				continue
			}
			if isImageName(e.name) {
				_ = h.AddImage(e.name, e.data)
			}
		}
		if h.meta.Title == "" {
			h.meta.Title = stem(src)
		}
		h.meta.Format = "CBZ"
		h.loaded = true
	}
	if h.meta.Title == "" {
		h.meta.Title = stem(src)
	}

	var buf bytes.Buffer
	if err := h.writeArchive(&buf); err != nil {
		return err
	}
	if err := repairio.WriteAtomic(dst, buf.Bytes()); err != nil {
		return errs.Wrap(errs.KindIO, op, err).WithPath(dst)
	}
	return nil
}

type salvagedEntry struct {
	name string
	data []byte
}

const localHeaderSig = 0x04034b50

// salvageEntries scans raw archive bytes for local file headers,
// recovering entries even when the central directory is truncated or
// missing. Entries whose sizes live only in a trailing data descriptor
// are recovered by decompressing the deflate stream directly.
func salvageEntries(data []byte) []salvagedEntry {
	var out []salvagedEntry
	pos := 0
	for {
		idx := bytes.Index(data[pos:], []byte{'P', 'K', 0x03, 0x04})
		if idx < 0 {
			break
		}
		pos += idx
		entry, next, ok := parseLocalEntry(data, pos)
		if !ok {
			pos += 4
			continue
		}
		if entry.name != "" {
			out = append(out, entry)
		}
		pos = next
	}
	return out
}

func parseLocalEntry(data []byte, pos int) (entry salvagedEntry, next int, ok bool) {
	// Local header: sig(4) ver(2) flags(2) method(2) time(2) date(2)
	// crc(4) csize(4) usize(4) namelen(2) extralen(2).
	const headerLen = 30
	if pos+headerLen > len(data) {
		return entry, 0, false
	}
	if binary.LittleEndian.Uint32(data[pos:]) != localHeaderSig {
		return entry, 0, false
	}
	flags := binary.LittleEndian.Uint16(data[pos+6:])
	method := binary.LittleEndian.Uint16(data[pos+8:])
	csize := int(binary.LittleEndian.Uint32(data[pos+18:]))
	nameLen := int(binary.LittleEndian.Uint16(data[pos+26:]))
	extraLen := int(binary.LittleEndian.Uint16(data[pos+28:]))

	dataStart := pos + headerLen + nameLen + extraLen
	if dataStart > len(data) || pos+headerLen+nameLen > len(data) {
		return entry, 0, false
	}
	entry.name = string(data[pos+headerLen : pos+headerLen+nameLen])

	streaming := flags&0x08 != 0
	switch {
	case method == 0 && !streaming:
		if dataStart+csize > len(data) {
			csize = len(data) - dataStart
		}
		entry.data = append([]byte(nil), data[dataStart:dataStart+csize]...)
		return entry, dataStart + csize, true
	case method == 8:
		end := dataStart + csize
		if streaming || end > len(data) {
			end = len(data)
		}
		fr := flate.NewReader(bytes.NewReader(data[dataStart:end]))
		decoded, err := io.ReadAll(fr)
		fr.Close()
		if err != nil && len(decoded) == 0 {
			return entry, 0, false
		}
		entry.data = decoded
		if streaming {
			// Resume scanning right after the header; the next
			// signature search skips the consumed stream.
			return entry, dataStart, true
		}
		return entry, dataStart + csize, true
	default:
		return entry, 0, false
	}
}
