package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/model"
	"github.com/foliokit/folio/repairio"
)

// ValidateFile checks the publication at path: ZIP integrity, the
// mimetype entry (present, first, stored, correct value), a resolvable
// container.xml and package document, manifest completeness and a
// non-empty spine. Malformed input produces report issues, not errors.
func ValidateFile(filePath string) (*model.Report, error) {
	const op = "epub.validate"

	report := &model.Report{Path: filePath, Format: "EPUB"}

	archive, err := zip.OpenReader(filePath)
	if err != nil {
		report.Add("epub.zip", "file is not a readable ZIP: "+err.Error())
		return report, nil
	}
	defer archive.Close()
	zr := &archive.Reader

	checkMimetype(zr, report)

	opfPath, err := parseContainer(zr)
	if err != nil {
		report.Add("epub.container", err.Error())
		return report, nil
	}

	p, baseDir, err := parseOPF(zr, opfPath)
	if err != nil {
		report.Add("epub.opf", err.Error())
		return report, nil
	}
	if len(p.Spine) == 0 {
		report.Add("epub.spine", "spine has no content")
	}
	for _, item := range p.Manifest {
		name := resolveHref(baseDir, item.Href)
		if findEntry(zr, name) == nil {
			report.Add("epub.manifest", "manifest references missing entry "+name)
		}
	}
	return report, nil
}

func checkMimetype(zr *zip.Reader, report *model.Report) {
	if len(zr.File) == 0 {
		report.Add("epub.mimetype", "archive is empty")
		return
	}
	var entry *zip.File
	for i, f := range zr.File {
		if f.Name == mimetypeName {
			entry = f
			if i != 0 {
				report.Add("epub.mimetype", "mimetype is not the first entry")
			}
			if f.Method != zip.Store {
				report.Add("epub.mimetype", "mimetype entry is compressed")
			}
			break
		}
	}
	if entry == nil {
		report.Add("epub.mimetype", "mimetype entry is missing")
		return
	}
	data, err := readEntry(entry)
	if err != nil || strings.TrimSpace(string(data)) != mimetypeValue {
		report.Add("epub.mimetype", "mimetype entry does not declare application/epub+zip")
	}
}

// RepairFile rewrites the publication at src to dst: the mimetype entry
// is re-added first and uncompressed, a missing container.xml is rebuilt
// around the first package document found in the archive, and manifest
// entries are reconstructed for archive files the package document does
// not declare. A valid source is copied byte for byte (no-op when
// src == dst).
func RepairFile(src, dst string) error {
	const op = "epub.repair"

	report, err := ValidateFile(src)
	if err != nil {
		return err
	}
	if report.Valid() {
		return repairio.CopyIfDistinct(src, dst)
	}

	archive, err := zip.OpenReader(src)
	if err != nil {
		return errs.Wrap(errs.KindContainer, op, err).WithPath(src).
			WithHint("the ZIP container itself is unreadable; repair needs at least an intact archive")
	}
	defer archive.Close()
	zr := &archive.Reader

	entries := make(map[string][]byte)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || f.Name == mimetypeName {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			continue
		}
		entries[f.Name] = data
	}

	opfPath, err := parseContainer(zr)
	if err != nil {
		opfPath = findOPFPath(entries)
		if opfPath == "" {
			return errs.New(errs.KindContainer, op, "no package document in archive").WithPath(src)
		}
		container, cerr := containerFor(opfPath)
		if cerr != nil {
			return errs.Wrap(errs.KindEncoding, op, cerr)
		}
		entries[containerName] = container
	}

	if opfData, ok := entries[opfPath]; ok {
		if fixed, changed := reconcileManifest(opfData, opfPath, entries); changed {
			entries[opfPath] = fixed
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: mimetypeName, Method: zip.Store})
	if err != nil {
		return errs.Wrap(errs.KindContainer, op, err)
	}
	if _, err := mt.Write([]byte(mimetypeValue)); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}

	// container.xml goes next, then the rest in stable order.
	if data, ok := entries[containerName]; ok {
		if err := addDeflated(zw, containerName, data); err != nil {
			return errs.Wrap(errs.KindContainer, op, err)
		}
		delete(entries, containerName)
	}
	for _, name := range sortedKeys(entries) {
		if err := addDeflated(zw, name, entries[name]); err != nil {
			return errs.Wrap(errs.KindContainer, op, err)
		}
	}
	if err := zw.Close(); err != nil {
		return errs.Wrap(errs.KindContainer, op, err)
	}

	if err := repairio.WriteAtomic(dst, buf.Bytes()); err != nil {
		return errs.Wrap(errs.KindIO, op, err).WithPath(dst)
	}
	return nil
}

func findOPFPath(entries map[string][]byte) string {
	for _, name := range sortedKeys(entries) {
		if strings.HasSuffix(strings.ToLower(name), ".opf") {
			return name
		}
	}
	return ""
}

// reconcileManifest adds manifest items for archive files the package
// document does not declare. New items are spliced in before the closing
// manifest tag so the rest of the document keeps its exact bytes.
func reconcileManifest(opfData []byte, opfPath string, entries map[string][]byte) ([]byte, bool) {
	var opf opfPackage
	if err := xml.Unmarshal(opfData, &opf); err != nil {
		return opfData, false
	}

	baseDir := path.Dir(opfPath)
	if baseDir == "." {
		baseDir = ""
	}

	declared := make(map[string]bool, len(opf.Manifest.Items))
	for _, item := range opf.Manifest.Items {
		declared[resolveHref(baseDir, item.Href)] = true
	}

	var added strings.Builder
	n := 0
	for _, name := range sortedKeys(entries) {
		if name == opfPath || name == containerName || declared[name] {
			continue
		}
		if strings.HasPrefix(name, "META-INF/") {
			continue
		}
		mediaType := mediaTypeForName(name)
		if mediaType == "" {
			continue
		}
		href := name
		if baseDir != "" {
			if rel, ok := strings.CutPrefix(name, baseDir+"/"); ok {
				href = rel
			}
		}
		n++
		added.WriteString("<item id=\"recovered-" + strconv.Itoa(n) +
			"\" href=\"" + escapeXML(href) + "\" media-type=\"" + mediaType + "\"/>\n")
	}
	if n == 0 {
		return opfData, false
	}

	idx := bytes.Index(opfData, []byte("</manifest>"))
	if idx < 0 {
		return opfData, false
	}
	var out bytes.Buffer
	out.Write(opfData[:idx])
	out.WriteString(added.String())
	out.Write(opfData[idx:])
	return out.Bytes(), true
}

func mediaTypeForName(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".xhtml", ".html", ".htm":
		return xhtmlMediaType
	case ".ncx":
		return ncxMediaType
	case ".css":
		return "text/css"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	case ".ttf", ".otf":
		return "font/otf"
	default:
		return ""
	}
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
