package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"github.com/foliokit/folio/model"
)

// opfPackage represents the OPF package document for parsing.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	Title       []dcElement `xml:"title"`
	Creator     []dcElement `xml:"creator"`
	Language    []dcElement `xml:"language"`
	Identifier  []dcElement `xml:"identifier"`
	Publisher   []dcElement `xml:"publisher"`
	Date        []dcElement `xml:"date"`
	Description []dcElement `xml:"description"`
	Subject     []dcElement `xml:"subject"`
	Rights      []dcElement `xml:"rights"`
	Meta        []opfMeta   `xml:"meta"`
}

type dcElement struct {
	ID      string `xml:"id,attr"`
	Scheme  string `xml:"scheme,attr"`
	Content string `xml:",chardata"`
}

type opfMeta struct {
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
	Name     string `xml:"name,attr"`    // EPUB 2 style
	Content  string `xml:"content,attr"` // EPUB 2 style
	Value    string `xml:",chardata"`    // EPUB 3 style
}

type opfManifest struct {
	Items []opfItem `xml:"item"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfSpine struct {
	Toc      string       `xml:"toc,attr"` // NCX ID for EPUB 2
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// manifestItem is a resolved manifest entry.
type manifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

func (m manifestItem) hasProperty(p string) bool {
	for _, prop := range m.Properties {
		if prop == p {
			return true
		}
	}
	return false
}

// pkg holds the parsed package document.
type pkg struct {
	Version  string
	Meta     opfMetadata
	Manifest map[string]manifestItem
	Spine    []string // manifest IDs in reading order
	NcxID    string
}

func parseOPF(zr *zip.Reader, opfPath string) (*pkg, string, error) {
	opfFile := findEntry(zr, opfPath)
	if opfFile == nil {
		return nil, "", fmt.Errorf("missing package document %s", opfPath)
	}

	baseDir := path.Dir(opfPath)
	if baseDir == "." {
		baseDir = ""
	}

	data, err := readEntry(opfFile)
	if err != nil {
		return nil, "", err
	}

	var opf opfPackage
	if err := xml.Unmarshal(data, &opf); err != nil {
		return nil, "", fmt.Errorf("invalid package document: %w", err)
	}

	p := &pkg{
		Version:  opf.Version,
		Meta:     opf.Metadata,
		Manifest: make(map[string]manifestItem, len(opf.Manifest.Items)),
		NcxID:    opf.Spine.Toc,
	}
	for _, item := range opf.Manifest.Items {
		mi := manifestItem{ID: item.ID, Href: item.Href, MediaType: item.MediaType}
		if item.Properties != "" {
			mi.Properties = strings.Fields(item.Properties)
		}
		p.Manifest[item.ID] = mi
	}
	for _, ref := range opf.Spine.ItemRefs {
		if ref.Linear != "no" {
			p.Spine = append(p.Spine, ref.IDRef)
		}
	}
	return p, baseDir, nil
}

// metadata converts the Dublin Core block to the shared model. First
// elements win where the model holds a single value; extras land in
// custom fields so nothing is invented and nothing first-class is lost.
func (p *pkg) metadata() model.Metadata {
	var meta model.Metadata
	m := p.Meta

	first := func(els []dcElement) string {
		if len(els) > 0 {
			return strings.TrimSpace(els[0].Content)
		}
		return ""
	}

	meta.Title = first(m.Title)
	var creators []string
	for _, c := range m.Creator {
		if s := strings.TrimSpace(c.Content); s != "" {
			creators = append(creators, s)
		}
	}
	meta.Author = strings.Join(creators, ", ")
	meta.Language = first(m.Language)
	meta.Publisher = first(m.Publisher)
	meta.PubDate = first(m.Date)
	meta.Description = first(m.Description)

	for _, id := range m.Identifier {
		v := strings.TrimSpace(id.Content)
		if v == "" {
			continue
		}
		if isbn, ok := asISBN(v, id.Scheme); ok && meta.ISBN == "" {
			meta.ISBN = isbn
		} else if _, exists := meta.GetCustom("epub.identifier"); !exists {
			meta.SetCustom("epub.identifier", v)
		}
	}

	var subjects []string
	for _, s := range m.Subject {
		if v := strings.TrimSpace(s.Content); v != "" {
			subjects = append(subjects, v)
		}
	}
	if len(subjects) > 0 {
		meta.SetCustom("epub.subject", strings.Join(subjects, ", "))
	}
	if rights := first(m.Rights); rights != "" {
		meta.SetCustom("epub.rights", rights)
	}
	meta.Format = "EPUB"
	return meta
}

// asISBN recognizes urn:isbn: identifiers, explicit ISBN schemes, and
// bare 10/13-digit forms with optional dashes.
func asISBN(value, scheme string) (string, bool) {
	if strings.EqualFold(scheme, "ISBN") {
		return strings.TrimPrefix(strings.ToLower(value), "urn:isbn:"), true
	}
	lower := strings.ToLower(value)
	if rest, ok := strings.CutPrefix(lower, "urn:isbn:"); ok {
		return rest, true
	}
	digits := strings.ReplaceAll(value, "-", "")
	if len(digits) != 10 && len(digits) != 13 {
		return "", false
	}
	for i, r := range digits {
		if r >= '0' && r <= '9' {
			continue
		}
		// ISBN-10 check digit may be X.
		if len(digits) == 10 && i == 9 && (r == 'X' || r == 'x') {
			continue
		}
		return "", false
	}
	return value, true
}

// coverID returns the manifest ID of the cover image, from an EPUB 3
// cover-image property or an EPUB 2 <meta name="cover"> element.
func (p *pkg) coverID() string {
	for id, item := range p.Manifest {
		if item.hasProperty("cover-image") {
			return id
		}
	}
	for _, m := range p.Meta.Meta {
		if m.Name == "cover" && m.Content != "" {
			return m.Content
		}
	}
	return ""
}

// navItem returns the EPUB 3 nav document manifest entry, if any.
func (p *pkg) navItem() (manifestItem, bool) {
	for _, item := range p.Manifest {
		if item.hasProperty("nav") {
			return item, true
		}
	}
	return manifestItem{}, false
}

// ncxItem returns the EPUB 2 NCX manifest entry, if any.
func (p *pkg) ncxItem() (manifestItem, bool) {
	if p.NcxID != "" {
		if item, ok := p.Manifest[p.NcxID]; ok {
			return item, true
		}
	}
	for _, item := range p.Manifest {
		if item.MediaType == ncxMediaType {
			return item, true
		}
	}
	return manifestItem{}, false
}
