package fb2

import (
	"encoding/xml"
	"strings"

	"github.com/foliokit/folio/model"
)

type document struct {
	XMLName     xml.Name
	Xmlns       string      `xml:"xmlns,attr,omitempty"`
	Description description `xml:"description"`
	Bodies      []body      `xml:"body"`
}

type body struct {
	Name     string    `xml:"name,attr,omitempty"`
	Sections []section `xml:"section"`
}

type section struct {
	ID       string        `xml:"id,attr,omitempty"`
	Title    *sectionTitle `xml:"title,omitempty"`
	Paras    []para        `xml:"p"`
	Sections []section     `xml:"section"`
}

type sectionTitle struct {
	Paras []para `xml:"p"`
}

// para flattens a paragraph to its text. Inline markup such as
// <emphasis> or <strong> is dropped but its character data is kept.
type para struct {
	Text string `xml:",chardata"`
}

func (p *para) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}
	p.Text = b.String()
	return nil
}

func (s section) titleText() string {
	if s.Title == nil {
		return ""
	}
	var parts []string
	for _, p := range s.Title.Paras {
		if t := strings.TrimSpace(p.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (s section) appendText(parts *[]string) {
	if t := s.titleText(); t != "" {
		*parts = append(*parts, t)
	}
	var lines []string
	for _, p := range s.Paras {
		if t := strings.TrimSpace(p.Text); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) > 0 {
		*parts = append(*parts, strings.Join(lines, "\n"))
	}
	for _, child := range s.Sections {
		child.appendText(parts)
	}
}

type description struct {
	TitleInfo   titleInfo    `xml:"title-info"`
	PublishInfo *publishInfo `xml:"publish-info,omitempty"`
}

type titleInfo struct {
	Genres     []string    `xml:"genre,omitempty"`
	Authors    []author    `xml:"author,omitempty"`
	BookTitle  string      `xml:"book-title,omitempty"`
	Annotation *annotation `xml:"annotation,omitempty"`
	Date       string      `xml:"date,omitempty"`
	Lang       string      `xml:"lang,omitempty"`
}

type author struct {
	FirstName  string `xml:"first-name,omitempty"`
	MiddleName string `xml:"middle-name,omitempty"`
	LastName   string `xml:"last-name,omitempty"`
	Nickname   string `xml:"nickname,omitempty"`
}

func (a author) displayName() string {
	var parts []string
	for _, p := range []string{a.FirstName, a.MiddleName, a.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 && a.Nickname != "" {
		return strings.TrimSpace(a.Nickname)
	}
	return strings.Join(parts, " ")
}

type annotation struct {
	Paras []para `xml:"p"`
}

type publishInfo struct {
	Publisher string `xml:"publisher,omitempty"`
	Year      string `xml:"year,omitempty"`
	ISBN      string `xml:"isbn,omitempty"`
}

func (d description) metadata() model.Metadata {
	var meta model.Metadata
	ti := d.TitleInfo

	meta.Title = strings.TrimSpace(ti.BookTitle)
	var authors []string
	for _, a := range ti.Authors {
		if name := a.displayName(); name != "" {
			authors = append(authors, name)
		}
	}
	meta.Author = strings.Join(authors, ", ")
	meta.Language = strings.TrimSpace(ti.Lang)
	meta.PubDate = strings.TrimSpace(ti.Date)
	if ti.Annotation != nil {
		var lines []string
		for _, p := range ti.Annotation.Paras {
			if t := strings.TrimSpace(p.Text); t != "" {
				lines = append(lines, t)
			}
		}
		meta.Description = strings.Join(lines, "\n")
	}
	if len(ti.Genres) > 0 {
		meta.SetCustom("fb2.genre", strings.Join(ti.Genres, ","))
	}

	if pi := d.PublishInfo; pi != nil {
		meta.Publisher = strings.TrimSpace(pi.Publisher)
		meta.ISBN = strings.TrimSpace(pi.ISBN)
		if meta.PubDate == "" {
			meta.PubDate = strings.TrimSpace(pi.Year)
		}
	}
	return meta
}

func descriptionFromMetadata(meta model.Metadata) description {
	var ti titleInfo
	ti.BookTitle = meta.Title

	for _, name := range strings.Split(meta.Author, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var a author
		if i := strings.LastIndex(name, " "); i > 0 {
			a.FirstName = name[:i]
			a.LastName = name[i+1:]
		} else {
			a.FirstName = name
		}
		ti.Authors = append(ti.Authors, a)
	}
	ti.Lang = meta.Language
	ti.Date = meta.PubDate
	if meta.Description != "" {
		ann := &annotation{}
		for _, line := range strings.Split(meta.Description, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				ann.Paras = append(ann.Paras, para{Text: line})
			}
		}
		ti.Annotation = ann
	}
	if genres, ok := meta.GetCustom("fb2.genre"); ok {
		for _, g := range strings.Split(genres, ",") {
			if g = strings.TrimSpace(g); g != "" {
				ti.Genres = append(ti.Genres, g)
			}
		}
	}

	d := description{TitleInfo: ti}
	if meta.Publisher != "" || meta.ISBN != "" {
		d.PublishInfo = &publishInfo{Publisher: meta.Publisher, ISBN: meta.ISBN}
	}
	return d
}
