package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/foliokit/folio/model"
)

// ncxDocument represents an EPUB 2 NCX navigation document.
type ncxDocument struct {
	XMLName xml.Name  `xml:"ncx"`
	Title   string    `xml:"docTitle>text"`
	NavMap  ncxNavMap `xml:"navMap"`
}

type ncxNavMap struct {
	NavPoints []ncxNavPoint `xml:"navPoint"`
}

type ncxNavPoint struct {
	ID        string        `xml:"id,attr"`
	PlayOrder string        `xml:"playOrder,attr"`
	Label     string        `xml:"navLabel>text"`
	Content   ncxContent    `xml:"content"`
	Children  []ncxNavPoint `xml:"navPoint"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

// parseNavigation extracts the table of contents: the EPUB 3 nav document
// when the manifest declares one, the EPUB 2 NCX otherwise. With neither,
// a flat TOC is generated from the spine.
func (h *Handler) parseNavigation(zr *zip.Reader, p *pkg, baseDir string) []model.TocEntry {
	if item, ok := p.navItem(); ok {
		if content, err := h.readArchiveFile(zr, resolveHref(baseDir, item.Href)); err == nil {
			if entries, err := parseNavXHTML(content); err == nil && len(entries) > 0 {
				return entries
			}
		}
	}
	if item, ok := p.ncxItem(); ok {
		if content, err := h.readArchiveFile(zr, resolveHref(baseDir, item.Href)); err == nil {
			if entries, err := parseNCX(content); err == nil && len(entries) > 0 {
				return entries
			}
		}
	}

	var entries []model.TocEntry
	for _, ch := range h.chapters {
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", ch.Position+1)
		}
		entries = append(entries, model.TocEntry{Title: title, Level: 1})
	}
	return entries
}

// parseNavXHTML parses an EPUB 3 nav document: the <nav> element with
// epub:type="toc" and its nested <ol> lists.
func parseNavXHTML(content []byte) ([]model.TocEntry, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var findNav func(*html.Node) *html.Node
	findNav = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == "nav" {
			for _, attr := range n.Attr {
				if (attr.Key == "epub:type" || attr.Key == "type") && strings.Contains(attr.Val, "toc") {
					return n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := findNav(c); found != nil {
				return found
			}
		}
		return nil
	}

	nav := findNav(doc)
	if nav == nil {
		return nil, fmt.Errorf("no toc nav element")
	}

	var findOL func(*html.Node) *html.Node
	findOL = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == "ol" {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := findOL(c); found != nil {
				return found
			}
		}
		return nil
	}

	ol := findOL(nav)
	if ol == nil {
		return nil, fmt.Errorf("no list in nav element")
	}
	return parseOLEntries(ol, 1), nil
}

func parseOLEntries(ol *html.Node, level int) []model.TocEntry {
	var entries []model.TocEntry
	for c := ol.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "li" {
			entry := parseLIEntry(c, level)
			if entry.Title != "" || entry.Href != "" {
				entries = append(entries, entry)
			}
		}
	}
	return entries
}

func parseLIEntry(li *html.Node, level int) model.TocEntry {
	entry := model.TocEntry{Level: level}
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "a":
			entry.Title = nodeText(c)
			for _, attr := range c.Attr {
				if attr.Key == "href" {
					entry.Href = attr.Val
				}
			}
		case "span":
			if entry.Title == "" {
				entry.Title = nodeText(c)
			}
		case "ol":
			entry.Children = parseOLEntries(c, level+1)
		}
	}
	return entry
}

// parseNCX parses an EPUB 2 NCX document.
func parseNCX(content []byte) ([]model.TocEntry, error) {
	var ncx ncxDocument
	if err := xml.Unmarshal(content, &ncx); err != nil {
		return nil, err
	}
	return convertNavPoints(ncx.NavMap.NavPoints, 1), nil
}

func convertNavPoints(points []ncxNavPoint, level int) []model.TocEntry {
	entries := make([]model.TocEntry, 0, len(points))
	for _, p := range points {
		entries = append(entries, model.TocEntry{
			Title:    strings.TrimSpace(p.Label),
			Href:     p.Content.Src,
			Level:    level,
			Children: convertNavPoints(p.Children, level+1),
		})
	}
	return entries
}

// ncxFor renders an NCX document for the given entries.
func ncxFor(identifier, title string, entries []model.TocEntry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">` + "\n")
	fmt.Fprintf(&b, "  <head>\n    <meta name=\"dtb:uid\" content=%q/>\n  </head>\n", identifier)
	fmt.Fprintf(&b, "  <docTitle><text>%s</text></docTitle>\n", escapeXML(title))
	b.WriteString("  <navMap>\n")
	order := 1
	writeNavPoints(&b, entries, &order, 2)
	b.WriteString("  </navMap>\n</ncx>\n")
	return []byte(b.String()), nil
}

func writeNavPoints(b *strings.Builder, entries []model.TocEntry, order *int, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		fmt.Fprintf(b, "%s<navPoint id=\"navpoint-%d\" playOrder=\"%d\">\n", indent, *order, *order)
		*order++
		fmt.Fprintf(b, "%s  <navLabel><text>%s</text></navLabel>\n", indent, escapeXML(e.Title))
		fmt.Fprintf(b, "%s  <content src=%q/>\n", indent, e.Href)
		writeNavPoints(b, e.Children, order, depth+1)
		fmt.Fprintf(b, "%s</navPoint>\n", indent)
	}
}

// navFor renders an EPUB 3 nav document for the given entries.
func navFor(title string, entries []model.TocEntry) []byte {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">` + "\n")
	fmt.Fprintf(&b, "<head><title>%s</title></head>\n<body>\n", escapeXML(title))
	b.WriteString("<nav epub:type=\"toc\" id=\"toc\">\n")
	fmt.Fprintf(&b, "  <h1>%s</h1>\n", escapeXML(title))
	writeNavList(&b, entries, 1)
	b.WriteString("</nav>\n</body>\n</html>\n")
	return []byte(b.String())
}

func writeNavList(b *strings.Builder, entries []model.TocEntry, depth int) {
	if len(entries) == 0 {
		return
	}
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent + "<ol>\n")
	for _, e := range entries {
		fmt.Fprintf(b, "%s  <li><a href=%q>%s</a>", indent, e.Href, escapeXML(e.Title))
		if len(e.Children) > 0 {
			b.WriteString("\n")
			writeNavList(b, e.Children, depth+2)
			b.WriteString(indent + "  </li>\n")
		} else {
			b.WriteString("</li>\n")
		}
	}
	b.WriteString(indent + "</ol>\n")
}

func escapeXML(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
