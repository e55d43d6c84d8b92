package mobi

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"github.com/foliokit/folio/model"
)

// decodeText decodes raw record text under the encoding declared in
// the MOBI header. Unknown or absent encodings fall back to UTF-8
// validation with a Windows-1252 retry, which cannot fail.
func decodeText(data []byte, textEncoding uint32) string {
	switch textEncoding {
	case encodingUTF8:
		return string(data)
	case encodingCP1252:
		out, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err == nil {
			return string(out)
		}
	}
	if utf8.Valid(data) {
		return string(data)
	}
	out, _ := charmap.Windows1252.NewDecoder().Bytes(data)
	return string(out)
}

// looksLikeHTML reports whether decompressed book text carries markup.
// MOBI text is HTML in practice, but nothing in the container requires
// it, so plain text is passed through untouched.
func looksLikeHTML(text string) bool {
	head := text
	if len(head) > 2048 {
		head = head[:2048]
	}
	head = strings.ToLower(head)
	return strings.Contains(head, "<html") ||
		strings.Contains(head, "<body") ||
		strings.Contains(head, "<p>") ||
		strings.Contains(head, "<p ")
}

type heading struct {
	title string
	level int
}

// stripMarkup reduces MOBI HTML to plain text and collects h1..h3
// headings for navigation. Block boundaries and mbp:pagebreak elements
// become blank lines so paragraph structure survives.
func stripMarkup(text string) (string, []heading) {
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return text, nil
	}

	var (
		b        strings.Builder
		headings []heading
		para     strings.Builder
	)
	flush := func() {
		s := collapseSpace(para.String())
		para.Reset()
		if s == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			para.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head", "guide":
				return
			case "mbp:pagebreak":
				// The parser does not know this element is void, so
				// the rest of the document ends up as its children.
				// Emit the break and keep walking.
				flush()
				if b.Len() > 0 {
					b.WriteString("\n\n---")
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				return
			case "br":
				para.WriteString("\n")
				return
			}
		}
		block := isBlockElement(n)
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			if level := headingLevel(n); level > 0 {
				if title := collapseSpace(para.String()); title != "" {
					headings = append(headings, heading{title: title, level: level})
				}
			}
			flush()
		}
	}
	walk(doc)
	flush()
	return b.String(), headings
}

func isBlockElement(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6",
		"li", "blockquote", "pre", "tr", "section":
		return true
	}
	return false
}

func headingLevel(n *html.Node) int {
	if n.Type != html.ElementNode || len(n.Data) != 2 || n.Data[0] != 'h' {
		return 0
	}
	if n.Data[1] >= '1' && n.Data[1] <= '3' {
		return int(n.Data[1] - '0')
	}
	return 0
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// headingTOC builds a flat-to-nested TOC from collected headings,
// treating h1 as level 0. A heading skipping levels (h1 straight to
// h3) clamps to one below its predecessor so nesting never jumps by
// more than one step.
func headingTOC(headings []heading) []model.TocEntry {
	entries := make([]model.TocEntry, 0, len(headings))
	prev := -1
	for _, h := range headings {
		level := h.level - 1
		if level > prev+1 {
			level = prev + 1
		}
		entries = append(entries, model.TocEntry{Title: h.title, Level: level})
		prev = level
	}
	return entries
}

// plainTextHeadings scans unmarked text for chapter-like lines, the
// fallback when the book carries no markup at all.
func plainTextHeadings(text string) []heading {
	var headings []heading
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "chapter ") || strings.HasPrefix(lower, "part ") {
			if len(line) <= 80 {
				headings = append(headings, heading{title: line, level: 1})
			}
		}
	}
	return headings
}
