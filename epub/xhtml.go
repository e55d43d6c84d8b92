package epub

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// nodeText flattens all text beneath n.
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return strings.TrimSpace(b.String())
}

// textFromXHTML extracts readable text from a content document. Block
// elements separate paragraphs; script and style bodies are dropped.
func textFromXHTML(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}

	var parts []string
	var current strings.Builder

	// One part per block element. Line breaks inside a block come from
	// <br/> and survive as single newlines; blank lines exist only
	// between blocks, so joining with "\n\n" mirrors chapterXHTML and
	// keeps the paragraph structure intact through a write/read cycle.
	flush := func() {
		raw := strings.Split(current.String(), "\n")
		current.Reset()
		var lines []string
		for _, line := range raw {
			lines = append(lines, collapseSpace(line))
		}
		start, end := 0, len(lines)
		for start < end && lines[start] == "" {
			start++
		}
		for end > start && lines[end-1] == "" {
			end--
		}
		if start == end {
			return
		}
		parts = append(parts, strings.Join(lines[start:end], "\n"))
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head":
				return
			case "br":
				current.WriteString("\n")
			case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6",
				"li", "blockquote", "tr", "section", "article":
				flush()
			}
		}
		if n.Type == html.TextNode {
			// Raw newlines in markup are just whitespace; only <br/>
			// marks a real line break.
			current.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
			current.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	flush()
	return strings.Join(parts, "\n\n")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// titleFromXHTML takes the first heading, falling back to <title>.
func titleFromXHTML(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}

	var docTitle string
	var findHeading func(*html.Node) string
	findHeading = func(n *html.Node) string {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h1", "h2", "h3", "h4", "h5", "h6":
				if t := nodeText(n); t != "" {
					return t
				}
			case "title":
				if docTitle == "" {
					docTitle = nodeText(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := findHeading(c); t != "" {
				return t
			}
		}
		return ""
	}
	if t := findHeading(doc); t != "" {
		return t
	}
	return docTitle
}

// chapterXHTML renders a chapter as a minimal content document.
func chapterXHTML(title, content string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml">` + "\n")
	fmt.Fprintf(&b, "<head><title>%s</title></head>\n<body>\n", escapeXML(title))
	if title != "" {
		fmt.Fprintf(&b, "<h1>%s</h1>\n", escapeXML(title))
	}
	// One <p> per blank-line-separated paragraph, interior line breaks
	// as <br/>, so textFromXHTML recovers the same structure.
	for _, para := range strings.Split(content, "\n\n") {
		var lines []string
		for _, line := range strings.Split(para, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, escapeXML(line))
			}
		}
		if len(lines) > 0 {
			fmt.Fprintf(&b, "<p>%s</p>\n", strings.Join(lines, "<br/>"))
		}
	}
	b.WriteString("</body>\n</html>\n")
	return []byte(b.String())
}
