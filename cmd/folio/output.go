package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/foliokit/folio/model"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func metadataRows(meta model.Metadata) [][]string {
	rows := [][]string{
		{"Title", meta.Title},
		{"Author", meta.Author},
		{"Publisher", meta.Publisher},
		{"Language", meta.Language},
		{"ISBN", meta.ISBN},
		{"Published", meta.PubDate},
		{"Format", meta.Format},
	}
	if meta.Description != "" {
		rows = append(rows, []string{"Description", truncate(meta.Description, 120)})
	}
	if meta.CoverImage != nil {
		rows = append(rows, []string{"Cover", fmt.Sprintf("%d bytes", len(meta.CoverImage))})
	}

	keys := make([]string, 0, len(meta.Custom))
	for k := range meta.Custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []string{k, truncate(meta.Custom[k], 120)})
	}
	return rows
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

type metadataJSON struct {
	Title       string            `json:"title,omitempty"`
	Author      string            `json:"author,omitempty"`
	Publisher   string            `json:"publisher,omitempty"`
	Description string            `json:"description,omitempty"`
	Language    string            `json:"language,omitempty"`
	ISBN        string            `json:"isbn,omitempty"`
	PubDate     string            `json:"pub_date,omitempty"`
	Format      string            `json:"format,omitempty"`
	CoverBytes  int               `json:"cover_bytes,omitempty"`
	Custom      map[string]string `json:"custom,omitempty"`
}

func metadataForJSON(meta model.Metadata) metadataJSON {
	return metadataJSON{
		Title:       meta.Title,
		Author:      meta.Author,
		Publisher:   meta.Publisher,
		Description: meta.Description,
		Language:    meta.Language,
		ISBN:        meta.ISBN,
		PubDate:     meta.PubDate,
		Format:      meta.Format,
		CoverBytes:  len(meta.CoverImage),
		Custom:      meta.Custom,
	}
}

func tocLines(entries []model.TocEntry) []string {
	var lines []string
	var walk func(entries []model.TocEntry, depth int)
	walk = func(entries []model.TocEntry, depth int) {
		for _, e := range entries {
			lines = append(lines, strings.Repeat("  ", depth)+e.Title)
			walk(e.Children, depth+1)
		}
	}
	walk(entries, 0)
	return lines
}
