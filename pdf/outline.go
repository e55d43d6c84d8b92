package pdf

import "github.com/foliokit/folio/model"

// outlineTOC converts the document outline tree (bookmarks) into TOC
// entries. PDFs without an /Outlines entry return nil.
func (d *Document) outlineTOC() []model.TocEntry {
	outlines := d.resolveDict(d.catalog()["Outlines"])
	if outlines == nil {
		return nil
	}
	return d.outlineChildren(outlines, 0, map[int]bool{})
}

// outlineChildren walks the First/Next sibling chain. Visited object
// numbers guard against cycles in damaged files.
func (d *Document) outlineChildren(parent Dict, level int, visited map[int]bool) []model.TocEntry {
	var entries []model.TocEntry

	item := parent["First"]
	for item != nil {
		ref, isRef := item.(Ref)
		if isRef {
			if visited[ref.Num] {
				break
			}
			visited[ref.Num] = true
		}
		dict := d.resolveDict(item)
		if dict == nil {
			break
		}

		title := decodeTextString([]byte(dict.String("Title")))
		if title != "" {
			entry := model.TocEntry{Title: title, Level: level}
			entry.Children = d.outlineChildren(dict, level+1, visited)
			entries = append(entries, entry)
		}
		item = dict["Next"]
	}
	return entries
}
