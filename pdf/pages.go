package pdf

import "fmt"

// page is one leaf of the page tree with its inherited attributes
// already merged.
type page struct {
	dict      Dict
	resources Dict
}

// pageList flattens the page tree. Inheritable attributes (Resources)
// merge downward; a malformed or cyclic tree stops at a depth limit
// instead of recursing forever.
func (d *Document) pageList() ([]page, error) {
	root := d.resolveDict(d.catalog()["Pages"])
	if root == nil {
		return nil, fmt.Errorf("catalog has no page tree")
	}
	var pages []page
	d.collectPages(root, Dict{}, 0, &pages)
	if len(pages) == 0 {
		return nil, fmt.Errorf("page tree has no pages")
	}
	return pages, nil
}

func (d *Document) collectPages(node Dict, inherited Dict, depth int, out *[]page) {
	if node == nil || depth > 64 {
		return
	}
	if res := d.resolveDict(node["Resources"]); res != nil {
		inherited = res
	}
	switch node.Name("Type") {
	case "Page":
		*out = append(*out, page{dict: node, resources: inherited})
	default:
		for _, kid := range node.Array("Kids") {
			d.collectPages(d.resolveDict(kid), inherited, depth+1, out)
		}
	}
}

// contentData concatenates a page's content streams in order.
func (d *Document) contentData(pg page) ([]byte, error) {
	var streams []Object
	switch c := d.resolve(pg.dict["Contents"]).(type) {
	case *Stream:
		streams = []Object{c}
	case Array:
		streams = c
	case nil, Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("page Contents is neither stream nor array")
	}

	var out []byte
	for _, item := range streams {
		stm, ok := d.resolve(item).(*Stream)
		if !ok {
			continue
		}
		decoded, err := d.decodeStream(stm)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded...)
		out = append(out, '\n')
	}
	return out, nil
}
