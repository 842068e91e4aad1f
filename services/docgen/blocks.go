package docgen

import "strings"

// Elements whose content model requires at least one block-level child
var blockContainers = map[string]bool{
	"w:tc":          true,
	"w:hdr":         true,
	"w:ftr":         true,
	"w:txbxContent": true,
	"w:footnote":    true,
	"w:endnote":     true,
	"w:comment":     true,
}

var blockElements = map[string]bool{
	"w:p":         true,
	"w:tbl":       true,
	"w:sdt":       true,
	"w:customXml": true,
	"w:altChunk":  true,
}

const bareParagraph = `<w:p/>`

// blockChildren returns the direct block-level children of elems[parent]
func blockChildren(elems []element, parent int) []int {
	var children []int
	for c := parent + 1; c < len(elems) && elems[c].start < elems[parent].end; c++ {
		if elems[c].parent == parent && blockElements[elems[c].name] {
			children = append(children, c)
		}
	}
	return children
}

// fillEmptyContainers adds a bare paragraph to every block container left
// without any block, just before its closing tag.
func fillEmptyContainers(xml string) (string, []string) {
	elems, err := scanElements(xml)
	if err != nil {
		return xml, []string{"block containers not checked: " + err.Error()}
	}

	var issues []string
	var b strings.Builder
	cursor := 0
	for idx, el := range elems {
		if !blockContainers[el.name] || el.inner == el.end || len(blockChildren(elems, idx)) > 0 {
			continue
		}
		at := el.end - len("</"+el.name+">")
		if at < cursor {
			continue
		}
		b.WriteString(xml[cursor:at])
		b.WriteString(bareParagraph)
		cursor = at
		issues = append(issues, "added empty paragraph to "+el.name+" left without blocks")
	}
	if cursor == 0 {
		return xml, issues
	}
	b.WriteString(xml[cursor:])
	return b.String(), issues
}
