package docgen

import (
	"fmt"
	"regexp"
	"strings"
)

// cellState is computed once per table cell before any rewrite is applied
type cellState int

const (
	cellPlain cellState = iota
	cellMergeStart
	cellMergeContinue
)

func (s cellState) vMerge() string {
	if s == cellMergeStart {
		return "restart"
	}
	return "continue"
}

// tokenForms lists how a sentinel token can appear in part text: raw, fully
// escaped, and with only the opening bracket escaped.
func tokenForms(token string) []string {
	name := strings.Trim(token, "<>")
	return []string{
		token,
		"&lt;" + name + "&gt;",
		"&lt;" + name + ">",
	}
}

var (
	startForms = tokenForms(UnitMergeStart)
	contForms  = tokenForms(UnitMergeCont)

	textRun    = regexp.MustCompile(`(<w:t\b[^>]*>)[^<]*(</w:t>)`)
	vMergeAny  = regexp.MustCompile(`<w:vMerge\b[^>]*?/>|(?s)<w:vMerge\b[^>]*>.*?</w:vMerge>`)
	vAlignAny  = regexp.MustCompile(`<w:vAlign\b[^>]*?/>`)
	tcPrLeader = regexp.MustCompile(`^(?:\s*(?:<w:cnfStyle\b[^>]*?/>|<w:tcW\b[^>]*?/>|<w:gridSpan\b[^>]*?/>|<w:hMerge\b[^>]*?/>))*`)
	tcPrTail   = regexp.MustCompile(`<w:hideMark\b|<w:headers\b|<w:cellIns\b|<w:cellDel\b|<w:cellMerge\b|<w:tcPrChange\b`)
)

const vAlignCenter = `<w:vAlign w:val="center"/>`

func containsAny(s string, forms []string) bool {
	for _, f := range forms {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

func stripForms(s string, forms ...[]string) string {
	for _, group := range forms {
		for _, f := range group {
			s = strings.ReplaceAll(s, f, "")
		}
	}
	return s
}

func classifyCell(own string) cellState {
	switch {
	case containsAny(own, startForms):
		return cellMergeStart
	case containsAny(own, contForms):
		return cellMergeContinue
	default:
		return cellPlain
	}
}

// MergeSentinelCells turns cells carrying a unit merge token into vertically
// merged cells and removes every token from the part.
func MergeSentinelCells(xml string) (string, []string) {
	out, issues := mergeCells(xml)
	if containsAny(out, startForms) || containsAny(out, contForms) {
		out = stripForms(out, startForms, contForms)
		issues = append(issues, "removed merge token found outside a table cell")
	}
	return out, issues
}

// mergeCells rewrites every top-level cell of s; nested cells are handled first
func mergeCells(s string) (string, []string) {
	var issues []string
	var b strings.Builder
	cursor := 0
	for {
		open := findTag(s, cursor, "<w:tc")
		if open < 0 {
			break
		}
		end := matchClose(s, open, "<w:tc", "</w:tc>")
		if end < 0 {
			issues = append(issues, fmt.Sprintf("unterminated table cell at offset %d", open))
			break
		}
		cell, cellIssues := rewriteCell(s[open:end])
		issues = append(issues, cellIssues...)
		b.WriteString(s[cursor:open])
		b.WriteString(cell)
		cursor = end
	}
	b.WriteString(s[cursor:])
	return b.String(), issues
}

// findTag returns the offset of the next opening tag named exactly prefix[1:]
func findTag(s string, from int, prefix string) int {
	for from < len(s) {
		idx := strings.Index(s[from:], prefix)
		if idx < 0 {
			return -1
		}
		at := from + idx
		next := at + len(prefix)
		if next < len(s) {
			switch s[next] {
			case '>', ' ', '\t', '\r', '\n':
				return at
			}
		}
		from = next
	}
	return -1
}

// matchClose returns the offset just past the closing tag matching the element opened at open
func matchClose(s string, open int, prefix, closing string) int {
	depth := 0
	pos := open
	for {
		nextOpen := findTag(s, pos, prefix)
		nextClose := strings.Index(s[pos:], closing)
		if nextClose < 0 {
			return -1
		}
		nextClose += pos
		if nextOpen >= 0 && nextOpen < nextClose {
			depth++
			pos = nextOpen + len(prefix)
			continue
		}
		depth--
		pos = nextClose + len(closing)
		if depth == 0 {
			return pos
		}
	}
}

// withoutNestedTables drops nested table spans so a cell is classified by its own text
func withoutNestedTables(content string) string {
	var b strings.Builder
	cursor := 0
	for {
		open := findTag(content, cursor, "<w:tbl")
		if open < 0 {
			break
		}
		end := matchClose(content, open, "<w:tbl", "</w:tbl>")
		if end < 0 {
			break
		}
		b.WriteString(content[cursor:open])
		cursor = end
	}
	b.WriteString(content[cursor:])
	return b.String()
}

func rewriteCell(cell string) (string, []string) {
	openEnd := strings.IndexByte(cell, '>') + 1
	closeStart := len(cell) - len("</w:tc>")
	opening, content := cell[:openEnd], cell[openEnd:closeStart]

	content, issues := mergeCells(content)
	state := classifyCell(withoutNestedTables(content))
	if state == cellPlain {
		return opening + content + "</w:tc>", issues
	}

	content = stripForms(content, startForms, contForms)
	if state == cellMergeContinue {
		content = textRun.ReplaceAllString(content, "$1$2")
	}
	return opening + setCellMerge(content, state) + "</w:tc>", issues
}

// setCellMerge ensures the cell properties carry exactly one vMerge and a centered vAlign
func setCellMerge(content string, state cellState) string {
	vMerge := fmt.Sprintf(`<w:vMerge w:val="%s"/>`, state.vMerge())

	trimmed := strings.TrimLeft(content, " \t\r\n")
	lead := content[:len(content)-len(trimmed)]

	switch {
	case strings.HasPrefix(trimmed, "<w:tcPr/>"):
		return lead + "<w:tcPr>" + vMerge + vAlignCenter + "</w:tcPr>" + trimmed[len("<w:tcPr/>"):]
	case !strings.HasPrefix(trimmed, "<w:tcPr>"):
		return "<w:tcPr>" + vMerge + vAlignCenter + "</w:tcPr>" + content
	}

	end := strings.Index(trimmed, "</w:tcPr>")
	if end < 0 {
		return content
	}
	props := trimmed[len("<w:tcPr>"):end]
	rest := trimmed[end+len("</w:tcPr>"):]

	props = replaceFirstOrInsert(props, vMergeAny, vMerge, func(p string) int {
		return len(tcPrLeader.FindString(p))
	})
	props = replaceFirstOrInsert(props, vAlignAny, vAlignCenter, func(p string) int {
		if loc := tcPrTail.FindStringIndex(p); loc != nil {
			return loc[0]
		}
		return len(p)
	})
	return lead + "<w:tcPr>" + props + "</w:tcPr>" + rest
}

// replaceFirstOrInsert swaps the first match of re for repl in place and drops
// later matches; without a match repl is inserted at the offset chosen by at.
func replaceFirstOrInsert(props string, re *regexp.Regexp, repl string, at func(string) int) string {
	loc := re.FindStringIndex(props)
	if loc == nil {
		i := at(props)
		return props[:i] + repl + props[i:]
	}
	head := props[:loc[0]]
	tail := re.ReplaceAllString(props[loc[1]:], "")
	return head + repl + tail
}
