package docgen

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Pass is one named structural rewrite over a part's XML text. It returns the
// rewritten text and any regions it had to leave untouched.
type Pass struct {
	Name  string
	Apply func(xml string) (string, []string)
}

// DefaultPasses is the fixed, order-sensitive rewrite sequence
func DefaultPasses() []Pass {
	return []Pass{
		{Name: "row-split", Apply: NormalizeRowSplit},
		{Name: "floating-tables", Apply: RemoveFloatingTables},
		{Name: "table-overlap", Apply: ForbidTableOverlap},
		{Name: "table-hints", Apply: DetachTableHints},
		{Name: "empty-paragraphs", Apply: PruneEmptyParagraphs},
		{Name: "row-split-final", Apply: EnforceRowSplit},
		{Name: "unit-merge", Apply: MergeSentinelCells},
	}
}

// Normalizer fixes layout artifacts left by templates and merge rendering
type Normalizer struct {
	passes []Pass
	logger *zap.Logger
}

// NewNormalizer returns a normalizer running DefaultPasses
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{passes: DefaultPasses(), logger: logger}
}

// NormalizePart runs every pass over one part. It never fails: unmatched
// regions are reported as warnings and left as they were.
func (n *Normalizer) NormalizePart(part, xml string) (string, []NormalizationWarning) {
	if strings.TrimSpace(xml) == "" {
		w := NormalizationWarning{Part: part, Pass: "all", Detail: "empty part left unchanged"}
		n.logger.Warn("normalization skipped", zap.String("part", part), zap.String("detail", w.Detail))
		return xml, []NormalizationWarning{w}
	}

	var warnings []NormalizationWarning
	for _, pass := range n.passes {
		out, issues := pass.Apply(xml)
		for _, issue := range issues {
			warnings = append(warnings, NormalizationWarning{Part: part, Pass: pass.Name, Detail: issue})
			n.logger.Warn("normalization rule not applied",
				zap.String("part", part),
				zap.String("pass", pass.Name),
				zap.String("detail", issue),
			)
		}
		xml = out
	}
	return xml, warnings
}

// NormalizePackage normalizes the body, header and footer parts independently
func (n *Normalizer) NormalizePackage(pkg *Package) []NormalizationWarning {
	var warnings []NormalizationWarning
	for _, part := range pkg.XMLParts() {
		xml, err := pkg.Part(part)
		if err != nil {
			warnings = append(warnings, NormalizationWarning{Part: part, Pass: "read", Detail: err.Error()})
			continue
		}
		out, partWarnings := n.NormalizePart(part, xml)
		warnings = append(warnings, partWarnings...)
		if out == xml {
			continue
		}
		if err := pkg.SetPart(part, out); err != nil {
			warnings = append(warnings, NormalizationWarning{Part: part, Pass: "write", Detail: err.Error()})
		}
	}
	return warnings
}

const (
	cantSplitOff = `<w:cantSplit w:val="0"/>`
	tblOverlap   = `<w:tblOverlap w:val="never"/>`
	tblLookFlat  = `<w:tblLook w:val="0600" w:firstRow="0" w:lastRow="0" w:firstColumn="0" w:lastColumn="0" w:noHBand="1" w:noVBand="1"/>`
)

var (
	cantSplitSimple = regexp.MustCompile(`<w:cantSplit(?:\s+w:val="(?:true|1|on)")?\s*/>`)
	trHeight        = regexp.MustCompile(`<w:trHeight\b([^>]*?)\s*/>`)
	hRuleAttr       = regexp.MustCompile(`\s+w:hRule="[^"]*"`)

	cantSplitAny = regexp.MustCompile(`<w:cantSplit\b[^>]*?/>|<w:cantSplit\b[^>]*>\s*</w:cantSplit>`)

	tblpPr  = regexp.MustCompile(`<w:tblpPr\b[^>]*?/>|(?s)<w:tblpPr\b[^>]*>.*?</w:tblpPr>`)
	tblLook = regexp.MustCompile(`<w:tblLook\b[^>]*?/>`)

	tblPrBlock     = regexp.MustCompile(`(?s)<w:tblPr>(.*?)</w:tblPr>|<w:tblPr\s*/>`)
	tblOverlapAny  = regexp.MustCompile(`<w:tblOverlap\b[^>]*?/>`)
	tblStyleLeader = regexp.MustCompile(`^\s*<w:tblStyle\b[^>]*?/>`)

	keepHints = regexp.MustCompile(`<w:keepNext\b[^>]*?/>|<w:pageBreakBefore\b[^>]*?/>`)
)

// NormalizeRowSplit disables forced row keep-together and lets row heights grow
func NormalizeRowSplit(xml string) (string, []string) {
	xml = cantSplitSimple.ReplaceAllString(xml, cantSplitOff)
	xml = trHeight.ReplaceAllStringFunc(xml, func(tag string) string {
		attrs := trHeight.FindStringSubmatch(tag)[1]
		attrs = hRuleAttr.ReplaceAllString(attrs, "")
		return `<w:trHeight` + attrs + ` w:hRule="auto"/>`
	})
	return xml, nil
}

// EnforceRowSplit rewrites every remaining cantSplit form, whatever its attributes
func EnforceRowSplit(xml string) (string, []string) {
	return cantSplitAny.ReplaceAllString(xml, cantSplitOff), nil
}

// RemoveFloatingTables drops anchored table positioning and flattens the table look
func RemoveFloatingTables(xml string) (string, []string) {
	xml = tblpPr.ReplaceAllString(xml, "")
	xml = tblLook.ReplaceAllString(xml, tblLookFlat)
	return xml, nil
}

// ForbidTableOverlap leaves exactly one no-overlap directive in every table's properties
func ForbidTableOverlap(xml string) (string, []string) {
	var issues []string
	out := tblPrBlock.ReplaceAllStringFunc(xml, func(block string) string {
		if !strings.HasSuffix(block, "</w:tblPr>") {
			return `<w:tblPr>` + tblOverlap + `</w:tblPr>`
		}
		inner := block[len("<w:tblPr>") : len(block)-len("</w:tblPr>")]
		if strings.Contains(inner, "<w:tblPr>") {
			issues = append(issues, "nested table properties block skipped")
			return block
		}
		inner = tblOverlapAny.ReplaceAllString(inner, "")
		if lead := tblStyleLeader.FindString(inner); lead != "" {
			return `<w:tblPr>` + lead + tblOverlap + inner[len(lead):] + `</w:tblPr>`
		}
		return `<w:tblPr>` + tblOverlap + inner + `</w:tblPr>`
	})
	return out, issues
}

// DetachTableHints strips keep-with-next and page-break-before from the paragraph
// directly preceding each table. Only that paragraph's own properties change,
// paragraphs nested in its text boxes are left alone.
func DetachTableHints(xml string) (string, []string) {
	if findTag(xml, 0, "<w:tbl") < 0 {
		return xml, nil
	}
	elems, err := scanElements(xml)
	if err != nil {
		return xml, []string{"table hints left in place: " + err.Error()}
	}

	var b strings.Builder
	cursor := 0
	for idx, el := range elems {
		if el.name != "w:tbl" {
			continue
		}
		prev := previousSibling(elems, idx)
		if prev < 0 || elems[prev].name != "w:p" || strings.TrimSpace(xml[elems[prev].end:el.start]) != "" {
			continue
		}
		pPr := firstChild(elems, prev, "w:pPr")
		if pPr < 0 || elems[pPr].start < cursor {
			continue
		}
		b.WriteString(xml[cursor:elems[pPr].start])
		b.WriteString(keepHints.ReplaceAllString(xml[elems[pPr].start:elems[pPr].end], ""))
		cursor = elems[pPr].end
	}
	b.WriteString(xml[cursor:])
	return b.String(), nil
}

// previousSibling returns the element right before elems[idx] under the same parent, or -1
func previousSibling(elems []element, idx int) int {
	parent := elems[idx].parent
	for c := idx - 1; c > parent; c-- {
		if elems[c].parent == parent {
			return c
		}
	}
	return -1
}

// firstChild returns the first direct child of elems[parent] named name, or -1
func firstChild(elems []element, parent int, name string) int {
	for c := parent + 1; c < len(elems) && elems[c].start < elems[parent].end; c++ {
		if elems[c].parent == parent && elems[c].name == name {
			return c
		}
	}
	return -1
}

// PruneEmptyParagraphs removes paragraphs with neither properties nor content.
// Cells, headers, footers and text boxes must hold at least one block, so when
// nothing else survives in one of them its first empty paragraph is kept, or a
// bare one is added.
func PruneEmptyParagraphs(xml string) (string, []string) {
	elems, err := scanElements(xml)
	if err != nil {
		return xml, []string{"empty paragraphs left in place: " + err.Error()}
	}

	drop := make(map[int]bool)
	for idx, el := range elems {
		if el.name == "w:p" && isEmptyParagraph(xml, el) {
			drop[idx] = true
		}
	}

	var issues []string
	for idx, el := range elems {
		if !blockContainers[el.name] {
			continue
		}
		kept, survivor := -1, false
		for _, child := range blockChildren(elems, idx) {
			if !drop[child] {
				survivor = true
				break
			}
			if kept < 0 {
				kept = child
			}
		}
		if !survivor && kept >= 0 {
			delete(drop, kept)
			issues = append(issues, "kept empty paragraph that is the only block of "+el.name)
		}
	}

	var b strings.Builder
	cursor := 0
	for idx, el := range elems {
		if !drop[idx] {
			continue
		}
		b.WriteString(xml[cursor:el.start])
		cursor = el.end
	}
	b.WriteString(xml[cursor:])

	out, fillIssues := fillEmptyContainers(b.String())
	return out, append(issues, fillIssues...)
}

// isEmptyParagraph reports whether p has no child elements and no text
func isEmptyParagraph(xml string, p element) bool {
	if p.inner == p.end {
		return true
	}
	content := xml[p.inner : p.end-len("</w:p>")]
	return strings.TrimSpace(content) == ""
}
