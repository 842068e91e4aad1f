package docgen

import (
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// RenderResult is the outcome of applying a payload to a template
type RenderResult struct {
	Package *Package
	// Unresolved lists field names referenced by the template but absent from the payload
	Unresolved []string
}

// Renderer substitutes merge fields in every XML part of a template
type Renderer struct {
	Logger *zap.Logger
	// OnUnresolved, when set, is called for every field that renders empty because it is missing
	OnUnresolved func(part, name string)
}

// NewRenderer returns a renderer logging to logger
func NewRenderer(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{Logger: logger}
}

// Render applies payload to a copy of template
func (r *Renderer) Render(template []byte, payload Payload) (*RenderResult, error) {
	data, err := payload.normalized()
	if err != nil {
		return nil, &TemplateRenderError{Reason: "payload is not serializable", Err: err}
	}

	pkg, err := OpenPackage(template)
	if err != nil {
		return nil, &TemplateRenderError{Reason: "unreadable template package", Err: err}
	}

	unresolved := make(map[string]struct{})
	for _, part := range pkg.XMLParts() {
		xml, err := pkg.Part(part)
		if err != nil {
			return nil, &TemplateRenderError{Part: part, Reason: "unreadable part", Err: err}
		}

		joined, err := joinSplitTags(part, xml)
		if err != nil {
			return nil, err
		}

		st := &renderState{part: part, missing: func(name string) {
			unresolved[name] = struct{}{}
			if r.OnUnresolved != nil {
				r.OnUnresolved(part, name)
			}
		}}
		out, err := st.render(joined, []any{data})
		if err != nil {
			return nil, err
		}
		// Sections removed whole can empty a cell or header
		out, issues := fillEmptyContainers(out)
		for _, issue := range issues {
			r.logger().Debug("template section left a container empty", zap.String("part", part), zap.String("detail", issue))
		}
		if out != xml {
			if err := pkg.SetPart(part, out); err != nil {
				return nil, &TemplateRenderError{Part: part, Reason: "cannot write part", Err: err}
			}
		}
	}

	result := &RenderResult{Package: pkg}
	for name := range unresolved {
		result.Unresolved = append(result.Unresolved, name)
	}
	sort.Strings(result.Unresolved)
	if len(result.Unresolved) > 0 {
		r.logger().Debug("template fields left empty", zap.Strings("fields", result.Unresolved))
	}
	return result, nil
}

func (r *Renderer) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// joinSplitTags moves every {tag} that the word processor split over several
// text runs of one paragraph into the run where the tag starts. Only paragraphs
// that change are re-serialized; the rest of the part is kept as written.
func joinSplitTags(part, xml string) (string, error) {
	if !strings.Contains(xml, "{") {
		return xml, nil
	}

	elems, err := scanElements(xml)
	if err != nil {
		return "", &TemplateRenderError{Part: part, Reason: "malformed XML", Err: err}
	}

	var b strings.Builder
	cursor, done := 0, 0
	for _, el := range elems {
		// nested paragraphs are handled with their outer paragraph
		if el.name != "w:p" || el.start < done || !strings.Contains(xml[el.start:el.end], "{") {
			continue
		}
		done = el.end

		joined, changed, err := joinParagraph(xml[el.start:el.end])
		if err != nil {
			err.Part = part
			return "", err
		}
		if !changed {
			continue
		}
		b.WriteString(xml[cursor:el.start])
		b.WriteString(joined)
		cursor = el.end
	}
	if cursor == 0 {
		return xml, nil
	}
	b.WriteString(xml[cursor:])
	return b.String(), nil
}

// joinParagraph re-joins split tags in one paragraph and its nested paragraphs
func joinParagraph(fragment string) (string, bool, *TemplateRenderError) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(fragment); err != nil {
		return "", false, &TemplateRenderError{Reason: "malformed XML", Err: err}
	}

	changed := false
	var joinErr *TemplateRenderError
	walkElements(doc.Root(), func(el *etree.Element) bool {
		if el.FullTag() != "w:p" {
			return true
		}
		moved, err := joinParagraphTags(paragraphTexts(el))
		if err != nil {
			joinErr = err
			return false
		}
		changed = changed || moved
		return true
	})
	if joinErr != nil {
		return "", false, joinErr
	}
	if !changed {
		return fragment, false, nil
	}

	out, err := doc.WriteToString()
	if err != nil {
		return "", false, &TemplateRenderError{Reason: "cannot serialize paragraph", Err: err}
	}
	return out, true, nil
}

// walkElements visits el and its descendants depth first until fn returns false
func walkElements(el *etree.Element, fn func(*etree.Element) bool) bool {
	if el == nil {
		return true
	}
	if !fn(el) {
		return false
	}
	for _, child := range el.ChildElements() {
		if !walkElements(child, fn) {
			return false
		}
	}
	return true
}

// paragraphTexts returns the w:t elements owned by paragraph p, excluding nested paragraphs
func paragraphTexts(p *etree.Element) []*etree.Element {
	var texts []*etree.Element
	var collect func(el *etree.Element)
	collect = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			switch child.FullTag() {
			case "w:p":
				continue
			case "w:t":
				texts = append(texts, child)
			default:
				collect(child)
			}
		}
	}
	collect(p)
	return texts
}

// joinParagraphTags reports whether any text run had to change
func joinParagraphTags(texts []*etree.Element) (bool, *TemplateRenderError) {
	if len(texts) == 0 {
		return false, nil
	}

	var combined strings.Builder
	var owner []int
	for idx, t := range texts {
		text := t.Text()
		combined.WriteString(text)
		for range len(text) {
			owner = append(owner, idx)
		}
	}
	full := combined.String()
	if !strings.Contains(full, "{") {
		return false, nil
	}

	moved := false
	for i := 0; i < len(full); {
		if full[i] != '{' {
			i++
			continue
		}
		closeAt := strings.IndexByte(full[i+1:], '}')
		nextOpen := strings.IndexByte(full[i+1:], '{')
		if closeAt < 0 || (nextOpen >= 0 && nextOpen < closeAt) {
			return false, &TemplateRenderError{Tag: excerpt(full[i:]), Reason: "unclosed tag"}
		}
		end := i + 1 + closeAt
		for k := i + 1; k <= end; k++ {
			if owner[k] != owner[i] {
				owner[k] = owner[i]
				moved = true
			}
		}
		i = end + 1
	}

	rebuilt := make([]strings.Builder, len(texts))
	for k := 0; k < len(full); k++ {
		rebuilt[owner[k]].WriteByte(full[k])
	}
	changed := false
	for idx, t := range texts {
		text := rebuilt[idx].String()
		if moved && text != t.Text() {
			t.SetText(text)
			changed = true
		}
		if strings.Contains(text, "{") && t.SelectAttr("xml:space") == nil {
			t.CreateAttr("xml:space", "preserve")
			changed = true
		}
	}
	return changed, nil
}

func excerpt(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}

type tagType int

const (
	tagScalar tagType = iota
	tagOpen
	tagInverted
	tagClose
)

type templateTag struct {
	start int
	end   int
	raw   string
	typ   tagType
	name  string
}

// findTags locates {tags} in the character data of s
func findTags(s string) ([]templateTag, error) {
	var tags []templateTag
	var scanErr error
	forEachText(s, func(start, end int) {
		if scanErr != nil {
			return
		}
		for i := start; i < end; i++ {
			if s[i] != '{' {
				continue
			}
			k := strings.IndexByte(s[i+1:end], '}')
			if k < 0 {
				// joinSplitTags rejects unclosed tags inside paragraphs; leave stray braces alone
				return
			}
			raw := s[i : i+k+2]
			tag := templateTag{start: i, end: i + k + 2, raw: raw}
			body := strings.TrimSpace(raw[1 : len(raw)-1])
			switch {
			case strings.HasPrefix(body, "#"):
				tag.typ, tag.name = tagOpen, strings.TrimSpace(body[1:])
			case strings.HasPrefix(body, "^"):
				tag.typ, tag.name = tagInverted, strings.TrimSpace(body[1:])
			case strings.HasPrefix(body, "/"):
				tag.typ, tag.name = tagClose, strings.TrimSpace(body[1:])
			default:
				tag.typ, tag.name = tagScalar, body
			}
			if tag.name == "" {
				scanErr = &TemplateRenderError{Tag: raw, Reason: "empty tag"}
				return
			}
			tags = append(tags, tag)
			i = tag.end - 1
		}
	})
	return tags, scanErr
}

type section struct {
	open     templateTag
	close    templateTag
	outStart int
	outEnd   int
	chunk    string
}

type renderState struct {
	part    string
	missing func(name string)
}

func (st *renderState) fail(tag, reason string) error {
	return &TemplateRenderError{Part: st.part, Tag: tag, Reason: reason}
}

// render expands the tags of s against the scope stack
func (st *renderState) render(s string, scopes []any) (string, error) {
	tags, err := findTags(s)
	if err != nil {
		if re, ok := err.(*TemplateRenderError); ok {
			re.Part = st.part
		}
		return "", err
	}
	if len(tags) == 0 {
		return s, nil
	}

	elems, err := scanElements(s)
	if err != nil {
		return "", &TemplateRenderError{Part: st.part, Reason: "malformed markup", Err: err}
	}

	var sections []section
	var stack []int
	for idx, tag := range tags {
		switch tag.typ {
		case tagOpen, tagInverted:
			stack = append(stack, idx)
		case tagClose:
			if len(stack) == 0 {
				return "", st.fail(tag.raw, "closing tag without matching section")
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if tags[top].name != tag.name {
				return "", st.fail(tag.raw, "closes section "+tags[top].raw)
			}
			if len(stack) == 0 {
				sec := st.expand(s, elems, tags[top], tag)
				if n := len(sections); n > 0 && sec.outStart < sections[n-1].outEnd {
					return "", st.fail(tag.raw, "section overlaps "+sections[n-1].open.raw)
				}
				sections = append(sections, sec)
			}
		}
	}
	if len(stack) > 0 {
		return "", st.fail(tags[stack[0]].raw, "unterminated section")
	}

	var out strings.Builder
	cursor := 0
	next := 0
	for _, tag := range tags {
		if next < len(sections) && tag.start >= sections[next].outStart {
			sec := sections[next]
			next++
			out.WriteString(s[cursor:sec.outStart])
			if err := st.renderSection(&out, sec, scopes); err != nil {
				return "", err
			}
			cursor = sec.outEnd
		}
		if tag.start < cursor || tag.typ != tagScalar {
			continue
		}
		out.WriteString(s[cursor:tag.start])
		out.WriteString(st.scalar(s, elems, tag, scopes))
		cursor = tag.end
	}
	for ; next < len(sections); next++ {
		out.WriteString(s[cursor:sections[next].outStart])
		if err := st.renderSection(&out, sections[next], scopes); err != nil {
			return "", err
		}
		cursor = sections[next].outEnd
	}
	out.WriteString(s[cursor:])
	return out.String(), nil
}

func (st *renderState) renderSection(out *strings.Builder, sec section, scopes []any) error {
	// An absent section is falsy, not a missing field
	value, _ := lookup(sec.open.name, scopes)
	for _, frame := range iterations(value, sec.open.typ == tagInverted) {
		inner := scopes
		if frame.push {
			inner = append(append([]any(nil), scopes...), frame.value)
		}
		rendered, err := st.render(sec.chunk, inner)
		if err != nil {
			return err
		}
		out.WriteString(rendered)
	}
	return nil
}

// expand decides which markup a section repeats
func (st *renderState) expand(s string, elems []element, open, close templateTag) section {
	sec := section{open: open, close: close}

	if !strings.Contains(s[open.end:close.start], "<") {
		sec.outStart, sec.outEnd = open.start, close.end
		sec.chunk = s[open.end:close.start]
		return sec
	}

	container := commonAncestor(elems, innermost(elems, open.start), innermost(elems, close.start))
	if container >= 0 && elems[container].name == "w:tr" {
		row := elems[container]
		sec.outStart, sec.outEnd = row.start, row.end
		sec.chunk = cutTags(s, row.start, row.end, open, close)
		return sec
	}

	first := childContaining(elems, container, open.start)
	last := childContaining(elems, container, close.start)
	sec.outStart, sec.outEnd = open.start, close.end
	if first >= 0 {
		sec.outStart = elems[first].start
	}
	if last >= 0 {
		sec.outEnd = elems[last].end
	}

	chunkStart, chunkEnd := sec.outStart, sec.outEnd
	if first >= 0 && first != last && elems[first].name == "w:p" && holdsOnly(s, elems[first], open) {
		chunkStart = elems[first].end
	}
	if last >= 0 && first != last && elems[last].name == "w:p" && holdsOnly(s, elems[last], close) {
		chunkEnd = elems[last].start
	}
	sec.chunk = cutTags(s, chunkStart, chunkEnd, open, close)
	return sec
}

// holdsOnly reports whether the paragraph's visible text is exactly the tag
func holdsOnly(s string, p element, tag templateTag) bool {
	return strings.TrimSpace(visibleText(s[p.start:p.end])) == tag.raw
}

// cutTags returns s[start:end] without the open and close tag text
func cutTags(s string, start, end int, open, close templateTag) string {
	var b strings.Builder
	cursor := start
	for _, tag := range []templateTag{open, close} {
		if tag.start < cursor || tag.end > end {
			continue
		}
		b.WriteString(s[cursor:tag.start])
		cursor = tag.end
	}
	if cursor < end {
		b.WriteString(s[cursor:end])
	}
	return b.String()
}

// scalar renders one field as escaped character data
func (st *renderState) scalar(s string, elems []element, tag templateTag, scopes []any) string {
	value, ok := lookup(tag.name, scopes)
	if !ok {
		st.missing(tag.name)
		return ""
	}
	text := escapeText(stringify(value))
	if !strings.Contains(text, "\n") {
		return text
	}

	// line breaks become w:br inside a text run
	if el := innermost(elems, tag.start); el >= 0 && elems[el].name == "w:t" {
		return strings.ReplaceAll(text, "\n", `</w:t><w:br/><w:t xml:space="preserve">`)
	}
	return strings.ReplaceAll(text, "\n", " ")
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"\r\n", "\n",
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

type iteration struct {
	push  bool
	value any
}

// iterations returns how many times, and with which scope, a section renders
func iterations(v any, inverted bool) []iteration {
	truthy := false
	switch val := v.(type) {
	case nil:
	case bool:
		truthy = val
	case string:
		truthy = val != ""
	case float64:
		truthy = val != 0
	case []any:
		truthy = len(val) > 0
	default:
		truthy = true
	}

	if inverted {
		if truthy {
			return nil
		}
		return []iteration{{}}
	}
	if !truthy {
		return nil
	}

	switch val := v.(type) {
	case []any:
		frames := make([]iteration, len(val))
		for idx, item := range val {
			frames[idx] = iteration{push: true, value: item}
		}
		return frames
	case map[string]any:
		return []iteration{{push: true, value: val}}
	default:
		return []iteration{{}}
	}
}

// lookup resolves a dotted/bracketed field path against the innermost scope first
func lookup(path string, scopes []any) (any, bool) {
	if path == "." {
		return scopes[len(scopes)-1], true
	}
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, false
	}

	for k := len(scopes) - 1; k >= 0; k-- {
		m, ok := scopes[k].(map[string]any)
		if !ok {
			continue
		}
		cur, ok := m[segments[0]]
		if !ok {
			continue
		}
		return descend(cur, segments[1:])
	}
	return nil, false
}

func descend(cur any, segments []string) (any, bool) {
	for _, seg := range segments {
		switch val := cur.(type) {
		case map[string]any:
			next, ok := val[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(val) {
				return nil, false
			}
			cur = val[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// splitPath turns "items[0].name" into ["items", "0", "name"]
func splitPath(path string) []string {
	path = strings.NewReplacer("[", ".", "]", "").Replace(path)
	var segments []string
	for _, seg := range strings.Split(path, ".") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}
