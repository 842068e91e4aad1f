package docgen

import (
	"fmt"
	"strings"
)

// element is the byte span of one XML element inside a part's text
type element struct {
	name   string
	start  int // offset of '<'
	inner  int // offset just past the opening tag
	end    int // offset just past the closing tag
	parent int // -1 at the top level of the scanned text
}

// skipSpecial returns the offset past a comment, CDATA section, declaration or
// processing instruction starting at pos, or -1 if pos starts a regular tag.
func skipSpecial(s string, pos int) (int, error) {
	var terminator string
	switch {
	case strings.HasPrefix(s[pos:], "<!--"):
		terminator = "-->"
	case strings.HasPrefix(s[pos:], "<![CDATA["):
		terminator = "]]>"
	case strings.HasPrefix(s[pos:], "<?"):
		terminator = "?>"
	case strings.HasPrefix(s[pos:], "<!"):
		terminator = ">"
	default:
		return -1, nil
	}
	k := strings.Index(s[pos:], terminator)
	if k < 0 {
		return 0, fmt.Errorf("unterminated markup at offset %d", pos)
	}
	return pos + k + len(terminator), nil
}

// scanElements records every element of s in document order
func scanElements(s string) ([]element, error) {
	var elems []element
	var stack []int

	for i := 0; i < len(s); {
		j := strings.IndexByte(s[i:], '<')
		if j < 0 {
			break
		}
		pos := i + j

		next, err := skipSpecial(s, pos)
		if err != nil {
			return nil, err
		}
		if next >= 0 {
			i = next
			continue
		}

		k := strings.IndexByte(s[pos:], '>')
		if k < 0 {
			return nil, fmt.Errorf("unterminated tag at offset %d", pos)
		}
		closeAt := pos + k + 1
		tag := s[pos+1 : pos+k]

		if strings.HasPrefix(tag, "/") {
			name := strings.TrimSpace(tag[1:])
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected </%s> at offset %d", name, pos)
			}
			top := stack[len(stack)-1]
			if elems[top].name != name {
				return nil, fmt.Errorf("</%s> closes <%s> at offset %d", name, elems[top].name, pos)
			}
			elems[top].end = closeAt
			stack = stack[:len(stack)-1]
			i = closeAt
			continue
		}

		selfClosing := strings.HasSuffix(tag, "/")
		name := tag
		if n := strings.IndexAny(tag, " \t\r\n/"); n >= 0 {
			name = tag[:n]
		}
		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}
		elems = append(elems, element{name: name, start: pos, inner: closeAt, parent: parent})
		if selfClosing {
			elems[len(elems)-1].end = closeAt
		} else {
			stack = append(stack, len(elems)-1)
		}
		i = closeAt
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("<%s> is never closed", elems[stack[len(stack)-1]].name)
	}
	return elems, nil
}

// innermost returns the deepest element whose content contains off, or -1
func innermost(elems []element, off int) int {
	found := -1
	for idx, el := range elems {
		if el.start > off {
			break
		}
		if el.inner <= off && off < el.end {
			found = idx
		}
	}
	return found
}

// commonAncestor returns the deepest element containing both a and b, or -1
func commonAncestor(elems []element, a, b int) int {
	seen := make(map[int]bool)
	for e := a; e >= 0; e = elems[e].parent {
		seen[e] = true
	}
	for e := b; e >= 0; e = elems[e].parent {
		if seen[e] {
			return e
		}
	}
	return -1
}

// childContaining returns the direct child of container (-1 for the top level)
// whose span contains off, or -1 when off sits directly in the container's text.
func childContaining(elems []element, container, off int) int {
	for e := innermost(elems, off); e >= 0; e = elems[e].parent {
		if elems[e].parent == container {
			return e
		}
	}
	// off may sit inside a top-level element's opening tag range; look for a sibling span
	for idx, el := range elems {
		if el.parent == container && el.start <= off && off < el.end {
			return idx
		}
	}
	return -1
}

// visibleText concatenates the character data of s, dropping all markup
func visibleText(s string) string {
	var b strings.Builder
	forEachText(s, func(start, end int) {
		b.WriteString(s[start:end])
	})
	return b.String()
}

// forEachText calls fn for every run of character data outside markup
func forEachText(s string, fn func(start, end int)) {
	i := 0
	for i < len(s) {
		j := strings.IndexByte(s[i:], '<')
		if j < 0 {
			fn(i, len(s))
			return
		}
		if j > 0 {
			fn(i, i+j)
		}
		pos := i + j
		next, err := skipSpecial(s, pos)
		if err != nil {
			return
		}
		if next < 0 {
			k := strings.IndexByte(s[pos:], '>')
			if k < 0 {
				return
			}
			next = pos + k + 1
		}
		i = next
	}
}
