package docgen

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SafeFilenamePart folds accents and replaces anything outside [A-Za-z0-9._-] with '-'
func SafeFilenamePart(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	lastDash := false
	for _, r := range strings.TrimSpace(folded) {
		switch {
		case r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_'):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "document"
	}
	return out
}

// Filename returns <kind>_<number>.<ext>
func Filename(kind Kind, number string, format Format) string {
	return string(kind) + "_" + SafeFilenamePart(number) + "." + string(format)
}
