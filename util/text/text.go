package text

import (
	"strings"
	"unicode"
)

// Clean strips control characters and collapses the result to at most max
// runes. Index payloads must stay printable and bounded.
func Clean(s string, max int) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())

	if max > 0 {
		runes := []rune(out)
		if len(runes) > max {
			out = string(runes[:max])
		}
	}

	return out
}

// Blank reports whether s contains nothing but whitespace or control
// characters.
func Blank(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) && !unicode.IsControl(r) {
			return false
		}
	}
	return true
}
