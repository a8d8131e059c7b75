package normalization

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// PathSegment turns a free-form label (a tag) into a single safe path
// segment. The label is NFC-normalized so visually identical tags map to the
// same directory; separators and control characters become '-'. The second
// result is false when nothing usable remains ("", "." or "..").
func PathSegment(label string) (string, bool) {
	s := norm.NFC.String(strings.TrimSpace(label))
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '-'
		case unicode.IsControl(r):
			return '-'
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." {
		return "", false
	}
	return s, true
}
