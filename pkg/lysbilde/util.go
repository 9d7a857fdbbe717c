package lysbilde

import (
	"fmt"
	"strings"
	"unicode"
)

// urlEncode percent-encodes a single path segment, preserving the RFC 3986
// unreserved set (alphanumerics, '-', '_', '.', '~').
func urlEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteRune(c)
		default:
			for _, byt := range []byte(string(c)) {
				fmt.Fprintf(&b, "%%%02X", byt)
			}
		}
	}
	return b.String()
}

// urlEncodePath encodes each segment of a slash-separated path, preserving
// the '/' separators themselves.
func urlEncodePath(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = urlEncode(s)
	}
	return strings.Join(segs, "/")
}

// titlecase turns a directory name into a display name:
// "2025-china-trip" -> "2025 China Trip".
func titlecase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
