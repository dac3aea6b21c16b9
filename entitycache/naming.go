package entitycache

import (
	"strings"
	"unicode"
)

// cacheName derives a cache label such as "outfit_member_cache" from a type name.
func cacheName(typeName string, suffix ...string) string {
	parts := append([]string{snake(typeName)}, suffix...)
	return strings.Join(append(parts, "cache"), "_")
}

// snake converts CamelCase type names to snake_case. Acronyms stay together
// ("HTTPServer" becomes "http_server") and punctuation collapses into a
// single underscore.
func snake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	pending := false
	sep := func() {
		if b.Len() > 0 {
			pending = true
		}
	}
	write := func(r rune) {
		if pending {
			b.WriteByte('_')
			pending = false
		}
		b.WriteRune(r)
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sep()
				}
			}
			write(unicode.ToLower(r))
		case unicode.IsDigit(r):
			if i > 0 && !unicode.IsDigit(runes[i-1]) {
				sep()
			}
			write(r)
		case unicode.IsLetter(r):
			write(r)
		default:
			sep()
		}
	}
	return b.String()
}
