package slug

import (
	"strings"
	"unicode"
)

// arabicDigits maps Arabic-Indic and Eastern Arabic-Indic digits to ASCII.
var arabicDigits = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
)

// Generate creates a URL path segment from a company name.
// Latin letters are lowercased, Arabic letters are kept as-is and every run of
// other characters collapses into a single hyphen.
//
// Examples:
//   - "Hello   World!" → "hello-world"
//   - "مطعم الشام ٢" → "مطعم-الشام-2"
func Generate(name string) string {
	s := arabicDigits.Replace(strings.ToLower(strings.TrimSpace(name)))

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		if isSlugRune(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// IsASCII reports whether slug contains only ASCII characters.
func IsASCII(slug string) bool {
	for i := 0; i < len(slug); i++ {
		if slug[i] >= unicode.MaxASCII {
			return false
		}
	}
	return true
}

// WithSuffix appends suffix to base, or returns suffix alone when base is empty.
func WithSuffix(base, suffix string) string {
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func isSlugRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case unicode.Is(unicode.Arabic, r) && unicode.IsLetter(r):
		return true
	default:
		return false
	}
}
