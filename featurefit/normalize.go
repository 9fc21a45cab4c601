package featurefit

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeToken performs Unicode normalization on a concept or feature name
// and strips surrounding whitespace and stray control characters. Catalog and
// correlation files occasionally mix encodings, so every identifier passes
// through here before it is used as a map key.
func NormalizeToken(token string) string {
	normed := norm.NFKC.String(token)
	normed = strings.TrimSpace(normed)
	normed = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
	return normed
}
