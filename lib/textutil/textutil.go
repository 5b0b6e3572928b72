package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

// EqualFold reports whether two names are the same after normalization.
func EqualFold(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// MutualPrefix reports whether either normalized name is a prefix of
// the other. This tolerates middle-initial variants ("Elizabeth" vs
// "Elizabeth Ann") without accepting arbitrary nicknames.
func MutualPrefix(a, b string) bool {
	a = NormalizeName(a)
	b = NormalizeName(b)
	if a == "" || b == "" {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

// ContainsFold reports whether haystack contains needle, ignoring case.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
