package utils

import (
	"regexp"
	"strings"
)

var (
	slugPattern   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugSeparator = regexp.MustCompile(`[^a-z0-9]+`)
	slugReplacer  = strings.NewReplacer("æ", "ae", "ø", "o", "å", "a", "ä", "a", "ö", "o", "ü", "u", "é", "e")
)

// Slugify derives a URL slug from a display name.
func Slugify(name string) string {
	s := slugReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = slugSeparator.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func IsSlug(s string) bool {
	return slugPattern.MatchString(s)
}
