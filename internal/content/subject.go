package content

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeSubject trims, collapses inner whitespace and title-cases a subject
// name so "physical  sciences" and "Physical Sciences" are the same subject.
func NormalizeSubject(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// A Caser keeps state between calls, so each call gets its own.
	return cases.Title(language.English).String(s)
}
