package content

import (
	"cmp"
	"slices"
	"strings"
)

// Both stores sort list results with these comparators so that memory and
// PostgreSQL listings agree byte for byte.

func compareNumber(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*a, *b)
	}
}

// CompareResources orders by title, then id.
func CompareResources(a, b Resource) int {
	if c := strings.Compare(a.Title, b.Title); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// CompareChapters orders by number with missing numbers last, then title, then id.
func CompareChapters(a, b Node) int {
	if c := compareNumber(a.Number, b.Number); c != 0 {
		return c
	}
	if c := strings.Compare(a.Title, b.Title); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// CompareChildren orders by the explicit order field, then as chapters.
func CompareChildren(a, b Node) int {
	if c := cmp.Compare(a.Order, b.Order); c != 0 {
		return c
	}
	return CompareChapters(a, b)
}

// CompareQuestions orders by order, then question number, then id.
func CompareQuestions(a, b Question) int {
	if c := cmp.Compare(a.Order, b.Order); c != 0 {
		return c
	}
	if c := CompareQuestionNumbers(a.QuestionNumber, b.QuestionNumber); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// CompareQuestionNumbers compares labels such as "1.2" and "1.10" naturally:
// digit runs compare by value, everything else byte-wise, and a digit run sorts
// before a non-digit run. "1.2" < "1.10" < "2" < "2a".
func CompareQuestionNumbers(a, b string) int {
	for a != "" && b != "" {
		ra, restA := nextRun(a)
		rb, restB := nextRun(b)
		da, db := isDigit(ra[0]), isDigit(rb[0])
		var c int
		switch {
		case da && db:
			c = compareDigits(ra, rb)
		case da:
			c = -1
		case db:
			c = 1
		default:
			c = strings.Compare(ra, rb)
		}
		if c != 0 {
			return c
		}
		a, b = restA, restB
	}
	return cmp.Compare(len(a), len(b))
}

func nextRun(s string) (string, string) {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// compareDigits compares two digit strings by value without overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func sortChapters(nodes []Node) { slices.SortFunc(nodes, CompareChapters) }
func sortChildren(nodes []Node) { slices.SortFunc(nodes, CompareChildren) }
func sortQuestions(qs []Question) { slices.SortFunc(qs, CompareQuestions) }
func sortResources(rs []Resource) { slices.SortFunc(rs, CompareResources) }
