// Package similarity scores how alike two article names are.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Score returns 1 - Levenshtein(a, b)/max(len(a), len(b)) over the
// lowercased inputs, measured in code points. Two empty strings score 1.
func Score(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := matchr.Levenshtein(a, b)
	return float64(maxLen-dist) / float64(maxLen)
}
