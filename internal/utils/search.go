package utils

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle folds case and strips diacritics so "Ёлки" matches "елки"
// and "Amélie" matches "amelie".
func NormalizeTitle(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.TrimSpace(cases.Fold().String(stripped))
}

// SearchHit is a catalog entry matched by a search term
type SearchHit struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Distance int    `json:"distance"`
}

// MatchesTerm reports whether the normalized term occurs in any of the fields
func MatchesTerm(term string, fields ...string) bool {
	needle := NormalizeTitle(term)
	if needle == "" {
		return false
	}
	for _, f := range fields {
		if strings.Contains(NormalizeTitle(f), needle) {
			return true
		}
	}
	return false
}

// TitleDistance is the edit distance between the normalized title and term
func TitleDistance(title, term string) int {
	return levenshtein.ComputeDistance(NormalizeTitle(title), NormalizeTitle(term))
}

// RankHits sorts hits by:
// 1. Edit distance to the term (closer first)
// 2. Title (alphabetical)
func RankHits(hits []SearchHit) []SearchHit {
	sorted := make([]SearchHit, len(hits))
	copy(sorted, hits)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Distance != sorted[j].Distance {
			return sorted[i].Distance < sorted[j].Distance
		}
		return sorted[i].Title < sorted[j].Title
	})

	return sorted
}
