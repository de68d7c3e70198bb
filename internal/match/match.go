// Package match provides text normalization and string-similarity scoring
// for fuzzy entity correction. Scores are integer percentages in [0,100],
// computed from Levenshtein edit distance, so callers can express thresholds
// like "replace at >= 75" directly.
//
// The package is dependency-light, deterministic, and safe for concurrent
// use; it performs no I/O and no logging.
package match

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var (
	punctRE = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	wsRE    = regexp.MustCompile(`\s+`)
)

// Normalize lowercases text, strips punctuation, and collapses consecutive
// whitespace to single spaces. It is the canonical key form used by the
// entity cache.
func Normalize(text string) string {
	text = punctRE.ReplaceAllString(strings.ToLower(text), "")
	return strings.TrimSpace(wsRE.ReplaceAllString(text, " "))
}

// Ratio returns a similarity percentage between a and b in [0,100].
// Identical strings (including two empty strings) score 100; a zero score
// means no character survives the edit.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	// round to nearest integer percentage
	return (100*(longest-dist) + longest/2) / longest
}

// BestMatch finds the candidate with the highest Ratio against query after
// normalizing both sides. It returns the original (un-normalized) candidate
// and its score, or ("", 0) when no candidate reaches threshold.
func BestMatch(query string, candidates []string, threshold int) (string, int) {
	if query == "" || len(candidates) == 0 {
		return "", 0
	}
	qn := Normalize(query)
	best, bestScore := "", 0
	for _, c := range candidates {
		score := Ratio(qn, Normalize(c))
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < threshold {
		return "", 0
	}
	return best, bestScore
}
