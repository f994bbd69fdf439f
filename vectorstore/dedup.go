package vectorstore

import "github.com/agnivade/levenshtein"

// levenshteinSimilarity returns a normalized similarity in [0, 1]: 1 when
// the strings are identical, decreasing as edit distance grows relative to
// the longer string's length.
func levenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}
