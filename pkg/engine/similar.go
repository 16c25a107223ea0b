package engine

import "sort"

// suggestionThreshold is the minimum similarity for a tag suggestion.
const suggestionThreshold = 0.8

// maxSuggestions caps the suggestions attached to a NotFound result.
const maxSuggestions = 3

// levenshteinDistance computes the edit distance between a and b using two
// rolling rows.
func levenshteinDistance(a, b string) int {
	aRunes := []rune(a)
	bRunes := []rune(b)
	aLen := len(aRunes)
	bLen := len(bRunes)

	if aLen == 0 {
		return bLen
	}
	if bLen == 0 {
		return aLen
	}

	if aLen > bLen {
		aRunes, bRunes = bRunes, aRunes
		aLen, bLen = bLen, aLen
	}

	prevRow := make([]int, aLen+1)
	currRow := make([]int, aLen+1)
	for i := 0; i <= aLen; i++ {
		prevRow[i] = i
	}

	for j := 1; j <= bLen; j++ {
		currRow[0] = j
		for i := 1; i <= aLen; i++ {
			cost := 1
			if aRunes[i-1] == bRunes[j-1] {
				cost = 0
			}
			currRow[i] = min(prevRow[i]+1, currRow[i-1]+1, prevRow[i-1]+cost)
		}
		prevRow, currRow = currRow, prevRow
	}

	return prevRow[aLen]
}

// similarity is 1 - distance/maxLen, in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(a, b))/float64(maxLen)
}

// SuggestTags returns up to three candidates most similar to tag, best
// first, ties broken alphabetically.
func SuggestTags(tag string, candidates []string) []string {
	type scored struct {
		tag   string
		score float64
	}
	var hits []scored
	for _, c := range candidates {
		if c == tag {
			continue
		}
		if s := similarity(tag, c); s >= suggestionThreshold {
			hits = append(hits, scored{c, s})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].tag < hits[j].tag
	})

	out := make([]string, 0, min(len(hits), maxSuggestions))
	for i := 0; i < len(hits) && i < maxSuggestions; i++ {
		out = append(out, hits[i].tag)
	}
	return out
}
