package suggest

import (
	"sort"

	"github.com/bastiangx/qacbox/internal/utils"
)

// Scoring of fuzzy matches.
const (
	firstCharMatchBonus  = 15
	adjacentMatchBonus   = 10
	separatorMatchBonus  = 12
	skippedCharPenalty   = -1
	editDistanceBase     = 40
	editDistancePenalty  = -12
	maxFrequencyBonus    = 30
	lengthDiffPenalty    = -2
	minCorrectableLength = 3
)

// FuzzyMatcher corrects a mistyped fragment to the closest alias key.
// Preference: exact key, then score from in-order matches or edit distance,
// with frequent keys winning ties.
type FuzzyMatcher struct {
	keys []string
	freq map[string]int
}

// Match is a candidate key with its score.
type Match struct {
	Key   string
	Score int
}

// NewFuzzyMatcher builds a matcher over alias keys and their best frequency.
func NewFuzzyMatcher(keyFreq map[string]int) *FuzzyMatcher {
	keys := make([]string, 0, len(keyFreq))
	for k := range keyFreq {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &FuzzyMatcher{keys: keys, freq: keyFreq}
}

// Correct returns the best key for fragment, which must already be folded
// with dictionary.Key. It reports false when there is nothing to correct.
func (fm *FuzzyMatcher) Correct(fragment string) (string, bool) {
	if fm == nil || len([]rune(fragment)) < minCorrectableLength {
		return fragment, false
	}
	if !utils.IsValidFragment(fragment) {
		return fragment, false
	}
	if _, ok := fm.freq[fragment]; ok {
		return fragment, false
	}
	matches := fm.Matches(fragment)
	if len(matches) == 0 {
		return fragment, false
	}
	return matches[0].Key, true
}

// Matches scores every key against fragment, best first.
func (fm *FuzzyMatcher) Matches(fragment string) []Match {
	pattern := []rune(fragment)
	maxDist := 1
	if len(pattern) > 5 {
		maxDist = 2
	}

	var matches []Match
	for _, key := range fm.keys {
		kr := []rune(key)
		if len(kr) == 0 || !utils.EqualFold(pattern[0], kr[0]) {
			continue
		}
		score, ok := subsequenceScore(pattern, kr)
		if d := levenshtein(pattern, kr); d <= maxDist {
			if s := editDistanceBase + d*editDistancePenalty; !ok || s > score {
				score, ok = s, true
			}
		}
		if !ok {
			continue
		}
		score += min(fm.freq[key]/10, maxFrequencyBonus)
		score += abs(len(kr)-len(pattern)) * lengthDiffPenalty
		matches = append(matches, Match{Key: key, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return fm.freq[matches[i].Key] > fm.freq[matches[j].Key]
	})
	return matches
}

// subsequenceScore matches pattern runes in order against candidate,
// rewarding first character, post separator and adjacent hits.
func subsequenceScore(pattern, candidate []rune) (int, bool) {
	score, pi, lastMatch := 0, 0, -2
	for i, c := range candidate {
		if pi == len(pattern) {
			break
		}
		if !utils.EqualFold(c, pattern[pi]) {
			score += skippedCharPenalty
			continue
		}
		switch {
		case i == 0:
			score += firstCharMatchBonus
		case utils.IsSeparator(candidate[i-1]):
			score += separatorMatchBonus
		}
		if lastMatch == i-1 {
			score += adjacentMatchBonus
		}
		lastMatch = i
		pi++
	}
	return score, pi == len(pattern)
}

// levenshtein is the edit distance between a and b.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if utils.EqualFold(a[i-1], b[j-1]) {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
