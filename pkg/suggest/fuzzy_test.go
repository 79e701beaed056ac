package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// preference: exact key > closest spelling > most frequent key
func TestFuzzyMatcher(t *testing.T) {
	fm := NewFuzzyMatcher(map[string]int{
		"paris":        1200,
		"paris hilton": 500,
		"marie curie":  900,
		"curie":        300,
		"einstein":     800,
		"berlin":       600,
		"bern":         100,
	})

	testCases := []struct {
		input       string
		expected    string
		corrected   bool
		description string
	}{
		{"paris", "paris", false, "exact key"},
		{"pariss", "paris", true, "extra letter"},
		{"einstien", "einstein", true, "swapped letters"},
		{"marie curje", "marie curie", true, "substitution in a multi word key"},
		{"brln", "berlin", true, "dropped vowels"},
		{"pa", "pa", false, "too short"},
		{"1234", "1234", false, "numbers only"},
		{"eeee", "eeee", false, "repetitive"},
		{"xyzzy", "xyzzy", false, "no candidate"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got, ok := fm.Correct(tc.input)
			assert.Equal(t, tc.corrected, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein([]rune("curie"), []rune("CURIE")))
	assert.Equal(t, 1, levenshtein([]rune("curje"), []rune("curie")))
	assert.Equal(t, 3, levenshtein([]rune(""), []rune("abc")))
}
