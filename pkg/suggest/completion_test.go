package suggest

import (
	"strings"
	"testing"

	"github.com/bastiangx/qacbox/pkg/dictionary"
	"github.com/bastiangx/qacbox/pkg/lookup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAliases = `Marie Curie	Q7186	900
curie	Q7186	300
Curie	Q37463	40
Paris	Q90	1200
paris hilton	Q47899	500
Einstein	Q937	800
Albert Einstein	Q937	700
`

const testEntities = `Q7186	Marie Curie	https://upload.wikimedia.org/curie.jpg	Physicist and chemist.
Q37463	Pierre Curie		French physicist.
Q90	Paris		Capital of France.
Q937	Albert Einstein		Theoretical physicist.
`

func testStore(t *testing.T) *dictionary.Store {
	t.Helper()
	s := dictionary.NewStore()
	_, err := s.LoadAliases(strings.NewReader(testAliases), "aliases")
	require.NoError(t, err)
	_, err = s.LoadEntities(strings.NewReader(testEntities), "entities")
	require.NoError(t, err)
	return s
}

func TestCompleteTrailingFragment(t *testing.T) {
	ix := NewIndex(testStore(t), Options{})

	got := ix.Complete("where was mar", 10)
	require.Len(t, got, 1)
	assert.Equal(t, lookup.Result{
		Completion:   "where was [Marie Curie] ",
		Wikified:     "where was [Marie Curie] ",
		MatchedAlias: "",
		QIDs:         []string{"Q7186"},
		URLs:         []string{"https://en.wikipedia.org/wiki/Marie_Curie"},
	}, got[0])
}

func TestCompleteKeepsConfirmedEntities(t *testing.T) {
	ix := NewIndex(testStore(t), Options{})

	got := ix.Complete("[Q7186] and cur", 10)
	require.Len(t, got, 2)

	assert.Equal(t, "[Marie Curie] and [curie] ", got[0].Completion)
	assert.Equal(t, "[Marie Curie] and [Marie Curie] ", got[0].Wikified)
	assert.Equal(t, "curie", got[0].MatchedAlias)
	assert.Equal(t, []string{"Q7186", "Q7186"}, got[0].QIDs)

	assert.Equal(t, "[Marie Curie] and [Pierre Curie] ", got[1].Wikified)
	assert.Equal(t, []string{"Q7186", "Q37463"}, got[1].QIDs)

	// The completion parses back with every mention bound.
	assert.Equal(t, []string{"Q7186", "Q37463"}, got[1].Document().IDs())
	assert.Equal(t, "Marie Curie and Pierre Curie (Curie) ", got[1].LabelText())
}

func TestCompleteMatchedAlias(t *testing.T) {
	ix := NewIndex(testStore(t), Options{})

	got := ix.Complete("who is einst", 10)
	require.Len(t, got, 1)
	assert.Equal(t, "who is [Einstein] ", got[0].Completion)
	assert.Equal(t, "who is [Albert Einstein] ", got[0].Wikified)
	assert.Equal(t, "Einstein", got[0].MatchedAlias)
	assert.Equal(t, "who is Albert Einstein (Einstein) ", got[0].LabelText())
}

func TestCompleteOrderAndLimit(t *testing.T) {
	ix := NewIndex(testStore(t), Options{})

	got := ix.Complete("pari", 10)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Q90"}, got[0].QIDs)
	assert.Equal(t, []string{"Q47899"}, got[1].QIDs)
	assert.Equal(t, []string{""}, got[1].URLs, "unknown entities have no link")

	assert.Len(t, ix.Complete("pari", 1), 1)
}

func TestCompleteNothingToComplete(t *testing.T) {
	ix := NewIndex(testStore(t), Options{})

	for _, q := range []string{"", "[Q7186]", "[Q7186] ", "zzz"} {
		got := ix.Complete(q, 10)
		assert.NotNil(t, got, "query %q", q)
		assert.Empty(t, got, "query %q", q)
	}
}

func TestCompleteFuzzyFallback(t *testing.T) {
	withFuzzy := NewIndex(testStore(t), Options{Fuzzy: true})
	got := withFuzzy.Complete("where was marie curje", 10)
	require.NotEmpty(t, got)
	assert.Equal(t, "where was [Marie Curie] ", got[0].Completion)
	assert.Equal(t, []string{"Q7186"}, got[0].QIDs)

	without := NewIndex(testStore(t), Options{})
	assert.Empty(t, without.Complete("where was marie curje", 10))
}

func TestCompleteCachesAndResets(t *testing.T) {
	ix := NewIndex(testStore(t), Options{})

	first := ix.Complete("pari", 10)
	second := ix.Complete("pari", 10)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, ix.Stats()["cacheHits"])

	ix.SetStore(dictionary.NewStore())
	assert.Empty(t, ix.Complete("pari", 10))
	assert.Equal(t, 0, ix.Stats()["aliases"])
}

func TestInfo(t *testing.T) {
	ix := NewIndex(testStore(t), Options{})

	info, ok := ix.Info("Q7186")
	require.True(t, ok)
	assert.Equal(t, "Physicist and chemist.", info.Abstract)

	_, ok = ix.Info("Q1")
	assert.False(t, ok)
}

func TestLink(t *testing.T) {
	assert.Equal(t, "https://en.wikipedia.org/wiki/Albert_Einstein", Link(" Albert Einstein "))
}
