package suggest

import (
	"sort"
	"strings"
	"sync"

	"github.com/bastiangx/qacbox/internal/utils"
	"github.com/bastiangx/qacbox/pkg/dictionary"
	"github.com/bastiangx/qacbox/pkg/document"
	"github.com/bastiangx/qacbox/pkg/lookup"
	"github.com/charmbracelet/log"
)

// WikiBase prefixes the title of an entity to form its link.
const WikiBase = "https://en.wikipedia.org/wiki/"

// Defaults for Options.
const (
	DefaultLimit        = 10
	DefaultMaxWords     = 4
	DefaultCacheEntries = 2048
)

// Options tune an Index.
type Options struct {
	// MaxWords is the longest trailing word run tried as an alias prefix.
	MaxWords int
	// MinFragment is the shortest fragment, in runes, that is completed.
	MinFragment  int
	CacheEntries int
	Fuzzy        bool
}

// Index completes question prefixes against a dictionary store.
type Index struct {
	opts  Options
	store *dictionary.Store
	fuzzy *FuzzyMatcher
	cache *Cache
	mu    sync.RWMutex
}

// NewIndex returns an index over store.
func NewIndex(store *dictionary.Store, opts Options) *Index {
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultMaxWords
	}
	if opts.MinFragment <= 0 {
		opts.MinFragment = 1
	}
	if opts.CacheEntries == 0 {
		opts.CacheEntries = DefaultCacheEntries
	}
	ix := &Index{opts: opts, cache: NewCache(opts.CacheEntries)}
	ix.SetStore(store)
	return ix
}

// SetStore swaps the dictionary, e.g. after a reload, and drops cached answers.
func (ix *Index) SetStore(store *dictionary.Store) {
	var fm *FuzzyMatcher
	if ix.opts.Fuzzy && store != nil {
		best := make(map[string]int)
		store.VisitPrefix("", func(key string, aliases []dictionary.Alias) {
			best[key] = aliases[0].Frequency
		})
		fm = NewFuzzyMatcher(best)
	}
	ix.mu.Lock()
	ix.store = store
	ix.fuzzy = fm
	ix.mu.Unlock()
	ix.cache.Reset()
}

// head is the part of a query before the fragment being completed.
type head struct {
	completion strings.Builder
	wikified   strings.Builder
	qids       []string
	urls       []string
}

func (h *head) mention(surface, title, qid, url string) {
	h.completion.WriteString("[" + surface + "]")
	h.wikified.WriteString("[" + title + "]")
	h.qids = append(h.qids, qid)
	h.urls = append(h.urls, url)
}

func (h *head) text(s string) {
	h.completion.WriteString(s)
	h.wikified.WriteString(s)
}

// Complete returns up to limit completions of query. Confirmed entities are
// given as [QID] and come back under their titles; the trailing free text is
// completed to an entity mention.
func (ix *Index) Complete(query string, limit int) []lookup.Result {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if hit, ok := ix.cache.Get(query, limit); ok {
		return hit
	}

	ix.mu.RLock()
	store, fm := ix.store, ix.fuzzy
	ix.mu.RUnlock()

	results := []lookup.Result{}
	if store != nil {
		results = ix.complete(store, fm, query, limit)
	}
	ix.cache.Put(query, limit, results)
	return results
}

func (ix *Index) complete(store *dictionary.Store, fm *FuzzyMatcher, query string, limit int) []lookup.Result {
	var h head
	toks := document.Tokenize(query)
	tail := ""
	if n := len(toks); n > 0 && !toks[n-1].Mention {
		tail = toks[n-1].Text
		toks = toks[:n-1]
	}
	for _, t := range toks {
		if !t.Mention {
			h.text(stripDelimiters(t.Text))
			continue
		}
		qid := strings.TrimSpace(t.Text)
		title, url := ix.title(store, qid, qid)
		h.mention(title, title, qid, url)
	}
	if tail == "" {
		return []lookup.Result{}
	}

	lead, candidates, corrected := ix.candidates(store, fm, tail)
	if len(candidates) == 0 {
		return []lookup.Result{}
	}
	lead = stripDelimiters(lead)

	filter := utils.NewSuggestionFilter()
	results := make([]lookup.Result, 0, min(limit, len(candidates)))
	for _, a := range candidates {
		if len(results) >= limit {
			break
		}
		if !filter.ShouldInclude(a.QID) {
			continue
		}
		title, url := ix.title(store, a.QID, a.Alias)
		surface := strings.TrimSpace(a.Alias)
		if corrected != "" {
			surface = title
		}
		matched := ""
		if dictionary.Key(a.Alias) != dictionary.Key(title) {
			matched = strings.TrimSpace(a.Alias)
		}
		results = append(results, lookup.Result{
			Completion:   h.completion.String() + lead + "[" + surface + "] ",
			Wikified:     h.wikified.String() + lead + "[" + title + "] ",
			MatchedAlias: matched,
			QIDs:         append(append([]string{}, h.qids...), a.QID),
			URLs:         append(append([]string{}, h.urls...), url),
		})
	}
	return results
}

// candidates finds aliases for the longest trailing word run of tail that
// prefixes an alias key, falling back to a fuzzy correction. lead is the
// part of tail before that run. corrected is set when fuzzy matching was used.
func (ix *Index) candidates(store *dictionary.Store, fm *FuzzyMatcher, tail string) (lead string, found []dictionary.Alias, corrected string) {
	starts := wordStarts(tail)
	if len(starts) == 0 {
		return tail, nil, ""
	}
	first := max(0, len(starts)-ix.opts.MaxWords)

	for i := first; i < len(starts); i++ {
		frag := dictionary.Key(tail[starts[i]:])
		if len([]rune(frag)) < ix.opts.MinFragment {
			continue
		}
		var got []dictionary.Alias
		store.VisitPrefix(frag, func(_ string, aliases []dictionary.Alias) {
			got = append(got, aliases...)
		})
		if len(got) > 0 {
			sortByFrequency(got)
			return tail[:starts[i]], got, ""
		}
	}

	if fm == nil {
		return tail, nil, ""
	}
	for i := first; i < len(starts); i++ {
		frag := dictionary.Key(tail[starts[i]:])
		key, ok := fm.Correct(frag)
		if !ok {
			continue
		}
		got := append([]dictionary.Alias(nil), store.Exact(key)...)
		if len(got) == 0 {
			continue
		}
		log.Debugf("Corrected %q to %q", frag, key)
		sortByFrequency(got)
		return tail[:starts[i]], got, key
	}
	return tail, nil, ""
}

func sortByFrequency(aliases []dictionary.Alias) {
	sort.SliceStable(aliases, func(i, j int) bool {
		return aliases[i].Frequency > aliases[j].Frequency
	})
}

// wordStarts returns the byte offsets where words of s begin.
func wordStarts(s string) []int {
	var starts []int
	prevSpace := true
	for i, r := range s {
		space := r == ' ' || r == '\t'
		if !space && prevSpace {
			starts = append(starts, i)
		}
		prevSpace = space
	}
	return starts
}

func stripDelimiters(s string) string {
	return strings.NewReplacer("[", "", "]", "").Replace(s)
}

// title returns the display title and link of qid, or fallback and no link
// when the entity is unknown.
func (ix *Index) title(store *dictionary.Store, qid, fallback string) (string, string) {
	e, ok := store.Entity(qid)
	if !ok || e.Title == "" {
		return strings.TrimSpace(fallback), ""
	}
	return e.Title, Link(e.Title)
}

// Link is the encyclopedia URL of a title.
func Link(title string) string {
	return WikiBase + strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
}

// Info returns the tooltip info of an entity.
func (ix *Index) Info(qid string) (lookup.Info, bool) {
	ix.mu.RLock()
	store := ix.store
	ix.mu.RUnlock()
	if store == nil {
		return lookup.Info{}, false
	}
	e, ok := store.Entity(qid)
	if !ok {
		return lookup.Info{}, false
	}
	return lookup.Info{Image: e.Image, Abstract: e.Abstract}, true
}

// Stats merges dictionary and cache counters.
func (ix *Index) Stats() map[string]int {
	ix.mu.RLock()
	store := ix.store
	ix.mu.RUnlock()

	stats := ix.cache.Stats()
	if store != nil {
		s := store.GetStats()
		stats["aliases"] = s.Aliases
		stats["aliasKeys"] = s.Keys
		stats["entities"] = s.Entities
		stats["maxFrequency"] = s.MaxFrequency
	}
	return stats
}
