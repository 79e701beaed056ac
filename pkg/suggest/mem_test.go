package suggest

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/bastiangx/qacbox/pkg/dictionary"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

var memPatterns = [][]string{
	{"where was m", "where was ma", "where was mar", "where was mari"},
	{"who is e", "who is ei", "who is ein", "who is eins"},
	{"[Q7186] and c", "[Q7186] and cu", "[Q7186] and cur"},
	{"p", "pa", "par", "pari", "paris"},
}

func syntheticStore(n int) *dictionary.Store {
	s := dictionary.NewStore()
	for i := range n {
		s.AddAlias(dictionary.Alias{
			Alias:     fmt.Sprintf("entity %05d", i),
			QID:       fmt.Sprintf("Q%d", i+1),
			Frequency: n - i,
		})
	}
	return s
}

func TestCacheStaysBounded(t *testing.T) {
	ix := NewIndex(syntheticStore(2000), Options{CacheEntries: 64})
	for i := range 500 {
		ix.Complete(fmt.Sprintf("what is entity %03d", i), 5)
	}
	stats := ix.Stats()
	assert.LessOrEqual(t, stats["cacheEntries"], 64)
	assert.Equal(t, 64, stats["maxEntries"])
}

func TestConcurrentCompleteAndReload(t *testing.T) {
	configs := []struct {
		workers    int
		iterations int
	}{
		{workers: 1, iterations: 200},
		{workers: 4, iterations: 50},
		{workers: 8, iterations: 25},
	}

	for _, config := range configs {
		t.Run(fmt.Sprintf("workers_%d_iter_%d", config.workers, config.iterations), func(t *testing.T) {
			ix := NewIndex(testStore(t), Options{Fuzzy: true, CacheEntries: 32})
			fresh := testStore(t)
			baseline := runtime.NumGoroutine()

			var g errgroup.Group
			for w := range config.workers {
				g.Go(func() error {
					for i := range config.iterations {
						for _, prefix := range memPatterns[(w+i)%len(memPatterns)] {
							ix.Complete(prefix, 10)
						}
						if w == 0 && i%10 == 0 {
							ix.SetStore(fresh)
						}
					}
					return nil
				})
			}
			assert.NoError(t, g.Wait())

			runtime.GC()
			assert.LessOrEqual(t, runtime.NumGoroutine()-baseline, 2, "goroutine leak")
			assert.LessOrEqual(t, ix.Stats()["cacheEntries"], 32)
		})
	}
}
