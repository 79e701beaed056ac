// Package dictionary loads the tab separated tables behind the local
// completion backend: entity aliases with their frequency and entity info.
package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
	"github.com/tchap/go-patricia/v2/patricia"
)

// maxLineErrors caps the per line problems reported for one file.
const maxLineErrors = 20

// Alias is one way to name an entity.
type Alias struct {
	Alias     string
	QID       string
	Frequency int
}

// Entity is the descriptive info of an entity.
type Entity struct {
	QID      string
	Title    string
	Image    string
	Abstract string
}

// LoaderStats describes what a store holds.
type LoaderStats struct {
	Aliases      int
	Keys         int
	Entities     int
	MaxFrequency int
}

// Store keeps aliases in a patricia trie keyed by their lower case form and
// entity info by identifier. It is safe for concurrent use.
type Store struct {
	trie         *patricia.Trie
	entities     map[string]Entity
	aliases      int
	keys         int
	maxFrequency int
	mu           sync.RWMutex
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		trie:     patricia.NewTrie(),
		entities: make(map[string]Entity),
	}
}

// AddAlias indexes a. Aliases under the same key stay sorted by frequency.
func (s *Store) AddAlias(a Alias) {
	key := Key(a.Alias)
	if key == "" || a.QID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := patricia.Prefix(key)
	var list []Alias
	if item := s.trie.Get(p); item != nil {
		// Readers may hold the old slice.
		list = append(list, item.([]Alias)...)
	} else {
		s.keys++
	}
	list = append(list, a)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Frequency > list[j].Frequency })
	s.trie.Set(p, list)
	s.aliases++
	if a.Frequency > s.maxFrequency {
		s.maxFrequency = a.Frequency
	}
}

// AddEntity stores e, replacing earlier info for the same identifier.
func (s *Store) AddEntity(e Entity) {
	if e.QID == "" {
		return
	}
	s.mu.Lock()
	s.entities[e.QID] = e
	s.mu.Unlock()
}

// Entity returns the info for qid.
func (s *Store) Entity(qid string) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[qid]
	return e, ok
}

// Exact returns the aliases whose key equals the key of alias.
func (s *Store) Exact(alias string) []Alias {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if item := s.trie.Get(patricia.Prefix(Key(alias))); item != nil {
		return item.([]Alias)
	}
	return nil
}

// VisitPrefix calls fn for every alias list whose key starts with prefix.
// fn must not modify the store.
func (s *Store) VisitPrefix(prefix string, fn func(key string, aliases []Alias)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	err := s.trie.VisitSubtree(patricia.Prefix(Key(prefix)), func(p patricia.Prefix, item patricia.Item) error {
		fn(string(p), item.([]Alias))
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting alias subtree: %v", err)
	}
}

// Keys returns every alias key, for fuzzy matching.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, s.keys)
	_ = s.trie.Visit(func(p patricia.Prefix, _ patricia.Item) error {
		keys = append(keys, string(p))
		return nil
	})
	return keys
}

// GetStats returns counters of the store.
func (s *Store) GetStats() LoaderStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return LoaderStats{
		Aliases:      s.aliases,
		Keys:         s.keys,
		Entities:     len(s.entities),
		MaxFrequency: s.maxFrequency,
	}
}

// Key folds an alias to its index form: lower case, single spaced.
func Key(alias string) string {
	return strings.Join(strings.Fields(strings.ToLower(alias)), " ")
}

// LoadAliases reads alias\tqid\tfrequency lines. A missing frequency counts
// as 1. Bad lines are skipped and reported together.
func (s *Store) LoadAliases(r io.Reader, name string) (int, error) {
	return scanTSV(r, name, 2, func(cols []string) error {
		freq := 1
		if len(cols) > 2 && strings.TrimSpace(cols[2]) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(cols[2]))
			if err != nil {
				return fmt.Errorf("bad frequency %q", cols[2])
			}
			freq = n
		}
		s.AddAlias(Alias{Alias: cols[0], QID: strings.TrimSpace(cols[1]), Frequency: freq})
		return nil
	})
}

// LoadEntities reads qid\ttitle\timage\tabstract lines.
func (s *Store) LoadEntities(r io.Reader, name string) (int, error) {
	return scanTSV(r, name, 2, func(cols []string) error {
		e := Entity{QID: strings.TrimSpace(cols[0]), Title: strings.TrimSpace(cols[1])}
		if len(cols) > 2 {
			e.Image = strings.TrimSpace(cols[2])
		}
		if len(cols) > 3 {
			e.Abstract = strings.TrimSpace(cols[3])
		}
		s.AddEntity(e)
		return nil
	})
}

func scanTSV(r io.Reader, name string, minCols int, add func(cols []string) error) (int, error) {
	var (
		result *multierror.Error
		count  int
		bad    int
		lineNo int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		var err error
		if len(cols) < minCols {
			err = fmt.Errorf("want at least %d columns, got %d", minCols, len(cols))
		} else {
			err = add(cols)
		}
		if err != nil {
			bad++
			if bad <= maxLineErrors {
				result = multierror.Append(result, fmt.Errorf("%s:%d: %w", name, lineNo, err))
			}
			continue
		}
		count++
	}
	if err := sc.Err(); err != nil {
		result = multierror.Append(result, fmt.Errorf("read %s: %w", name, err))
	}
	if bad > maxLineErrors {
		result = multierror.Append(result, fmt.Errorf("%s: %d more bad lines", name, bad-maxLineErrors))
	}
	log.Debugf("Loaded %d rows from %s (%d skipped)", count, name, bad)
	return count, result.ErrorOrNil()
}

// LoadFiles builds a store from an alias file and an optional entity file.
// The store is returned along with any problems found; it is nil only when
// the alias file could not be opened.
func LoadFiles(aliasPath, entityPath string) (*Store, error) {
	s := NewStore()
	var result *multierror.Error

	if err := ValidateFileFormat(aliasPath, FormatAliases); err != nil {
		log.Warnf("Loading aliases anyway: %v", err)
	}
	f, err := os.Open(aliasPath)
	if err != nil {
		return nil, fmt.Errorf("open aliases: %w", err)
	}
	if _, err := s.LoadAliases(f, aliasPath); err != nil {
		result = multierror.Append(result, err)
	}
	f.Close()

	if entityPath != "" {
		if f, err := os.Open(entityPath); err != nil {
			result = multierror.Append(result, fmt.Errorf("open entities: %w", err))
		} else {
			if _, err := s.LoadEntities(f, entityPath); err != nil {
				result = multierror.Append(result, err)
			}
			f.Close()
		}
	}
	stats := s.GetStats()
	log.Debugf("Dictionary ready: %d aliases under %d keys, %d entities", stats.Aliases, stats.Keys, stats.Entities)
	return s, result.ErrorOrNil()
}
