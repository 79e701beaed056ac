package utils

import "strings"

// SuggestionFilter drops keys it has already seen, compared case-insensitively.
// It is not safe for concurrent use; make one per request.
type SuggestionFilter struct {
	seen map[string]struct{}
}

// NewSuggestionFilter returns a filter that already rejects the given keys.
func NewSuggestionFilter(exclude ...string) *SuggestionFilter {
	f := &SuggestionFilter{seen: make(map[string]struct{}, len(exclude)+8)}
	for _, k := range exclude {
		f.seen[strings.ToLower(k)] = struct{}{}
	}
	return f
}

// ShouldInclude reports whether key is new, and records it.
func (f *SuggestionFilter) ShouldInclude(key string) bool {
	k := strings.ToLower(key)
	if _, dup := f.seen[k]; dup {
		return false
	}
	f.seen[k] = struct{}{}
	return true
}
