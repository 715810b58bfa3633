package rules

import (
	"sync/atomic"
	"time"
)

// Source labels where a snapshot's rules came from.
type Source string

const (
	SourceJSON     Source = "json"
	SourceDemo     Source = "demo"
	SourceEmbedded Source = "embedded"
	SourceDefaults Source = "defaults"
	SourceMemory   Source = "memory"
)

// Snapshot is an immutable, ordered view of the corpus. Callers must not
// modify Rules.
type Snapshot struct {
	Rules    []Rule
	Version  uint64
	Source   Source
	LoadedAt time.Time
}

// Len returns the number of rules, tolerating a nil snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rules)
}

// Categories returns the distinct categories in first-seen corpus order.
func (s *Snapshot) Categories() []string {
	if s == nil {
		return []string{}
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range s.Rules {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	return out
}

// FilterCategory returns the rules of one category in corpus order.
// An empty category or "all" returns every rule.
func (s *Snapshot) FilterCategory(category string) []Rule {
	if s == nil {
		return []Rule{}
	}
	if category == "" || category == "all" {
		return s.Rules
	}
	out := []Rule{}
	for _, r := range s.Rules {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// Store publishes corpus snapshots. Readers take one Snapshot per query
// and never see a partially replaced corpus.
type Store struct {
	current atomic.Pointer[Snapshot]
	version atomic.Uint64
	now     func() time.Time
}

// NewStore creates a store holding rules as version 1.
func NewStore(rules []Rule, source Source) *Store {
	s := &Store{now: time.Now}
	s.Replace(rules, source)
	return s
}

// Snapshot returns the current snapshot. It is never nil for a store
// built with NewStore.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Replace publishes a new snapshot and returns it. The rules slice is
// copied so later changes by the caller are not visible to readers.
func (s *Store) Replace(rules []Rule, source Source) *Snapshot {
	cp := make([]Rule, len(rules))
	copy(cp, rules)

	snap := &Snapshot{
		Rules:    cp,
		Version:  s.version.Add(1),
		Source:   source,
		LoadedAt: s.now(),
	}
	s.current.Store(snap)
	return snap
}

// Len returns the size of the current corpus.
func (s *Store) Len() int {
	return s.Snapshot().Len()
}
