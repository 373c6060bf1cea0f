package matcher

import "sort"

// Duplicate is an identity key shared by more than one candidate.
type Duplicate struct {
	Key   string `json:"key" yaml:"key"`
	Count int    `json:"count" yaml:"count"`
}

// Stats summarizes an index.
type Stats struct {
	Total      int `json:"total" yaml:"total"`
	Unique     int `json:"unique" yaml:"unique"`
	EmptyKeys  int `json:"emptyKeys" yaml:"emptyKeys"`
	Duplicated int `json:"duplicated" yaml:"duplicated"`
}

// Index provides lookup of candidates by identity key. When several
// candidates share a key the first one in input order wins, same as Match,
// and the key is reported by Duplicates.
type Index[T any] struct {
	byKey  map[string]T
	counts map[string]int
	stats  Stats
}

// NewIndex indexes candidates by the normalized serial returned by serialOf.
func NewIndex[T any](candidates []T, serialOf func(T) string) *Index[T] {
	idx := &Index[T]{
		byKey:  make(map[string]T, len(candidates)),
		counts: make(map[string]int, len(candidates)),
	}
	for _, c := range candidates {
		key := Normalize(serialOf(c))
		if key == "" {
			idx.stats.EmptyKeys++
			continue
		}
		if _, exists := idx.byKey[key]; !exists {
			idx.byKey[key] = c
		}
		idx.counts[key]++
	}

	idx.stats.Total = len(candidates)
	idx.stats.Unique = len(idx.byKey)
	for _, n := range idx.counts {
		if n > 1 {
			idx.stats.Duplicated++
		}
	}
	return idx
}

// Lookup returns the candidate for serial.
func (idx *Index[T]) Lookup(serial string) (T, bool) {
	key := Normalize(serial)
	if key == "" {
		var zero T
		return zero, false
	}
	c, ok := idx.byKey[key]
	return c, ok
}

// Duplicated reports whether more than one candidate has serial's key.
func (idx *Index[T]) Duplicated(serial string) bool {
	return idx.counts[Normalize(serial)] > 1
}

// Duplicates returns every key held by more than one candidate, sorted by key.
func (idx *Index[T]) Duplicates() []Duplicate {
	var out []Duplicate
	for key, n := range idx.counts {
		if n > 1 {
			out = append(out, Duplicate{Key: key, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Stats returns aggregate statistics about the index.
func (idx *Index[T]) Stats() Stats {
	return idx.stats
}

// Len returns the number of distinct keys.
func (idx *Index[T]) Len() int {
	return len(idx.byKey)
}
