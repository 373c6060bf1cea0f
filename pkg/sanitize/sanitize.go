// Package sanitize restricts Keyfactor metadata field names to the allowed
// character set. A persisted Table maps each banned character to its
// replacement; characters discovered without one are added unresolved and
// block the run until an operator fills them in.
package sanitize

import (
	"strings"
)

// Allowed reports whether r may appear in a Keyfactor metadata field name.
func Allowed(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_':
		return true
	}
	return false
}

// Valid reports whether every character of s is allowed.
func Valid(s string) bool {
	for _, r := range s {
		if !Allowed(r) {
			return false
		}
	}
	return true
}

// Classify returns one entry per distinct disallowed character in text, in
// order of first occurrence. Each entry carries the table's replacement when
// the character is known, and no replacement otherwise. t may be nil.
func Classify(text string, t *Table) []Entry {
	var (
		out  []Entry
		seen map[rune]struct{}
	)
	for _, r := range text {
		if Allowed(r) {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		if seen == nil {
			seen = make(map[rune]struct{})
		}
		seen[r] = struct{}{}

		entry := Entry{Character: string(r)}
		if t != nil {
			if known, ok := t.Lookup(r); ok {
				entry.Replacement = known.Replacement
			}
		}
		out = append(out, entry)
	}
	return out
}

// Sanitize replaces every banned character that has a replacement in t.
// Characters without one are left in place and returned as unresolved,
// one entry per distinct character. t may be nil.
func Sanitize(text string, t *Table) (string, []Entry) {
	var (
		b          strings.Builder
		unresolved []Entry
		reported   map[rune]struct{}
	)
	b.Grow(len(text))
	for _, r := range text {
		if Allowed(r) {
			b.WriteRune(r)
			continue
		}
		if e, ok := t.Lookup(r); ok && e.Resolved() {
			b.WriteString(*e.Replacement)
			continue
		}
		b.WriteRune(r)
		if _, dup := reported[r]; !dup {
			if reported == nil {
				reported = make(map[rune]struct{})
			}
			reported[r] = struct{}{}
			unresolved = append(unresolved, Entry{Character: string(r)})
		}
	}
	return b.String(), unresolved
}
