package sanitize

import (
	"fmt"
	"unicode/utf8"

	"github.com/agentstation/metasync/pkg/errors"
)

// legacyUnresolved is how older tables spelled a missing replacement.
const legacyUnresolved = "null"

// Entry is one banned character and its replacement.
// A nil Replacement means no replacement has been configured yet.
type Entry struct {
	Character   string  `json:"character" yaml:"character"`
	Replacement *string `json:"replacementcharacter" yaml:"replacementcharacter"`
}

// Resolved reports whether the entry has a replacement.
func (e Entry) Resolved() bool {
	return e.Replacement != nil
}

// Rune returns the banned character.
func (e Entry) Rune() rune {
	r, _ := utf8.DecodeRuneInString(e.Character)
	return r
}

// Describe renders the character with its code point, e.g. '#' (U+0023).
func (e Entry) Describe() string {
	return describe(e.Rune())
}

func describe(r rune) string {
	return fmt.Sprintf("%q (U+%04X)", r, r)
}

// Table is the ordered set of known banned characters. Characters are unique.
// A Table is not safe for concurrent mutation; Scan classifies in parallel and
// merges sequentially.
type Table struct {
	entries []Entry
	index   map[rune]int
}

// NewTable builds a table from persisted entries. It rejects duplicate
// characters, entries that are not a single disallowed character, and
// replacements containing disallowed characters.
func NewTable(entries ...Entry) (*Table, error) {
	t := &Table{index: make(map[rune]int, len(entries))}
	for i, e := range entries {
		if utf8.RuneCountInString(e.Character) != 1 {
			return nil, errors.NewValidationError(fmt.Sprintf("BannedCharacters[%d].character", i), e.Character,
				"must be exactly one character")
		}
		r := e.Rune()
		if Allowed(r) {
			return nil, errors.NewValidationError(fmt.Sprintf("BannedCharacters[%d].character", i), e.Character,
				"character is allowed in field names and cannot be banned")
		}
		if _, dup := t.index[r]; dup {
			return nil, errors.NewValidationError(fmt.Sprintf("BannedCharacters[%d].character", i), e.Character,
				"duplicate character")
		}
		if e.Replacement != nil && *e.Replacement == legacyUnresolved {
			e.Replacement = nil
		}
		if e.Replacement != nil && !Valid(*e.Replacement) {
			return nil, errors.NewValidationError(fmt.Sprintf("BannedCharacters[%d].replacementcharacter", i),
				*e.Replacement, "replacement may only contain A-Z, a-z, 0-9, '-' and '_'")
		}
		t.index[r] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// Lookup returns the entry for r. A nil table has no entries.
func (t *Table) Lookup(r rune) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	i, ok := t.index[r]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a copy of the entries in table order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Unresolved returns the entries without a replacement, in table order.
func (t *Table) Unresolved() []Entry {
	var out []Entry
	for _, e := range t.entries {
		if !e.Resolved() {
			out = append(out, e)
		}
	}
	return out
}

// Merge appends findings whose character is not yet in the table and returns
// the ones that were added. Existing entries are never modified.
func (t *Table) Merge(findings ...Entry) []Entry {
	var added []Entry
	for _, f := range findings {
		r := f.Rune()
		if _, ok := t.index[r]; ok {
			continue
		}
		t.index[r] = len(t.entries)
		t.entries = append(t.entries, f)
		added = append(added, f)
	}
	return added
}
