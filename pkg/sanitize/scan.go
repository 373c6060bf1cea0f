package sanitize

import (
	"fmt"

	"github.com/sourcegraph/conc/iter"
)

// Finding is the classification of one field name.
type Finding struct {
	Name    string
	Entries []Entry
}

// Report is the outcome of scanning a list of field names.
type Report struct {
	// Findings holds one element per name that contains banned characters,
	// in input order.
	Findings []Finding
	// Added are the characters newly merged into the table.
	Added []Entry
	// Unresolved are all table entries still lacking a replacement after the merge.
	Unresolved []Entry
}

// Blocked reports whether any table entry is unresolved.
func (r Report) Blocked() bool {
	return len(r.Unresolved) > 0
}

// Details returns one human-readable line per banned character occurrence.
func (r Report) Details() []string {
	var out []string
	for _, f := range r.Findings {
		for _, e := range f.Entries {
			out = append(out, fmt.Sprintf("field name %q contains the invalid character %s", f.Name, e.Describe()))
		}
	}
	return out
}

// AffectedNames returns the names containing at least one unresolved character.
func (r Report) AffectedNames() []string {
	unresolved := make(map[rune]struct{}, len(r.Unresolved))
	for _, e := range r.Unresolved {
		unresolved[e.Rune()] = struct{}{}
	}
	var out []string
	for _, f := range r.Findings {
		for _, e := range f.Entries {
			if _, ok := unresolved[e.Rune()]; ok {
				out = append(out, f.Name)
				break
			}
		}
	}
	return out
}

// Scan classifies names in parallel, then merges the findings into t in
// input order. t is only mutated by the calling goroutine.
func Scan(names []string, t *Table) Report {
	classified := iter.Map(names, func(name *string) Finding {
		return Finding{Name: *name, Entries: Classify(*name, t)}
	})

	var report Report
	for _, f := range classified {
		if len(f.Entries) == 0 {
			continue
		}
		report.Findings = append(report.Findings, f)
		report.Added = append(report.Added, t.Merge(f.Entries...)...)
	}
	report.Unresolved = t.Unresolved()
	return report
}
