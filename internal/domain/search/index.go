// Package search implements the ephemeral cross-collection lookup used by
// the console's search box.
package search

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

const (
	// MinQueryLen is the shortest trimmed query that triggers a scan.
	MinQueryLen = 2
	// MinSubstringLen is the shortest query matched by containment rather than
	// equality, for names and for digit-only phone queries alike.
	MinSubstringLen = 3
)

// Entry is the uniform projection of a record from any collection.
type Entry struct {
	ID         string
	Collection record.Collection
	FullName   string
	// Names holds the raw name variants; see NameVariants.
	Names  []string
	Phones []string
	At     time.Time
}

// NameVariants builds the candidate spellings of a person's name. Empty
// parts are skipped and duplicates dropped. When only a full name is known,
// its first word is taken as the first name and the rest as the last name.
func NameVariants(full, first, last string) []string {
	full = strings.TrimSpace(full)
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	if first == "" && last == "" && full != "" {
		parts := strings.Fields(full)
		first = parts[0]
		last = strings.Join(parts[1:], " ")
	}
	candidates := []string{full, first, last}
	if first != "" && last != "" {
		candidates = append(candidates,
			first+" "+last,
			last+" "+first,
			first+last,
			last+first,
		)
	}
	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Normalize case-folds s and collapses its whitespace.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Digits keeps only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MatchPhone reports whether the digits of query occur in any phone. Queries
// with fewer than MinSubstringLen digits never match.
func MatchPhone(query string, phones []string) bool {
	q := Digits(query)
	if len(q) < MinSubstringLen {
		return false
	}
	for _, p := range phones {
		if strings.Contains(Digits(p), q) {
			return true
		}
	}
	return false
}

// MatchingVariants returns the variants that match query: by equality, or,
// once the query is at least MinSubstringLen runes long, by containment
// starting at a word boundary of the variant ("ali" finds "Ali Vali" but not
// "Valiyev"). Containment inside a word never matches, so "liy" does not
// find "Valiyev" either; "vali" finds both "Ali Vali" and "Valiyev".
func MatchingVariants(query string, variants []string) []string {
	q := Normalize(query)
	if q == "" {
		return nil
	}
	substring := utf8.RuneCountInString(q) >= MinSubstringLen
	var out []string
	for _, v := range variants {
		nv := Normalize(v)
		if nv == "" {
			continue
		}
		if nv == q || (substring && containsAtWord(nv, q)) {
			out = append(out, v)
		}
	}
	return out
}

// containsAtWord reports whether q occurs in s at the start of a word.
func containsAtWord(s, q string) bool {
	return strings.HasPrefix(s, q) || strings.Contains(s, " "+q)
}

// Matches applies the phone rule, then the name rule.
func Matches(query string, e Entry) bool {
	if MatchPhone(query, e.Phones) {
		return true
	}
	return len(MatchingVariants(query, e.Names)) > 0
}

// Index is a snapshot of entries. It is not updated by later writes.
type Index struct {
	entries []Entry
}

func NewIndex(entries []Entry) *Index {
	return &Index{entries: entries}
}

// Len is the number of indexed entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Query returns matching entries in index order. Queries shorter than
// MinQueryLen return nothing.
func (ix *Index) Query(query string) []Entry {
	if !Searchable(query) {
		return nil
	}
	var out []Entry
	for _, e := range ix.entries {
		if Matches(query, e) {
			out = append(out, e)
		}
	}
	return out
}

// Searchable reports whether query is long enough to scan for.
func Searchable(query string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(query)) >= MinQueryLen
}
