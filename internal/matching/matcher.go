// Package matching isolates how free-text patient entries are compared with
// knowledge base strings, so the comparison can later be replaced by coded
// terminology lookups without touching the screening layers.
package matching

import "strings"

// Matcher decides whether a patient entry refers to a knowledge base term.
type Matcher interface {
	Matches(term, entry string) bool
}

// MatcherFunc adapts a plain function to Matcher.
type MatcherFunc func(term, entry string) bool

func (f MatcherFunc) Matches(term, entry string) bool {
	return f(term, entry)
}

// Substring is symmetric, case-insensitive substring containment: term and
// entry match when either contains the other after trimming. Empty strings
// never match.
//
// This is approximate. "insulin" matches "insulin-like growth factor", and
// brand names do not match their generic.
var Substring Matcher = MatcherFunc(substring)

func substring(term, entry string) bool {
	t := normalize(term)
	e := normalize(entry)
	if t == "" || e == "" {
		return false
	}
	return strings.Contains(e, t) || strings.Contains(t, e)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Any reports whether term matches at least one of entries and returns the
// first matching entry.
func Any(m Matcher, term string, entries []string) (string, bool) {
	for _, entry := range entries {
		if m.Matches(term, entry) {
			return entry, true
		}
	}
	return "", false
}
