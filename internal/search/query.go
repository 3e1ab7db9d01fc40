// Package search implements the hybrid snippet search engine: structured
// query parsing, lexical matching through the repository, vector similarity
// through the embedding index, and deterministic merge ranking.
package search

import (
	"strings"
	"unicode/utf8"
)

// MaxQueryLength caps raw query strings. Longer input is truncated, never
// rejected.
const MaxQueryLength = 300

// Query is the parsed form of a raw search string.
//
// Syntax: whitespace-separated tokens classified by leading sigil —
// `+tag` includes a tag, `-tag` excludes one, `@name` filters by author,
// anything else is a general term matched against names and descriptions.
// This is the only supported syntax; a leading '-' always means exclude-tag.
// Case is preserved here; all comparisons downstream are case-insensitive.
type Query struct {
	Terms       []string
	IncludeTags []string
	ExcludeTags []string
	Usernames   []string
}

// Empty reports whether the query carries no filter at all. An empty query
// is not an error: it means "everything accessible", subject to the cap.
func (q Query) Empty() bool {
	return len(q.Terms) == 0 && len(q.IncludeTags) == 0 &&
		len(q.ExcludeTags) == 0 && len(q.Usernames) == 0
}

// Parse splits a raw query string into its structured components. Tokens
// that are only a sigil ("+", "-", "@") are dropped, as are duplicates
// (compared case-insensitively, first occurrence wins).
func Parse(raw string) Query {
	if len(raw) > MaxQueryLength {
		// Back up to a rune boundary so the cut never leaves invalid UTF-8.
		cut := MaxQueryLength
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut]
	}

	var q Query
	seen := map[string]bool{}

	add := func(dst *[]string, kind, token string) {
		key := kind + "\x00" + strings.ToLower(token)
		if seen[key] {
			return
		}
		seen[key] = true
		*dst = append(*dst, token)
	}

	for _, token := range strings.Fields(raw) {
		switch {
		case strings.HasPrefix(token, "+"):
			if rest := token[1:]; rest != "" {
				add(&q.IncludeTags, "tag", rest)
			}
		case strings.HasPrefix(token, "-"):
			if rest := token[1:]; rest != "" {
				add(&q.ExcludeTags, "xtag", rest)
			}
		case strings.HasPrefix(token, "@"):
			if rest := token[1:]; rest != "" {
				add(&q.Usernames, "user", rest)
			}
		default:
			add(&q.Terms, "term", token)
		}
	}

	return q
}
