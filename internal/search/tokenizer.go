// Package search ranks rules against a free-text question.
//
// The pipeline is Tokenize, then Score against every rule of a corpus
// snapshot, then Rank: drop zero scores, sort by relevance, keep the top
// ResultLimit. Engine wraps the pipeline for the service with caching,
// validation and telemetry.
package search

import (
	"strings"
	"unicode/utf8"
)

// MinTermLength is the shortest term, in characters, that takes part in
// scoring. Shorter fragments such as "и" or "на" are dropped.
const MinTermLength = 3

// Tokenize lowercases query, splits it on the space character only, and
// keeps the pieces of at least MinTermLength characters. Tabs and other
// whitespace stay inside terms. Duplicate terms are kept.
func Tokenize(query string) []string {
	if query == "" {
		return []string{}
	}
	parts := strings.Split(strings.ToLower(query), " ")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if utf8.RuneCountInString(p) >= MinTermLength {
			terms = append(terms, p)
		}
	}
	return terms
}
