package hoa

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinQueryLength     = 2
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

type SearchParams struct {
	Query string
	Limit int
}

// ParseSearchParams validates a name search. An absent or unparsable limit
// falls back to the default; larger limits are clamped to MaxSearchLimit.
func ParseSearchParams(q, limit string) (SearchParams, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return SearchParams{}, &ValidationError{Field: "q", Message: "query must be at least 2 characters"}
	}
	n := DefaultSearchLimit
	if limit != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(limit)); err == nil && i > 0 {
			n = i
		}
	}
	if n > MaxSearchLimit {
		n = MaxSearchLimit
	}
	return SearchParams{Query: q, Limit: n}, nil
}
