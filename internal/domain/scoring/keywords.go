package scoring

import (
	"strings"

	"golang.org/x/text/cases"
)

// Query is an ordered list of normalized keywords. Build it with Normalize.
type Query []string

// Normalize splits raw on commas, trims and case-folds each piece and drops
// the empty ones. Order and duplicates are kept.
func Normalize(raw string) Query {
	parts := strings.Split(raw, ",")
	q := make(Query, 0, len(parts))
	for _, p := range parts {
		if k := fold(strings.TrimSpace(p)); k != "" {
			q = append(q, k)
		}
	}
	return q
}

// SplitList turns a comma-separated skills field into its entries, trimmed,
// empties dropped, original case and duplicates kept.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// fold returns the caseless form of s. A Caser is not safe for concurrent
// use, so one is built per call.
func fold(s string) string {
	if s == "" {
		return ""
	}
	return cases.Fold().String(s)
}
