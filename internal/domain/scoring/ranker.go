package scoring

import "slices"

// SuggestionLimit is the number of teammate suggestions returned.
const SuggestionLimit = 6

type rankOptions struct {
	dropNonPositive bool
	limit           int
}

// RankOption configures Rank.
type RankOption func(*rankOptions)

// DropNonPositive removes entries scoring zero or less before sorting.
func DropNonPositive() RankOption {
	return func(o *rankOptions) {
		o.dropNonPositive = true
	}
}

// Limit truncates the sorted output to n entries. n <= 0 means no limit.
func Limit(n int) RankOption {
	return func(o *rankOptions) {
		o.limit = n
	}
}

// ForMode returns the options a ranking mode implies. suggestionLimit <= 0
// falls back to SuggestionLimit.
func ForMode(mode string, suggestionLimit int) []RankOption {
	switch mode {
	case ModeRelevance:
		return []RankOption{DropNonPositive()}
	case ModeSuggestion:
		if suggestionLimit <= 0 {
			suggestionLimit = SuggestionLimit
		}
		return []RankOption{Limit(suggestionLimit)}
	default:
		return nil
	}
}

// Rank orders scored entries by descending score. Equal scores keep their
// input order. The input slice is not modified.
func Rank[T any](in []Scored[T], opts ...RankOption) []Scored[T] {
	o := rankOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	out := make([]Scored[T], 0, len(in))
	for _, s := range in {
		if o.dropNonPositive && s.Score <= 0 {
			continue
		}
		out = append(out, s)
	}

	slices.SortStableFunc(out, func(a, b Scored[T]) int { return b.Score - a.Score })

	if o.limit > 0 && len(out) > o.limit {
		out = out[:o.limit]
	}
	return out
}
