// Package scoring ranks directory entities against a free-text query or
// against a project's required skills.
//
// Two strategies share one capability: Relevance walks a fixed priority
// cascade of fields per keyword, Compatibility averages three independent
// signals. Both are pure; candidates can be scored in any order and in
// parallel, and only Rank is sequential.
package scoring

// MaxScore is the upper bound of every score and sub-score.
const MaxScore = 100

// Ranking modes, also used as metric labels.
const (
	ModeRelevance  = "relevance"
	ModeExplore    = "explore"
	ModeSuggestion = "suggestion"
)

// Result is the outcome of scoring one candidate.
type Result struct {
	Score         int        `json:"score"`
	MatchedSkills []string   `json:"matchedSkills"`
	Hits          []Hit      `json:"hits,omitempty"`
	Breakdown     *Breakdown `json:"breakdown,omitempty"`
}

// Strategy scores one candidate of type T in the context C
// (a Query for relevance, a required-skills string for compatibility).
type Strategy[T, C any] interface {
	Score(candidate T, c C) Result
}

// Scored pairs a candidate with its result.
type Scored[T any] struct {
	Candidate T
	Result
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > MaxScore:
		return MaxScore
	default:
		return v
	}
}
