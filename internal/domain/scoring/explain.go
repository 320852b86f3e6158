package scoring

import (
	"fmt"
	"strings"
)

// Hit records how one keyword contributed to a relevance score.
type Hit struct {
	Keyword string   `json:"keyword"`
	Tier    int      `json:"tier"`
	Fields  []string `json:"fields"`
	Points  int      `json:"points"`
	Skills  []string `json:"skills,omitempty"`
}

// Explanation is the "why this matched" view of a result.
type Explanation struct {
	MatchedSkills []string `json:"matchedSkills"`
	Reasons       []string `json:"reasons"`
}

// Explain returns the matched skills of r, deduplicated in first-match
// order, and one reason line per contributing keyword.
func Explain(r Result) Explanation {
	var set matchSet
	for _, s := range r.MatchedSkills {
		set.add(s)
	}
	reasons := make([]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		reasons = append(reasons, fmt.Sprintf("%q matched %s (+%d)", h.Keyword, strings.Join(h.Fields, ", "), h.Points))
	}
	if b := r.Breakdown; b != nil {
		reasons = append(reasons,
			fmt.Sprintf("skill overlap %d", b.SkillMatch),
			fmt.Sprintf("availability %d", b.AvailabilityMatch),
			fmt.Sprintf("experience %d", b.ExperienceMatch),
		)
	}
	return Explanation{MatchedSkills: set.list(), Reasons: reasons}
}

// matchSet is an insertion-ordered set of skill strings compared caselessly.
// The zero value is ready to use.
type matchSet struct {
	order []string
	seen  map[string]struct{}
}

func (m *matchSet) add(s string) {
	key := fold(s)
	if key == "" {
		return
	}
	if m.seen == nil {
		m.seen = make(map[string]struct{})
	}
	if _, ok := m.seen[key]; ok {
		return
	}
	m.seen[key] = struct{}{}
	m.order = append(m.order, s)
}

func (m *matchSet) list() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
