package scoring

import "github.com/okian/teamform/internal/domain/model"

// Relevance scores a candidate against a Query with a priority cascade.
//
// For each keyword the tiers are tried in order and the first tier with a
// matching field wins: every matching field of that tier adds its weight and
// lower tiers are skipped, so a keyword found in both skills and bio counts
// once, as a skill. The summed total is capped at MaxScore once, at the end.
type Relevance[T any] struct {
	fields Extractor[T]
}

// NewRelevance creates a relevance strategy over the given fields.
func NewRelevance[T any](fields Extractor[T]) *Relevance[T] {
	return &Relevance[T]{fields: fields}
}

// NewProfileRelevance is the people-search strategy.
func NewProfileRelevance() *Relevance[model.Profile] {
	return NewRelevance(ProfileFields())
}

// NewProjectRelevance is the project-search strategy (skills tier only).
func NewProjectRelevance() *Relevance[model.Project] {
	return NewRelevance(ProjectSkillFields())
}

// Score implements Strategy.
func (r *Relevance[T]) Score(candidate T, q Query) Result {
	res := Result{MatchedSkills: []string{}}
	if len(q) == 0 {
		return res
	}

	fields := r.fields.Extract(candidate)
	var matched matchSet
	total := 0
	for _, kw := range q {
		hit, ok := cascade(fields, kw)
		if !ok {
			continue
		}
		total += hit.Points
		for _, s := range hit.Skills {
			matched.add(s)
		}
		res.Hits = append(res.Hits, hit)
	}

	res.Score = clamp(total)
	res.MatchedSkills = matched.list()
	return res
}

// cascade finds the first tier in which kw matches at least one field.
// fields must be ordered by tier.
func cascade(fields []Field, kw string) (Hit, bool) {
	for i := 0; i < len(fields); {
		tier := fields[i].Tier
		hit := Hit{Keyword: kw, Tier: tier}
		j := i
		for ; j < len(fields) && fields[j].Tier == tier; j++ {
			token, ok := fields[j].Match(kw)
			if !ok {
				continue
			}
			hit.Fields = append(hit.Fields, fields[j].Name)
			hit.Points += fields[j].Weight
			if fields[j].Skills {
				hit.Skills = append(hit.Skills, token)
			}
		}
		if len(hit.Fields) > 0 {
			return hit, true
		}
		i = j
	}
	return Hit{}, false
}
