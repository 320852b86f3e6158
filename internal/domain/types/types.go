// Package types contains the result shapes handed to the presentation layer.
package types

import (
	"github.com/okian/teamform/internal/domain/model"
	"github.com/okian/teamform/internal/domain/scoring"
)

// ProfileMatch is a people-search hit.
type ProfileMatch struct {
	Profile       model.Profile      `json:"profile"`
	Score         int                `json:"score"`
	MatchedSkills []string           `json:"matchedSkills"`
	Reasons       []string           `json:"reasons,omitempty"`
	Testimonial   *model.Testimonial `json:"testimonial,omitempty"`
}

// ProjectMatch is an explore hit.
type ProjectMatch struct {
	Project       model.Project `json:"project"`
	Score         int           `json:"score"`
	MatchedSkills []string      `json:"matchedSkills"`
}

// Suggestion is a teammate recommendation for a project.
type Suggestion struct {
	Profile       model.Profile     `json:"profile"`
	Breakdown     scoring.Breakdown `json:"breakdown"`
	MatchedSkills []string          `json:"matchedSkills"`
}

// NewProfileMatches converts ranked people results. The testimonial is
// looked up by the profile's full name; lookup may be nil.
func NewProfileMatches(ranked []scoring.Scored[model.Profile], lookup func(fullName string) *model.Testimonial) []ProfileMatch {
	out := make([]ProfileMatch, 0, len(ranked))
	for _, r := range ranked {
		ex := scoring.Explain(r.Result)
		m := ProfileMatch{
			Profile:       r.Candidate,
			Score:         r.Score,
			MatchedSkills: ex.MatchedSkills,
			Reasons:       ex.Reasons,
		}
		if lookup != nil {
			m.Testimonial = lookup(r.Candidate.FullName)
		}
		out = append(out, m)
	}
	return out
}

// NewProjectMatches converts ranked project results.
func NewProjectMatches(ranked []scoring.Scored[model.Project]) []ProjectMatch {
	out := make([]ProjectMatch, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, ProjectMatch{
			Project:       r.Candidate,
			Score:         r.Score,
			MatchedSkills: scoring.Explain(r.Result).MatchedSkills,
		})
	}
	return out
}

// NewSuggestions converts ranked compatibility results.
func NewSuggestions(ranked []scoring.Scored[model.Profile]) []Suggestion {
	out := make([]Suggestion, 0, len(ranked))
	for _, r := range ranked {
		s := Suggestion{Profile: r.Candidate, MatchedSkills: r.MatchedSkills}
		if r.Breakdown != nil {
			s.Breakdown = *r.Breakdown
		}
		if s.MatchedSkills == nil {
			s.MatchedSkills = []string{}
		}
		out = append(out, s)
	}
	return out
}
