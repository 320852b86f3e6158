package scoring

import (
	"slices"
	"strings"

	"github.com/okian/teamform/internal/domain/model"
)

// MatchMode selects how a keyword is tested against a field.
type MatchMode int

const (
	// MatchContains matches when the folded field text contains the keyword.
	MatchContains MatchMode = iota
	// MatchTokens splits the field into a comma list; an entry matches when
	// either the entry contains the keyword or the keyword contains the entry.
	MatchTokens
)

// FieldSpec describes one scored field of T: where it sits in the cascade,
// what it is worth and how to read it.
type FieldSpec[T any] struct {
	Name   string
	Tier   int
	Weight int
	Mode   MatchMode
	// Skills marks a field whose matching entries are reported as matched skills.
	Skills bool
	Get    func(T) string
}

// Field is a FieldSpec resolved against one candidate.
type Field struct {
	Name   string
	Tier   int
	Weight int
	Mode   MatchMode
	Skills bool
	Text   string
	Tokens []string

	folded       string
	foldedTokens []string
}

// Match tests a folded keyword against the field. For token fields the
// matching entry is returned in its original case.
func (f Field) Match(keyword string) (string, bool) {
	if keyword == "" {
		return "", false
	}
	if f.Mode == MatchTokens {
		for i, t := range f.foldedTokens {
			if strings.Contains(t, keyword) || strings.Contains(keyword, t) {
				return f.Tokens[i], true
			}
		}
		return "", false
	}
	if f.folded == "" || !strings.Contains(f.folded, keyword) {
		return "", false
	}
	return f.Text, true
}

// Extractor is an ordered list of field specs for one entity type.
type Extractor[T any] []FieldSpec[T]

// Extract resolves every spec against v, ordered by tier. Specs sharing a
// tier keep their declared order.
func (x Extractor[T]) Extract(v T) []Field {
	fields := make([]Field, 0, len(x))
	for _, spec := range x {
		text := ""
		if spec.Get != nil {
			text = spec.Get(v)
		}
		f := Field{
			Name:   spec.Name,
			Tier:   spec.Tier,
			Weight: spec.Weight,
			Mode:   spec.Mode,
			Skills: spec.Skills,
			Text:   text,
			folded: fold(text),
		}
		if spec.Mode == MatchTokens {
			f.Tokens = SplitList(text)
			f.foldedTokens = make([]string, len(f.Tokens))
			for i, t := range f.Tokens {
				f.foldedTokens[i] = fold(t)
			}
		}
		fields = append(fields, f)
	}
	slices.SortStableFunc(fields, func(a, b Field) int { return a.Tier - b.Tier })
	return fields
}

// Contains reports whether any field of v contains the trimmed, folded raw
// text. A blank raw string contains nothing.
func (x Extractor[T]) Contains(v T, raw string) bool {
	needle := fold(strings.TrimSpace(raw))
	if needle == "" {
		return false
	}
	for _, spec := range x {
		if spec.Get != nil && strings.Contains(fold(spec.Get(v)), needle) {
			return true
		}
	}
	return false
}

// ProfileFields is the people-search cascade: skills, preferred role, bio,
// achievements, then college and year checked independently at the last tier.
func ProfileFields() Extractor[model.Profile] {
	return Extractor[model.Profile]{
		{Name: "skills", Tier: 1, Weight: 100, Mode: MatchTokens, Skills: true, Get: func(p model.Profile) string { return p.Skills }},
		{Name: "preferredRole", Tier: 2, Weight: 80, Get: func(p model.Profile) string { return p.PreferredRole }},
		{Name: "bio", Tier: 3, Weight: 60, Get: func(p model.Profile) string { return p.Bio }},
		{Name: "achievements", Tier: 4, Weight: 50, Get: func(p model.Profile) string { return p.Achievements }},
		{Name: "college", Tier: 5, Weight: 40, Get: func(p model.Profile) string { return p.College }},
		{Name: "year", Tier: 5, Weight: 40, Get: func(p model.Profile) string { return p.Year }},
	}
}

// ProjectSkillFields is the project-search cascade: required skills only.
func ProjectSkillFields() Extractor[model.Project] {
	return Extractor[model.Project]{
		{Name: "requiredSkills", Tier: 1, Weight: 100, Mode: MatchTokens, Skills: true, Get: func(p model.Project) string { return p.RequiredSkills }},
	}
}

// ProjectSearchFields are the project fields a raw explore query is filtered on.
func ProjectSearchFields() Extractor[model.Project] {
	return Extractor[model.Project]{
		{Name: "projectName", Get: func(p model.Project) string { return p.ProjectName }},
		{Name: "projectDescription", Get: func(p model.Project) string { return p.ProjectDescription }},
		{Name: "requiredSkills", Get: func(p model.Project) string { return p.RequiredSkills }},
		{Name: "hackathonName", Get: func(p model.Project) string { return p.HackathonName }},
	}
}

// TeamSearchFields are the team fields a raw query is filtered on.
func TeamSearchFields() Extractor[model.Team] {
	return Extractor[model.Team]{
		{Name: "teamName", Get: func(t model.Team) string { return t.TeamName }},
		{Name: "description", Get: func(t model.Team) string { return t.Description }},
		{Name: "skillsNeededDescription", Get: func(t model.Team) string { return t.SkillsNeededDescription }},
	}
}
