package scoring

import (
	"fmt"
	"strings"

	"github.com/okian/teamform/internal/domain/model"
)

// AvailabilityRule maps a caseless substring of the availability text to a score.
type AvailabilityRule struct {
	Contains string `koanf:"contains" json:"contains"`
	Score    int    `koanf:"score" json:"score"`
}

// Table holds every constant the compatibility strategy uses.
// Weights are integer percentages and must sum to 100.
type Table struct {
	SkillWeight        int
	AvailabilityWeight int
	ExperienceWeight   int

	// NoRequiredSkills is the skill sub-score when the project lists no skills.
	NoRequiredSkills int

	// Availability rules are checked in order; the first match wins.
	Availability        []AvailabilityRule
	AvailabilityDefault int

	// Experience is keyed by the folded, trimmed experience level.
	Experience        map[string]int
	ExperienceDefault int
}

// DefaultTable returns the standard scoring table.
func DefaultTable() Table {
	return Table{
		SkillWeight:        50,
		AvailabilityWeight: 30,
		ExperienceWeight:   20,
		NoRequiredSkills:   50,
		Availability: []AvailabilityRule{
			{Contains: "full", Score: 100},
			{Contains: "part", Score: 70},
		},
		AvailabilityDefault: 50,
		Experience: map[string]int{
			"expert":       100,
			"advanced":     85,
			"intermediate": 70,
		},
		ExperienceDefault: 60,
	}
}

// Validate checks that weights sum to 100 and every score lies in [0, MaxScore].
func (t Table) Validate() error {
	if t.SkillWeight < 0 || t.AvailabilityWeight < 0 || t.ExperienceWeight < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidTable)
	}
	if sum := t.SkillWeight + t.AvailabilityWeight + t.ExperienceWeight; sum != 100 {
		return fmt.Errorf("%w: weights sum to %d, want 100", ErrInvalidTable, sum)
	}
	check := func(name string, v int) error {
		if v < 0 || v > MaxScore {
			return fmt.Errorf("%w: %s score %d out of range", ErrInvalidTable, name, v)
		}
		return nil
	}
	if err := check("no-required-skills", t.NoRequiredSkills); err != nil {
		return err
	}
	if err := check("availability default", t.AvailabilityDefault); err != nil {
		return err
	}
	if err := check("experience default", t.ExperienceDefault); err != nil {
		return err
	}
	for _, r := range t.Availability {
		if strings.TrimSpace(r.Contains) == "" {
			return fmt.Errorf("%w: empty availability rule", ErrInvalidTable)
		}
		if err := check("availability "+r.Contains, r.Score); err != nil {
			return err
		}
	}
	for k, v := range t.Experience {
		if err := check("experience "+k, v); err != nil {
			return err
		}
	}
	return nil
}

// Breakdown is the per-signal view of a compatibility score.
type Breakdown struct {
	SkillMatch        int `json:"skillMatch"`
	AvailabilityMatch int `json:"availabilityMatch"`
	ExperienceMatch   int `json:"experienceMatch"`
	Overall           int `json:"overall"`
}

// Compatibility scores a profile against a project's required-skills text.
type Compatibility struct {
	table Table
}

// CompatibilityOption configures a Compatibility strategy.
type CompatibilityOption func(*Compatibility)

// WithTable replaces the default scoring table.
func WithTable(t Table) CompatibilityOption {
	return func(c *Compatibility) {
		c.table = t
	}
}

// NewCompatibility creates a compatibility strategy.
func NewCompatibility(opts ...CompatibilityOption) *Compatibility {
	c := &Compatibility{table: DefaultTable()}
	for _, opt := range opts {
		opt(c)
	}
	// keys may come from config with any case
	exp := make(map[string]int, len(c.table.Experience))
	for k, v := range c.table.Experience {
		exp[fold(strings.TrimSpace(k))] = v
	}
	c.table.Experience = exp
	return c
}

// Table returns the table in use.
func (c *Compatibility) Table() Table {
	return c.table
}

// Score implements Strategy. Result.Score is the overall value and
// Result.MatchedSkills lists the candidate skills that overlapped.
func (c *Compatibility) Score(p model.Profile, requiredSkills string) Result {
	b, matched := c.breakdown(p, requiredSkills)
	return Result{Score: b.Overall, MatchedSkills: matched, Breakdown: &b}
}

// Breakdown returns only the sub-scores.
func (c *Compatibility) Breakdown(p model.Profile, requiredSkills string) Breakdown {
	b, _ := c.breakdown(p, requiredSkills)
	return b
}

func (c *Compatibility) breakdown(p model.Profile, requiredSkills string) (Breakdown, []string) {
	skill, matched := c.skillMatch(p.Skills, requiredSkills)
	b := Breakdown{
		SkillMatch:        skill,
		AvailabilityMatch: c.availabilityMatch(p.Availability),
		ExperienceMatch:   c.experienceMatch(p.ExperienceLevel),
	}
	t := c.table
	sum := b.SkillMatch*t.SkillWeight + b.AvailabilityMatch*t.AvailabilityWeight + b.ExperienceMatch*t.ExperienceWeight
	b.Overall = clamp(roundDiv(sum, 100))
	return b, matched
}

// skillMatch counts candidate skills that overlap (in either direction) any
// required skill. A candidate may list more overlapping skills than the
// project requires, so the ratio is capped.
func (c *Compatibility) skillMatch(candidate, required string) (int, []string) {
	req := SplitList(required)
	if len(req) == 0 {
		return clamp(c.table.NoRequiredSkills), []string{}
	}
	reqField := Field{Mode: MatchTokens, Tokens: req, foldedTokens: make([]string, len(req))}
	for i, r := range req {
		reqField.foldedTokens[i] = fold(r)
	}

	var matched matchSet
	count := 0
	for _, s := range SplitList(candidate) {
		if _, ok := reqField.Match(fold(s)); ok {
			count++
			matched.add(s)
		}
	}
	return clamp(roundDiv(count*MaxScore, len(req))), matched.list()
}

func (c *Compatibility) availabilityMatch(availability string) int {
	a := fold(availability)
	for _, r := range c.table.Availability {
		if needle := fold(strings.TrimSpace(r.Contains)); needle != "" && strings.Contains(a, needle) {
			return r.Score
		}
	}
	return c.table.AvailabilityDefault
}

func (c *Compatibility) experienceMatch(level string) int {
	if v, ok := c.table.Experience[fold(strings.TrimSpace(level))]; ok {
		return v
	}
	return c.table.ExperienceDefault
}

// roundDiv divides non-negative n by positive d, rounding half up.
func roundDiv(n, d int) int {
	return (2*n + d) / (2 * d)
}
