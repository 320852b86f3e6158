// Package model contains the directory records passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind names one of the four entity collections.
type Kind string

// Entity collections.
const (
	KindProfiles     Kind = "profiles"
	KindProjects     Kind = "projects"
	KindTeams        Kind = "teams"
	KindTestimonials Kind = "testimonials"
)

// ErrUnknownKind is returned by ParseKind and New for unrecognised collection names.
var ErrUnknownKind = errors.New("unknown entity kind")

// Kinds lists every collection in a stable order.
func Kinds() []Kind {
	return []Kind{KindProfiles, KindProjects, KindTeams, KindTestimonials}
}

// ParseKind maps a collection name to a Kind. "userprofiles" is accepted as an alias.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "profiles", "userprofiles":
		return KindProfiles, nil
	case "projects":
		return KindProjects, nil
	case "teams":
		return KindTeams, nil
	case "testimonials":
		return KindTestimonials, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Entity is any record held by the store.
type Entity interface {
	Kind() Kind
	GetID() string
	SetID(id string)
	Created() time.Time
	SetCreated(t time.Time)
	// Stamp sets CreatedAt when unset and UpdatedAt to now.
	Stamp(now time.Time)
	Clone() Entity
}

// New returns a zero entity of the given kind, ready for decoding.
func New(kind Kind) (Entity, error) {
	switch kind {
	case KindProfiles:
		return &Profile{}, nil
	case KindProjects:
		return &Project{}, nil
	case KindTeams:
		return &Team{}, nil
	case KindTestimonials:
		return &Testimonial{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Meta holds the bookkeeping fields every record carries.
type Meta struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"createdDate" yaml:"createdDate"`
	UpdatedAt time.Time `json:"updatedDate" yaml:"updatedDate"`
}

// GetID returns the record identifier.
func (m *Meta) GetID() string { return m.ID }

// SetID sets the record identifier.
func (m *Meta) SetID(id string) { m.ID = id }

// Created returns the creation time.
func (m *Meta) Created() time.Time { return m.CreatedAt }

// SetCreated sets the creation time.
func (m *Meta) SetCreated(t time.Time) { m.CreatedAt = t }

// Stamp sets CreatedAt when unset and UpdatedAt to now.
func (m *Meta) Stamp(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// Profile is a person looking for teammates.
type Profile struct {
	Meta                   `yaml:",inline"`
	FullName               string `json:"fullName,omitempty" yaml:"fullName"`
	Skills                 string `json:"skills,omitempty" yaml:"skills"`
	PreferredRole          string `json:"preferredRole,omitempty" yaml:"preferredRole"`
	Bio                    string `json:"bio,omitempty" yaml:"bio"`
	College                string `json:"college,omitempty" yaml:"college"`
	Year                   string `json:"year,omitempty" yaml:"year"`
	Achievements           string `json:"achievements,omitempty" yaml:"achievements"`
	HackathonParticipation string `json:"hackathonParticipation,omitempty" yaml:"hackathonParticipation"`
	GithubURL              string `json:"githubUrl,omitempty" yaml:"githubUrl"`
	Availability           string `json:"availability,omitempty" yaml:"availability"`
	ExperienceLevel        string `json:"experienceLevel,omitempty" yaml:"experienceLevel"`
	ProfilePicture         string `json:"profilePicture,omitempty" yaml:"profilePicture"`
}

// Kind implements Entity.
func (p *Profile) Kind() Kind { return KindProfiles }

// Clone implements Entity.
func (p *Profile) Clone() Entity {
	c := *p
	return &c
}

// Project is a hackathon project that needs people.
type Project struct {
	Meta               `yaml:",inline"`
	ProjectName        string     `json:"projectName,omitempty" yaml:"projectName"`
	ProjectDescription string     `json:"projectDescription,omitempty" yaml:"projectDescription"`
	ProjectGoals       string     `json:"projectGoals,omitempty" yaml:"projectGoals"`
	RequiredSkills     string     `json:"requiredSkills,omitempty" yaml:"requiredSkills"`
	HackathonName      string     `json:"hackathonName,omitempty" yaml:"hackathonName"`
	ProjectStatus      string     `json:"projectStatus,omitempty" yaml:"projectStatus"`
	RoleNeeded         string     `json:"roleNeeded,omitempty" yaml:"roleNeeded"`
	TeamSize           int        `json:"teamSize,omitempty" yaml:"teamSize"`
	TimeCommitment     string     `json:"timeCommitment,omitempty" yaml:"timeCommitment"`
	SubmissionDate     *time.Time `json:"submissionDate,omitempty" yaml:"submissionDate"`
	ProjectImage       string     `json:"projectImage,omitempty" yaml:"projectImage"`
}

// Kind implements Entity.
func (p *Project) Kind() Kind { return KindProjects }

// Clone implements Entity.
func (p *Project) Clone() Entity {
	c := *p
	c.SubmissionDate = cloneTime(p.SubmissionDate)
	return &c
}

// IsActive reports whether the project status is "active", ignoring case.
func (p *Project) IsActive() bool {
	return strings.EqualFold(strings.TrimSpace(p.ProjectStatus), "active")
}

// Team is a group that may be recruiting.
type Team struct {
	Meta                    `yaml:",inline"`
	TeamName                string `json:"teamName,omitempty" yaml:"teamName"`
	Description             string `json:"description,omitempty" yaml:"description"`
	Goal                    string `json:"goal,omitempty" yaml:"goal"`
	LookingForMembers       bool   `json:"lookingForMembers,omitempty" yaml:"lookingForMembers"`
	SkillsNeededDescription string `json:"skillsNeededDescription,omitempty" yaml:"skillsNeededDescription"`
	CurrentTeamSize         int    `json:"currentTeamSize,omitempty" yaml:"currentTeamSize"`
	MaximumTeamSize         int    `json:"maximumTeamSize,omitempty" yaml:"maximumTeamSize"`
	TeamLogo                string `json:"teamLogo,omitempty" yaml:"teamLogo"`
}

// Kind implements Entity.
func (t *Team) Kind() Kind { return KindTeams }

// Clone implements Entity.
func (t *Team) Clone() Entity {
	c := *t
	return &c
}

// SpotsLeft is MaximumTeamSize minus CurrentTeamSize; absent sizes count as 0.
func (t *Team) SpotsLeft() int {
	return t.MaximumTeamSize - t.CurrentTeamSize
}

// Recruiting reports whether the team is looking for members and has room.
func (t *Team) Recruiting() bool {
	return t.LookingForMembers && t.SpotsLeft() > 0
}

// Testimonial is a short quote left by a user.
type Testimonial struct {
	Meta            `yaml:",inline"`
	TestimonialText string     `json:"testimonialText,omitempty" yaml:"testimonialText"`
	AuthorName      string     `json:"authorName,omitempty" yaml:"authorName"`
	AuthorRole      string     `json:"authorRole,omitempty" yaml:"authorRole"`
	Rating          int        `json:"rating,omitempty" yaml:"rating"`
	SubmissionDate  *time.Time `json:"submissionDate,omitempty" yaml:"submissionDate"`
	AuthorAvatar    string     `json:"authorAvatar,omitempty" yaml:"authorAvatar"`
}

// Kind implements Entity.
func (t *Testimonial) Kind() Kind { return KindTestimonials }

// Clone implements Entity.
func (t *Testimonial) Clone() Entity {
	c := *t
	c.SubmissionDate = cloneTime(t.SubmissionDate)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Collect keeps the entities whose dynamic type is *T and returns copies of their values.
func Collect[T any](ents []Entity) []T {
	out := make([]T, 0, len(ents))
	for _, e := range ents {
		if v, ok := any(e).(*T); ok && v != nil {
			out = append(out, *v)
		}
	}
	return out
}
