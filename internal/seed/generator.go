package seed

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/okian/teamform/internal/domain/model"
)

// GenerateConfig sizes a synthetic directory.
type GenerateConfig struct {
	Profiles     int
	Projects     int
	Teams        int
	Testimonials int
	// Seed makes the output reproducible.
	Seed uint64
}

// DefaultGenerateConfig returns a small demo directory.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Profiles: 50, Projects: 12, Teams: 8, Testimonials: 6, Seed: 1}
}

var (
	firstNames = []string{"Ada", "Bea", "Cy", "Dana", "Eli", "Fay", "Gus", "Hana", "Ivo", "Jo", "Kai", "Lena"}
	lastNames  = []string{"Lovelace", "Hopper", "Ritchie", "Liskov", "Knuth", "Torvalds", "Pike", "Hamilton"}
	skillPool  = []string{
		"Go", "Rust", "Python", "React", "Node.js", "TypeScript", "Figma", "Kubernetes",
		"PostgreSQL", "Machine Learning", "Swift", "Kotlin", "UI/UX", "Docker", "GraphQL",
	}
	roles        = []string{"Backend Developer", "Frontend Developer", "Designer", "Data Scientist", "Mobile Developer", "DevOps"}
	colleges     = []string{"State Tech", "City College", "Polytechnic Institute", "Northern University"}
	years        = []string{"1st", "2nd", "3rd", "4th", "Graduate"}
	availability = []string{"Full-time", "Part-time", "Weekends only", "Evenings"}
	levels       = []string{"Beginner", "Intermediate", "Advanced", "Expert"}
	statuses     = []string{"Active", "Active", "Completed", "Draft"}
	themes       = []string{"Climate", "Health", "Education", "Finance", "Transit", "Food"}
	teamWords    = []string{"Owls", "Foxes", "Comets", "Pixels", "Rockets", "Hackers", "Makers", "Sparks"}
)

// generator draws from a seeded source so the same config yields the same directory.
type generator struct {
	rng  *rand.Rand
	base time.Time
}

func (g *generator) pick(list []string) string {
	return list[g.rng.IntN(len(list))]
}

// pickN returns n distinct entries of list joined by ", ".
func (g *generator) pickN(list []string, n int) string {
	idx := g.rng.Perm(len(list))
	n = min(n, len(list))
	out := make([]string, n)
	for i := range n {
		out[i] = list[idx[i]]
	}
	return strings.Join(out, ", ")
}

func (g *generator) date() *time.Time {
	t := g.base.Add(-time.Duration(g.rng.IntN(90*24)) * time.Hour)
	return &t
}

// Generate builds a synthetic directory. Projects are entered under the
// generated team names so team dashboards have content.
func Generate(cfg GenerateConfig) *Fixtures {
	g := &generator{
		rng:  rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		base: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	f := &Fixtures{}

	teamNames := make([]string, max(cfg.Teams, 0))
	for i := range teamNames {
		teamNames[i] = fmt.Sprintf("%s %d", g.pick(teamWords), i+1)
	}

	for range max(cfg.Profiles, 0) {
		role := g.pick(roles)
		f.Profiles = append(f.Profiles, model.Profile{
			FullName:        g.pick(firstNames) + " " + g.pick(lastNames),
			Skills:          g.pickN(skillPool, 1+g.rng.IntN(4)),
			PreferredRole:   role,
			Bio:             fmt.Sprintf("%s interested in %s projects", role, strings.ToLower(g.pick(themes))),
			College:         g.pick(colleges),
			Year:            g.pick(years),
			Availability:    g.pick(availability),
			ExperienceLevel: g.pick(levels),
		})
	}

	for i := range max(cfg.Projects, 0) {
		p := model.Project{
			ProjectName:        fmt.Sprintf("%s %s", g.pick(themes), []string{"Tracker", "Hub", "Map", "Bot"}[i%4]),
			ProjectDescription: "A hackathon project for " + strings.ToLower(g.pick(themes)),
			RequiredSkills:     g.pickN(skillPool, 1+g.rng.IntN(3)),
			ProjectStatus:      g.pick(statuses),
			RoleNeeded:         g.pick(roles),
			TeamSize:           2 + g.rng.IntN(4),
			SubmissionDate:     g.date(),
		}
		if len(teamNames) > 0 {
			p.HackathonName = teamNames[g.rng.IntN(len(teamNames))]
		}
		f.Projects = append(f.Projects, p)
	}

	for _, name := range teamNames {
		size := 2 + g.rng.IntN(5)
		f.Teams = append(f.Teams, model.Team{
			TeamName:                name,
			Description:             "Building for " + strings.ToLower(g.pick(themes)),
			LookingForMembers:       g.rng.IntN(3) > 0,
			SkillsNeededDescription: g.pickN(skillPool, 2),
			CurrentTeamSize:         1 + g.rng.IntN(size),
			MaximumTeamSize:         size,
		})
	}

	for range max(cfg.Testimonials, 0) {
		author := g.pick(firstNames) + " " + g.pick(lastNames)
		if len(f.Profiles) > 0 {
			author = f.Profiles[g.rng.IntN(len(f.Profiles))].FullName
		}
		f.Testimonials = append(f.Testimonials, model.Testimonial{
			TestimonialText: "Found my hackathon team in a day.",
			AuthorName:      author,
			AuthorRole:      g.pick(roles),
			Rating:          3 + g.rng.IntN(3),
			SubmissionDate:  g.date(),
		})
	}
	return f
}
