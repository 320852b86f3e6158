package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/teamform/internal/adapters/repository"
	service "github.com/okian/teamform/internal/app"
	"github.com/okian/teamform/internal/domain/model"
	"github.com/okian/teamform/internal/domain/scoring"
	"github.com/okian/teamform/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func date(day int) *time.Time {
	t := time.Date(2024, 5, day, 0, 0, 0, 0, time.UTC)
	return &t
}

// seed fills the service with a small directory.
func seed(ctx context.Context, svc *service.Service) {
	entities := []model.Entity{
		&model.Profile{FullName: "Ada", Skills: "Go, Rust", Availability: "Full-time", ExperienceLevel: "Expert"},
		&model.Profile{FullName: "Bea", Bio: "I love backend development", Availability: "Part-time"},
		&model.Profile{FullName: "Cy", Skills: "React, Figma", Availability: "Full-time", ExperienceLevel: "Advanced"},
		&model.Profile{FullName: "Di", Skills: "Photoshop"},
		&model.Project{Meta: model.Meta{ID: "grid"}, ProjectName: "Green Grid", RequiredSkills: "Go, React", HackathonName: "Owls", ProjectStatus: "Active", SubmissionDate: date(1)},
		&model.Project{Meta: model.Meta{ID: "solar"}, ProjectName: "Solar Map", RequiredSkills: "Python", HackathonName: "Owls", ProjectStatus: "completed", SubmissionDate: date(9)},
		&model.Project{Meta: model.Meta{ID: "chat"}, ProjectName: "Chat Go", RequiredSkills: "Node.js", HackathonName: "Foxes", ProjectStatus: "active"},
		&model.Team{Meta: model.Meta{ID: "owls"}, TeamName: "Owls", Description: "night builders", LookingForMembers: true, CurrentTeamSize: 2, MaximumTeamSize: 4},
		&model.Team{Meta: model.Meta{ID: "foxes"}, TeamName: "Foxes", Description: "full team", LookingForMembers: true, CurrentTeamSize: 4, MaximumTeamSize: 4},
		&model.Testimonial{TestimonialText: "found my team", AuthorName: "Ada", Rating: 5},
		&model.Testimonial{TestimonialText: "great", AuthorName: "Zed", Rating: 4},
		&model.Testimonial{TestimonialText: "again", AuthorName: "Ada", Rating: 3},
		&model.Testimonial{TestimonialText: "nice", AuthorName: "Yu", Rating: 4},
	}
	for _, e := range entities {
		if _, _, err := svc.Create(ctx, e, ""); err != nil {
			panic(err)
		}
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithScoreWorkers(0),
			service.WithSuggestionLimit(3),
			service.WithDedupeSize(10),
		)

		Convey("Then it reports its configuration before start", func() {
			stats := svc.GetStats(context.Background())
			So(stats["started"], ShouldEqual, false)
			So(stats["scoreWorkers"], ShouldEqual, 0)
			So(stats["suggestionLimit"], ShouldEqual, 3)
		})

		Convey("Then operations fail until it is started", func() {
			_, err := svc.SearchProfiles(context.Background(), "go")
			So(err, ShouldEqual, service.ErrNotStarted)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats(ctx)["started"], ShouldEqual, true)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When the table is invalid", func() {
			table := scoring.DefaultTable()
			table.SkillWeight = 0
			bad := service.New(service.WithTable(table))

			So(errors.Is(bad.Start(context.Background()), scoring.ErrInvalidTable), ShouldBeTrue)
		})

		Convey("When the store driver is unknown", func() {
			bad := service.New(service.WithStoreDriver("postgres", ""))

			So(errors.Is(bad.Start(context.Background()), repository.ErrUnknownDriver), ShouldBeTrue)
		})
	})
}

func TestService_Matching(t *testing.T) {
	Convey("Given a seeded service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithScoreWorkers(4))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		seed(ctx, svc)

		Convey("When searching profiles", func() {
			out, err := svc.SearchProfiles(ctx, "go, backend")
			So(err, ShouldBeNil)

			Convey("Then matching people are ranked with testimonials attached", func() {
				So(out, ShouldHaveLength, 2)
				So(out[0].Profile.FullName, ShouldEqual, "Ada")
				So(out[0].Score, ShouldEqual, 100)
				So(out[0].MatchedSkills, ShouldResemble, []string{"Go"})
				So(out[0].Testimonial, ShouldNotBeNil)
				So(out[0].Testimonial.TestimonialText, ShouldEqual, "found my team")
				So(out[1].Profile.FullName, ShouldEqual, "Bea")
				So(out[1].Score, ShouldEqual, 60)
				So(out[1].Testimonial, ShouldBeNil)
			})
		})

		Convey("When searching with a blank query", func() {
			out, err := svc.SearchProfiles(ctx, " , ")
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})

		Convey("When exploring projects without a query", func() {
			out, err := svc.ExploreProjects(ctx, "", "")
			So(err, ShouldBeNil)

			Convey("Then every project is listed in store order", func() {
				So(out, ShouldHaveLength, 3)
				So(out[0].Project.ID, ShouldEqual, "grid")
			})
		})

		Convey("When exploring projects by recency", func() {
			out, err := svc.ExploreProjects(ctx, "", service.SortRecent)
			So(err, ShouldBeNil)

			Convey("Then newer submissions come first and undated ones last", func() {
				So(out[0].Project.ID, ShouldEqual, "solar")
				So(out[1].Project.ID, ShouldEqual, "grid")
				So(out[2].Project.ID, ShouldEqual, "chat")
			})
		})

		Convey("When exploring projects with a query", func() {
			out, err := svc.ExploreProjects(ctx, "go", "")
			So(err, ShouldBeNil)

			Convey("Then only containing projects are kept, zero scores included", func() {
				So(out, ShouldHaveLength, 2)
				So(out[0].Project.ID, ShouldEqual, "grid")
				So(out[0].Score, ShouldEqual, 100)
				So(out[1].Project.ID, ShouldEqual, "chat")
				So(out[1].Score, ShouldEqual, 0)
			})
		})

		Convey("When exploring with an unknown sort", func() {
			_, err := svc.ExploreProjects(ctx, "", "oldest")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When suggesting teammates for a project", func() {
			out, err := svc.SuggestForProject(ctx, "grid")
			So(err, ShouldBeNil)

			Convey("Then every profile is ranked by compatibility", func() {
				So(out, ShouldHaveLength, 4)
				So(out[0].Profile.FullName, ShouldEqual, "Ada")
				So(out[0].Breakdown.Overall, ShouldEqual, 75)
				So(out[1].Profile.FullName, ShouldEqual, "Cy")
				So(out[1].Breakdown.Overall, ShouldEqual, 72)
			})
		})

		Convey("When suggesting for an unknown project", func() {
			_, err := svc.SuggestForProject(ctx, "missing")
			So(service.IsNotFound(err), ShouldBeTrue)
		})

		Convey("When the suggestion limit is smaller than the directory", func() {
			small := service.New(service.WithSuggestionLimit(2), service.WithStore(svc.Store()))
			So(small.Start(ctx), ShouldBeNil)
			defer small.Stop()

			out, err := small.Suggest(ctx, "Go")
			So(err, ShouldBeNil)
			So(out, ShouldHaveLength, 2)
		})

		Convey("When listing teams", func() {
			all, err := svc.Teams(ctx, "", false)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 2)

			recruiting, err := svc.Teams(ctx, "", true)
			So(err, ShouldBeNil)
			So(recruiting, ShouldHaveLength, 1)
			So(recruiting[0].TeamName, ShouldEqual, "Owls")

			filtered, err := svc.Teams(ctx, "FULL", false)
			So(err, ShouldBeNil)
			So(filtered, ShouldHaveLength, 1)
			So(filtered[0].TeamName, ShouldEqual, "Foxes")
		})

		Convey("When loading a team dashboard", func() {
			out, err := svc.TeamProjects(ctx, "owls")
			So(err, ShouldBeNil)

			Convey("Then only the team's active projects are returned", func() {
				So(out, ShouldHaveLength, 1)
				So(out[0].ID, ShouldEqual, "grid")
			})
		})

		Convey("When reading testimonials", func() {
			out, err := svc.Testimonials(ctx, 3)
			So(err, ShouldBeNil)
			So(out, ShouldHaveLength, 3)
			So(out[1].AuthorName, ShouldEqual, "Zed")

			all, err := svc.Testimonials(ctx, 0)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 4)
		})

		Convey("Then stats count each collection", func() {
			stats := svc.GetStats(ctx)
			So(stats["entities"], ShouldResemble, map[string]int{
				"profiles": 4, "projects": 3, "teams": 2, "testimonials": 4,
			})
		})
	})
}

func TestService_Create(t *testing.T) {
	Convey("Given a started service with a fixed clock", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
		svc := service.New(service.WithClock(func() time.Time { return now }))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When creating without an ID", func() {
			e, replayed, err := svc.Create(ctx, &model.Profile{FullName: "Ada"}, "")
			So(err, ShouldBeNil)

			Convey("Then an ID and timestamps are assigned", func() {
				So(replayed, ShouldBeFalse)
				So(e.GetID(), ShouldNotBeEmpty)
				So(e.Created().Equal(now), ShouldBeTrue)
			})
		})

		Convey("When the same idempotency key is used twice", func() {
			first, _, err := svc.Create(ctx, &model.Team{TeamName: "Owls"}, "k1")
			So(err, ShouldBeNil)
			second, replayed, err := svc.Create(ctx, &model.Team{TeamName: "Other"}, "k1")
			So(err, ShouldBeNil)

			Convey("Then the first entity is returned and nothing new is stored", func() {
				So(replayed, ShouldBeTrue)
				So(second.GetID(), ShouldEqual, first.GetID())
				So(second.(*model.Team).TeamName, ShouldEqual, "Owls")
				teams, err := svc.List(ctx, model.KindTeams)
				So(err, ShouldBeNil)
				So(teams, ShouldHaveLength, 1)
			})
		})

		Convey("When a keyed create fails", func() {
			_, _, err := svc.Create(ctx, &model.Team{Meta: model.Meta{ID: "dup"}}, "")
			So(err, ShouldBeNil)
			_, _, err = svc.Create(ctx, &model.Team{Meta: model.Meta{ID: "dup"}}, "k2")
			So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)

			Convey("Then the key can be retried", func() {
				e, replayed, err := svc.Create(ctx, &model.Team{Meta: model.Meta{ID: "fresh"}}, "k2")
				So(err, ShouldBeNil)
				So(replayed, ShouldBeFalse)
				So(e.GetID(), ShouldEqual, "fresh")
			})
		})

		Convey("When updating an entity", func() {
			e, _, err := svc.Create(ctx, &model.Profile{FullName: "Ada"}, "")
			So(err, ShouldBeNil)
			now = now.Add(time.Hour)

			upd := &model.Profile{Meta: model.Meta{ID: e.GetID()}, FullName: "Ada L."}
			got, err := svc.Update(ctx, upd)
			So(err, ShouldBeNil)

			Convey("Then the creation time is kept and the update time moves", func() {
				So(got.Created().Equal(now.Add(-time.Hour)), ShouldBeTrue)
				stored, err := svc.Get(ctx, model.KindProfiles, e.GetID())
				So(err, ShouldBeNil)
				So(stored.(*model.Profile).FullName, ShouldEqual, "Ada L.")
				So(stored.(*model.Profile).UpdatedAt.Equal(now), ShouldBeTrue)
			})
		})

		Convey("When updating a missing entity", func() {
			_, err := svc.Update(ctx, &model.Profile{Meta: model.Meta{ID: "nope"}})
			So(service.IsNotFound(err), ShouldBeTrue)
		})
	})
}
