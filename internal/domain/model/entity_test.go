package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/teamform/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseKind(t *testing.T) {
	Convey("Given collection names", t, func() {
		Convey("When they are known", func() {
			for in, want := range map[string]model.Kind{
				"profiles":     model.KindProfiles,
				"userprofiles": model.KindProfiles,
				" Projects ":   model.KindProjects,
				"teams":        model.KindTeams,
				"TESTIMONIALS": model.KindTestimonials,
			} {
				got, err := model.ParseKind(in)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("When they are unknown", func() {
			_, err := model.ParseKind("widgets")

			Convey("Then ErrUnknownKind is returned", func() {
				So(errors.Is(err, model.ErrUnknownKind), ShouldBeTrue)
			})
		})
	})
}

func TestNewAndStamp(t *testing.T) {
	Convey("Given a zero entity for every kind", t, func() {
		for _, k := range model.Kinds() {
			e, err := model.New(k)
			So(err, ShouldBeNil)
			So(e.Kind(), ShouldEqual, k)
		}

		Convey("When stamping twice", func() {
			p := &model.Profile{}
			first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			second := first.Add(time.Hour)
			p.Stamp(first)
			p.Stamp(second)

			Convey("Then CreatedAt keeps the first time", func() {
				So(p.CreatedAt, ShouldEqual, first)
				So(p.UpdatedAt, ShouldEqual, second)
			})
		})
	})
}

func TestClone(t *testing.T) {
	Convey("Given a project with a submission date", t, func() {
		when := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		p := &model.Project{ProjectName: "Atlas", SubmissionDate: &when}

		Convey("When the clone is modified", func() {
			c := p.Clone().(*model.Project)
			c.ProjectName = "Other"
			*c.SubmissionDate = when.Add(time.Hour)

			Convey("Then the original is untouched", func() {
				So(p.ProjectName, ShouldEqual, "Atlas")
				So(*p.SubmissionDate, ShouldEqual, when)
			})
		})
	})
}

func TestTeamRecruiting(t *testing.T) {
	Convey("Given teams with different sizes", t, func() {
		open := model.Team{LookingForMembers: true, CurrentTeamSize: 2, MaximumTeamSize: 4}
		full := model.Team{LookingForMembers: true, CurrentTeamSize: 4, MaximumTeamSize: 4}
		noSizes := model.Team{LookingForMembers: true}
		closed := model.Team{CurrentTeamSize: 1, MaximumTeamSize: 4}

		So(open.SpotsLeft(), ShouldEqual, 2)
		So(open.Recruiting(), ShouldBeTrue)
		So(full.Recruiting(), ShouldBeFalse)
		So(noSizes.SpotsLeft(), ShouldEqual, 0)
		So(noSizes.Recruiting(), ShouldBeFalse)
		So(closed.Recruiting(), ShouldBeFalse)
	})
}

func TestCollect(t *testing.T) {
	Convey("Given a mixed entity slice", t, func() {
		ents := []model.Entity{
			&model.Profile{FullName: "Ada"},
			&model.Project{ProjectName: "Atlas"},
			&model.Profile{FullName: "Grace"},
		}

		Convey("Then Collect keeps only the requested type in order", func() {
			profiles := model.Collect[model.Profile](ents)
			So(len(profiles), ShouldEqual, 2)
			So(profiles[0].FullName, ShouldEqual, "Ada")
			So(profiles[1].FullName, ShouldEqual, "Grace")
		})
	})
}
