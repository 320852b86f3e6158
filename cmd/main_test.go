package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/teamform/internal/adapters/http/api"
	app "github.com/okian/teamform/internal/app"
	"github.com/okian/teamform/internal/config"
	"github.com/okian/teamform/internal/domain/types"
	"github.com/okian/teamform/internal/seed"
	"github.com/okian/teamform/pkg/logger"
	"github.com/okian/teamform/pkg/metrics"
)

const fixtures = `
profiles:
  - fullName: Ada
    skills: Go, Rust
    availability: Full-time
    experienceLevel: Expert
  - fullName: Bea
    bio: backend developer
projects:
  - id: grid
    projectName: Green Grid
    requiredSkills: Go, React
    projectStatus: active
  - id: solar
    projectName: Solar Map
    requiredSkills: Python
`

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func writeFixtures(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	if err := os.WriteFile(path, []byte(fixtures), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	err := newApp(&out, &errOut).Run(append([]string{"teamform"}, args...))
	return out.String(), errOut.String(), err
}

func TestCommands(t *testing.T) {
	convey.Convey("Given a fixture file configured as seed", t, func() {
		t.Setenv("TEAMFORM_SEED_FILE", writeFixtures(t))

		convey.Convey("When searching", func() {
			out, _, err := run("search", "--query", "go, backend")
			convey.So(err, convey.ShouldBeNil)

			var got []types.ProfileMatch
			convey.So(json.Unmarshal([]byte(out), &got), convey.ShouldBeNil)

			convey.Convey("Then results are printed as JSON", func() {
				convey.So(got, convey.ShouldHaveLength, 2)
				convey.So(got[0].Profile.FullName, convey.ShouldEqual, "Ada")
				convey.So(got[0].Score, convey.ShouldEqual, 100)
				convey.So(got[1].Score, convey.ShouldEqual, 60)
			})
		})

		convey.Convey("When suggesting for a project", func() {
			out, _, err := run("suggest", "--project", "grid")
			convey.So(err, convey.ShouldBeNil)

			var got []types.Suggestion
			convey.So(json.Unmarshal([]byte(out), &got), convey.ShouldBeNil)
			convey.So(got[0].Profile.FullName, convey.ShouldEqual, "Ada")
			convey.So(got[0].Breakdown.Overall, convey.ShouldEqual, 75)
		})

		convey.Convey("When suggesting without input", func() {
			_, _, err := run("suggest")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When exploring", func() {
			out, _, err := run("explore", "--query", "map")
			convey.So(err, convey.ShouldBeNil)

			var got []types.ProjectMatch
			convey.So(json.Unmarshal([]byte(out), &got), convey.ShouldBeNil)
			convey.So(got, convey.ShouldHaveLength, 1)
			convey.So(got[0].Project.ID, convey.ShouldEqual, "solar")
		})

		convey.Convey("When exploring with a bad sort", func() {
			_, _, err := run("explore", "--sort", "oldest")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})

}

func TestSeedCommand(t *testing.T) {
	convey.Convey("Given the seed command", t, func() {
		convey.Convey("When dumping a generated directory", func() {
			out, _, err := run("seed", "--generate", "12", "--dump")
			convey.So(err, convey.ShouldBeNil)

			f, err := seed.Load(bytes.NewBufferString(out))
			convey.So(err, convey.ShouldBeNil)
			convey.So(f.Profiles, convey.ShouldHaveLength, 12)
		})

		convey.Convey("When seeding a sqlite store", func() {
			dir := t.TempDir()
			out, _, err := run("--store", "sqlite", "--data-dir", dir, "seed", "--file", writeFixtures(t))
			convey.So(err, convey.ShouldBeNil)

			var res seed.Result
			convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
			convey.So(res.Created, convey.ShouldEqual, 4)

			convey.Convey("Then a later command reads the stored directory", func() {
				out, _, err := run("--store", "sqlite", "--data-dir", dir, "search", "-q", "backend")
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Bea")
			})
		})

		convey.Convey("When no source is given", func() {
			_, _, err := run("seed")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given logs and output", t, func() {
		out, errOut, err := run("--log-level", "debug", "seed", "--generate", "1", "--dump")

		convey.Convey("Then logs never reach stdout", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldNotContainSubstring, "level=")
			convey.So(errOut, convey.ShouldNotContainSubstring, "profiles:")
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When building a service from defaults", func() {
			cfg := config.New(t.Context())
			svc := newService(cfg)

			convey.Convey("Then it starts and serves the API", func() {
				convey.So(svc.Start(t.Context()), convey.ShouldBeNil)
				defer svc.Stop()
				server := api.NewServer(svc, svc, api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
				convey.So(server, convey.ShouldNotBeNil)
				convey.So(svc.GetStats(t.Context())["suggestionLimit"], convey.ShouldEqual, cfg.SuggestionLimit)
			})
		})

		convey.Convey("When updating system metrics", func() {
			convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
			convey.So(metrics.GetRegistry(), convey.ShouldNotBeNil)
			convey.So(runtime.NumGoroutine(), convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("When the sort flag defaults", func() {
			convey.So(app.SortRelevance, convey.ShouldEqual, "relevance")
		})
	})
}
