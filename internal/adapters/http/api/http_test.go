package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/teamform/internal/adapters/http/api"
	repository "github.com/okian/teamform/internal/adapters/repository"
	service "github.com/okian/teamform/internal/app"
	"github.com/okian/teamform/internal/domain/model"
	"github.com/okian/teamform/internal/domain/scoring"
	"github.com/okian/teamform/internal/domain/types"
	"github.com/okian/teamform/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockDependencies records the arguments it was called with.
type mockDependencies struct {
	err error

	gotQuery      string
	gotSort       string
	gotSkills     string
	gotID         string
	gotRecruiting bool
	gotLimit      int
	gotKey        string
	gotEntity     model.Entity
	replay        bool
}

func (m *mockDependencies) SearchProfiles(_ context.Context, q string) ([]types.ProfileMatch, error) {
	m.gotQuery = q
	if m.err != nil {
		return nil, m.err
	}
	return []types.ProfileMatch{{Profile: model.Profile{FullName: "Ada"}, Score: 100, MatchedSkills: []string{"Go"}}}, nil
}

func (m *mockDependencies) ExploreProjects(_ context.Context, q, sortBy string) ([]types.ProjectMatch, error) {
	m.gotQuery, m.gotSort = q, sortBy
	if m.err != nil {
		return nil, m.err
	}
	return []types.ProjectMatch{{Project: model.Project{ProjectName: "Grid"}, MatchedSkills: []string{}}}, nil
}

func (m *mockDependencies) Suggest(_ context.Context, skills string) ([]types.Suggestion, error) {
	m.gotSkills = skills
	if m.err != nil {
		return nil, m.err
	}
	return []types.Suggestion{{Profile: model.Profile{FullName: "Ada"}, Breakdown: scoring.Breakdown{Overall: 81}}}, nil
}

func (m *mockDependencies) SuggestForProject(ctx context.Context, id string) ([]types.Suggestion, error) {
	m.gotID = id
	return m.Suggest(ctx, "")
}

func (m *mockDependencies) Teams(_ context.Context, q string, recruiting bool) ([]model.Team, error) {
	m.gotQuery, m.gotRecruiting = q, recruiting
	return []model.Team{{TeamName: "Owls"}}, m.err
}

func (m *mockDependencies) TeamProjects(_ context.Context, id string) ([]model.Project, error) {
	m.gotID = id
	return []model.Project{}, m.err
}

func (m *mockDependencies) Testimonials(_ context.Context, limit int) ([]model.Testimonial, error) {
	m.gotLimit = limit
	return []model.Testimonial{}, m.err
}

func (m *mockDependencies) List(_ context.Context, kind model.Kind) ([]model.Entity, error) {
	return []model.Entity{&model.Team{Meta: model.Meta{ID: "t1"}}}, m.err
}

func (m *mockDependencies) Get(_ context.Context, kind model.Kind, id string) (model.Entity, error) {
	m.gotID = id
	if m.err != nil {
		return nil, m.err
	}
	e, _ := model.New(kind)
	e.SetID(id)
	return e, nil
}

func (m *mockDependencies) Create(_ context.Context, e model.Entity, key string) (model.Entity, bool, error) {
	m.gotEntity, m.gotKey = e, key
	if m.err != nil {
		return nil, false, m.err
	}
	e.SetID("new-id")
	return e, m.replay, nil
}

func (m *mockDependencies) Update(_ context.Context, e model.Entity) (model.Entity, error) {
	m.gotEntity = e
	return e, m.err
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats(context.Context) map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies, opts ...api.ServerOption) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then the health endpoint serves metrics", func() {
			w := do(mux, "GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint serves JSON", func() {
			w := do(mux, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then unsupported methods are rejected", func() {
			w := do(mux, "DELETE", "/profiles/p1", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSearchHandlers(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When searching profiles", func() {
			w := do(mux, "GET", "/search/profiles?q=go,%20react", "")

			Convey("Then the raw query is passed through and results returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.gotQuery, ShouldEqual, "go, react")
				var out []types.ProfileMatch
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out, ShouldHaveLength, 1)
				So(out[0].Score, ShouldEqual, 100)
			})
		})

		Convey("When exploring projects", func() {
			w := do(mux, "GET", "/projects?q=ai&sort=recent", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.gotQuery, ShouldEqual, "ai")
			So(deps.gotSort, ShouldEqual, "recent")
		})

		Convey("When the service rejects the sort order", func() {
			deps.err = fmt.Errorf("%w: sort", service.ErrInvalidInput)
			w := do(mux, "GET", "/projects?sort=oldest", "")

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("When asking for project suggestions", func() {
			w := do(mux, "GET", "/projects/p-42/suggestions", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.gotID, ShouldEqual, "p-42")
			So(w.Body.String(), ShouldContainSubstring, `"overall":81`)
		})

		Convey("When the project does not exist", func() {
			deps.err = repository.ErrNotFound
			w := do(mux, "GET", "/projects/nope/suggestions", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When asking for suggestions by skills", func() {
			w := do(mux, "GET", "/suggestions?skills=Go,React", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.gotSkills, ShouldEqual, "Go,React")
		})

		Convey("When the store fails", func() {
			deps.err = errors.New("disk on fire")
			w := do(mux, "GET", "/search/profiles?q=go", "")

			Convey("Then a 500 is returned without leaking the cause", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldNotContainSubstring, "disk on fire")
			})
		})
	})
}

func TestTeamsHandlers(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When listing recruiting teams", func() {
			w := do(mux, "GET", "/teams?q=owl&recruiting=true", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.gotQuery, ShouldEqual, "owl")
			So(deps.gotRecruiting, ShouldBeTrue)
		})

		Convey("When recruiting is not a boolean", func() {
			w := do(mux, "GET", "/teams?recruiting=maybe", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When loading a team dashboard", func() {
			w := do(mux, "GET", "/teams/t-1/projects", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.gotID, ShouldEqual, "t-1")
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("When reading testimonials without a limit", func() {
			w := do(mux, "GET", "/testimonials", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.gotLimit, ShouldEqual, 3)
		})

		Convey("When reading testimonials with a limit", func() {
			do(mux, "GET", "/testimonials?limit=10", "")
			So(deps.gotLimit, ShouldEqual, 10)

			w := do(mux, "GET", "/testimonials?limit=ten", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestEntityHandlers(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When listing a collection", func() {
			w := do(mux, "GET", "/profiles", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"id":"t1"`)
		})

		Convey("When the collection is unknown", func() {
			w := do(mux, "GET", "/widgets", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When reading one entity", func() {
			w := do(mux, "GET", "/userprofiles/p1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.gotID, ShouldEqual, "p1")
		})

		Convey("When creating an entity", func() {
			w := do(mux, "POST", "/teams", `{"teamName":"Owls","lookingForMembers":true}`, api.IdempotencyHeader, "abc")

			Convey("Then it is decoded into the right kind", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.gotKey, ShouldEqual, "abc")
				team, ok := deps.gotEntity.(*model.Team)
				So(ok, ShouldBeTrue)
				So(team.TeamName, ShouldEqual, "Owls")
				So(team.LookingForMembers, ShouldBeTrue)
				So(w.Body.String(), ShouldContainSubstring, `"id":"new-id"`)
			})
		})

		Convey("When a create is replayed", func() {
			deps.replay = true
			w := do(mux, "POST", "/teams", `{"teamName":"Owls"}`, api.IdempotencyHeader, "abc")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Idempotent-Replayed"), ShouldEqual, "true")
		})

		Convey("When a create conflicts", func() {
			deps.err = repository.ErrConflict
			w := do(mux, "POST", "/teams", `{"id":"t1"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("When the body is malformed", func() {
			w := do(mux, "POST", "/teams", `{"teamName":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			w = do(mux, "POST", "/teams", `{"color":"red"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When updating an entity", func() {
			w := do(mux, "PUT", "/projects/p9", `{"id":"other","projectName":"Grid"}`)

			Convey("Then the path id is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.gotEntity.GetID(), ShouldEqual, "p9")
			})
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a server limited to one request", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps, api.WithRateLimit(0.001, 1))

		Convey("When two requests arrive together", func() {
			first := do(mux, "GET", "/teams", "")
			second := do(mux, "GET", "/teams", "")

			Convey("Then the second is refused", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decodeError(second)["code"], ShouldEqual, "rate_limited")
				So(second.Header().Get("Retry-After"), ShouldEqual, "1")
			})
		})

		Convey("Then health checks are not limited", func() {
			do(mux, "GET", "/teams", "")
			So(do(mux, "GET", "/healthz", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("boom")

		So(api.Wrap("op", nil), ShouldBeNil)
		So(errors.Is(api.Wrap("op", cause), cause), ShouldBeTrue)
		So(api.Wrap("op", cause).Error(), ShouldEqual, "op: boom")

		err := api.WrapKind("op", api.ErrBadRequest, cause)
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "op: bad request: boom")

		So(api.NewKind("op", api.ErrRateLimited).Error(), ShouldEqual, "op: rate limited")
	})
}
