// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/okian/teamform/internal/domain/model"
	"github.com/okian/teamform/internal/domain/types"
	"github.com/okian/teamform/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SearchDependencies
	TeamDependencies
	EntityDependencies
}

// SearchDependencies covers people search, project exploration and suggestions.
type SearchDependencies interface {
	SearchProfiles(ctx context.Context, rawQuery string) ([]types.ProfileMatch, error)
	ExploreProjects(ctx context.Context, rawQuery, sortBy string) ([]types.ProjectMatch, error)
	Suggest(ctx context.Context, requiredSkills string) ([]types.Suggestion, error)
	SuggestForProject(ctx context.Context, projectID string) ([]types.Suggestion, error)
}

// TeamDependencies covers team listing, team dashboards and testimonials.
type TeamDependencies interface {
	Teams(ctx context.Context, rawQuery string, recruitingOnly bool) ([]model.Team, error)
	TeamProjects(ctx context.Context, teamID string) ([]model.Project, error)
	Testimonials(ctx context.Context, limit int) ([]model.Testimonial, error)
}

// EntityDependencies covers collection reads and writes.
type EntityDependencies interface {
	List(ctx context.Context, kind model.Kind) ([]model.Entity, error)
	Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error)
	Create(ctx context.Context, e model.Entity, idempotencyKey string) (model.Entity, bool, error)
	Update(ctx context.Context, e model.Entity) (model.Entity, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	searchHandler *SearchHandler
	teamsHandler  *TeamsHandler
	entityHandler *EntityHandler

	limiter *rate.Limiter
	log     logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRateLimit limits all API requests to rps per second with the given
// burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithServerLogger sets the logger used for failed requests.
func WithServerLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("api")
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.searchHandler = NewSearchHandler(deps, s.log)
	s.teamsHandler = NewTeamsHandler(deps, s.log)
	s.entityHandler = NewEntityHandler(deps, s.log)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(RateLimitMiddleware(s.limiter, endpoint, h), endpoint))
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	handle("GET /search/profiles", "search_profiles", s.searchHandler.HandleSearchProfiles)
	handle("GET /projects", "explore_projects", s.searchHandler.HandleExploreProjects)
	handle("GET /projects/{id}/suggestions", "project_suggestions", s.searchHandler.HandleProjectSuggestions)
	handle("GET /suggestions", "suggestions", s.searchHandler.HandleSuggestions)

	handle("GET /teams", "teams", s.teamsHandler.HandleTeams)
	handle("GET /teams/{id}/projects", "team_projects", s.teamsHandler.HandleTeamProjects)
	handle("GET /testimonials", "testimonials", s.teamsHandler.HandleTestimonials)

	handle("GET /{kind}", "list_entities", s.entityHandler.HandleList)
	handle("POST /{kind}", "create_entity", s.entityHandler.HandleCreate)
	handle("GET /{kind}/{id}", "get_entity", s.entityHandler.HandleGet)
	handle("PUT /{kind}/{id}", "update_entity", s.entityHandler.HandleUpdate)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status and code classify assigns to err.
// Server errors hide their message from the client.
func writeError(w http.ResponseWriter, err error) int {
	status, code := classify(err)
	msg := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
	return status
}

// responder is embedded by handlers that log failed requests.
type responder struct {
	log logger.Logger
}

func (rs responder) fail(r *http.Request, w http.ResponseWriter, err error) {
	if status := writeError(w, err); status >= http.StatusInternalServerError {
		rs.log.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}
	return n, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrBadRequest, name)
	}
	return b, nil
}
