package api

import (
	"net/http"

	"github.com/okian/teamform/pkg/logger"
)

// defaultTestimonials is how many testimonials the home page shows.
const defaultTestimonials = 3

// TeamsHandler serves team listings, team dashboards and testimonials.
type TeamsHandler struct {
	responder
	deps TeamDependencies
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps TeamDependencies, log logger.Logger) *TeamsHandler {
	return &TeamsHandler{responder: responder{log: log}, deps: deps}
}

// HandleTeams handles GET /teams?q=&recruiting= requests.
func (h *TeamsHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	const op = "api.teams"
	recruiting, err := queryBool(r, "recruiting")
	if err != nil {
		h.fail(r, w, Wrap(op, err))
		return
	}
	out, err := h.deps.Teams(r.Context(), r.URL.Query().Get("q"), recruiting)
	if err != nil {
		h.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleTeamProjects handles GET /teams/{id}/projects requests.
func (h *TeamsHandler) HandleTeamProjects(w http.ResponseWriter, r *http.Request) {
	const op = "api.team_projects"
	out, err := h.deps.TeamProjects(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleTestimonials handles GET /testimonials?limit= requests.
func (h *TeamsHandler) HandleTestimonials(w http.ResponseWriter, r *http.Request) {
	const op = "api.testimonials"
	limit, err := queryInt(r, "limit", defaultTestimonials)
	if err != nil {
		h.fail(r, w, Wrap(op, err))
		return
	}
	out, err := h.deps.Testimonials(r.Context(), limit)
	if err != nil {
		h.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}
